package contest

// Phase deriva do horário e do outcome resolvido; nunca é gravada
type Phase int

const (
	PhaseOpen Phase = iota
	PhaseAwaitingResolution
	PhaseResolvable
	PhaseResolved
)

func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "open"
	case PhaseAwaitingResolution:
		return "awaiting_resolution"
	case PhaseResolvable:
		return "resolvable"
	case PhaseResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// PhaseAt calcula a fase do contest em now (unix segundos)
func PhaseAt(info ContestInfo, s ContestBetSummary, now uint64) Phase {
	switch {
	case s.IsResolved():
		return PhaseResolved
	case now < info.TimeOfClose:
		return PhaseOpen
	case now < info.TimeOfResolve:
		return PhaseAwaitingResolution
	default:
		return PhaseResolvable
	}
}
