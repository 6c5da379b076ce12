package contest

// OutcomeID identifica um outcome declarado. O id 0 é reservado para Void
type OutcomeID uint8

const (
	VoidOutcomeID   OutcomeID = 0
	VoidOutcomeName           = "Nullified Result"
)

// Outcome é um resultado possível declarado no contest
type Outcome struct {
	ID   OutcomeID `json:"id"`
	Name string    `json:"name"`
}

// VoidOutcome é o outcome sintético de um contest anulado
func VoidOutcome() Outcome {
	return Outcome{ID: VoidOutcomeID, Name: VoidOutcomeName}
}

func (o Outcome) IsVoid() bool { return o.ID == VoidOutcomeID }

// ContestInfo é a definição imutável do contest. A ordem dos campos e os
// nomes json formam a codificação assinada
type ContestInfo struct {
	ID            uint32    `json:"id"`
	Outcomes      []Outcome `json:"options"`
	TimeOfClose   uint64    `json:"time_of_close"`
	TimeOfResolve uint64    `json:"time_of_resolve"`
	EventDetails  string    `json:"event_details"`
}

// FindOutcome retorna o outcome declarado com o id informado
func (c ContestInfo) FindOutcome(id OutcomeID) (Outcome, bool) {
	for _, o := range c.Outcomes {
		if o.ID == id {
			return o, true
		}
	}
	return Outcome{}, false
}

// FeeFraction é a taxa do protocolo aplicada ao pool antes da distribuição
type FeeFraction struct {
	Numerator   uint64 `json:"numerator"`
	Denominator uint64 `json:"denominator"`
}

func (f FeeFraction) Valid() bool {
	return f.Denominator > 0 && f.Numerator <= f.Denominator
}

// Bet é o total apostado por um usuário em um outcome do contest
type Bet struct {
	User        string    `json:"user"`
	ContestID   uint32    `json:"contest_id"`
	Amount      uint64    `json:"amount"`
	OutcomeID   OutcomeID `json:"outcome_id"`
	HasBeenPaid bool      `json:"has_been_paid"`
}

// UserContest é a chave do ledger de apostas
type UserContest struct {
	User      string
	ContestID uint32
}

func (b Bet) Key() UserContest { return UserContest{User: b.User, ContestID: b.ContestID} }

// GlobalConfig é a configuração única do protocolo
type GlobalConfig struct {
	Owner           string      `json:"owner"`
	SignerPublicKey string      `json:"signer_public_key"`
	MinimumBet      uint64      `json:"minimum_bet"`
	Fee             FeeFraction `json:"fee"`
	ClaimableFees   uint64      `json:"claimable_fees"`
}

// Stats são contadores globais atualizados a cada aposta
type Stats struct {
	TotalVolume uint64 `json:"total_volume"`
	TotalBets   uint64 `json:"total_bets"`
	TotalUsers  uint64 `json:"total_users"`
}

// ContestView junta a definição e o estado atual do pool
type ContestView struct {
	Info    ContestInfo       `json:"contest_info"`
	Summary ContestBetSummary `json:"contest_bet_summary"`
}

// UserBetView é a aposta junto com o contest
type UserBetView struct {
	Bet     Bet         `json:"bet"`
	Contest ContestView `json:"contest"`
}
