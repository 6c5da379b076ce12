package events

// Tipos de evento publicados após cada operação confirmada
const (
	TypeContestCreated = "contest_created"
	TypeBetPlaced      = "bet_placed"
	TypeContestSettled = "contest_settled"
	TypeBetClaimed     = "bet_claimed"
	TypeFeesClaimed    = "fees_claimed"
)

// ContestEvent é o envelope único publicado no Kafka e no Redis Pub/Sub
type ContestEvent struct {
	Type      string `json:"type"`
	ContestID uint32 `json:"contest_id"`
	User      string `json:"user,omitempty"`
	OutcomeID *uint8 `json:"outcome_id,omitempty"`
	Amount    uint64 `json:"amount,omitempty"`
	TotalPool uint64 `json:"total_pool,omitempty"`
	IsNewBet  bool   `json:"is_new_bet,omitempty"`
	TsUnixMs  int64  `json:"ts_unix_ms"`
}

// HasContest indica se o evento pertence a um contest. Eventos da plataforma
// (fees_claimed) não têm contest id e não são roteados por ele
func (e ContestEvent) HasContest() bool {
	return e.Type != TypeFeesClaimed
}
