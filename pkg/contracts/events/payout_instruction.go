package events

import "time"

// PayoutInstruction pede ao payout-worker o crédito de Amount para Recipient.
// ExternalRef é estável por transferência lógica (a wallet deduplica por ela)
type PayoutInstruction struct {
	InstructionID string    `json:"instruction_id"`
	Recipient     string    `json:"recipient"`
	Amount        uint64    `json:"amount"`
	ExternalRef   string    `json:"external_ref"`
	Ts            time.Time `json:"ts"`
}
