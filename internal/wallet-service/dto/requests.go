package dto

// DepositRequest credita uma carteira. ExternalRef torna a chamada idempotente.
type DepositRequest struct {
	UserID      string `json:"userId"`
	Amount      uint64 `json:"amount"`
	ExternalRef string `json:"external_ref"`
}

type ReserveRequest struct {
	UserID      string `json:"userId"`
	Amount      uint64 `json:"amount"`
	ExternalRef string `json:"external_ref"` // ex: stake:{contest}:{user}:{uuid}
}

type CommitRequest struct {
	UserID      string `json:"userId"`
	ExternalRef string `json:"external_ref"`
}

type RefundRequest struct {
	UserID      string `json:"userId"`
	ExternalRef string `json:"external_ref"`
}
