package dto

import "github.com/radieske/pari-contest-platform/internal/contest"

type CreateContestRequest struct {
	ContestInfo contest.ContestInfo `json:"contest_info"`
	Signature   string              `json:"signature" validate:"required"`
	InitialBet  *contest.Stake      `json:"initial_bet,omitempty"`
}

// PlaceBetRequest deixa a validação de valor e outcome para o engine, que
// devolve o erro de domínio com contexto. O apostador é o caller autenticado
type PlaceBetRequest struct {
	OutcomeID uint8  `json:"outcome_id"`
	Amount    uint64 `json:"amount"`
}

type ClaimMultipleRequest struct {
	ContestIDs []uint32 `json:"contest_ids" validate:"required,min=1,max=100"`
}

type MinimumBetRequest struct {
	Amount uint64 `json:"amount"`
}

type FeeRequest struct {
	Numerator   uint64 `json:"numerator" validate:"ltefield=Denominator"`
	Denominator uint64 `json:"denominator" validate:"gt=0"`
}

// ViewingKeyRequest define a chave escolhida; vazia pede uma chave gerada
type ViewingKeyRequest struct {
	Key string `json:"key" validate:"omitempty,min=8,max=256"`
}
