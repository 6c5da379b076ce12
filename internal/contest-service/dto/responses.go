package dto

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/radieske/pari-contest-platform/internal/contest"
)

// ContestResponse é a visão do contest mais a fase e o pool total derivados
type ContestResponse struct {
	contest.ContestView
	Phase     string `json:"phase"`
	TotalPool uint64 `json:"total_pool"`
}

type FeeResponse struct {
	Numerator   uint64 `json:"numerator"`
	Denominator uint64 `json:"denominator"`
	Percent     string `json:"percent"`
}

func NewFeeResponse(f contest.FeeFraction) FeeResponse {
	out := FeeResponse{Numerator: f.Numerator, Denominator: f.Denominator, Percent: "0"}
	if f.Denominator > 0 {
		num, _ := decimal.NewFromString(strconv.FormatUint(f.Numerator, 10))
		den, _ := decimal.NewFromString(strconv.FormatUint(f.Denominator, 10))
		out.Percent = num.Mul(decimal.NewFromInt(100)).DivRound(den, 4).String()
	}
	return out
}

type ConfigResponse struct {
	MinimumBet    uint64        `json:"minimum_bet"`
	Fee           FeeResponse   `json:"fee"`
	ClaimableFees uint64        `json:"claimable_fees"`
	Stats         contest.Stats `json:"stats"`
}

type ClaimFeesResponse struct {
	Amount uint64 `json:"amount"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type ClaimableResponse struct {
	User   string `json:"user"`
	Amount uint64 `json:"amount"`
}

type ViewingKeyResponse struct {
	User string `json:"user"`
	Key  string `json:"key,omitempty"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Class     string `json:"class,omitempty"`
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}
