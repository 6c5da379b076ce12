package dto

import "github.com/shopspring/decimal"

type WalletResponse struct {
	UserID   string          `json:"userId"`
	WalletID string          `json:"walletId"`
	Balance  decimal.Decimal `json:"balance"`
	Applied  bool            `json:"applied"`
}

type ReservationResponse struct {
	ReservationID string `json:"reservation_id,omitempty"`
	Status        string `json:"status"`
}
