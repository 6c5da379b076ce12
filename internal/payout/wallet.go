package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	walletdto "github.com/radieske/pari-contest-platform/internal/wallet-service/dto"
)

// WalletClient credita carteiras de usuários via HTTP
type WalletClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewWalletClient(base string) *WalletClient {
	return &WalletClient{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

// Credit deposita amount na carteira de userID. A wallet ignora externalRef
// repetida, então reenviar é seguro
func (c *WalletClient) Credit(ctx context.Context, userID string, amount uint64, externalRef string) (decimal.Decimal, error) {
	body, err := json.Marshal(walletdto.DepositRequest{UserID: userID, Amount: amount, ExternalRef: externalRef})
	if err != nil {
		return decimal.Zero, errors.WithStack(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/wallet/deposit", bytes.NewReader(body))
	if err != nil {
		return decimal.Zero, errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "wallet deposit")
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return decimal.Zero, errors.Errorf("wallet deposit http %d", res.StatusCode)
	}
	var out walletdto.WalletResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return decimal.Zero, errors.Wrap(err, "decode wallet response")
	}
	return out.Balance, nil
}
