package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"

	walletdto "github.com/radieske/pari-contest-platform/internal/wallet-service/dto"
)

// ErrInsufficientFunds indica saldo menor que o valor da aposta
var ErrInsufficientFunds = errors.New("insufficient funds")

// Client reserva e liquida o valor das apostas na wallet-service
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

// Reserve debita amount do saldo de userID sob externalRef. Repetir a mesma
// ref devolve a reserva existente.
func (c *Client) Reserve(ctx context.Context, userID string, amount uint64, externalRef string) (string, error) {
	var out walletdto.ReservationResponse
	err := c.post(ctx, "/wallet/reserve", walletdto.ReserveRequest{UserID: userID, Amount: amount, ExternalRef: externalRef}, &out)
	return out.ReservationID, err
}

// Commit efetiva a reserva depois que a aposta foi aceita
func (c *Client) Commit(ctx context.Context, userID, externalRef string) error {
	return c.post(ctx, "/wallet/commit", walletdto.CommitRequest{UserID: userID, ExternalRef: externalRef}, nil)
}

// Refund devolve a reserva de uma aposta recusada
func (c *Client) Refund(ctx context.Context, userID, externalRef string) error {
	return c.post(ctx, "/wallet/refund", walletdto.RefundRequest{UserID: userID, ExternalRef: externalRef}, nil)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.WithStack(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return errors.Wrap(err, "wallet "+path)
	}
	defer res.Body.Close()
	switch {
	case res.StatusCode == http.StatusConflict && path == "/wallet/reserve":
		return ErrInsufficientFunds
	case res.StatusCode >= 300:
		return errors.Errorf("wallet %s http %d", path, res.StatusCode)
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.NewDecoder(res.Body).Decode(out), "decode wallet response")
}
