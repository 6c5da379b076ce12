package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walletdto "github.com/radieske/pari-contest-platform/internal/wallet-service/dto"
)

func TestClient_ReserveCommitRefund(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/wallet/reserve":
			var req walletdto.ReserveRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if req.Amount > 100 {
				http.Error(w, "insufficient funds", http.StatusConflict)
				return
			}
			_ = json.NewEncoder(w).Encode(walletdto.ReservationResponse{ReservationID: "r-" + req.ExternalRef, Status: "PENDING"})
		case "/wallet/commit":
			_, _ = w.Write([]byte(`{"status":"COMMITTED"}`))
		default:
			http.Error(w, "reservation not found", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	ctx := context.Background()

	id, err := c.Reserve(ctx, "alice", 50, "stake:1")
	require.NoError(t, err)
	assert.Equal(t, "r-stake:1", id)

	_, err = c.Reserve(ctx, "alice", 500, "stake:2")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	assert.NoError(t, c.Commit(ctx, "alice", "stake:1"))
	err = c.Refund(ctx, "alice", "stake:3")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, []string{"/wallet/reserve", "/wallet/reserve", "/wallet/commit", "/wallet/refund"}, paths)
}
