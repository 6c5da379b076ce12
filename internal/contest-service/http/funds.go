package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/pari-contest-platform/internal/contest-service/dto"
	"github.com/radieske/pari-contest-platform/internal/contest-service/wallet"
)

// Funds reserva o valor das apostas enquanto são registradas
type Funds interface {
	Reserve(ctx context.Context, userID string, amount uint64, externalRef string) (string, error)
	Commit(ctx context.Context, userID, externalRef string) error
	Refund(ctx context.Context, userID, externalRef string) error
}

// reserveStake debita amount do usuário antes do engine receber a aposta.
// Valor zero não reserva nada e retorna ref vazia (o engine rejeita)
func (a *API) reserveStake(w http.ResponseWriter, r *http.Request, user string, contestID uint32, amount uint64) (string, bool) {
	if amount == 0 {
		return "", true
	}
	if a.Funds == nil {
		writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: "wallet unavailable", Class: "integration", Retryable: true})
		return "", false
	}
	ref := fmt.Sprintf("stake:%d:%s:%s", contestID, user, uuid.NewString())
	if _, err := a.Funds.Reserve(r.Context(), user, amount, ref); err != nil {
		if errors.Is(err, wallet.ErrInsufficientFunds) {
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{
				Error:   "insufficient_funds",
				Class:   "precondition",
				Message: fmt.Sprintf("wallet of %s cannot cover %d", user, amount),
			})
			return "", false
		}
		a.Log.Warn("stake reservation failed", zap.String("user", user), zap.Uint32("contest_id", contestID), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: "wallet unavailable", Class: "integration", Retryable: true})
		return "", false
	}
	return ref, true
}

// settleStake efetiva a reserva se a aposta entrou e estorna caso contrário.
// Roda mesmo se o cliente desconectou
func (a *API) settleStake(r *http.Request, user, ref string, betErr error) {
	if ref == "" {
		return
	}
	ctx := context.WithoutCancel(r.Context())
	if betErr != nil {
		if err := a.Funds.Refund(ctx, user, ref); err != nil {
			a.Log.Error("stake refund failed", zap.String("user", user), zap.String("external_ref", ref), zap.Error(err))
		}
		return
	}
	if err := a.Funds.Commit(ctx, user, ref); err != nil {
		a.Log.Error("stake commit failed", zap.String("user", user), zap.String("external_ref", ref), zap.Error(err))
	}
}
