package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/pari-contest-platform/internal/wallet-service/dto"
	"github.com/radieske/pari-contest-platform/internal/wallet-service/repo"
)

// Repo define as operações de carteira usadas pelo handler HTTP
type Repo interface {
	GetOrCreateWallet(ctx context.Context, userID string) (walletID string, balance decimal.Decimal, err error)
	Deposit(ctx context.Context, userID string, amount uint64, externalRef string) (walletID string, newBalance decimal.Decimal, applied bool, err error)
	Reserve(ctx context.Context, userID string, amount uint64, externalRef string) (reservationID string, err error)
	Commit(ctx context.Context, userID, externalRef string) error
	Refund(ctx context.Context, userID, externalRef string) error
}

// Server expõe leitura de saldo, créditos de pagamento e reservas de aposta
type Server struct {
	log  *zap.Logger
	repo Repo
}

func NewServer(log *zap.Logger, repo Repo) *Server { return &Server{log: log, repo: repo} }

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /wallet", s.getWallet) // ?userId=...
	mux.HandleFunc("POST /wallet/deposit", s.deposit)
	mux.HandleFunc("POST /wallet/reserve", s.reserve)
	mux.HandleFunc("POST /wallet/commit", s.commit)
	mux.HandleFunc("POST /wallet/refund", s.refund)
	return mux
}

func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	walletID, bal, err := s.repo.GetOrCreateWallet(r.Context(), userID)
	if err != nil {
		s.log.Error("get wallet", zap.String("user", userID), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.WalletResponse{UserID: userID, WalletID: walletID, Balance: bal})
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Amount == 0 || req.ExternalRef == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	walletID, bal, applied, err := s.repo.Deposit(r.Context(), req.UserID, req.Amount, req.ExternalRef)
	if err != nil {
		s.log.Error("deposit", zap.String("user", req.UserID), zap.String("external_ref", req.ExternalRef), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !applied {
		s.log.Info("duplicate deposit ignored", zap.String("external_ref", req.ExternalRef))
	}
	writeJSON(w, dto.WalletResponse{UserID: req.UserID, WalletID: walletID, Balance: bal, Applied: applied})
}

// reserve bloqueia o valor da aposta no saldo do usuário
func (s *Server) reserve(w http.ResponseWriter, r *http.Request) {
	var req dto.ReserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Amount == 0 || req.ExternalRef == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	resID, err := s.repo.Reserve(r.Context(), req.UserID, req.Amount, req.ExternalRef)
	if err != nil {
		s.writeRepoError(w, "reserve", req.ExternalRef, err)
		return
	}
	writeJSON(w, dto.ReservationResponse{ReservationID: resID, Status: repo.StatusPending})
}

// commit efetiva uma reserva
func (s *Server) commit(w http.ResponseWriter, r *http.Request) {
	var req dto.CommitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.ExternalRef == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := s.repo.Commit(r.Context(), req.UserID, req.ExternalRef); err != nil {
		s.writeRepoError(w, "commit", req.ExternalRef, err)
		return
	}
	writeJSON(w, dto.ReservationResponse{Status: repo.StatusCommitted})
}

// refund desfaz uma reserva, devolvendo o valor ao usuário
func (s *Server) refund(w http.ResponseWriter, r *http.Request) {
	var req dto.RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.ExternalRef == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := s.repo.Refund(r.Context(), req.UserID, req.ExternalRef); err != nil {
		s.writeRepoError(w, "refund", req.ExternalRef, err)
		return
	}
	writeJSON(w, dto.ReservationResponse{Status: repo.StatusRefunded})
}

func (s *Server) writeRepoError(w http.ResponseWriter, op, ref string, err error) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		http.Error(w, "reservation not found", http.StatusNotFound)
	case errors.Is(err, repo.ErrInsufficientFunds), errors.Is(err, repo.ErrReservationClosed):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		s.log.Error(op, zap.String("external_ref", ref), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
