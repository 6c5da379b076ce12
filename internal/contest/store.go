package contest

import (
	"context"
	"errors"
)

// ErrConfigMissing indica store sem Bootstrap
var ErrConfigMissing = errors.New("global config not initialized")

// Tx é a visão do estado dentro de uma unidade de trabalho. Getters indicam
// ausência pelo bool, não por erro
type Tx interface {
	Config(ctx context.Context) (GlobalConfig, bool, error)
	PutConfig(ctx context.Context, cfg GlobalConfig) error

	Contest(ctx context.Context, id uint32) (ContestInfo, bool, error)
	PutContest(ctx context.Context, info ContestInfo) error

	Summary(ctx context.Context, id uint32) (ContestBetSummary, bool, error)
	PutSummary(ctx context.Context, s ContestBetSummary) error

	Bet(ctx context.Context, key UserContest) (Bet, bool, error)
	PutBet(ctx context.Context, b Bet) error

	// ContestIDs retorna o log de criação (append-only)
	ContestIDs(ctx context.Context) ([]uint32, error)
	AppendContestID(ctx context.Context, id uint32) error

	// UserContests retorna os contests do usuário na ordem da primeira aposta
	UserContests(ctx context.Context, user string) ([]uint32, error)
	AppendUserContest(ctx context.Context, user string, id uint32) error

	ClaimCursor(ctx context.Context, user string) (int, error)
	PutClaimCursor(ctx context.Context, user string, cursor int) error

	Stats(ctx context.Context) (Stats, error)
	PutStats(ctx context.Context, s Stats) error

	// Outbox de pagamentos ainda não aceitos pelo Disburser, mais antigos
	// primeiro. PutDisbursement ignora referência já pendente
	PutDisbursement(ctx context.Context, d Disbursement) error
	PendingDisbursements(ctx context.Context, limit int) ([]Disbursement, error)
	DeleteDisbursement(ctx context.Context, reference string) error
}

// Disbursement é uma instrução de transferência confirmada. Reference é
// única por pagamento e é usada na deduplicação no destino
type Disbursement struct {
	Reference string `json:"reference"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

// Store executa unidades de trabalho. Update confirma todas as escritas do
// Tx quando fn retorna nil e descarta todas caso contrário
type Store interface {
	View(ctx context.Context, fn func(Tx) error) error
	Update(ctx context.Context, fn func(Tx) error) error
}

func loadConfig(ctx context.Context, tx Tx) (GlobalConfig, error) {
	cfg, ok, err := tx.Config(ctx)
	if err != nil {
		return GlobalConfig{}, err
	}
	if !ok {
		return GlobalConfig{}, ErrConfigMissing
	}
	return cfg, nil
}

func loadContest(ctx context.Context, tx Tx, id uint32) (ContestInfo, ContestBetSummary, error) {
	info, ok, err := tx.Contest(ctx, id)
	if err != nil {
		return ContestInfo{}, ContestBetSummary{}, err
	}
	if !ok {
		return ContestInfo{}, ContestBetSummary{}, newError(ErrContestNotFound, id)
	}
	s, ok, err := tx.Summary(ctx, id)
	if err != nil {
		return ContestInfo{}, ContestBetSummary{}, err
	}
	if !ok {
		return ContestInfo{}, ContestBetSummary{}, newError(ErrContestNotFound, id)
	}
	return info, s, nil
}

func loadBet(ctx context.Context, tx Tx, user string, id uint32) (Bet, error) {
	b, ok, err := tx.Bet(ctx, UserContest{User: user, ContestID: id})
	if err != nil {
		return Bet{}, err
	}
	if !ok {
		e := newError(ErrNoBetForUserContest, id)
		e.User = user
		return Bet{}, e
	}
	return b, nil
}
