package contest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/radieske/pari-contest-platform/pkg/contracts/events"
)

// ClaimFees paga ao owner as taxas acumuladas e zera o acumulador.
// Acumulador vazio retorna 0 sem gerar pagamento
func (e *Engine) ClaimFees(ctx context.Context, caller string) (uint64, error) {
	var amount uint64
	err := e.update(ctx, "claim fees", func(tx Tx, fx *effects) error {
		cfg, err := loadConfig(ctx, tx)
		if err != nil {
			return err
		}
		if err := e.assertOwner(cfg, caller); err != nil {
			return err
		}
		amount = cfg.ClaimableFees
		if amount == 0 {
			return nil
		}
		cfg.ClaimableFees = 0
		if err := tx.PutConfig(ctx, cfg); err != nil {
			return err
		}
		fx.disburse(cfg.Owner, amount, fmt.Sprintf("fees:%s:%d", cfg.Owner, e.clock().UnixNano()))
		fx.emit(events.ContestEvent{Type: events.TypeFeesClaimed, User: cfg.Owner, Amount: amount})
		return nil
	})
	if err != nil {
		return 0, err
	}
	e.log.Info("fees claimed", zap.String("owner", caller), zap.Uint64("amount", amount))
	return amount, nil
}

// SetMinimumBet altera o valor mínimo das próximas apostas
func (e *Engine) SetMinimumBet(ctx context.Context, caller string, amount uint64) error {
	err := e.update(ctx, "set minimum bet", func(tx Tx, _ *effects) error {
		cfg, err := loadConfig(ctx, tx)
		if err != nil {
			return err
		}
		if err := e.assertOwner(cfg, caller); err != nil {
			return err
		}
		cfg.MinimumBet = amount
		return tx.PutConfig(ctx, cfg)
	})
	if err == nil {
		e.log.Info("minimum bet updated", zap.Uint64("minimum_bet", amount))
	}
	return err
}

// SetFee altera a taxa copiada para os contests criados a partir de agora.
// Contests existentes mantêm a taxa da criação
func (e *Engine) SetFee(ctx context.Context, caller string, fee FeeFraction) error {
	err := e.update(ctx, "set fee", func(tx Tx, _ *effects) error {
		cfg, err := loadConfig(ctx, tx)
		if err != nil {
			return err
		}
		if err := e.assertOwner(cfg, caller); err != nil {
			return err
		}
		if !fee.Valid() {
			return &Error{Kind: ErrInvalidFee, Actual: fmt.Sprintf("%d/%d", fee.Numerator, fee.Denominator)}
		}
		cfg.Fee = fee
		return tx.PutConfig(ctx, cfg)
	})
	if err == nil {
		e.log.Info("fee updated", zap.Uint64("numerator", fee.Numerator), zap.Uint64("denominator", fee.Denominator))
	}
	return err
}

// Config retorna a configuração global atual
func (e *Engine) Config(ctx context.Context) (GlobalConfig, error) {
	var cfg GlobalConfig
	err := e.view(ctx, "get config", func(tx Tx) error {
		var err error
		cfg, err = loadConfig(ctx, tx)
		return err
	})
	return cfg, err
}

func (e *Engine) MinimumBet(ctx context.Context) (uint64, error) {
	cfg, err := e.Config(ctx)
	return cfg.MinimumBet, err
}

func (e *Engine) FeeFraction(ctx context.Context) (FeeFraction, error) {
	cfg, err := e.Config(ctx)
	return cfg.Fee, err
}

func (e *Engine) ClaimableFees(ctx context.Context) (uint64, error) {
	cfg, err := e.Config(ctx)
	return cfg.ClaimableFees, err
}

// Stats retorna os contadores globais de volume, apostas e usuários
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := e.view(ctx, "get stats", func(tx Tx) error {
		var err error
		s, err = tx.Stats(ctx)
		return err
	})
	return s, err
}
