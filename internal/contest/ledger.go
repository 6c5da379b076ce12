package contest

import (
	"context"

	"go.uber.org/zap"

	"github.com/radieske/pari-contest-platform/pkg/contracts/events"
)

type PlaceBetResult struct {
	IsNewBet bool `json:"is_new_bet"`
	Bet      Bet  `json:"bet"`
}

// PlaceBet abre ou complementa a aposta do usuário em contestID. Ledger,
// pool, histórico do usuário e contadores globais mudam juntos
func (e *Engine) PlaceBet(ctx context.Context, user string, contestID uint32, outcome OutcomeID, amount uint64) (PlaceBetResult, error) {
	var res PlaceBetResult
	err := e.update(ctx, "place bet", func(tx Tx, fx *effects) error {
		cfg, err := loadConfig(ctx, tx)
		if err != nil {
			return err
		}
		res, err = e.placeBet(ctx, tx, fx, cfg, e.now(), user, contestID, outcome, amount)
		return err
	})
	if err != nil {
		return PlaceBetResult{}, err
	}
	e.log.Info("bet placed",
		zap.Uint32("contest_id", contestID),
		zap.String("user", user),
		zap.Uint8("outcome_id", uint8(outcome)),
		zap.Uint64("amount", amount),
		zap.Bool("new_bet", res.IsNewBet),
	)
	return res, nil
}

func (e *Engine) placeBet(ctx context.Context, tx Tx, fx *effects, cfg GlobalConfig, now uint64, user string, contestID uint32, outcome OutcomeID, amount uint64) (PlaceBetResult, error) {
	if amount < cfg.MinimumBet {
		return PlaceBetResult{}, &Error{Kind: ErrBetBelowMinimum, ContestID: contestID, User: user, Amount: amount, Minimum: cfg.MinimumBet}
	}
	info, summary, err := loadContest(ctx, tx, contestID)
	if err != nil {
		return PlaceBetResult{}, err
	}
	if _, ok := info.FindOutcome(outcome); !ok {
		return PlaceBetResult{}, &Error{Kind: ErrOutcomeDoesNotExist, ContestID: contestID, User: user, Outcome: outcomePtr(outcome)}
	}
	if now >= info.TimeOfClose {
		return PlaceBetResult{}, &Error{Kind: ErrTimeOfClosePassed, ContestID: contestID, User: user, Now: now, Deadline: info.TimeOfClose}
	}

	key := UserContest{User: user, ContestID: contestID}
	bet, exists, err := tx.Bet(ctx, key)
	if err != nil {
		return PlaceBetResult{}, err
	}
	if exists && bet.OutcomeID != outcome {
		return PlaceBetResult{}, &Error{Kind: ErrCannotBetOnBothSides, ContestID: contestID, User: user, Outcome: outcomePtr(outcome)}
	}
	if !exists {
		bet = Bet{User: user, ContestID: contestID, OutcomeID: outcome}
	}

	if err := summary.AddBetToOption(outcome, amount, !exists); err != nil {
		return PlaceBetResult{}, err
	}
	bet.Amount += amount

	if err := tx.PutBet(ctx, bet); err != nil {
		return PlaceBetResult{}, err
	}
	if err := tx.PutSummary(ctx, summary); err != nil {
		return PlaceBetResult{}, err
	}
	if err := e.recordStats(ctx, tx, user, contestID, amount, !exists); err != nil {
		return PlaceBetResult{}, err
	}

	if e.hooks.OnBetPlaced != nil {
		fx.after(func() { e.hooks.OnBetPlaced(amount) })
	}
	oid := uint8(outcome)
	fx.emit(events.ContestEvent{
		Type:      events.TypeBetPlaced,
		ContestID: contestID,
		User:      user,
		OutcomeID: &oid,
		Amount:    amount,
		TotalPool: summary.TotalPool(),
		IsNewBet:  !exists,
	})
	return PlaceBetResult{IsNewBet: !exists, Bet: bet}, nil
}

func (e *Engine) recordStats(ctx context.Context, tx Tx, user string, contestID uint32, amount uint64, newBet bool) error {
	stats, err := tx.Stats(ctx)
	if err != nil {
		return err
	}
	stats.TotalVolume += amount
	if newBet {
		history, err := tx.UserContests(ctx, user)
		if err != nil {
			return err
		}
		if len(history) == 0 {
			stats.TotalUsers++
		}
		stats.TotalBets++
		if err := tx.AppendUserContest(ctx, user, contestID); err != nil {
			return err
		}
	}
	return tx.PutStats(ctx, stats)
}
