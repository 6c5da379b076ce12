package contest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/radieske/pari-contest-platform/pkg/contracts/events"
)

// FinalizeOutcome fixa o contest na resposta do oráculo. Depois disso o
// outcome gravado é retornado sem nova consulta
func (e *Engine) FinalizeOutcome(ctx context.Context, contestID uint32) (ContestBetSummary, error) {
	var out ContestBetSummary
	err := e.update(ctx, "finalize outcome", func(tx Tx, fx *effects) error {
		info, summary, err := loadContest(ctx, tx, contestID)
		if err != nil {
			return err
		}
		out, err = e.finalize(ctx, tx, fx, info, summary, e.now())
		return err
	})
	return out, err
}

func (e *Engine) finalize(ctx context.Context, tx Tx, fx *effects, info ContestInfo, summary ContestBetSummary, now uint64) (ContestBetSummary, error) {
	if summary.IsResolved() {
		return summary, nil
	}
	if now < info.TimeOfResolve {
		return summary, &Error{Kind: ErrTimeOfResolveNotYetPassed, ContestID: info.ID, Now: now, Deadline: info.TimeOfResolve}
	}

	result, err := e.oracle.QueryContestResult(ctx, info.ID)
	if e.hooks.OnOracleQuery != nil {
		e.hooks.OnOracleQuery(err == nil)
	}
	if err != nil {
		return summary, &Error{Kind: ErrOracleQueryFailed, ContestID: info.ID, Err: err}
	}

	outcome := VoidOutcome()
	if result != VoidOutcomeID {
		var ok bool
		if outcome, ok = info.FindOutcome(result); !ok {
			return summary, &Error{Kind: ErrOutcomeNotFound, ContestID: info.ID, Outcome: outcomePtr(result)}
		}
	}
	if err := summary.SetOutcome(outcome); err != nil {
		return summary, err
	}
	if err := tx.PutSummary(ctx, summary); err != nil {
		return summary, err
	}

	if fee := FeeAmount(summary); fee > 0 {
		cfg, err := loadConfig(ctx, tx)
		if err != nil {
			return summary, err
		}
		cfg.ClaimableFees += fee
		if err := tx.PutConfig(ctx, cfg); err != nil {
			return summary, err
		}
		if e.hooks.OnFeesAccrued != nil {
			fx.after(func() { e.hooks.OnFeesAccrued(fee) })
		}
	}

	void := outcome.IsVoid()
	if e.hooks.OnSettled != nil {
		fx.after(func() { e.hooks.OnSettled(void) })
	}
	oid := uint8(outcome.ID)
	fx.emit(events.ContestEvent{
		Type:      events.TypeContestSettled,
		ContestID: info.ID,
		OutcomeID: &oid,
		TotalPool: summary.TotalPool(),
	})
	total, fee := summary.TotalPool(), FeeAmount(summary)
	fx.after(func() {
		e.log.Info("contest settled",
			zap.Uint32("contest_id", info.ID),
			zap.Uint8("outcome_id", oid),
			zap.Bool("void", void),
			zap.Uint64("total_pool", total),
			zap.Uint64("fee", fee),
		)
	})
	return summary, nil
}

type ClaimResult struct {
	ContestID uint32  `json:"contest_id"`
	Amount    uint64  `json:"amount"`
	Outcome   Outcome `json:"outcome"`
}

// Claim paga a aposta do usuário num contest resolvido, finalizando antes se
// preciso. Contest anulado devolve a aposta; aposta perdedora é rejeitada
func (e *Engine) Claim(ctx context.Context, contestID uint32, user string) (ClaimResult, error) {
	var res ClaimResult
	err := e.update(ctx, "claim", func(tx Tx, fx *effects) error {
		now := e.now()
		var err error
		if res, err = e.claim(ctx, tx, fx, now, user, contestID); err != nil {
			return err
		}
		if err := advanceClaimCursor(ctx, tx, user); err != nil {
			return err
		}
		if res.Amount > 0 {
			fx.disburse(user, res.Amount, fmt.Sprintf("claim:%d:%s", contestID, user))
		}
		return nil
	})
	if err != nil {
		return ClaimResult{}, err
	}
	e.log.Info("bet claimed",
		zap.Uint32("contest_id", contestID),
		zap.String("user", user),
		zap.Uint64("amount", res.Amount),
	)
	return res, nil
}

func (e *Engine) claim(ctx context.Context, tx Tx, fx *effects, now uint64, user string, contestID uint32) (ClaimResult, error) {
	info, summary, err := loadContest(ctx, tx, contestID)
	if err != nil {
		return ClaimResult{}, err
	}
	if now < info.TimeOfResolve {
		return ClaimResult{}, &Error{Kind: ErrTimeOfResolveNotYetPassed, ContestID: contestID, User: user, Now: now, Deadline: info.TimeOfResolve}
	}
	bet, err := loadBet(ctx, tx, user, contestID)
	if err != nil {
		return ClaimResult{}, err
	}
	if bet.HasBeenPaid {
		return ClaimResult{}, &Error{Kind: ErrBetAlreadyPaid, ContestID: contestID, User: user, Amount: bet.Amount}
	}

	if summary, err = e.finalize(ctx, tx, fx, info, summary, now); err != nil {
		return ClaimResult{}, err
	}
	amount, err := PayoutShare(summary, bet)
	if err != nil {
		return ClaimResult{}, err
	}

	bet.HasBeenPaid = true
	if err := tx.PutBet(ctx, bet); err != nil {
		return ClaimResult{}, err
	}

	if e.hooks.OnClaim != nil {
		fx.after(func() { e.hooks.OnClaim(amount) })
	}
	oid := uint8(summary.ResolvedOutcome.ID)
	fx.emit(events.ContestEvent{Type: events.TypeBetClaimed, ContestID: contestID, User: user, OutcomeID: &oid, Amount: amount})
	return ClaimResult{ContestID: contestID, Amount: amount, Outcome: *summary.ResolvedOutcome}, nil
}

type ClaimMultipleResult struct {
	Claims []ClaimResult `json:"claims"`
	Total  uint64        `json:"total"`
}

// ClaimMultiple resgata os contests listados em ordem de time-of-close numa
// única unidade e gera um só pagamento agregado. Qualquer falha aborta todos
func (e *Engine) ClaimMultiple(ctx context.Context, user string, contestIDs []uint32) (ClaimMultipleResult, error) {
	var res ClaimMultipleResult
	err := e.update(ctx, "claim multiple", func(tx Tx, fx *effects) error {
		views, err := listStrict(ctx, tx, dedupe(contestIDs))
		if err != nil {
			return err
		}
		sort.SliceStable(views, func(i, j int) bool {
			if views[i].Info.TimeOfClose != views[j].Info.TimeOfClose {
				return views[i].Info.TimeOfClose < views[j].Info.TimeOfClose
			}
			return views[i].Info.ID < views[j].Info.ID
		})

		now := e.now()
		res = ClaimMultipleResult{Claims: make([]ClaimResult, 0, len(views))}
		ids := make([]string, 0, len(views))
		for _, v := range views {
			c, err := e.claim(ctx, tx, fx, now, user, v.Info.ID)
			if err != nil {
				return err
			}
			res.Claims = append(res.Claims, c)
			res.Total += c.Amount
			ids = append(ids, strconv.FormatUint(uint64(v.Info.ID), 10))
		}
		if err := advanceClaimCursor(ctx, tx, user); err != nil {
			return err
		}
		if res.Total > 0 {
			fx.disburse(user, res.Total, fmt.Sprintf("claims:%s:%s", strings.Join(ids, ","), user))
		}
		return nil
	})
	if err != nil {
		return ClaimMultipleResult{}, err
	}
	e.log.Info("bets claimed",
		zap.String("user", user),
		zap.Int("contests", len(res.Claims)),
		zap.Uint64("amount", res.Total),
	)
	return res, nil
}

func dedupe(ids []uint32) []uint32 {
	seen := make(map[uint32]struct{}, len(ids))
	out := make([]uint32, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
