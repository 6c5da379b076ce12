package contest

import (
	"context"

	"go.uber.org/zap"

	"github.com/radieske/pari-contest-platform/pkg/contracts/events"
)

// Stake é a aposta inicial do criador, feita junto com o contest
type Stake struct {
	OutcomeID OutcomeID `json:"outcome_id"`
	Amount    uint64    `json:"amount"`
}

type CreateContestInput struct {
	Info       ContestInfo
	Signature  string
	Creator    string
	InitialBet *Stake
}

// CreateContest registra um contest assinado e abre o pool
func (e *Engine) CreateContest(ctx context.Context, in CreateContestInput) (ContestView, error) {
	var out ContestView
	err := e.update(ctx, "create contest", func(tx Tx, fx *effects) error {
		cfg, err := loadConfig(ctx, tx)
		if err != nil {
			return err
		}
		now := e.now()
		info := in.Info

		if now >= info.TimeOfClose {
			return &Error{Kind: ErrTimeOfClosePassed, ContestID: info.ID, Now: now, Deadline: info.TimeOfClose}
		}
		if err := validateOutcomes(info); err != nil {
			return err
		}
		_, exists, err := tx.Contest(ctx, info.ID)
		if err != nil {
			return err
		}
		if exists {
			return newError(ErrContestAlreadyExists, info.ID)
		}
		if err := e.verifyContest(cfg, info, in.Signature); err != nil {
			return err
		}

		summary := NewSummary(info, cfg.Fee)
		if err := tx.PutContest(ctx, info); err != nil {
			return err
		}
		if err := tx.PutSummary(ctx, summary); err != nil {
			return err
		}
		if err := tx.AppendContestID(ctx, info.ID); err != nil {
			return err
		}
		fx.after(e.hooks.OnContestCreated)
		fx.emit(events.ContestEvent{Type: events.TypeContestCreated, ContestID: info.ID, User: in.Creator})

		if in.InitialBet != nil {
			if _, err := e.placeBet(ctx, tx, fx, cfg, now, in.Creator, info.ID, in.InitialBet.OutcomeID, in.InitialBet.Amount); err != nil {
				return err
			}
			if summary, _, err = tx.Summary(ctx, info.ID); err != nil {
				return err
			}
		}
		out = ContestView{Info: info, Summary: summary}
		return nil
	})
	if err != nil {
		return ContestView{}, err
	}
	e.log.Info("contest created",
		zap.Uint32("contest_id", out.Info.ID),
		zap.String("creator", in.Creator),
		zap.Int("outcomes", len(out.Info.Outcomes)),
		zap.Uint64("time_of_close", out.Info.TimeOfClose),
		zap.Uint64("time_of_resolve", out.Info.TimeOfResolve),
	)
	return out, nil
}

func validateOutcomes(info ContestInfo) error {
	seen := make(map[OutcomeID]struct{}, len(info.Outcomes))
	for _, o := range info.Outcomes {
		if o.ID == VoidOutcomeID {
			return &Error{Kind: ErrInvalidOutcomeID, ContestID: info.ID, Outcome: outcomePtr(o.ID)}
		}
		if _, dup := seen[o.ID]; dup {
			return &Error{Kind: ErrInvalidContest, ContestID: info.ID, Outcome: outcomePtr(o.ID), Expected: "unique outcome ids"}
		}
		seen[o.ID] = struct{}{}
	}
	if len(info.Outcomes) == 0 {
		return &Error{Kind: ErrInvalidContest, ContestID: info.ID, Expected: "at least one outcome"}
	}
	if info.TimeOfResolve < info.TimeOfClose {
		return &Error{Kind: ErrInvalidContest, ContestID: info.ID, Expected: "time_of_resolve >= time_of_close"}
	}
	return nil
}

func (e *Engine) verifyContest(cfg GlobalConfig, info ContestInfo, signature string) error {
	msg, err := CanonicalJSON(info)
	if err != nil {
		return &Error{Kind: ErrInvalidContest, ContestID: info.ID, Err: err}
	}
	ok, err := e.verifier.Verify(cfg.SignerPublicKey, msg, signature)
	if err != nil {
		return &Error{Kind: ErrInvalidSignature, ContestID: info.ID, Err: err}
	}
	if !ok {
		return newError(ErrInvalidSignature, info.ID)
	}
	return nil
}

// GetContest retorna o contest e o pool
func (e *Engine) GetContest(ctx context.Context, id uint32) (ContestView, error) {
	var out ContestView
	err := e.view(ctx, "get contest", func(tx Tx) error {
		info, s, err := loadContest(ctx, tx, id)
		if err != nil {
			return err
		}
		out = ContestView{Info: info, Summary: s}
		return nil
	})
	return out, err
}

// ListContests retorna os contests de ids, ignorando ids inexistentes
func (e *Engine) ListContests(ctx context.Context, ids []uint32) ([]ContestView, error) {
	out := make([]ContestView, 0, len(ids))
	err := e.view(ctx, "list contests", func(tx Tx) error {
		for _, id := range ids {
			info, s, err := loadContest(ctx, tx, id)
			if err != nil {
				if k, ok := KindOf(err); ok && k == ErrContestNotFound {
					continue
				}
				return err
			}
			out = append(out, ContestView{Info: info, Summary: s})
		}
		return nil
	})
	return out, err
}

// ListContestsStrict retorna os contests de ids e falha no primeiro id
// inexistente
func (e *Engine) ListContestsStrict(ctx context.Context, ids []uint32) ([]ContestView, error) {
	var out []ContestView
	err := e.view(ctx, "list contests strict", func(tx Tx) error {
		var err error
		out, err = listStrict(ctx, tx, ids)
		return err
	})
	return out, err
}

func listStrict(ctx context.Context, tx Tx, ids []uint32) ([]ContestView, error) {
	out := make([]ContestView, 0, len(ids))
	for _, id := range ids {
		info, s, err := loadContest(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, ContestView{Info: info, Summary: s})
	}
	return out, nil
}
