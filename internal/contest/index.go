package contest

import (
	"context"
	"sort"
)

// ContestFilter restringe uma listagem de contests
type ContestFilter string

const (
	ContestFilterNone       ContestFilter = ""
	ContestFilterActive     ContestFilter = "active"
	ContestFilterUnresolved ContestFilter = "unresolved"
)

// ContestSort ordena a listagem. O valor zero mantém a ordem de criação
type ContestSort string

const (
	ContestSortNone       ContestSort = ""
	ContestSortVolume     ContestSort = "volume"
	ContestSortDescending ContestSort = "descending"
)

// ContestQuery pagina o log de contests. Só pagina com PageSize positivo;
// Page começa em zero
type ContestQuery struct {
	Filter   ContestFilter
	Sort     ContestSort
	Page     int
	PageSize int
}

// BetFilter seleciona apostas pela fase do contest
type BetFilter string

const (
	BetFilterActive           BetFilter = "active"
	BetFilterClosedUnresolved BetFilter = "closed_unresolved"
	BetFilterUnresolved       BetFilter = "unresolved"
	BetFilterClaimable        BetFilter = "claimable"
)

// BetQuery seleciona as apostas de um usuário. A aposta entra se casar com
// qualquer filtro; sem filtro entram todas. SinceCursor pula as entradas
// anteriores ao cursor de claim do usuário
type BetQuery struct {
	Filters     []BetFilter
	SinceCursor bool
}

// LastContests retorna até n dos contests mais recentes, na ordem de
// criação
func (e *Engine) LastContests(ctx context.Context, n int) ([]ContestView, error) {
	var out []ContestView
	err := e.view(ctx, "last contests", func(tx Tx) error {
		ids, err := tx.ContestIDs(ctx)
		if err != nil {
			return err
		}
		out, err = listStrict(ctx, tx, suffix(ids, n))
		return err
	})
	return out, err
}

// Contests lista o log de contests com filtro, ordenação e página opcionais
func (e *Engine) Contests(ctx context.Context, q ContestQuery) ([]ContestView, error) {
	var out []ContestView
	err := e.view(ctx, "contests", func(tx Tx) error {
		ids, err := tx.ContestIDs(ctx)
		if err != nil {
			return err
		}
		all, err := listStrict(ctx, tx, ids)
		if err != nil {
			return err
		}
		out = queryContests(all, q, e.now())
		return nil
	})
	return out, err
}

func queryContests(all []ContestView, q ContestQuery, now uint64) []ContestView {
	kept := all[:0:0]
	for _, v := range all {
		switch q.Filter {
		case ContestFilterActive:
			if now >= v.Info.TimeOfClose {
				continue
			}
		case ContestFilterUnresolved:
			if now < v.Info.TimeOfResolve || v.Summary.IsResolved() {
				continue
			}
		}
		kept = append(kept, v)
	}

	switch q.Sort {
	case ContestSortVolume:
		sort.SliceStable(kept, func(i, j int) bool {
			return kept[i].Summary.TotalPool() > kept[j].Summary.TotalPool()
		})
	case ContestSortDescending:
		sort.SliceStable(kept, func(i, j int) bool {
			return kept[i].Info.TimeOfClose > kept[j].Info.TimeOfClose
		})
	}

	if q.PageSize <= 0 {
		return kept
	}
	start := q.Page * q.PageSize
	if q.Page < 0 || start >= len(kept) {
		return []ContestView{}
	}
	end := start + q.PageSize
	if end > len(kept) {
		end = len(kept)
	}
	return kept[start:end]
}

// UserBet retorna a aposta do usuário em contestID após validar a credencial
func (e *Engine) UserBet(ctx context.Context, user, credential string, contestID uint32) (UserBetView, error) {
	if err := e.access.AssertValid(ctx, user, credential); err != nil {
		e.fail("user bet", err)
		return UserBetView{}, err
	}
	var out UserBetView
	err := e.view(ctx, "user bet", func(tx Tx) error {
		bet, err := loadBet(ctx, tx, user, contestID)
		if err != nil {
			return err
		}
		info, s, err := loadContest(ctx, tx, contestID)
		if err != nil {
			return err
		}
		out = UserBetView{Bet: bet, Contest: ContestView{Info: info, Summary: s}}
		return nil
	})
	return out, err
}

// UsersBets lista as apostas do usuário na ordem da primeira aposta. Só
// considera outcomes já gravados; consultas nunca chamam o oráculo
func (e *Engine) UsersBets(ctx context.Context, user, credential string, q BetQuery) ([]UserBetView, error) {
	if err := e.access.AssertValid(ctx, user, credential); err != nil {
		e.fail("users bets", err)
		return nil, err
	}
	var out []UserBetView
	err := e.view(ctx, "users bets", func(tx Tx) error {
		var err error
		out, err = e.usersBets(ctx, tx, user, q)
		return err
	})
	return out, err
}

func (e *Engine) usersBets(ctx context.Context, tx Tx, user string, q BetQuery) ([]UserBetView, error) {
	ids, err := tx.UserContests(ctx, user)
	if err != nil {
		return nil, err
	}
	if q.SinceCursor {
		cursor, err := tx.ClaimCursor(ctx, user)
		if err != nil {
			return nil, err
		}
		if cursor > len(ids) {
			cursor = len(ids)
		}
		ids = ids[cursor:]
	}
	views, err := userBetViews(ctx, tx, user, ids)
	if err != nil {
		return nil, err
	}
	now := e.now()
	out := make([]UserBetView, 0, len(views))
	for _, v := range views {
		if matchesAny(v, q.Filters, now) {
			out = append(out, v)
		}
	}
	return out, nil
}

// UsersLastBets retorna até n das apostas mais recentes do usuário
func (e *Engine) UsersLastBets(ctx context.Context, user, credential string, n int) ([]UserBetView, error) {
	if err := e.access.AssertValid(ctx, user, credential); err != nil {
		e.fail("users last bets", err)
		return nil, err
	}
	var out []UserBetView
	err := e.view(ctx, "users last bets", func(tx Tx) error {
		ids, err := tx.UserContests(ctx, user)
		if err != nil {
			return err
		}
		out, err = userBetViews(ctx, tx, user, suffix(ids, n))
		return err
	})
	return out, err
}

// UsersNumberOfBets conta os contests em que o usuário apostou
func (e *Engine) UsersNumberOfBets(ctx context.Context, user, credential string) (int, error) {
	if err := e.access.AssertValid(ctx, user, credential); err != nil {
		e.fail("users number of bets", err)
		return 0, err
	}
	var n int
	err := e.view(ctx, "users number of bets", func(tx Tx) error {
		ids, err := tx.UserContests(ctx, user)
		n = len(ids)
		return err
	})
	return n, err
}

// ClaimableValue soma o que o usuário pode resgatar agora nos contests com
// outcome já gravado
func (e *Engine) ClaimableValue(ctx context.Context, user, credential string) (uint64, error) {
	if err := e.access.AssertValid(ctx, user, credential); err != nil {
		e.fail("claimable value", err)
		return 0, err
	}
	var total uint64
	err := e.view(ctx, "claimable value", func(tx Tx) error {
		bets, err := e.usersBets(ctx, tx, user, BetQuery{Filters: []BetFilter{BetFilterClaimable}, SinceCursor: true})
		if err != nil {
			return err
		}
		for _, b := range bets {
			share, err := PayoutShare(b.Contest.Summary, b.Bet)
			if err != nil {
				return err
			}
			total += share
		}
		return nil
	})
	return total, err
}

func userBetViews(ctx context.Context, tx Tx, user string, ids []uint32) ([]UserBetView, error) {
	out := make([]UserBetView, 0, len(ids))
	for _, id := range ids {
		bet, err := loadBet(ctx, tx, user, id)
		if err != nil {
			return nil, err
		}
		info, s, err := loadContest(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, UserBetView{Bet: bet, Contest: ContestView{Info: info, Summary: s}})
	}
	return out, nil
}

func matchesAny(v UserBetView, filters []BetFilter, now uint64) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if matches(v, f, now) {
			return true
		}
	}
	return false
}

func matches(v UserBetView, f BetFilter, now uint64) bool {
	info, s := v.Contest.Info, v.Contest.Summary
	switch f {
	case BetFilterActive:
		return now < info.TimeOfClose
	case BetFilterClosedUnresolved:
		return !s.IsResolved() && now >= info.TimeOfClose && now < info.TimeOfResolve
	case BetFilterUnresolved:
		return !s.IsResolved() && now >= info.TimeOfResolve
	case BetFilterClaimable:
		return isClaimable(v.Bet, s)
	default:
		return false
	}
}

func isClaimable(b Bet, s ContestBetSummary) bool {
	if b.HasBeenPaid || s.ResolvedOutcome == nil {
		return false
	}
	return s.ResolvedOutcome.IsVoid() || s.ResolvedOutcome.ID == b.OutcomeID
}

// isFinished indica aposta que nunca mais gera claim
func isFinished(b Bet, s ContestBetSummary) bool {
	if b.HasBeenPaid {
		return true
	}
	return s.ResolvedOutcome != nil && !s.ResolvedOutcome.IsVoid() && s.ResolvedOutcome.ID != b.OutcomeID
}

// advanceClaimCursor avança o cursor do usuário sobre a sequência de
// apostas finalizadas no início do histórico ainda não verificado
func advanceClaimCursor(ctx context.Context, tx Tx, user string) error {
	ids, err := tx.UserContests(ctx, user)
	if err != nil {
		return err
	}
	cursor, err := tx.ClaimCursor(ctx, user)
	if err != nil {
		return err
	}
	start := cursor
	for cursor < len(ids) {
		bet, err := loadBet(ctx, tx, user, ids[cursor])
		if err != nil {
			return err
		}
		s, ok, err := tx.Summary(ctx, ids[cursor])
		if err != nil {
			return err
		}
		if !ok || !isFinished(bet, s) {
			break
		}
		cursor++
	}
	if cursor == start {
		return nil
	}
	return tx.PutClaimCursor(ctx, user, cursor)
}

func suffix(ids []uint32, n int) []uint32 {
	if n <= 0 {
		return nil
	}
	if n >= len(ids) {
		return ids
	}
	return ids[len(ids)-n:]
}
