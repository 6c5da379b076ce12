package postgres

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/pkg/errors"

	"github.com/radieske/pari-contest-platform/internal/contest"
)

// Store persiste o estado dos contests no Postgres. Cada Update é uma
// transação SQL; View roda em transação somente leitura
type Store struct{ db *sql.DB }

func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) View(ctx context.Context, fn func(contest.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return errors.Wrap(err, "begin read tx")
	}
	defer tx.Rollback()

	return fn(&txn{tx: tx})
}

func (s *Store) Update(ctx context.Context, fn func(contest.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	if err := fn(&txn{tx: tx}); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit")
}

type txn struct{ tx *sql.Tx }

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

func parseU64(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	return v, errors.Wrapf(err, "parse amount %q", s)
}

func (t *txn) Config(ctx context.Context) (contest.GlobalConfig, bool, error) {
	var (
		cfg                       contest.GlobalConfig
		minimum, num, den, fees string
	)
	err := t.tx.QueryRowContext(ctx, `
		SELECT owner, signer_public_key, minimum_bet, fee_numerator, fee_denominator, claimable_fees
		FROM contest_config WHERE id=1`).Scan(&cfg.Owner, &cfg.SignerPublicKey, &minimum, &num, &den, &fees)
	if err == sql.ErrNoRows {
		return contest.GlobalConfig{}, false, nil
	}
	if err != nil {
		return contest.GlobalConfig{}, false, errors.Wrap(err, "select config")
	}
	for _, f := range []struct {
		dst *uint64
		src string
	}{{&cfg.MinimumBet, minimum}, {&cfg.Fee.Numerator, num}, {&cfg.Fee.Denominator, den}, {&cfg.ClaimableFees, fees}} {
		if *f.dst, err = parseU64(f.src); err != nil {
			return contest.GlobalConfig{}, false, err
		}
	}
	return cfg, true, nil
}

func (t *txn) PutConfig(ctx context.Context, cfg contest.GlobalConfig) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO contest_config (id, owner, signer_public_key, minimum_bet, fee_numerator, fee_denominator, claimable_fees)
		VALUES (1,$1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET
			owner=EXCLUDED.owner,
			signer_public_key=EXCLUDED.signer_public_key,
			minimum_bet=EXCLUDED.minimum_bet,
			fee_numerator=EXCLUDED.fee_numerator,
			fee_denominator=EXCLUDED.fee_denominator,
			claimable_fees=EXCLUDED.claimable_fees`,
		cfg.Owner, cfg.SignerPublicKey, u64(cfg.MinimumBet), u64(cfg.Fee.Numerator), u64(cfg.Fee.Denominator), u64(cfg.ClaimableFees),
	)
	return errors.Wrap(err, "upsert config")
}

func (t *txn) Contest(ctx context.Context, id uint32) (contest.ContestInfo, bool, error) {
	info := contest.ContestInfo{ID: id}
	var closeAt, resolveAt string
	err := t.tx.QueryRowContext(ctx, `
		SELECT time_of_close, time_of_resolve, event_details FROM contests WHERE id=$1`, id,
	).Scan(&closeAt, &resolveAt, &info.EventDetails)
	if err == sql.ErrNoRows {
		return contest.ContestInfo{}, false, nil
	}
	if err != nil {
		return contest.ContestInfo{}, false, errors.Wrapf(err, "select contest %d", id)
	}
	if info.TimeOfClose, err = parseU64(closeAt); err != nil {
		return contest.ContestInfo{}, false, err
	}
	if info.TimeOfResolve, err = parseU64(resolveAt); err != nil {
		return contest.ContestInfo{}, false, err
	}

	opts, err := t.options(ctx, id)
	if err != nil {
		return contest.ContestInfo{}, false, err
	}
	info.Outcomes = make([]contest.Outcome, 0, len(opts))
	for _, o := range opts {
		info.Outcomes = append(info.Outcomes, o.Outcome)
	}
	return info, true, nil
}

func (t *txn) PutContest(ctx context.Context, info contest.ContestInfo) error {
	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO contests (id, time_of_close, time_of_resolve, event_details) VALUES ($1,$2,$3,$4)`,
		info.ID, u64(info.TimeOfClose), u64(info.TimeOfResolve), info.EventDetails,
	); err != nil {
		return errors.Wrapf(err, "insert contest %d", info.ID)
	}
	for i, o := range info.Outcomes {
		if _, err := t.tx.ExecContext(ctx, `
			INSERT INTO contest_options (contest_id, position, outcome_id, name) VALUES ($1,$2,$3,$4)`,
			info.ID, i, int16(o.ID), o.Name,
		); err != nil {
			return errors.Wrapf(err, "insert option %d of contest %d", o.ID, info.ID)
		}
	}
	return nil
}

func (t *txn) options(ctx context.Context, id uint32) ([]contest.OptionSummary, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT outcome_id, name, staked_amount, bet_count
		FROM contest_options WHERE contest_id=$1 ORDER BY position`, id)
	if err != nil {
		return nil, errors.Wrapf(err, "select options of contest %d", id)
	}
	defer rows.Close()

	var out []contest.OptionSummary
	for rows.Next() {
		var (
			o      contest.OptionSummary
			oid    int16
			staked string
			count  int64
		)
		if err := rows.Scan(&oid, &o.Outcome.Name, &staked, &count); err != nil {
			return nil, errors.WithStack(err)
		}
		o.Outcome.ID = contest.OutcomeID(oid)
		o.BetCount = uint32(count)
		if o.StakedAmount, err = parseU64(staked); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, errors.WithStack(rows.Err())
}

func (t *txn) Summary(ctx context.Context, id uint32) (contest.ContestBetSummary, bool, error) {
	s := contest.ContestBetSummary{ContestID: id}
	var (
		num, den    string
		outcomeID   sql.NullInt16
		outcomeName sql.NullString
	)
	err := t.tx.QueryRowContext(ctx, `
		SELECT fee_numerator, fee_denominator, resolved_outcome_id, resolved_outcome_name
		FROM contest_summaries WHERE contest_id=$1`, id,
	).Scan(&num, &den, &outcomeID, &outcomeName)
	if err == sql.ErrNoRows {
		return contest.ContestBetSummary{}, false, nil
	}
	if err != nil {
		return contest.ContestBetSummary{}, false, errors.Wrapf(err, "select summary %d", id)
	}
	if s.Fee.Numerator, err = parseU64(num); err != nil {
		return contest.ContestBetSummary{}, false, err
	}
	if s.Fee.Denominator, err = parseU64(den); err != nil {
		return contest.ContestBetSummary{}, false, err
	}
	if outcomeID.Valid {
		s.ResolvedOutcome = &contest.Outcome{ID: contest.OutcomeID(outcomeID.Int16), Name: outcomeName.String}
	}
	if s.Options, err = t.options(ctx, id); err != nil {
		return contest.ContestBetSummary{}, false, err
	}
	return s, true, nil
}

func (t *txn) PutSummary(ctx context.Context, s contest.ContestBetSummary) error {
	var (
		outcomeID   sql.NullInt16
		outcomeName sql.NullString
	)
	if s.ResolvedOutcome != nil {
		outcomeID = sql.NullInt16{Int16: int16(s.ResolvedOutcome.ID), Valid: true}
		outcomeName = sql.NullString{String: s.ResolvedOutcome.Name, Valid: true}
	}
	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO contest_summaries (contest_id, fee_numerator, fee_denominator, resolved_outcome_id, resolved_outcome_name)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (contest_id) DO UPDATE SET
			resolved_outcome_id=EXCLUDED.resolved_outcome_id,
			resolved_outcome_name=EXCLUDED.resolved_outcome_name`,
		s.ContestID, u64(s.Fee.Numerator), u64(s.Fee.Denominator), outcomeID, outcomeName,
	); err != nil {
		return errors.Wrapf(err, "upsert summary %d", s.ContestID)
	}
	for _, o := range s.Options {
		if _, err := t.tx.ExecContext(ctx, `
			UPDATE contest_options SET staked_amount=$1, bet_count=$2 WHERE contest_id=$3 AND outcome_id=$4`,
			u64(o.StakedAmount), int64(o.BetCount), s.ContestID, int16(o.Outcome.ID),
		); err != nil {
			return errors.Wrapf(err, "update option %d of contest %d", o.Outcome.ID, s.ContestID)
		}
	}
	return nil
}

func (t *txn) Bet(ctx context.Context, key contest.UserContest) (contest.Bet, bool, error) {
	b := contest.Bet{User: key.User, ContestID: key.ContestID}
	var (
		amount string
		oid    int16
	)
	err := t.tx.QueryRowContext(ctx, `
		SELECT amount, outcome_id, has_been_paid FROM contest_bets WHERE user_id=$1 AND contest_id=$2`,
		key.User, key.ContestID,
	).Scan(&amount, &oid, &b.HasBeenPaid)
	if err == sql.ErrNoRows {
		return contest.Bet{}, false, nil
	}
	if err != nil {
		return contest.Bet{}, false, errors.Wrapf(err, "select bet %s/%d", key.User, key.ContestID)
	}
	b.OutcomeID = contest.OutcomeID(oid)
	if b.Amount, err = parseU64(amount); err != nil {
		return contest.Bet{}, false, err
	}
	return b, true, nil
}

func (t *txn) PutBet(ctx context.Context, b contest.Bet) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO contest_bets (user_id, contest_id, amount, outcome_id, has_been_paid)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (user_id, contest_id) DO UPDATE SET
			amount=EXCLUDED.amount,
			has_been_paid=EXCLUDED.has_been_paid,
			updated_at=NOW()`,
		b.User, b.ContestID, u64(b.Amount), int16(b.OutcomeID), b.HasBeenPaid,
	)
	return errors.Wrapf(err, "upsert bet %s/%d", b.User, b.ContestID)
}

func (t *txn) ContestIDs(ctx context.Context) ([]uint32, error) {
	return t.ids(ctx, `SELECT contest_id FROM contest_log ORDER BY seq`)
}

func (t *txn) AppendContestID(ctx context.Context, id uint32) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO contest_log (contest_id) VALUES ($1)`, id)
	return errors.Wrapf(err, "append contest %d", id)
}

func (t *txn) UserContests(ctx context.Context, user string) ([]uint32, error) {
	return t.ids(ctx, `SELECT contest_id FROM user_contests WHERE user_id=$1 ORDER BY position`, user)
}

func (t *txn) AppendUserContest(ctx context.Context, user string, id uint32) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO user_contests (user_id, position, contest_id)
		SELECT $1, COALESCE(MAX(position)+1, 0), $2 FROM user_contests WHERE user_id=$1`,
		user, id,
	)
	return errors.Wrapf(err, "append user contest %s/%d", user, id)
}

func (t *txn) ids(ctx context.Context, query string, args ...any) ([]uint32, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	var out []uint32
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.WithStack(err)
		}
		out = append(out, uint32(id))
	}
	return out, errors.WithStack(rows.Err())
}

func (t *txn) ClaimCursor(ctx context.Context, user string) (int, error) {
	var c int
	err := t.tx.QueryRowContext(ctx, `SELECT cursor FROM claim_cursors WHERE user_id=$1`, user).Scan(&c)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return c, errors.Wrapf(err, "select cursor %s", user)
}

func (t *txn) PutClaimCursor(ctx context.Context, user string, cursor int) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO claim_cursors (user_id, cursor) VALUES ($1,$2)
		ON CONFLICT (user_id) DO UPDATE SET cursor=EXCLUDED.cursor`, user, cursor)
	return errors.Wrapf(err, "upsert cursor %s", user)
}

func (t *txn) Stats(ctx context.Context) (contest.Stats, error) {
	var volume, bets, users string
	err := t.tx.QueryRowContext(ctx, `
		SELECT total_volume, total_bets, total_users FROM contest_stats WHERE id=1`).Scan(&volume, &bets, &users)
	if err == sql.ErrNoRows {
		return contest.Stats{}, nil
	}
	if err != nil {
		return contest.Stats{}, errors.Wrap(err, "select stats")
	}
	var s contest.Stats
	if s.TotalVolume, err = parseU64(volume); err != nil {
		return contest.Stats{}, err
	}
	if s.TotalBets, err = parseU64(bets); err != nil {
		return contest.Stats{}, err
	}
	if s.TotalUsers, err = parseU64(users); err != nil {
		return contest.Stats{}, err
	}
	return s, nil
}

func (t *txn) PutStats(ctx context.Context, s contest.Stats) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO contest_stats (id, total_volume, total_bets, total_users) VALUES (1,$1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET
			total_volume=EXCLUDED.total_volume,
			total_bets=EXCLUDED.total_bets,
			total_users=EXCLUDED.total_users`,
		u64(s.TotalVolume), u64(s.TotalBets), u64(s.TotalUsers),
	)
	return errors.Wrap(err, "upsert stats")
}

func (t *txn) PutDisbursement(ctx context.Context, d contest.Disbursement) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO contest_disbursements (reference, recipient, amount) VALUES ($1,$2,$3)
		ON CONFLICT (reference) DO NOTHING`,
		d.Reference, d.Recipient, u64(d.Amount),
	)
	return errors.Wrap(err, "insert disbursement")
}

func (t *txn) PendingDisbursements(ctx context.Context, limit int) ([]contest.Disbursement, error) {
	q := `SELECT reference, recipient, amount FROM contest_disbursements ORDER BY seq`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := t.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select disbursements")
	}
	defer rows.Close()

	var out []contest.Disbursement
	for rows.Next() {
		var (
			d      contest.Disbursement
			amount string
		)
		if err := rows.Scan(&d.Reference, &d.Recipient, &amount); err != nil {
			return nil, errors.Wrap(err, "scan disbursement")
		}
		if d.Amount, err = parseU64(amount); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, errors.Wrap(rows.Err(), "iterate disbursements")
}

func (t *txn) DeleteDisbursement(ctx context.Context, reference string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM contest_disbursements WHERE reference=$1`, reference)
	return errors.Wrap(err, "delete disbursement")
}
