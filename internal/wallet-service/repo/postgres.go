package repo

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const schema = `
CREATE TABLE IF NOT EXISTS wallets (
	id         UUID PRIMARY KEY,
	user_id    TEXT NOT NULL UNIQUE,
	balance    NUMERIC(40,0) NOT NULL DEFAULT 0,
	version    BIGINT NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS wallet_ledger (
	id             BIGSERIAL PRIMARY KEY,
	wallet_id      UUID NOT NULL REFERENCES wallets(id),
	operation_type TEXT NOT NULL,
	amount         NUMERIC(20,0) NOT NULL,
	external_ref   TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (wallet_id, operation_type, external_ref)
);

CREATE TABLE IF NOT EXISTS wallet_reservations (
	id           UUID PRIMARY KEY,
	wallet_id    UUID NOT NULL REFERENCES wallets(id),
	external_ref TEXT NOT NULL,
	amount       NUMERIC(20,0) NOT NULL,
	status       TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (wallet_id, external_ref)
);
`

// Status de uma reserva
const (
	StatusPending   = "PENDING"
	StatusCommitted = "COMMITTED"
	StatusRefunded  = "REFUNDED"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
	// ErrReservationClosed: commit de reserva estornada ou estorno de reserva efetivada
	ErrReservationClosed = errors.New("reservation already settled")
)

// Postgres mantém saldos, o ledger de créditos/débitos e as reservas de aposta
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	return errors.Wrap(err, "migrate wallet schema")
}

// GetOrCreateWallet retorna o walletId e saldo de um usuário, criando a carteira se não existir
func (p *Postgres) GetOrCreateWallet(ctx context.Context, userID string) (walletID string, balance decimal.Decimal, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", decimal.Zero, errors.WithStack(err)
	}
	defer tx.Rollback()

	walletID, balance, err = ensureWallet(ctx, tx, userID)
	if err != nil {
		return "", decimal.Zero, err
	}
	if err = tx.Commit(); err != nil {
		return "", decimal.Zero, errors.WithStack(err)
	}
	return walletID, balance, nil
}

// Deposit credita amount uma única vez por (carteira, externalRef).
// Ref repetida não altera o saldo e retorna applied=false.
func (p *Postgres) Deposit(ctx context.Context, userID string, amount uint64, externalRef string) (walletID string, newBalance decimal.Decimal, applied bool, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", decimal.Zero, false, errors.WithStack(err)
	}
	defer tx.Rollback()

	if walletID, _, err = ensureWallet(ctx, tx, userID); err != nil {
		return "", decimal.Zero, false, err
	}

	// lock pessimista na linha da carteira
	var balance string
	if err = tx.QueryRowContext(ctx, `SELECT balance FROM wallets WHERE id=$1 FOR UPDATE`, walletID).Scan(&balance); err != nil {
		return "", decimal.Zero, false, errors.Wrap(err, "lock wallet")
	}

	applied, err = appendLedger(ctx, tx, walletID, "CREDIT", amount, externalRef)
	if err != nil {
		return "", decimal.Zero, false, err
	}
	if applied {
		if err = tx.QueryRowContext(ctx, `
			UPDATE wallets SET balance = balance + $1, version = version + 1 WHERE id=$2 RETURNING balance`,
			strconv.FormatUint(amount, 10), walletID).Scan(&balance); err != nil {
			return "", decimal.Zero, false, errors.Wrap(err, "credit wallet")
		}
	}

	if err = tx.Commit(); err != nil {
		return "", decimal.Zero, false, errors.WithStack(err)
	}
	newBalance, err = decimal.NewFromString(balance)
	return walletID, newBalance, applied, errors.WithStack(err)
}

// Reserve cria uma reserva PENDING e debita o saldo (bloqueio).
// Idempotente por (wallet_id, external_ref): retorna a reserva existente.
func (p *Postgres) Reserve(ctx context.Context, userID string, amount uint64, externalRef string) (reservationID string, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer tx.Rollback()

	walletID, _, err := ensureWallet(ctx, tx, userID)
	if err != nil {
		return "", err
	}
	var bal string
	if err = tx.QueryRowContext(ctx, `SELECT balance FROM wallets WHERE id=$1 FOR UPDATE`, walletID).Scan(&bal); err != nil {
		return "", errors.Wrap(err, "lock wallet")
	}

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT id FROM wallet_reservations WHERE wallet_id=$1 AND external_ref=$2`, walletID, externalRef).Scan(&existing)
	switch {
	case err == nil:
		return existing, nil // já existe
	case !errors.Is(err, sql.ErrNoRows):
		return "", errors.Wrap(err, "select reservation")
	}

	balance, err := decimal.NewFromString(bal)
	if err != nil {
		return "", errors.WithStack(err)
	}
	want, _ := decimal.NewFromString(strconv.FormatUint(amount, 10))
	if balance.LessThan(want) {
		return "", ErrInsufficientFunds
	}

	if _, err = tx.ExecContext(ctx, `UPDATE wallets SET balance = balance - $1, version = version + 1 WHERE id=$2`,
		want.String(), walletID); err != nil {
		return "", errors.Wrap(err, "debit wallet")
	}
	reservationID = uuid.New().String()
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO wallet_reservations (id, wallet_id, external_ref, amount, status) VALUES ($1,$2,$3,$4,$5)`,
		reservationID, walletID, externalRef, want.String(), StatusPending); err != nil {
		return "", errors.Wrap(err, "insert reservation")
	}
	if _, err = appendLedger(ctx, tx, walletID, "RESERVE", amount, externalRef); err != nil {
		return "", err
	}

	if err = tx.Commit(); err != nil {
		return "", errors.WithStack(err)
	}
	return reservationID, nil
}

// Commit efetiva uma reserva PENDING. Idempotente se já estiver COMMITTED.
func (p *Postgres) Commit(ctx context.Context, userID, externalRef string) error {
	return p.settle(ctx, userID, externalRef, StatusCommitted)
}

// Refund desfaz uma reserva PENDING devolvendo o saldo. Idempotente se já estiver REFUNDED.
func (p *Postgres) Refund(ctx context.Context, userID, externalRef string) error {
	return p.settle(ctx, userID, externalRef, StatusRefunded)
}

func (p *Postgres) settle(ctx context.Context, userID, externalRef, to string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	defer tx.Rollback()

	var resID, walletID, amount, status string
	err = tx.QueryRowContext(ctx, `
		SELECT wr.id, wr.wallet_id, wr.amount, wr.status
		FROM wallet_reservations wr
		JOIN wallets w ON w.id = wr.wallet_id
		WHERE w.user_id=$1 AND wr.external_ref=$2
		FOR UPDATE OF wr`, userID, externalRef).Scan(&resID, &walletID, &amount, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "select reservation")
	}

	switch status {
	case to:
		return nil // já tratado
	case StatusPending:
	default:
		return ErrReservationClosed
	}

	if _, err = tx.ExecContext(ctx, `UPDATE wallet_reservations SET status=$1 WHERE id=$2`, to, resID); err != nil {
		return errors.Wrap(err, "update reservation")
	}

	op := "DEBIT"
	if to == StatusRefunded {
		op = "REFUND"
		// devolve saldo
		if _, err = tx.ExecContext(ctx, `UPDATE wallets SET balance = balance + $1, version = version + 1 WHERE id=$2`,
			amount, walletID); err != nil {
			return errors.Wrap(err, "refund wallet")
		}
	}
	n, err := strconv.ParseUint(amount, 10, 64)
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err = appendLedger(ctx, tx, walletID, op, n, externalRef); err != nil {
		return err
	}
	return errors.WithStack(tx.Commit())
}

// appendLedger grava a operação; false indica que (carteira, operação, ref) já existia
func appendLedger(ctx context.Context, tx *sql.Tx, walletID, op string, amount uint64, externalRef string) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_ledger (wallet_id, operation_type, amount, external_ref)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (wallet_id, operation_type, external_ref) DO NOTHING`,
		walletID, op, strconv.FormatUint(amount, 10), externalRef)
	if err != nil {
		return false, errors.Wrap(err, "insert ledger")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.WithStack(err)
	}
	return n == 1, nil
}

func ensureWallet(ctx context.Context, tx *sql.Tx, userID string) (string, decimal.Decimal, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (id, user_id, balance, version) VALUES ($1,$2,0,1)
		ON CONFLICT (user_id) DO NOTHING`,
		uuid.New().String(), userID); err != nil {
		return "", decimal.Zero, errors.Wrap(err, "create wallet")
	}

	var id, bal string
	if err := tx.QueryRowContext(ctx, `SELECT id, balance FROM wallets WHERE user_id=$1`, userID).Scan(&id, &bal); err != nil {
		return "", decimal.Zero, errors.Wrap(err, "select wallet")
	}
	balance, err := decimal.NewFromString(bal)
	return id, balance, errors.WithStack(err)
}
