package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// Valores em NUMERIC(20,0) para caber toda a faixa de uint64
const schema = `
CREATE TABLE IF NOT EXISTS contest_config (
	id                SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	owner             TEXT NOT NULL,
	signer_public_key TEXT NOT NULL,
	minimum_bet       NUMERIC(20,0) NOT NULL,
	fee_numerator     NUMERIC(20,0) NOT NULL,
	fee_denominator   NUMERIC(20,0) NOT NULL,
	claimable_fees    NUMERIC(20,0) NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS contests (
	id              BIGINT PRIMARY KEY,
	time_of_close   NUMERIC(20,0) NOT NULL,
	time_of_resolve NUMERIC(20,0) NOT NULL,
	event_details   TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS contest_log (
	seq        BIGSERIAL PRIMARY KEY,
	contest_id BIGINT NOT NULL UNIQUE REFERENCES contests(id)
);

CREATE TABLE IF NOT EXISTS contest_summaries (
	contest_id            BIGINT PRIMARY KEY REFERENCES contests(id),
	fee_numerator         NUMERIC(20,0) NOT NULL,
	fee_denominator       NUMERIC(20,0) NOT NULL,
	resolved_outcome_id   SMALLINT,
	resolved_outcome_name TEXT
);

CREATE TABLE IF NOT EXISTS contest_options (
	contest_id    BIGINT NOT NULL REFERENCES contests(id),
	position      INT NOT NULL,
	outcome_id    SMALLINT NOT NULL,
	name          TEXT NOT NULL,
	staked_amount NUMERIC(20,0) NOT NULL DEFAULT 0,
	bet_count     BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (contest_id, outcome_id)
);

CREATE TABLE IF NOT EXISTS contest_bets (
	user_id       TEXT NOT NULL,
	contest_id    BIGINT NOT NULL REFERENCES contests(id),
	amount        NUMERIC(20,0) NOT NULL,
	outcome_id    SMALLINT NOT NULL,
	has_been_paid BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, contest_id)
);

CREATE TABLE IF NOT EXISTS user_contests (
	user_id    TEXT NOT NULL,
	position   INT NOT NULL,
	contest_id BIGINT NOT NULL,
	PRIMARY KEY (user_id, position)
);

CREATE TABLE IF NOT EXISTS claim_cursors (
	user_id TEXT PRIMARY KEY,
	cursor  INT NOT NULL
);

CREATE TABLE IF NOT EXISTS contest_stats (
	id           SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	total_volume NUMERIC(20,0) NOT NULL,
	total_bets   NUMERIC(20,0) NOT NULL,
	total_users  NUMERIC(20,0) NOT NULL
);

CREATE TABLE IF NOT EXISTS contest_disbursements (
	seq        BIGSERIAL PRIMARY KEY,
	reference  TEXT NOT NULL UNIQUE,
	recipient  TEXT NOT NULL,
	amount     NUMERIC(20,0) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate cria as tabelas do store. Pode ser executado várias vezes
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return errors.Wrap(err, "migrate contest schema")
}
