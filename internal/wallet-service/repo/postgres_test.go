package repo

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/pari-contest-platform/internal/shared/db"
)

func openTestRepo(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	conn, err := db.ConnectPostgres(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ctx := context.Background()
	_, err = conn.ExecContext(ctx, `DROP TABLE IF EXISTS wallet_reservations, wallet_ledger, wallets`)
	require.NoError(t, err)
	p := NewPostgres(conn)
	require.NoError(t, p.Migrate(ctx))
	return p
}

func TestPostgres_ReserveCommitRefund(t *testing.T) {
	p := openTestRepo(t)
	ctx := context.Background()

	_, err := p.Reserve(ctx, "alice", 10, "stake:1")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, _, applied, err := p.Deposit(ctx, "alice", 100, "claim:0:alice")
	require.NoError(t, err)
	require.True(t, applied)

	first, err := p.Reserve(ctx, "alice", 60, "stake:1")
	require.NoError(t, err)
	again, err := p.Reserve(ctx, "alice", 60, "stake:1")
	require.NoError(t, err)
	assert.Equal(t, first, again)

	_, err = p.Reserve(ctx, "alice", 60, "stake:2")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	require.NoError(t, p.Commit(ctx, "alice", "stake:1"))
	require.NoError(t, p.Commit(ctx, "alice", "stake:1"))
	assert.ErrorIs(t, p.Refund(ctx, "alice", "stake:1"), ErrReservationClosed)

	_, err = p.Reserve(ctx, "alice", 30, "stake:3")
	require.NoError(t, err)
	require.NoError(t, p.Refund(ctx, "alice", "stake:3"))
	require.NoError(t, p.Refund(ctx, "alice", "stake:3"))

	_, bal, err := p.GetOrCreateWallet(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "40", bal.String())

	assert.ErrorIs(t, p.Commit(ctx, "alice", "stake:missing"), ErrNotFound)
}
