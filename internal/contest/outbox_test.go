package contest_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/pari-contest-platform/internal/contest"
)

func TestClaim_PayoutSurvivesCancelledRequest(t *testing.T) {
	h := newHarness(t, noFee, 1)
	h.create(binaryInfo(1))
	h.bet("u1", 1, 1, 100)
	h.clock.Set(resolve)
	h.oracle.results[1] = 1

	ctx, cancel := context.WithCancel(h.ctx)
	defer cancel()
	h.oracle.onQuery = cancel

	res, err := h.engine.Claim(ctx, 1, "u1")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), res.Amount)

	require.Len(t, h.disburser.paid(), 1)
	assert.Equal(t, payment{"u1", 100, "claim:1:u1"}, h.disburser.paid()[0])
	assert.Empty(t, h.pending())
}

func TestClaim_FailedPayoutStaysInOutbox(t *testing.T) {
	h := newHarness(t, noFee, 1)
	h.create(binaryInfo(1))
	h.bet("u1", 1, 1, 100)
	h.clock.Set(resolve)
	h.oracle.results[1] = 1

	h.disburser.fail(errors.New("broker unavailable"))
	assert.Equal(t, uint64(100), h.claim("u1", 1))
	assert.Empty(t, h.disburser.paid())
	require.Equal(t, []contest.Disbursement{{Reference: "claim:1:u1", Recipient: "u1", Amount: 100}}, h.pending())

	_, err := h.engine.Claim(h.ctx, 1, "u1")
	requireKind(t, err, contest.ErrBetAlreadyPaid)

	n, err := h.engine.RelayDisbursements(h.ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, h.pending(), 1)

	h.disburser.fail(nil)
	n, err = h.engine.RelayDisbursements(h.ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, h.pending())
	assert.Equal(t, uint64(100), h.disburser.total("u1"))

	n, err = h.engine.RelayDisbursements(h.ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestClaimFees_FailedPayoutKeepsReference(t *testing.T) {
	h := newHarness(t, contest.FeeFraction{Numerator: 1, Denominator: 100}, 1)
	h.create(binaryInfo(1))
	h.bet("u1", 1, 1, 100)
	h.bet("u2", 1, 2, 100)
	h.clock.Set(resolve)
	h.oracle.results[1] = 1
	_, err := h.engine.FinalizeOutcome(h.ctx, 1)
	require.NoError(t, err)

	h.disburser.fail(errors.New("broker unavailable"))
	amount, err := h.engine.ClaimFees(h.ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), amount)
	pending := h.pending()
	require.Len(t, pending, 1)

	h.disburser.fail(nil)
	_, err = h.engine.RelayDisbursements(h.ctx, 0)
	require.NoError(t, err)
	require.Len(t, h.disburser.paid(), 1)
	assert.Equal(t, pending[0].Reference, h.disburser.paid()[0].reference)
}

func TestRollback_LeavesNoOutboxEntry(t *testing.T) {
	h := newHarness(t, noFee, 1)
	h.create(binaryInfo(1))
	h.create(binaryInfo(2))
	h.bet("u1", 1, 1, 30)
	h.bet("u1", 2, 1, 20)
	h.clock.Set(resolve)
	h.oracle.results[1] = 1
	h.oracle.results[2] = 2

	_, err := h.engine.ClaimMultiple(h.ctx, "u1", []uint32{1, 2})
	requireKind(t, err, contest.ErrCannotClaimOnLostContest)
	assert.Empty(t, h.pending())
}

func TestPostCommitEffects_RunOutsideEngineLock(t *testing.T) {
	h := newHarness(t, noFee, 1)
	h.create(binaryInfo(1))
	h.bet("u1", 1, 1, 10)
	h.clock.Set(resolve)
	h.oracle.results[1] = 1

	read := make(chan error, 1)
	h.disburser.before = func() {
		_, err := h.engine.GetContest(context.Background(), 1)
		read <- err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = h.engine.Claim(h.ctx, 1, "u1")
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("claim blocked while delivering its payout")
	}
	require.NoError(t, <-read)
}

func TestRunDisbursementRelay_StopsWithContext(t *testing.T) {
	h := newHarness(t, noFee, 1)
	h.create(binaryInfo(1))
	h.bet("u1", 1, 1, 10)
	h.clock.Set(resolve)
	h.oracle.results[1] = 1
	h.disburser.fail(errors.New("down"))
	h.claim("u1", 1)
	h.disburser.fail(nil)

	ctx, cancel := context.WithCancel(h.ctx)
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		h.engine.RunDisbursementRelay(ctx, 5*time.Millisecond, 10)
	}()

	require.Eventually(t, func() bool { return len(h.pending()) == 0 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
	assert.Equal(t, uint64(10), h.disburser.total("u1"))
}
