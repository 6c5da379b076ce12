package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/pari-contest-platform/internal/contest"
)

func TestStore_UpdateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	info := contest.ContestInfo{ID: 1, Outcomes: []contest.Outcome{{ID: 1, Name: "a"}}}

	require.NoError(t, s.Update(ctx, func(tx contest.Tx) error {
		if err := tx.PutContest(ctx, info); err != nil {
			return err
		}
		return tx.PutSummary(ctx, contest.NewSummary(info, contest.FeeFraction{Denominator: 1}))
	}))

	boom := errors.New("boom")
	err := s.Update(ctx, func(tx contest.Tx) error {
		sum, _, err := tx.Summary(ctx, 1)
		require.NoError(t, err)
		require.NoError(t, sum.AddBetToOption(1, 10, true))
		require.NoError(t, tx.PutSummary(ctx, sum))
		require.NoError(t, tx.PutBet(ctx, contest.Bet{User: "u", ContestID: 1, Amount: 10, OutcomeID: 1}))
		require.NoError(t, tx.AppendUserContest(ctx, "u", 1))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, s.View(ctx, func(tx contest.Tx) error {
		sum, ok, err := tx.Summary(ctx, 1)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Zero(t, sum.TotalPool())

		_, ok, err = tx.Bet(ctx, contest.UserContest{User: "u", ContestID: 1})
		require.NoError(t, err)
		assert.False(t, ok)

		history, err := tx.UserContests(ctx, "u")
		require.NoError(t, err)
		assert.Empty(t, history)
		return nil
	}))
}

func TestStore_ViewIsReadOnly(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.View(ctx, func(tx contest.Tx) error {
		return tx.PutStats(ctx, contest.Stats{TotalBets: 1})
	})
	assert.Error(t, err)
}

func TestStore_SummariesAreCopied(t *testing.T) {
	ctx := context.Background()
	s := New()
	info := contest.ContestInfo{ID: 2, Outcomes: []contest.Outcome{{ID: 1, Name: "a"}}}
	sum := contest.NewSummary(info, contest.FeeFraction{Denominator: 1})

	require.NoError(t, s.Update(ctx, func(tx contest.Tx) error { return tx.PutSummary(ctx, sum) }))
	sum.Options[0].StakedAmount = 99

	require.NoError(t, s.View(ctx, func(tx contest.Tx) error {
		got, _, err := tx.Summary(ctx, 2)
		require.NoError(t, err)
		assert.Zero(t, got.TotalPool())
		return nil
	}))
}

func TestStore_ContestLogAndCursor(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Update(ctx, func(tx contest.Tx) error {
		for _, id := range []uint32{5, 3, 9} {
			if err := tx.AppendContestID(ctx, id); err != nil {
				return err
			}
		}
		return tx.PutClaimCursor(ctx, "u", 2)
	}))

	require.NoError(t, s.View(ctx, func(tx contest.Tx) error {
		ids, err := tx.ContestIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []uint32{5, 3, 9}, ids)

		cursor, err := tx.ClaimCursor(ctx, "u")
		require.NoError(t, err)
		assert.Equal(t, 2, cursor)

		_, ok, err := tx.Config(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	}))
}

func TestStore_DisbursementOutbox(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Update(ctx, func(tx contest.Tx) error {
		require.NoError(t, tx.PutDisbursement(ctx, contest.Disbursement{Reference: "claim:1:a", Recipient: "a", Amount: 10}))
		require.NoError(t, tx.PutDisbursement(ctx, contest.Disbursement{Reference: "claim:2:b", Recipient: "b", Amount: 20}))
		return tx.PutDisbursement(ctx, contest.Disbursement{Reference: "claim:1:a", Recipient: "a", Amount: 99})
	}))

	require.NoError(t, s.View(ctx, func(tx contest.Tx) error {
		pending, err := tx.PendingDisbursements(ctx, 0)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, "claim:1:a", pending[0].Reference)
		assert.Equal(t, uint64(10), pending[0].Amount)

		first, err := tx.PendingDisbursements(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, first, 1)
		return nil
	}))

	err := s.Update(ctx, func(tx contest.Tx) error {
		require.NoError(t, tx.DeleteDisbursement(ctx, "claim:1:a"))
		return errors.New("abort")
	})
	require.Error(t, err)

	require.NoError(t, s.Update(ctx, func(tx contest.Tx) error {
		return tx.DeleteDisbursement(ctx, "claim:2:b")
	}))
	require.NoError(t, s.View(ctx, func(tx contest.Tx) error {
		pending, err := tx.PendingDisbursements(ctx, 0)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "claim:1:a", pending[0].Reference)
		return nil
	}))
}
