package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/pari-contest-platform/internal/contest"
)

type mapKV struct {
	data map[string]string
	err  error
}

func newMapKV() *mapKV { return &mapKV{data: map[string]string{}} }

func (m *mapKV) Get(_ context.Context, key string) *redis.StringCmd {
	if m.err != nil {
		return redis.NewStringResult("", m.err)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mapKV) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func TestViewingKeys(t *testing.T) {
	ctx := context.Background()
	kv := newMapKV()
	vk := New(kv)

	err := vk.AssertValid(ctx, "alice", "anything")
	assert.ErrorIs(t, err, contest.ErrInvalidAccessCredential)

	require.NoError(t, vk.SetViewingKey(ctx, "alice", "secret"))
	assert.NoError(t, vk.AssertValid(ctx, "alice", "secret"))
	assert.ErrorIs(t, vk.AssertValid(ctx, "alice", "Secret"), contest.ErrInvalidAccessCredential)
	assert.ErrorIs(t, vk.AssertValid(ctx, "bob", "secret"), contest.ErrInvalidAccessCredential)

	assert.NotContains(t, kv.data[keyUser("alice")], "secret")
}

func TestViewingKeys_Generate(t *testing.T) {
	ctx := context.Background()
	vk := New(newMapKV())

	key, err := vk.GenerateViewingKey(ctx, "carol")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "vk_"))
	assert.NoError(t, vk.AssertValid(ctx, "carol", key))

	again, err := vk.GenerateViewingKey(ctx, "carol")
	require.NoError(t, err)
	assert.NotEqual(t, key, again)
	assert.ErrorIs(t, vk.AssertValid(ctx, "carol", key), contest.ErrInvalidAccessCredential)
}

func TestViewingKeys_RejectsEmpty(t *testing.T) {
	vk := New(newMapKV())
	assert.ErrorIs(t, vk.SetViewingKey(context.Background(), "dave", ""), contest.ErrInvalidAccessCredential)
}

func TestViewingKeys_BackendError(t *testing.T) {
	kv := newMapKV()
	kv.err = errors.New("connection refused")
	err := New(kv).AssertValid(context.Background(), "erin", "x")

	require.Error(t, err)
	_, isDomain := contest.KindOf(err)
	assert.False(t, isDomain)
}
