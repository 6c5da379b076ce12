package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/pari-contest-platform/internal/signer"
)

var now = time.Unix(1_700_000_000, 0)

type echo struct {
	caller string
	body   string
	anon   bool
}

func (e *echo) ServeHTTP(_ http.ResponseWriter, r *http.Request) {
	c, ok := Caller(r.Context())
	e.caller, e.anon = c, !ok
	b, _ := io.ReadAll(r.Body)
	e.body = string(b)
}

func newSigned(t *testing.T, s *signer.Signer, method, target, body string, at time.Time) *http.Request {
	t.Helper()
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	require.NoError(t, SignRequest(r, s, at))
	return r
}

func TestMiddleware_AcceptsSignedRequest(t *testing.T) {
	s, err := signer.GenerateSigner()
	require.NoError(t, err)
	next := &echo{}
	h := (&Authenticator{Now: func() time.Time { return now }}).Middleware(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, newSigned(t, s, http.MethodPost, "/v1/admin/fee?x=1", `{"numerator":1}`, now.Add(-time.Minute)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, s.Address(), next.caller)
	assert.Equal(t, `{"numerator":1}`, next.body)
}

func TestMiddleware_AnonymousPassesThrough(t *testing.T) {
	next := &echo{}
	h := (&Authenticator{}).Middleware(next)

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/config", nil)
	r.Header.Set(HeaderCaller, "owner")
	h.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, next.anon)
}

func TestMiddleware_Rejections(t *testing.T) {
	s, err := signer.GenerateSigner()
	require.NoError(t, err)
	other, err := signer.GenerateSigner()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(r *http.Request) *http.Request
	}{
		{"stale timestamp", func(*http.Request) *http.Request {
			return newSigned(t, s, http.MethodPost, "/v1/admin/fee", `{}`, now.Add(-time.Hour))
		}},
		{"claimed caller differs", func(r *http.Request) *http.Request {
			r.Header.Set(HeaderCaller, other.Address())
			return r
		}},
		{"body swapped", func(r *http.Request) *http.Request {
			swapped := httptest.NewRequest(http.MethodPost, "/v1/admin/fee", strings.NewReader(`{"numerator":100}`))
			swapped.Header = r.Header.Clone()
			return swapped
		}},
		{"path swapped", func(r *http.Request) *http.Request {
			swapped := httptest.NewRequest(http.MethodPost, "/v1/admin/claim-fees", strings.NewReader(`{}`))
			swapped.Header = r.Header.Clone()
			return swapped
		}},
		{"garbage signature", func(r *http.Request) *http.Request {
			r.Header.Set(HeaderSignature, "00")
			return r
		}},
		{"bad timestamp", func(r *http.Request) *http.Request {
			r.Header.Set(HeaderTimestamp, "soon")
			return r
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &echo{}
			h := (&Authenticator{Now: func() time.Time { return now }}).Middleware(next)
			r := tt.mutate(newSigned(t, s, http.MethodPost, "/v1/admin/fee", `{}`, now))

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), `"unauthenticated"`)
			assert.Empty(t, next.caller)
		})
	}
}

type memSetNX struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (m *memSetNX) SetNX(ctx context.Context, key string, _ any, _ time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := redis.NewBoolCmd(ctx)
	if m.seen[key] {
		cmd.SetVal(false)
		return cmd
	}
	m.seen[key] = true
	cmd.SetVal(true)
	return cmd
}

func TestMiddleware_RejectsReplay(t *testing.T) {
	s, err := signer.GenerateSigner()
	require.NoError(t, err)
	a := &Authenticator{
		Now:    func() time.Time { return now },
		Replay: NewRedisReplayGuard(&memSetNX{seen: map[string]bool{}}),
	}
	h := a.Middleware(&echo{})

	signed := newSigned(t, s, http.MethodPost, "/v1/contests/1/bets", `{"amount":5}`, now)
	replay := httptest.NewRequest(http.MethodPost, "/v1/contests/1/bets", strings.NewReader(`{"amount":5}`))
	replay.Header = signed.Header.Clone()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signed)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, replay)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "already used")
}

func TestNormalize(t *testing.T) {
	s, err := signer.GenerateSigner()
	require.NoError(t, err)
	assert.Equal(t, s.Address(), Normalize(strings.ToLower(s.Address())))
	assert.Equal(t, "owner", Normalize("owner"))
}
