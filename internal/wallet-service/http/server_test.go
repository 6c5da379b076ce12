package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/pari-contest-platform/internal/wallet-service/dto"
	"github.com/radieske/pari-contest-platform/internal/wallet-service/repo"
)

type reservation struct {
	user   string
	amount uint64
	status string
}

type memRepo struct {
	balances     map[string]uint64
	refs         map[string]bool
	reservations map[string]*reservation
}

func newMemRepo() *memRepo {
	return &memRepo{balances: map[string]uint64{}, refs: map[string]bool{}, reservations: map[string]*reservation{}}
}

func (m *memRepo) GetOrCreateWallet(_ context.Context, userID string) (string, decimal.Decimal, error) {
	return "w-" + userID, decimal.NewFromInt(int64(m.balances[userID])), nil
}

func (m *memRepo) Deposit(_ context.Context, userID string, amount uint64, ref string) (string, decimal.Decimal, bool, error) {
	if m.refs[ref] {
		return "w-" + userID, decimal.NewFromInt(int64(m.balances[userID])), false, nil
	}
	m.refs[ref] = true
	m.balances[userID] += amount
	return "w-" + userID, decimal.NewFromInt(int64(m.balances[userID])), true, nil
}

func (m *memRepo) Reserve(_ context.Context, userID string, amount uint64, ref string) (string, error) {
	if _, ok := m.reservations[ref]; ok {
		return "r-" + ref, nil
	}
	if m.balances[userID] < amount {
		return "", repo.ErrInsufficientFunds
	}
	m.balances[userID] -= amount
	m.reservations[ref] = &reservation{user: userID, amount: amount, status: repo.StatusPending}
	return "r-" + ref, nil
}

func (m *memRepo) settle(userID, ref, to string) error {
	res, ok := m.reservations[ref]
	if !ok || res.user != userID {
		return repo.ErrNotFound
	}
	switch res.status {
	case to:
		return nil
	case repo.StatusPending:
	default:
		return repo.ErrReservationClosed
	}
	res.status = to
	if to == repo.StatusRefunded {
		m.balances[userID] += res.amount
	}
	return nil
}

func (m *memRepo) Commit(_ context.Context, userID, ref string) error {
	return m.settle(userID, ref, repo.StatusCommitted)
}

func (m *memRepo) Refund(_ context.Context, userID, ref string) error {
	return m.settle(userID, ref, repo.StatusRefunded)
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	return postTo(t, h, "/wallet/deposit", body)
}

func postTo(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rec
}

func TestDeposit_Idempotent(t *testing.T) {
	h := NewServer(zap.NewNop(), newMemRepo()).Router()

	rec := post(t, h, `{"userId":"alice","amount":150,"external_ref":"claim:1:alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var first dto.WalletResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&first))
	assert.True(t, first.Applied)
	assert.Equal(t, "150", first.Balance.String())

	rec = post(t, h, `{"userId":"alice","amount":150,"external_ref":"claim:1:alice"}`)
	var second dto.WalletResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&second))
	assert.False(t, second.Applied)
	assert.Equal(t, "150", second.Balance.String())
}

func TestDeposit_Invalid(t *testing.T) {
	h := NewServer(zap.NewNop(), newMemRepo()).Router()
	for _, body := range []string{`{`, `{"userId":"a","amount":0,"external_ref":"x"}`, `{"userId":"a","amount":1}`} {
		assert.Equal(t, http.StatusBadRequest, post(t, h, body).Code, body)
	}
}

func TestGetWallet(t *testing.T) {
	repo := newMemRepo()
	repo.balances["bob"] = 9
	h := NewServer(zap.NewNop(), repo).Router()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wallet?userId=bob", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"balance":"9"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wallet", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReserve_DebitsAndSettles(t *testing.T) {
	r := newMemRepo()
	r.balances["alice"] = 100
	h := NewServer(zap.NewNop(), r).Router()

	rec := postTo(t, h, "/wallet/reserve", `{"userId":"alice","amount":150,"external_ref":"stake:1:alice:a"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, uint64(100), r.balances["alice"])

	rec = postTo(t, h, "/wallet/reserve", `{"userId":"alice","amount":60,"external_ref":"stake:1:alice:a"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var res dto.ReservationResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, repo.StatusPending, res.Status)
	assert.Equal(t, uint64(40), r.balances["alice"])

	rec = postTo(t, h, "/wallet/commit", `{"userId":"alice","external_ref":"stake:1:alice:a"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), repo.StatusCommitted)

	rec = postTo(t, h, "/wallet/refund", `{"userId":"alice","external_ref":"stake:1:alice:a"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, uint64(40), r.balances["alice"])

	postTo(t, h, "/wallet/reserve", `{"userId":"alice","amount":25,"external_ref":"stake:2:alice:b"}`)
	rec = postTo(t, h, "/wallet/refund", `{"userId":"alice","external_ref":"stake:2:alice:b"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(40), r.balances["alice"])

	rec = postTo(t, h, "/wallet/commit", `{"userId":"alice","external_ref":"stake:9"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReserve_Invalid(t *testing.T) {
	h := NewServer(zap.NewNop(), newMemRepo()).Router()
	cases := map[string]string{
		"/wallet/reserve": `{"userId":"a","amount":0,"external_ref":"x"}`,
		"/wallet/commit":  `{"userId":"a"}`,
		"/wallet/refund":  `{`,
	}
	for path, body := range cases {
		assert.Equal(t, http.StatusBadRequest, postTo(t, h, path, body).Code, path)
	}
}
