package oracle

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/pari-contest-platform/internal/contest"
)

func declare(t *testing.T, url string, body string) int {
	t.Helper()
	res, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()
	return res.StatusCode
}

func TestSimulator_DeclareThenQuery(t *testing.T) {
	sim := NewSimulator(zap.NewNop(), prometheus.NewRegistry())
	srv := httptest.NewServer(sim.Router())
	defer srv.Close()
	c := New(srv.URL)

	_, err := c.QueryContestResult(context.Background(), 4)
	assert.ErrorContains(t, err, "http 404")

	assert.Equal(t, http.StatusOK, declare(t, srv.URL+"/contests/4/result", `{"result":2}`))
	assert.Equal(t, http.StatusOK, declare(t, srv.URL+"/contests/4/result", `{"result":2}`))
	assert.Equal(t, http.StatusConflict, declare(t, srv.URL+"/contests/4/result", `{"result":1}`))

	got, err := c.QueryContestResult(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, contest.OutcomeID(2), got)
}

func TestSimulator_AutoResolveIsStable(t *testing.T) {
	sim := NewSimulator(zap.NewNop(), prometheus.NewRegistry())
	sim.AutoOutcomes = 3
	sim.Rand = rand.New(rand.NewSource(1))
	srv := httptest.NewServer(sim.Router())
	defer srv.Close()
	c := New(srv.URL)

	first, err := c.QueryContestResult(context.Background(), 11)
	require.NoError(t, err)
	assert.LessOrEqual(t, first, contest.OutcomeID(3))

	for i := 0; i < 5; i++ {
		again, err := c.QueryContestResult(context.Background(), 11)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
