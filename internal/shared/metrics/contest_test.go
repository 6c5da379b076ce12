package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestContestMetrics_Hooks(t *testing.T) {
	m := NewContestMetrics(prometheus.NewRegistry())
	h := m.Hooks()

	h.OnContestCreated()
	h.OnBetPlaced(40)
	h.OnBetPlaced(2)
	h.OnOracleQuery(false)
	h.OnOracleQuery(true)
	h.OnSettled(true)
	h.OnClaim(30)
	h.OnFeesAccrued(3)
	h.OnDisbursement(false)
	h.OnError("bet below minimum")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ContestsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BetsPlaced))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.StakedVolume))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OracleQueries.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Settlements.WithLabelValues("void")))
	assert.Equal(t, 30.0, testutil.ToFloat64(m.ClaimedVolume))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.FeesAccrued))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Disbursements.WithLabelValues("deferred")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues("bet below minimum")))
}

func TestHandler_Healthz(t *testing.T) {
	healthy := Handler(func(context.Context) error { return nil })
	rec := httptest.NewRecorder()
	healthy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	sick := Handler(func(context.Context) error { return errors.New("redis down") })
	rec = httptest.NewRecorder()
	sick.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis down")
}
