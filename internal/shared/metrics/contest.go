package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/radieske/pari-contest-platform/internal/contest"
)

// ContestMetrics conta a atividade do engine. Ligar via contest.WithHooks
type ContestMetrics struct {
	ContestsCreated prometheus.Counter
	BetsPlaced      prometheus.Counter
	StakedVolume    prometheus.Counter
	OracleQueries   *prometheus.CounterVec
	Settlements     *prometheus.CounterVec
	Claims          prometheus.Counter
	ClaimedVolume   prometheus.Counter
	FeesAccrued     prometheus.Counter
	Disbursements   *prometheus.CounterVec
	Errors          *prometheus.CounterVec
}

func NewContestMetrics(reg prometheus.Registerer) *ContestMetrics {
	m := &ContestMetrics{
		ContestsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contest_created_total",
			Help: "Contests registered",
		}),
		BetsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contest_bets_placed_total",
			Help: "Accepted bets, top-ups included",
		}),
		StakedVolume: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contest_staked_volume_total",
			Help: "Sum of accepted stake amounts",
		}),
		OracleQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contest_oracle_queries_total",
			Help: "Oracle queries by result",
		}, []string{"result"}),
		Settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contest_settlements_total",
			Help: "Contests finalized, by void or decided",
		}, []string{"outcome"}),
		Claims: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contest_claims_total",
			Help: "Bets paid out",
		}),
		ClaimedVolume: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contest_claimed_volume_total",
			Help: "Sum of payouts",
		}),
		FeesAccrued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contest_fees_accrued_total",
			Help: "Fees credited to the owner accumulator",
		}),
		Disbursements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contest_disbursements_total",
			Help: "Payout deliveries by result; failed ones stay in the outbox",
		}, []string{"result"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contest_errors_total",
			Help: "Rejected or failed operations by error kind",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		m.ContestsCreated, m.BetsPlaced, m.StakedVolume, m.OracleQueries,
		m.Settlements, m.Claims, m.ClaimedVolume, m.FeesAccrued, m.Disbursements, m.Errors,
	)
	return m
}

func (m *ContestMetrics) Hooks() contest.Hooks {
	return contest.Hooks{
		OnContestCreated: m.ContestsCreated.Inc,
		OnBetPlaced: func(amount uint64) {
			m.BetsPlaced.Inc()
			m.StakedVolume.Add(float64(amount))
		},
		OnOracleQuery: func(ok bool) {
			if ok {
				m.OracleQueries.WithLabelValues("ok").Inc()
				return
			}
			m.OracleQueries.WithLabelValues("error").Inc()
		},
		OnSettled: func(void bool) {
			if void {
				m.Settlements.WithLabelValues("void").Inc()
				return
			}
			m.Settlements.WithLabelValues("decided").Inc()
		},
		OnClaim: func(amount uint64) {
			m.Claims.Inc()
			m.ClaimedVolume.Add(float64(amount))
		},
		OnFeesAccrued: func(amount uint64) { m.FeesAccrued.Add(float64(amount)) },
		OnDisbursement: func(delivered bool) {
			if delivered {
				m.Disbursements.WithLabelValues("delivered").Inc()
				return
			}
			m.Disbursements.WithLabelValues("deferred").Inc()
		},
		OnError: func(kind string) { m.Errors.WithLabelValues(kind).Inc() },
	}
}
