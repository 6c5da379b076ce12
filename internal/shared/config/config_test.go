package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_ServicePorts(t *testing.T) {
	t.Setenv("SERVICE_NAME", "payout-worker")
	t.Setenv("METRICS_PORT_PAYOUT", "9999")

	cfg := Load()
	assert.Equal(t, "payout-worker", cfg.ServiceName)
	assert.Equal(t, "", cfg.HTTPPort)
	assert.Equal(t, "9999", cfg.MetricsPort)
	assert.Equal(t, "payout_instructions", cfg.TopicPayoutInstructions)
	assert.Equal(t, "contest_updates_broadcast", cfg.RedisPubSubChannel)
}

func TestLoad_NumericDefaults(t *testing.T) {
	t.Setenv("SERVICE_NAME", "contest-service")
	t.Setenv("MINIMUM_BET", "25")
	t.Setenv("FEE_NUMERATOR", "not-a-number")

	cfg := Load()
	assert.Equal(t, uint64(25), cfg.MinimumBet)
	assert.Equal(t, uint64(100), cfg.FeeNumerator)
	assert.Equal(t, uint64(10_000), cfg.FeeDenominator)
	assert.Equal(t, "8080", cfg.HTTPPort)
}
