package services

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"wingo-backend/internal/metrics"
)

func TestMetricsCollector_Collect(t *testing.T) {
	c := NewMetricsCollector(time.Minute, zap.NewNop()).
		WithPool(func() PoolStats { return PoolStats{Acquired: 3, Idle: 2, Total: 5} }).
		WithPendingOTP(func() int { return 7 })

	c.Collect()

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.DBPoolConnections.WithLabelValues("acquired")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.DBPoolConnections.WithLabelValues("idle")))
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.DBPoolConnections.WithLabelValues("total")))
	assert.Equal(t, 7.0, testutil.ToFloat64(metrics.OTPPendingChallenges))
}

func TestMetricsCollector_StartStop(t *testing.T) {
	var samples atomic.Int32
	c := NewMetricsCollector(10*time.Millisecond, zap.NewNop()).
		WithPendingOTP(func() int {
			samples.Add(1)
			return 0
		})

	c.Start()
	assert.Eventually(t, func() bool { return samples.Load() >= 3 }, time.Second, 5*time.Millisecond)
	c.Stop()
	c.Stop()

	after := samples.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, samples.Load())
}
