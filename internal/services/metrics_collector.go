package services

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"wingo-backend/internal/metrics"
)

// PoolStats is a point-in-time view of the database pool
type PoolStats struct {
	Acquired int32
	Idle     int32
	Total    int32
}

// MetricsCollector periodically samples runtime gauges that no request
// path updates on its own.
type MetricsCollector struct {
	collectInterval time.Duration
	logger          *zap.Logger

	pool       func() PoolStats
	pendingOTP func() int

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewMetricsCollector(interval time.Duration, logger *zap.Logger) *MetricsCollector {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &MetricsCollector{
		collectInterval: interval,
		logger:          logger.Named("metrics"),
		stopChan:        make(chan struct{}),
	}
}

// WithPool samples the database pool on every tick
func (c *MetricsCollector) WithPool(stats func() PoolStats) *MetricsCollector {
	c.pool = stats
	return c
}

// WithPendingOTP samples the number of held OTP challenges on every tick
func (c *MetricsCollector) WithPendingOTP(count func() int) *MetricsCollector {
	c.pendingOTP = count
	return c
}

// Start begins collection in the background; the first sample is taken immediately
func (c *MetricsCollector) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		c.Collect()

		ticker := time.NewTicker(c.collectInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.Collect()
			case <-c.stopChan:
				return
			}
		}
	}()
	c.logger.Info("metrics collector started", zap.Duration("interval", c.collectInterval))
}

// Stop ends collection and waits for the loop to exit
func (c *MetricsCollector) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	c.wg.Wait()
}

// Collect takes one sample of every configured source
func (c *MetricsCollector) Collect() {
	if c.pool != nil {
		s := c.pool()
		metrics.DBPoolConnections.WithLabelValues("acquired").Set(float64(s.Acquired))
		metrics.DBPoolConnections.WithLabelValues("idle").Set(float64(s.Idle))
		metrics.DBPoolConnections.WithLabelValues("total").Set(float64(s.Total))
	}
	if c.pendingOTP != nil {
		metrics.OTPPendingChallenges.Set(float64(c.pendingOTP()))
	}
}
