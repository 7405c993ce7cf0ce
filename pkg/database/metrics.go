package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

type poolStatter interface {
	Stat() *pgxpool.Stat
}

// PoolStatsCollector exports pgxpool statistics as Prometheus metrics.
type PoolStatsCollector struct {
	pool poolStatter

	acquiredConns *prometheus.Desc
	idleConns     *prometheus.Desc
	totalConns    *prometheus.Desc
	maxConns      *prometheus.Desc
	acquireCount  *prometheus.Desc
}

// NewPoolStatsCollector returns a collector for pool.
func NewPoolStatsCollector(pool poolStatter) *PoolStatsCollector {
	return &PoolStatsCollector{
		pool:          pool,
		acquiredConns: prometheus.NewDesc("storefront_storage_pool_acquired_connections", "Connections currently acquired", nil, nil),
		idleConns:     prometheus.NewDesc("storefront_storage_pool_idle_connections", "Connections currently idle", nil, nil),
		totalConns:    prometheus.NewDesc("storefront_storage_pool_total_connections", "Connections in the pool", nil, nil),
		maxConns:      prometheus.NewDesc("storefront_storage_pool_max_connections", "Maximum pool size", nil, nil),
		acquireCount:  prometheus.NewDesc("storefront_storage_pool_acquire_count_total", "Connection acquires", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquiredConns
	ch <- c.idleConns
	ch <- c.totalConns
	ch <- c.maxConns
	ch <- c.acquireCount
}

// Collect implements prometheus.Collector.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	stat := c.pool.Stat()
	ch <- prometheus.MustNewConstMetric(c.acquiredConns, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idleConns, prometheus.GaugeValue, float64(stat.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.totalConns, prometheus.GaugeValue, float64(stat.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.maxConns, prometheus.GaugeValue, float64(stat.MaxConns()))
	ch <- prometheus.MustNewConstMetric(c.acquireCount, prometheus.CounterValue, float64(stat.AcquireCount()))
}

// RegisterPoolMetrics registers a collector for pool with reg.
func RegisterPoolMetrics(reg prometheus.Registerer, pool *pgxpool.Pool) error {
	return reg.Register(NewPoolStatsCollector(pool))
}
