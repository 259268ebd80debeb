package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LedgerStats is a snapshot of the committed registry.
type LedgerStats struct {
	Initialized bool
	TotalSupply uint64
	LastCommit  uint64
}

// LedgerCollector reports ledger size at scrape time.
type LedgerCollector struct {
	stats func() (LedgerStats, error)

	supply      *prometheus.Desc
	lastCommit  *prometheus.Desc
	initialized *prometheus.Desc
	up          *prometheus.Desc
}

// NewLedgerCollector creates a collector that calls stats on every scrape.
func NewLedgerCollector(stats func() (LedgerStats, error)) *LedgerCollector {
	return &LedgerCollector{
		stats: stats,
		supply: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "registry", "total_supply"),
			"Number of claim tokens minted.", nil, nil),
		lastCommit: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "registry", "last_commit"),
			"Highest commit marker applied to the registry.", nil, nil),
		initialized: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "registry", "initialized"),
			"1 if the registry has an issuance authority.", nil, nil),
		up: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "registry", "up"),
			"1 if the ledger could be read.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *LedgerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.supply
	ch <- c.lastCommit
	ch <- c.initialized
	ch <- c.up
}

// Collect implements prometheus.Collector.
func (c *LedgerCollector) Collect(ch chan<- prometheus.Metric) {
	s, err := c.stats()
	if err != nil {
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}

	initialized := 0.0
	if s.Initialized {
		initialized = 1
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)
	ch <- prometheus.MustNewConstMetric(c.supply, prometheus.GaugeValue, float64(s.TotalSupply))
	ch <- prometheus.MustNewConstMetric(c.lastCommit, prometheus.GaugeValue, float64(s.LastCommit))
	ch <- prometheus.MustNewConstMetric(c.initialized, prometheus.GaugeValue, initialized)
}
