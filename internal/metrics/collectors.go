package metrics

import (
	"context"
	"time"

	"opencalc/pkg/logger"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

// CustomCollector collects per-scrape inventory metrics from postgres
type CustomCollector struct {
	log      *logger.Logger
	postgres *sqlx.DB

	// Descriptors
	totalTickers   *prometheus.Desc
	totalStrikes   *prometheus.Desc
	totalTrades    *prometheus.Desc
	staleSnapshots *prometheus.Desc
}

// NewCustomCollector creates a new custom metrics collector
func NewCustomCollector(log *logger.Logger, postgres *sqlx.DB) *CustomCollector {
	return &CustomCollector{
		log:      log,
		postgres: postgres,

		totalTickers: prometheus.NewDesc(
			"opencalc_total_tickers",
			"Total number of followed tickers",
			nil, nil,
		),
		totalStrikes: prometheus.NewDesc(
			"opencalc_total_strikes",
			"Total snapshot strike records by option type",
			[]string{"option_type"}, nil,
		),
		totalTrades: prometheus.NewDesc(
			"opencalc_total_trades",
			"Total number of tracked trades by status",
			[]string{"status"}, nil,
		),
		staleSnapshots: prometheus.NewDesc(
			"opencalc_stale_snapshot_symbols",
			"Number of symbols whose snapshot is older than one hour",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *CustomCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalTickers
	ch <- c.totalStrikes
	ch <- c.totalTrades
	ch <- c.staleSnapshots
}

// Collect implements prometheus.Collector
func (c *CustomCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.collectTickerCount(ctx, ch)
	c.collectStrikeStats(ctx, ch)
	c.collectTradeStats(ctx, ch)
	c.collectStaleSnapshots(ctx, ch)
}

func (c *CustomCollector) collectTickerCount(ctx context.Context, ch chan<- prometheus.Metric) {
	var count int
	err := c.postgres.GetContext(ctx, &count, "SELECT COUNT(*) FROM tickers")
	if err != nil {
		c.log.Error("Failed to collect ticker count metric", "error", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(
		c.totalTickers,
		prometheus.GaugeValue,
		float64(count),
	)
}

func (c *CustomCollector) collectStrikeStats(ctx context.Context, ch chan<- prometheus.Metric) {
	type StrikeStat struct {
		OptionType string `db:"option_type"`
		Count      int    `db:"count"`
	}

	var stats []StrikeStat
	err := c.postgres.SelectContext(ctx, &stats, `
		SELECT option_type, COUNT(*) as count
		FROM strikes
		GROUP BY option_type
	`)
	if err != nil {
		c.log.Error("Failed to collect strike stats", "error", err)
		return
	}

	for _, stat := range stats {
		ch <- prometheus.MustNewConstMetric(
			c.totalStrikes,
			prometheus.GaugeValue,
			float64(stat.Count),
			stat.OptionType,
		)
	}
}

func (c *CustomCollector) collectTradeStats(ctx context.Context, ch chan<- prometheus.Metric) {
	type TradeStat struct {
		Status int `db:"status"`
		Count  int `db:"count"`
	}

	var stats []TradeStat
	err := c.postgres.SelectContext(ctx, &stats, `
		SELECT status, COUNT(*) as count
		FROM trades
		GROUP BY status
	`)
	if err != nil {
		c.log.Error("Failed to collect trade stats", "error", err)
		return
	}

	for _, stat := range stats {
		name := "open"
		if stat.Status != 1 {
			name = "archived"
		}
		ch <- prometheus.MustNewConstMetric(
			c.totalTrades,
			prometheus.GaugeValue,
			float64(stat.Count),
			name,
		)
	}
}

func (c *CustomCollector) collectStaleSnapshots(ctx context.Context, ch chan<- prometheus.Metric) {
	var count int
	err := c.postgres.GetContext(ctx, &count, `
		SELECT COUNT(DISTINCT symbol)
		FROM strikes
		WHERE updated_at < NOW() - INTERVAL '1 hour'
	`)
	if err != nil {
		c.log.Error("Failed to collect stale snapshot stats", "error", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(
		c.staleSnapshots,
		prometheus.GaugeValue,
		float64(count),
	)
}

// RegisterCustomCollector registers the custom collector
func RegisterCustomCollector(collector *CustomCollector) {
	prometheus.MustRegister(collector)
}
