package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	SpreadCycleDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_spread_cycle_duration_seconds",
		Help: "Duration of the last spread computation cycle",
	})

	SpreadRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_spread_records",
		Help: "Number of spread records emitted in the last cycle",
	})

	OrderOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arb_order_operations_total",
		Help: "Order operations by op and outcome",
	}, []string{"op", "outcome"})

	FeedPrices = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_feed_prices_total",
		Help: "Ticker prices written to the price cache",
	})
)

func init() {
	prometheus.MustRegister(SpreadCycleDuration, SpreadRecords, OrderOps, FeedPrices)
}
