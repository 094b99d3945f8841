package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StableMetrics tracks mint and redeem activity for the issuance engine.
type StableMetrics struct {
	operations    *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	amounts       *prometheus.HistogramVec
	latency       *prometheus.HistogramVec
	oraclePrice   *prometheus.GaugeVec
	limitThrottle *prometheus.CounterVec
}

var (
	stableMetricsOnce sync.Once
	stableRegistry    *StableMetrics

	psmMetricsOnce sync.Once
	psmRegistry    *PSMMetrics
)

// Stable returns the lazily-initialised issuance metrics registry.
func Stable() *StableMetrics {
	stableMetricsOnce.Do(func() {
		stableRegistry = &StableMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stable",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Count of committed mint and redeem operations segmented by vault.",
			}, []string{"operation", "vault"}),
			rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stable",
				Subsystem: "engine",
				Name:      "rejections_total",
				Help:      "Count of rejected operations segmented by reason.",
			}, []string{"operation", "reason"}),
			amounts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "stable",
				Subsystem: "engine",
				Name:      "amount_base_units",
				Help:      "Distribution of committed operation sizes in base units.",
				Buckets:   prometheus.ExponentialBuckets(1_000, 10, 10),
			}, []string{"operation", "vault"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "stable",
				Subsystem: "engine",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for issuance operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			oraclePrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "stable",
				Subsystem: "oracle",
				Name:      "aggregated_price_usd",
				Help:      "Most recent aggregated oracle price per vault at six decimals.",
			}, []string{"vault"}),
			limitThrottle: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stable",
				Subsystem: "engine",
				Name:      "limit_throttles_total",
				Help:      "Count of operations rejected by rolling period limits.",
			}, []string{"operation", "scope"}),
		}
		prometheus.MustRegister(
			stableRegistry.operations,
			stableRegistry.rejections,
			stableRegistry.amounts,
			stableRegistry.latency,
			stableRegistry.oraclePrice,
			stableRegistry.limitThrottle,
		)
	})
	return stableRegistry
}

// ObserveOperation records a committed mint or redeem together with its size
// and wall-clock duration.
func (m *StableMetrics) ObserveOperation(operation, vault string, amount uint64, duration time.Duration) {
	if m == nil {
		return
	}
	operation = normalizeLabel(operation)
	vault = normalizeLabel(vault)
	m.operations.WithLabelValues(operation, vault).Inc()
	m.amounts.WithLabelValues(operation, vault).Observe(float64(amount))
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveRejection records a failed operation keyed by a stable reason string
// such as "oracle" or "paused" so dashboards stay consistent.
func (m *StableMetrics) ObserveRejection(operation, reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(normalizeLabel(operation), normalizeLabel(reason)).Inc()
}

// SetOraclePrice publishes the aggregated oracle price observed for a vault.
func (m *StableMetrics) SetOraclePrice(vault string, priceUSD uint64) {
	if m == nil {
		return
	}
	m.oraclePrice.WithLabelValues(normalizeLabel(vault)).Set(float64(priceUSD))
}

// ObserveLimitThrottle records a period-limit rejection at the given scope
// ("config", "vault" or "benefactor").
func (m *StableMetrics) ObserveLimitThrottle(operation, scope string) {
	if m == nil {
		return
	}
	m.limitThrottle.WithLabelValues(normalizeLabel(operation), normalizeLabel(scope)).Inc()
}

// PSMMetrics tracks swap-pool liquidity flow.
type PSMMetrics struct {
	swaps     *prometheus.CounterVec
	liquidity *prometheus.CounterVec
}

// PSM returns the lazily-initialised swap-pool metrics registry.
func PSM() *PSMMetrics {
	psmMetricsOnce.Do(func() {
		psmRegistry = &PSMMetrics{
			swaps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stable",
				Subsystem: "psm",
				Name:      "redeems_total",
				Help:      "Count of committed pool redemptions segmented by pool.",
			}, []string{"pool", "outcome"}),
			liquidity: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stable",
				Subsystem: "psm",
				Name:      "liquidity_moves_total",
				Help:      "Count of admin supply and withdraw operations per pool.",
			}, []string{"pool", "direction"}),
		}
		prometheus.MustRegister(psmRegistry.swaps, psmRegistry.liquidity)
	})
	return psmRegistry
}

// ObserveRedeem records the outcome of a pool redemption.
func (m *PSMMetrics) ObserveRedeem(pool string, success bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "error"
	}
	m.swaps.WithLabelValues(normalizeLabel(pool), outcome).Inc()
}

// ObserveLiquidity records an admin liquidity movement. Direction should be
// "supply" or "withdraw".
func (m *PSMMetrics) ObserveLiquidity(pool, direction string) {
	if m == nil {
		return
	}
	m.liquidity.WithLabelValues(normalizeLabel(pool), normalizeLabel(direction)).Inc()
}

// RedeemsVec exposes the redemption counter for test assertions.
func (m *PSMMetrics) RedeemsVec() *prometheus.CounterVec {
	return m.swaps
}

// LiquidityVec exposes the liquidity counter for test assertions.
func (m *PSMMetrics) LiquidityVec() *prometheus.CounterVec {
	return m.liquidity
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
