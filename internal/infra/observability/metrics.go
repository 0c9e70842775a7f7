package observability

import (
	"time"

	"github.com/boddenberg/banca-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Mutation actions recorded by IncrEntryMutation.
const (
	ActionCreate    = "create"
	ActionEdit      = "edit"
	ActionSettle    = "settle"
	ActionReconcile = "reconcile"
	ActionDelete    = "delete"
)

// Metrics holds all Prometheus metrics for the ledger API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	storeErrors       *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	entryMutations    *prometheus.CounterVec
	settleConflicts   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "banca_operation_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "banca_store_errors_total",
				Help: "Total errors returned by the persistence store.",
			},
			[]string{"store"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "banca_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "banca_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		entryMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "banca_entry_mutations_total",
				Help: "Successful entry mutations by category and action.",
			},
			[]string{"category", "action"},
		),
		settleConflicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "banca_settle_conflicts_total",
				Help: "Conditional settle/reconcile updates that matched no row.",
			},
			[]string{"category"},
		),
	}
}

// RecordDuration records the duration of an operation.
func (m *Metrics) RecordDuration(operation string, d time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrStoreError increments the store error counter.
func (m *Metrics) IncrStoreError(store string) {
	m.storeErrors.WithLabelValues(store).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrEntryMutation counts a successful mutation.
func (m *Metrics) IncrEntryMutation(category domain.Category, action string) {
	m.entryMutations.WithLabelValues(string(category), action).Inc()
}

// IncrSettleConflict counts a conditional update that lost its race.
func (m *Metrics) IncrSettleConflict(category domain.Category) {
	m.settleConflicts.WithLabelValues(string(category)).Inc()
}

// Snapshot returns the cumulative counters for GET /v1/metrics/ledger.
func (m *Metrics) Snapshot() *domain.LedgerMetrics {
	hits := sumCounter(m.cacheHits)
	misses := sumCounter(m.cacheMisses)
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.LedgerMetrics{
		EntriesCreated:  int64(sumCounter(m.entryMutations, ActionCreate)),
		EntriesSettled:  int64(sumCounter(m.entryMutations, ActionSettle)),
		EntriesDeleted:  int64(sumCounter(m.entryMutations, ActionDelete)),
		SettleConflicts: int64(sumCounter(m.settleConflicts)),
		StoreErrors:     int64(sumCounter(m.storeErrors)),
		CacheHitRate:    hitRate,
		Period:          "all_time",
	}
}

// sumCounter adds up every series of cv. When action is given, only series
// whose "action" label matches are counted.
func sumCounter(cv *prometheus.CounterVec, action ...string) float64 {
	ch := make(chan prometheus.Metric, 32)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	var total float64
	for metric := range ch {
		pb := &dto.Metric{}
		if err := metric.Write(pb); err != nil || pb.Counter == nil {
			continue
		}
		if len(action) > 0 && !hasLabel(pb, "action", action[0]) {
			continue
		}
		total += pb.Counter.GetValue()
	}
	return total
}

func hasLabel(pb *dto.Metric, name, value string) bool {
	for _, lp := range pb.GetLabel() {
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}
