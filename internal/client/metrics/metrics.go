// Package metrics holds the Prometheus collectors of the backpack client.
// Every method is safe on a nil *Metrics, so instrumentation stays optional.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics registers client collectors on a private registry.
type Metrics struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	syncRuns           *prometheus.CounterVec
	syncItems          *prometheus.CounterVec
	cacheWrites        *prometheus.CounterVec
	cacheWriteDuration prometheus.Histogram
	dirtyRecords       prometheus.Gauge
	online             prometheus.Gauge
}

// New registers the collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backpack_api_request_duration_seconds",
		Help:    "Duration of API requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backpack_api_requests_total",
		Help: "Total number of API requests",
	}, []string{"method", "endpoint", "status"})

	syncRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backpack_sync_runs_total",
		Help: "Reconciliation runs by result",
	}, []string{"result"})

	syncItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backpack_sync_items_total",
		Help: "Records replayed during reconciliation by kind and result",
	}, []string{"kind", "result"})

	cacheWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backpack_cache_writes_total",
		Help: "State snapshots written to the persistent cache",
	}, []string{"result"})

	cacheWriteDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "backpack_cache_write_seconds",
		Help:    "Latency of state snapshot writes",
		Buckets: prometheus.DefBuckets,
	})

	dirtyRecords := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "backpack_dirty_records",
		Help: "Records waiting to be synced",
	})

	online := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "backpack_online",
		Help: "1 when the client is in online mode",
	})

	registry.MustRegister(requestDuration, requestTotal, syncRuns, syncItems, cacheWrites, cacheWriteDuration, dirtyRecords, online)

	return &Metrics{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		syncRuns:           syncRuns,
		syncItems:          syncItems,
		cacheWrites:        cacheWrites,
		cacheWriteDuration: cacheWriteDuration,
		dirtyRecords:       dirtyRecords,
		online:             online,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry, or nil.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRequest records one API round trip. status is 0 for transport failures.
func (m *Metrics) ObserveRequest(method, endpoint string, status int, d time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, endpoint, code).Observe(d.Seconds())
	m.requestTotal.WithLabelValues(method, endpoint, code).Inc()
}

// ObserveSync counts a reconciliation run.
func (m *Metrics) ObserveSync(result string) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(result).Inc()
}

// ObserveSyncItem counts one replayed record.
func (m *Metrics) ObserveSyncItem(kind, result string) {
	if m == nil {
		return
	}
	m.syncItems.WithLabelValues(kind, result).Inc()
}

// ObserveCacheWrite records a snapshot write.
func (m *Metrics) ObserveCacheWrite(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.cacheWrites.WithLabelValues(result).Inc()
	m.cacheWriteDuration.Observe(d.Seconds())
}

// SetDirty publishes the number of records waiting to sync.
func (m *Metrics) SetDirty(n int) {
	if m == nil {
		return
	}
	m.dirtyRecords.Set(float64(n))
}

// SetOnline publishes the connectivity mode.
func (m *Metrics) SetOnline(online bool) {
	if m == nil {
		return
	}
	if online {
		m.online.Set(1)
		return
	}
	m.online.Set(0)
}
