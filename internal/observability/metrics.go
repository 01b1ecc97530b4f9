package observability

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/yungbote/tenpadel-backend/internal/platform/envutil"
	"github.com/yungbote/tenpadel-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests   *CounterVec
	apiLatency    *HistogramVec
	apiInflight   *GaugeVec
	runs          *CounterVec
	runDuration   *HistogramVec
	records       *CounterVec
	pages         *CounterVec
	fetchErrors   *CounterVec
	mirrorRecords *GaugeVec
	lastSuccess   *GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current returns the process-wide metrics, or nil when metrics are off. All
// methods are safe on a nil receiver.
func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		log.Info("metrics enabled")
	})
	return instance
}

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("tp_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"tp_api_request_duration_seconds",
			"API request latency in seconds by method/route.",
			[]string{"method", "route"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGaugeVec("tp_api_inflight_requests", "In-flight API requests.", nil),
		runs:        NewCounterVec("tp_ingest_runs_total", "Ingestion runs by trigger/status.", []string{"trigger", "status"}),
		runDuration: NewHistogramVec(
			"tp_ingest_run_duration_seconds",
			"Ingestion run duration in seconds by trigger.",
			[]string{"trigger"},
			[]float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		),
		records:       NewCounterVec("tp_ingest_records_total", "Records processed by outcome.", []string{"outcome"}),
		pages:         NewCounterVec("tp_ingest_pages_total", "Listing pages fetched.", nil),
		fetchErrors:   NewCounterVec("tp_ingest_errors_total", "Blocking run errors by kind.", []string{"kind"}),
		mirrorRecords: NewGaugeVec("tp_mirror_records", "Records in the last exported mirror.", nil),
		lastSuccess:   NewGaugeVec("tp_ingest_last_success_timestamp_seconds", "Unix time of the last successful run.", nil),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.runs, m.runDuration, m.records, m.pages, m.fetchErrors,
		m.mirrorRecords, m.lastSuccess,
	}
	for _, mw := range writers {
		if err := mw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) APIInflight(delta float64) {
	if m == nil {
		return
	}
	m.apiInflight.Add(delta)
}

type RunObservation struct {
	Trigger   string
	Status    string
	ErrorKind string
	Duration  time.Duration
	Pages     int
	Fetched   int
	Excluded  int
	Inserted  int
	Updated   int
	Skipped   int
	Mirrored  int
	Finished  time.Time
}

func (m *Metrics) ObserveRun(o RunObservation) {
	if m == nil {
		return
	}
	m.runs.Inc(o.Trigger, o.Status)
	m.runDuration.Observe(o.Duration.Seconds(), o.Trigger)
	m.pages.Add(float64(o.Pages))
	m.records.Add(float64(o.Fetched), "fetched")
	m.records.Add(float64(o.Excluded), "excluded")
	m.records.Add(float64(o.Inserted), "inserted")
	m.records.Add(float64(o.Updated), "updated")
	m.records.Add(float64(o.Skipped), "skipped")
	if o.ErrorKind != "" {
		m.fetchErrors.Inc(o.ErrorKind)
	}
	if o.Status == "succeeded" || o.Status == "partial" {
		m.mirrorRecords.Set(float64(o.Mirrored))
		m.lastSuccess.Set(float64(o.Finished.Unix()))
	}
}
