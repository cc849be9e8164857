package observability

import (
	"io"
	"net/http"
	"strconv"
	"time"
)

// Metrics holds the process counters exposed in Prometheus text format. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	apiRequests    *CounterVec
	apiLatency     *HistogramVec
	apiInflight    *Gauge
	exports        *CounterVec
	exportDuration *HistogramVec
	lessons        *CounterVec
	videoFetches   *CounterVec
}

// ExportObservation is the slice of a run summary the metrics care about.
type ExportObservation struct {
	Profile         string
	Mode            string
	Outcome         string
	Duration        time.Duration
	Generated       int
	VideoBundled    int
	VideoSkipped    int
	TestDegraded    int
	ContentFallback int
	Failed          int
}

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("export_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"export_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		),
		apiInflight: NewGauge("export_api_inflight_requests", "In-flight API requests."),
		exports:     NewCounterVec("export_runs_total", "Export runs by profile/mode/outcome.", []string{"profile", "mode", "outcome"}),
		exportDuration: NewHistogramVec(
			"export_run_duration_seconds",
			"Export run duration in seconds by profile/mode.",
			[]string{"profile", "mode"},
			[]float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		),
		lessons:      NewCounterVec("export_lessons_total", "Lessons processed by outcome.", []string{"outcome"}),
		videoFetches: NewCounterVec("export_video_resolutions_total", "Video resolutions by outcome.", []string{"outcome"}),
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
	for _, c := range []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight, m.exports, m.exportDuration, m.lessons, m.videoFetches,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	code := strconv.Itoa(status)
	m.apiRequests.Inc(method, route, code)
	m.apiLatency.Observe(dur.Seconds(), method, route, code)
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveExport(o ExportObservation) {
	if m == nil {
		return
	}
	if o.Outcome == "" {
		o.Outcome = "success"
	}
	m.exports.Inc(o.Profile, o.Mode, o.Outcome)
	if o.Duration > 0 {
		m.exportDuration.Observe(o.Duration.Seconds(), o.Profile, o.Mode)
	}
	m.lessons.Add(float64(o.Generated), "generated")
	m.lessons.Add(float64(o.TestDegraded), "test_degraded")
	m.lessons.Add(float64(o.ContentFallback), "content_fallback")
	m.lessons.Add(float64(o.Failed), "failed")
	m.videoFetches.Add(float64(o.VideoBundled), "bundled")
	m.videoFetches.Add(float64(o.VideoSkipped), "skipped")
}
