package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestMetricsWritePrometheus(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("POST", "/api/courses/:id/exports/scorm", 200, 1500*time.Millisecond)
	m.ObserveExport(ExportObservation{
		Profile:      "scorm2004",
		Mode:         "multi",
		Duration:     3 * time.Second,
		Generated:    4,
		VideoBundled: 2,
		VideoSkipped: 1,
	})
	m.APIInflightInc()

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`export_api_requests_total{method="POST",route="/api/courses/:id/exports/scorm",status="200"} 1`,
		`export_api_request_duration_seconds_bucket{method="POST",route="/api/courses/:id/exports/scorm",status="200",le="5"} 1`,
		`export_api_request_duration_seconds_bucket{method="POST",route="/api/courses/:id/exports/scorm",status="200",le="1"} 0`,
		`export_runs_total{profile="scorm2004",mode="multi",outcome="success"} 1`,
		`export_lessons_total{outcome="generated"} 4`,
		`export_video_resolutions_total{outcome="skipped"} 1`,
		`export_api_inflight_requests 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, `outcome="failed"`) {
		t.Fatalf("zero counters should not be emitted:\n%s", out)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", 200, time.Millisecond)
	m.ObserveExport(ExportObservation{})
	m.APIInflightInc()
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("nil metrics: %v", err)
	}
}

func TestParseOTLPHeaders(t *testing.T) {
	h := ParseOTLPHeaders(" a=1 , bad, b = 2 ,c=")
	if len(h) != 2 || h["a"] != "1" || h["b"] != "2" {
		t.Fatalf("unexpected headers %v", h)
	}
	if ParseOTLPHeaders("") != nil {
		t.Fatalf("empty input should be nil")
	}
}
