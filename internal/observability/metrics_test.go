package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/healthcheck", "200", time.Millisecond)
	m.APIInflight(1)
	m.ObserveRun(RunObservation{Trigger: "admin", Status: "succeeded"})
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("WritePrometheus on nil: %v", err)
	}
}

func TestObserveRunExposition(t *testing.T) {
	m := NewMetrics()
	finished := time.Unix(1736000000, 0)
	m.ObserveRun(RunObservation{
		Trigger: "schedule", Status: "partial", ErrorKind: "network_error",
		Duration: 3 * time.Second, Pages: 2, Fetched: 10, Excluded: 1,
		Inserted: 4, Updated: 2, Skipped: 3, Mirrored: 42, Finished: finished,
	})
	m.ObserveRun(RunObservation{Trigger: "schedule", Status: "failed", ErrorKind: "store_error"})

	if got := m.runs.Value("schedule", "partial"); got != 1 {
		t.Fatalf("runs partial: %v", got)
	}
	if got := m.records.Value("inserted"); got != 4 {
		t.Fatalf("inserted: %v", got)
	}

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`tp_ingest_runs_total{trigger="schedule",status="partial"} 1`,
		`tp_ingest_errors_total{kind="network_error"} 1`,
		`tp_ingest_run_duration_seconds_bucket{trigger="schedule",le="5"} 2`,
		`tp_ingest_run_duration_seconds_bucket{trigger="schedule",le="+Inf"} 2`,
		`tp_mirror_records 42`,
		`tp_ingest_last_success_timestamp_seconds 1.736e+09`,
		`tp_ingest_pages_total 2`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"route"}, []string{`/a"b\c`})
	if got != `{route="/a\"b\\c"}` {
		t.Fatalf("labelString: %s", got)
	}
	if withLe("", "1") != `{le="1"}` {
		t.Fatalf("withLe empty")
	}
}

func TestParseHeadersAndRatio(t *testing.T) {
	h := parseHeaders("api-key=abc, x = y ,bad")
	if len(h) != 2 || h["api-key"] != "abc" || h["x"] != "y" {
		t.Fatalf("headers: %v", h)
	}
	if parseHeaders("") != nil {
		t.Fatalf("empty headers should be nil")
	}
	if parseRatio("2", 0.1) != 1 || parseRatio("-1", 0.1) != 0 || parseRatio("x", 0.1) != 0.1 {
		t.Fatalf("ratio clamping")
	}
}
