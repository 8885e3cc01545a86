package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	authedge "github.com/caldercay/authedge"
)

type fakeSource struct {
	snapshot authedge.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() authedge.MetricsSnapshot { return f.snapshot }
func (f *fakeSource) AuditDropped() uint64                      { return f.dropped }

func TestRenderCountersAndHistogram(t *testing.T) {
	src := &fakeSource{
		snapshot: authedge.MetricsSnapshot{
			Counters: map[authedge.MetricID]uint64{
				authedge.MetricLoginSuccess:  3,
				authedge.MetricVerifyFailure: 7,
			},
			Histograms: map[authedge.MetricID][]uint64{
				authedge.MetricVerifyLatency: {2, 1, 0, 0, 0, 0, 0, 1},
			},
		},
		dropped: 5,
	}

	out := NewExporterFromSource(src).Render()

	for _, want := range []string{
		"# TYPE authedge_login_success_total counter",
		"authedge_login_success_total 3",
		"authedge_verify_failure_total 7",
		"authedge_csrf_rejected_total 0",
		"# TYPE authedge_verify_latency_seconds histogram",
		`authedge_verify_latency_seconds_bucket{le="0.005"} 2`,
		`authedge_verify_latency_seconds_bucket{le="0.01"} 3`,
		`authedge_verify_latency_seconds_bucket{le="+Inf"} 4`,
		"authedge_verify_latency_seconds_count 4",
		"authedge_audit_dropped_total 5",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("render output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderEmptySource(t *testing.T) {
	src := &fakeSource{snapshot: authedge.MetricsSnapshot{
		Counters:   map[authedge.MetricID]uint64{},
		Histograms: map[authedge.MetricID][]uint64{},
	}}
	if out := NewExporterFromSource(src).Render(); out != "" {
		t.Fatalf("empty source rendered %q", out)
	}

	var nilExporter *Exporter
	if out := nilExporter.Render(); out != "" {
		t.Fatalf("nil exporter rendered %q", out)
	}
}

func TestHandlerServesTextFormat(t *testing.T) {
	src := &fakeSource{
		snapshot: authedge.MetricsSnapshot{
			Counters:   map[authedge.MetricID]uint64{authedge.MetricLogout: 1},
			Histograms: map[authedge.MetricID][]uint64{},
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	NewExporterFromSource(src).Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/plain") {
		t.Fatalf("Content-Type = %q", got)
	}
	if !strings.Contains(rec.Body.String(), "authedge_logout_total 1") {
		t.Fatalf("body missing counter:\n%s", rec.Body.String())
	}
}

func TestRenderFromEngine(t *testing.T) {
	cfg := authedge.DefaultConfig()
	cfg.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	engine, err := authedge.New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := engine.VerifySession(t.Context(), "garbage"); err == nil {
		t.Fatal("expected verification failure")
	}

	out := NewExporter(engine).Render()
	if !strings.Contains(out, "authedge_verify_failure_total 1") {
		t.Fatalf("engine-backed render missing counter:\n%s", out)
	}
}
