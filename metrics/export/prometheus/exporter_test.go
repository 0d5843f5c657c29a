package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tidegate/authcore"
)

type fakeSource struct {
	snapshot authcore.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() authcore.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }

func TestRenderEmptyWhenIdle(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: authcore.MetricsSnapshot{
			Counters:   map[authcore.MetricID]uint64{},
			Histograms: map[authcore.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for idle engine, got:\n%s", got)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: authcore.MetricsSnapshot{
			Counters: map[authcore.MetricID]uint64{
				authcore.MetricLoginSuccess:         7,
				authcore.MetricRefreshReuseDetected: 1,
			},
			Histograms: map[authcore.MetricID][]uint64{
				authcore.MetricVerifyLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	if !strings.Contains(out, "authcore_login_success_total 7") {
		t.Fatalf("expected login_success counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "authcore_refresh_reuse_detected_total 1") {
		t.Fatalf("expected reuse counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "authcore_verify_latency_seconds_bucket{le=\"0.001\"} 1") {
		t.Fatalf("expected first histogram bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "authcore_verify_latency_seconds_bucket{le=\"+Inf\"} 36") {
		t.Fatalf("expected +Inf cumulative bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "authcore_audit_dropped_total 2") {
		t.Fatalf("expected audit dropped counter in output, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: authcore.MetricsSnapshot{
			Counters:   map[authcore.MetricID]uint64{authcore.MetricLoginSuccess: 1},
			Histograms: map[authcore.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
