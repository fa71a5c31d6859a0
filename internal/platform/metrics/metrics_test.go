package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	dto "github.com/prometheus/client_model/go"

	"github.com/ehr/registry/internal/domain/patient"
)

func family(t *testing.T, m *Metrics, name string) *dto.MetricFamily {
	t.Helper()
	families, err := m.Gatherer().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}

func labelled(f *dto.MetricFamily, label, value string) *dto.Metric {
	for _, metric := range f.GetMetric() {
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == label && lp.GetValue() == value {
				return metric
			}
		}
	}
	return nil
}

func TestMetrics_SessionLifecycle(t *testing.T) {
	m := New()
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed("idle")

	if got := family(t, m, "registry_sessions_active").GetMetric()[0].GetGauge().GetValue(); got != 1 {
		t.Errorf("sessions_active = %v, want 1", got)
	}
	if got := family(t, m, "registry_sessions_opened_total").GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Errorf("sessions_opened_total = %v, want 2", got)
	}
	idle := labelled(family(t, m, "registry_sessions_closed_total"), "reason", "idle")
	if idle == nil || idle.GetCounter().GetValue() != 1 {
		t.Errorf("expected one idle close, got %v", idle)
	}
}

func TestMetrics_ImportAndCommit(t *testing.T) {
	m := New()
	m.ImportStaged(3, nil)
	m.ImportStaged(0, errors.New("bad payload"))
	m.Committed(patient.CommitImport, 3)
	m.Committed(patient.CommitDraft, 1)
	m.CommitRefused()
	m.Deleted(2)

	imports := family(t, m, "registry_imports_total")
	if s := labelled(imports, "result", "staged"); s == nil || s.GetCounter().GetValue() != 1 {
		t.Errorf("expected one staged import, got %v", s)
	}
	if r := labelled(imports, "result", "rejected"); r == nil || r.GetCounter().GetValue() != 1 {
		t.Errorf("expected one rejected import, got %v", r)
	}
	hist := family(t, m, "registry_import_records").GetMetric()[0].GetHistogram()
	if hist.GetSampleCount() != 1 || hist.GetSampleSum() != 3 {
		t.Errorf("import_records count=%d sum=%v, want 1 and 3", hist.GetSampleCount(), hist.GetSampleSum())
	}

	committed := family(t, m, "registry_records_committed_total")
	if c := labelled(committed, "source", string(patient.CommitImport)); c == nil || c.GetCounter().GetValue() != 3 {
		t.Errorf("import commits = %v, want 3", c)
	}
	if got := family(t, m, "registry_commits_refused_total").GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Errorf("commits_refused_total = %v, want 1", got)
	}
	if got := family(t, m, "registry_records_deleted_total").GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Errorf("records_deleted_total = %v, want 2", got)
	}
}

func TestMetrics_MiddlewareAndHandler(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/v1/sessions/:sid", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	})
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/abc", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	want := `registry_http_requests_total{method="GET",route="/api/v1/sessions/:sid",status="404"} 1`
	if !strings.Contains(string(body), want) {
		t.Errorf("metrics output missing %q", want)
	}
}
