package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.IncItem("written")
	m.IncItem("written")
	m.IncAttempt(EndpointHistorical)
	m.IncFailure("parse_error")
	m.ObserveFetch(EndpointHistorical, 150*time.Millisecond)

	if got := testutil.ToFloat64(m.ItemsTotal.WithLabelValues("written")); got != 2 {
		t.Errorf("items_total{written} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.AttemptsTotal.WithLabelValues(EndpointHistorical)); got != 1 {
		t.Errorf("fetch_attempts_total{historical} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.FailuresTotal.WithLabelValues("parse_error")); got != 1 {
		t.Errorf("failures_total{parse_error} = %v, want 1", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.IncItem("written")
	m.IncAttempt(EndpointMetadata)
	m.IncFailure("transport_failure")
	m.ObserveFetch(EndpointMetadata, time.Second)
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.IncFailure("read_failure")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `ytinsight_failures_total{kind="read_failure"} 1`) {
		t.Errorf("metrics output missing failure counter:\n%s", body)
	}
}
