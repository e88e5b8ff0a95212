package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/healthcatchers/iris/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{&domain.ValidationError{Field: "Age", Reason: "bad"}, "validation"},
		{domain.NewInferenceError("predict", errors.New("boom")), "inference"},
		{fmt.Errorf("wrapped: %w", domain.NewInferenceError("explain", errors.New("boom"))), "inference"},
		{errors.New("other"), "error"},
	}
	for _, tt := range tests {
		if got := Outcome(tt.err); got != tt.want {
			t.Errorf("Outcome(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveOperation("assessment", time.Millisecond, nil)
	m.ObserveOperation("assessment", time.Millisecond, &domain.ValidationError{Field: "Age"})
	m.ObserveRisk(domain.RiskHigh)
	m.RateLimited()
	m.BusReply(domain.ActionHealthResult)

	if got := testutil.ToFloat64(m.assessments.WithLabelValues("assessment", "ok")); got != 1 {
		t.Errorf("expected 1 ok assessment, got %v", got)
	}
	if got := testutil.ToFloat64(m.assessments.WithLabelValues("assessment", "validation")); got != 1 {
		t.Errorf("expected 1 validation failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.riskLevels.WithLabelValues("High")); got != 1 {
		t.Errorf("expected 1 High prediction, got %v", got)
	}
	if got := testutil.ToFloat64(m.wsRateLimited); got != 1 {
		t.Errorf("expected 1 rate limited message, got %v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP("GET", "/health", "200", time.Millisecond)
	m.ObserveOperation("assessment", time.Millisecond, nil)
	m.ObserveRisk(domain.RiskLow)
	m.WebSocketOpened()
	m.WebSocketClosed()
	m.SetModel(domain.ArtifactInfo{})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without metrics, got %d", rec.Code)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.SetModel(domain.ArtifactInfo{Name: "dry-eye", Version: "1", Checksum: "abc"})
	m.ObserveHTTP("POST", "/v1/assessments", "200", 2*time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`iris_model_info{checksum="abc",name="dry-eye",version="1"} 1`,
		`iris_http_requests_total{code="200",method="POST",route="/v1/assessments"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("scrape missing %q", want)
		}
	}
}
