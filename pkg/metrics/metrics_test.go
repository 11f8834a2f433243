package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestJobMetricsExportsRunsEventsAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewJobMetrics(reg)
	job := "outbox-publisher"
	metrics.ObserveRun(job, 250*time.Millisecond, nil)
	metrics.ObserveRun(job, 10*time.Millisecond, errors.New("boom"))
	metrics.AddEvents(job, OutcomeSuccess, 3)
	metrics.AddEvents(job, OutcomeFailure, 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "job_runs_total", map[string]string{"job": job, "outcome": OutcomeSuccess}); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "job_runs_total", map[string]string{"job": job, "outcome": OutcomeFailure}); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "job_events_total", map[string]string{"job": job, "outcome": OutcomeSuccess}); err != nil {
		t.Fatalf("fetch events: %v", err)
	} else if got != 3 {
		t.Fatalf("expected events=3, got %f", got)
	}

	if _, err := fetchCounterValue(mfs, "job_events_total", map[string]string{"job": job, "outcome": OutcomeFailure}); err == nil {
		t.Fatal("expected zero-count events to be skipped")
	}

	if got, err := fetchHistogramSum(mfs, "job_duration_seconds", "job", job); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestStorefrontMetricsCountsWritesAndCheckouts(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewStorefrontMetrics(reg)
	metrics.ObserveRemoteWrite("cart_add", nil)
	metrics.ObserveRemoteWrite("cart_add", nil)
	metrics.ObserveRemoteWrite("wishlist_add", errors.New("db down"))
	metrics.ObserveCheckout(nil)
	metrics.SetActiveManagers(4)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "storefront_remote_writes_total", map[string]string{"operation": "cart_add", "outcome": OutcomeSuccess}); err != nil {
		t.Fatalf("fetch cart_add: %v", err)
	} else if got != 2 {
		t.Fatalf("expected cart_add=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "storefront_remote_writes_total", map[string]string{"operation": "wishlist_add", "outcome": OutcomeFailure}); err != nil {
		t.Fatalf("fetch wishlist_add: %v", err)
	} else if got != 1 {
		t.Fatalf("expected wishlist_add failure=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "storefront_checkouts_total", map[string]string{"outcome": OutcomeSuccess}); err != nil {
		t.Fatalf("fetch checkouts: %v", err)
	} else if got != 1 {
		t.Fatalf("expected checkouts=1, got %f", got)
	}

	mf := findMetricFamily(mfs, "storefront_active_managers")
	if mf == nil || len(mf.GetMetric()) != 1 || mf.GetMetric()[0].GetGauge().GetValue() != 4 {
		t.Fatalf("expected active managers gauge of 4, got %v", mf)
	}
}

func TestNilRecordersAreNoops(t *testing.T) {
	var job *JobMetrics
	job.ObserveRun("x", time.Second, nil)
	job.AddEvents("x", OutcomeSuccess, 1)

	var store *StorefrontMetrics
	store.ObserveRemoteWrite("cart_add", nil)
	store.ObserveCheckout(nil)
	store.SetActiveManagers(1)

	NewStorefrontMetrics(nil).ObserveCheckout(errors.New("x"))
	NewJobMetrics(nil).ObserveRun("x", time.Second, nil)
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewStorefrontMetrics(reg).ObserveCheckout(nil)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "storefront_checkouts_total") {
		t.Fatalf("expected checkout counter in exposition, got %s", body)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), map[string]string{label: value}) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
