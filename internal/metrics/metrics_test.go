package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()

	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
	if m.Registry() == nil {
		t.Fatal("Registry is nil")
	}

	m.RunsTotal.WithLabelValues("assembled")
	m.StepDuration.WithLabelValues("download")
	m.StepErrorsTotal.WithLabelValues("download", "auth_expired")

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"autokudos_runs_total",
		"autokudos_last_run_timestamp_seconds",
		"autokudos_step_duration_seconds",
		"autokudos_step_errors_total",
		"autokudos_booking_rows_scanned",
		"autokudos_downloads_total",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}

func TestObserveStep(t *testing.T) {
	m := NewMetrics()

	m.ObserveStep("download", time.Now().Add(-2*time.Second), "")
	m.ObserveStep("download", time.Now(), "download_timed_out")

	if got := testutil.CollectAndCount(m.StepDuration); got != 1 {
		t.Errorf("expected 1 step series, got %d", got)
	}
	if got := testutil.ToFloat64(m.StepErrorsTotal.WithLabelValues("download", "download_timed_out")); got != 1 {
		t.Errorf("expected 1 download error, got %v", got)
	}
}

func TestRecordRun(t *testing.T) {
	m := NewMetrics()
	finished := time.Unix(1700000000, 0)

	m.RecordRun("no_match", finished)

	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("no_match")); got != 1 {
		t.Errorf("expected 1 run, got %v", got)
	}
	if got := testutil.ToFloat64(m.LastRunTimestamp); got != 1700000000 {
		t.Errorf("unexpected timestamp %v", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveStep("download", time.Now(), "x")
	m.RecordRun("failed", time.Now())
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Errorf("nil metrics should not write: %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.DownloadsTotal.Inc()
	m.RecordRun("assembled", time.Now())

	path := filepath.Join(t.TempDir(), "textfile", "autokudos.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	body := string(data)
	if !strings.Contains(body, "autokudos_downloads_total 1") {
		t.Errorf("downloads counter missing:\n%s", body)
	}
	if !strings.Contains(body, `autokudos_runs_total{outcome="assembled"} 1`) {
		t.Errorf("runs counter missing:\n%s", body)
	}

	if err := m.WriteTextfile(""); err != nil {
		t.Errorf("empty path should be a no-op: %v", err)
	}
}
