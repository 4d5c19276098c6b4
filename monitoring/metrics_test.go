package monitoring

import (
	"strings"
	"testing"
)

func TestCounterTotalsSurviveTrimming(t *testing.T) {
	mc := NewMetricsCollector()
	for i := 0; i < maxSamples+50; i++ {
		mc.IncrCounter("predictions_total", 1, nil)
	}
	if got := mc.Counter("predictions_total"); got != float64(maxSamples+50) {
		t.Fatalf("Counter() = %v, want %d", got, maxSamples+50)
	}
	samples, err := mc.GetMetric("predictions_total")
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) > maxSamples {
		t.Fatalf("expected retained samples to be trimmed, got %d", len(samples))
	}
}

func TestHistogramSummary(t *testing.T) {
	mc := NewMetricsCollector()
	for _, v := range []float64{0.2, 0.4, 0.6} {
		mc.RecordHistogram("prediction_latency_ms", v, nil)
	}
	summary, err := mc.GetMetricSummary("prediction_latency_ms")
	if err != nil {
		t.Fatal(err)
	}
	if summary["count"] != 3 || summary["min"] != 0.2 || summary["max"] != 0.6 {
		t.Fatalf("unexpected summary %v", summary)
	}
	if _, err := mc.GetMetricSummary("missing"); err == nil {
		t.Fatal("expected error for unknown metric")
	}
}

func TestSnapshotAndPrometheus(t *testing.T) {
	mc := NewMetricsCollector()
	mc.IncrCounter("predictions_total", 2, nil)
	mc.RecordHistogram("prediction_latency_ms", 0.5, nil)

	snap := mc.Snapshot()
	if snap["predictions_total"] != 2.0 {
		t.Fatalf("unexpected counter in snapshot: %v", snap["predictions_total"])
	}
	if _, ok := snap["prediction_latency_ms"].(map[string]interface{}); !ok {
		t.Fatalf("expected histogram summary in snapshot")
	}
	if _, ok := snap["system"]; !ok {
		t.Fatal("expected system stats")
	}

	text := mc.ExportPrometheus()
	for _, want := range []string{
		"# TYPE predictions_total counter",
		"predictions_total 2.000000",
		"# TYPE prediction_latency_ms summary",
		"prediction_latency_ms_sum 0.500000",
		"prediction_latency_ms_count 1",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}
}

func TestPrometheusGaugeAndLabels(t *testing.T) {
	mc := NewMetricsCollector()
	mc.SetGauge("model_stale", 0, nil)
	mc.SetGauge("model_stale", 1, map[string]string{"path": "models/reg.json", "kind": "linear_regression"})
	mc.RecordHistogram("prediction_latency_ms", 1.5, nil)
	mc.RecordHistogram("prediction_latency_ms", 2.5, nil)

	text := mc.ExportPrometheus()
	for _, want := range []string{
		"# TYPE model_stale gauge",
		`model_stale{kind="linear_regression",path="models/reg.json"} 1.000000`,
		"prediction_latency_ms_sum 4.000000",
		"prediction_latency_ms_count 2",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}
	if strings.Contains(text, "histogram") {
		t.Errorf("histograms should be exported as summaries:\n%s", text)
	}
}
