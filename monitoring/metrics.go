// Package monitoring collects in-process counters for the estimator.
package monitoring

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// MetricType metric kind
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

const maxSamples = 1000

// Metric one recorded sample
type Metric struct {
	Name      string            `json:"name"`
	Type      MetricType        `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Help      string            `json:"help,omitempty"`
}

// MetricsCollector keeps the most recent samples per metric name.
type MetricsCollector struct {
	metrics     map[string][]*Metric
	totals      map[string]float64
	metricsLock sync.RWMutex

	startTime time.Time
}

// NewMetricsCollector creates an empty collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics:   make(map[string][]*Metric),
		totals:    make(map[string]float64),
		startTime: time.Now(),
	}
}

// RecordMetric stores a sample, trimming history beyond maxSamples.
func (mc *MetricsCollector) RecordMetric(metric *Metric) {
	mc.metricsLock.Lock()
	defer mc.metricsLock.Unlock()

	metric.Timestamp = time.Now()
	mc.metrics[metric.Name] = append(mc.metrics[metric.Name], metric)
	if metric.Type == MetricTypeCounter {
		mc.totals[metric.Name] += metric.Value
	}

	if len(mc.metrics[metric.Name]) > maxSamples {
		mc.metrics[metric.Name] = mc.metrics[metric.Name][100:]
	}
}

// IncrCounter adds value to a counter
func (mc *MetricsCollector) IncrCounter(name string, value float64, labels map[string]string) {
	mc.RecordMetric(&Metric{
		Name:   name,
		Type:   MetricTypeCounter,
		Value:  value,
		Labels: labels,
	})
}

// SetGauge records the current value of a gauge
func (mc *MetricsCollector) SetGauge(name string, value float64, labels map[string]string) {
	mc.RecordMetric(&Metric{
		Name:   name,
		Type:   MetricTypeGauge,
		Value:  value,
		Labels: labels,
	})
}

// RecordHistogram records one observation
func (mc *MetricsCollector) RecordHistogram(name string, value float64, labels map[string]string) {
	mc.RecordMetric(&Metric{
		Name:   name,
		Type:   MetricTypeHistogram,
		Value:  value,
		Labels: labels,
	})
}

// Counter returns the running total of a counter, including trimmed samples.
func (mc *MetricsCollector) Counter(name string) float64 {
	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()
	return mc.totals[name]
}

// GetMetric returns a copy of the retained samples
func (mc *MetricsCollector) GetMetric(name string) ([]*Metric, error) {
	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()

	metrics, ok := mc.metrics[name]
	if !ok {
		return nil, fmt.Errorf("metric %s not found", name)
	}

	result := make([]*Metric, len(metrics))
	for i, m := range metrics {
		metricCopy := *m
		result[i] = &metricCopy
	}
	return result, nil
}

// GetMetricSummary summarizes retained samples of one metric
func (mc *MetricsCollector) GetMetricSummary(name string) (map[string]interface{}, error) {
	metrics, err := mc.GetMetric(name)
	if err != nil {
		return nil, err
	}
	if len(metrics) == 0 {
		return map[string]interface{}{"count": 0}, nil
	}

	lowest, highest, sum := metrics[0].Value, metrics[0].Value, 0.0
	for _, m := range metrics {
		sum += m.Value
		if m.Value < lowest {
			lowest = m.Value
		}
		if m.Value > highest {
			highest = m.Value
		}
	}

	return map[string]interface{}{
		"name":      name,
		"count":     len(metrics),
		"latest":    metrics[len(metrics)-1].Value,
		"min":       lowest,
		"max":       highest,
		"average":   sum / float64(len(metrics)),
		"timestamp": metrics[len(metrics)-1].Timestamp,
	}, nil
}

// Snapshot returns counter totals, gauge values and histogram summaries
// keyed by name.
func (mc *MetricsCollector) Snapshot() map[string]interface{} {
	mc.metricsLock.RLock()
	names := make([]string, 0, len(mc.metrics))
	types := make(map[string]MetricType, len(mc.metrics))
	latest := make(map[string]float64, len(mc.metrics))
	for name, list := range mc.metrics {
		names = append(names, name)
		if len(list) > 0 {
			types[name] = list[0].Type
			latest[name] = list[len(list)-1].Value
		}
	}
	mc.metricsLock.RUnlock()
	sort.Strings(names)

	out := make(map[string]interface{}, len(names)+1)
	for _, name := range names {
		switch types[name] {
		case MetricTypeCounter:
			out[name] = mc.Counter(name)
			continue
		case MetricTypeGauge:
			out[name] = latest[name]
			continue
		}
		if summary, err := mc.GetMetricSummary(name); err == nil {
			out[name] = summary
		}
	}
	out["system"] = mc.GetSystemStats()
	return out
}

// ExportPrometheus renders each metric in the text exposition format.
// Counters and gauges carry their current value; histograms are exported as
// a summary (_sum and _count) over the retained samples.
func (mc *MetricsCollector) ExportPrometheus() string {
	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()

	names := make([]string, 0, len(mc.metrics))
	for name := range mc.metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		list := mc.metrics[name]
		if len(list) == 0 {
			continue
		}
		metric := list[len(list)-1]
		help := metric.Help
		if help == "" {
			help = fmt.Sprintf("Metric %s", name)
		}
		labels := formatLabels(metric.Labels)
		fmt.Fprintf(&b, "# HELP %s %s\n", name, help)

		switch metric.Type {
		case MetricTypeHistogram:
			sum := 0.0
			for _, m := range list {
				sum += m.Value
			}
			fmt.Fprintf(&b, "# TYPE %s summary\n", name)
			fmt.Fprintf(&b, "%s_sum%s %f\n", name, labels, sum)
			fmt.Fprintf(&b, "%s_count%s %d\n", name, labels, len(list))
		case MetricTypeCounter:
			fmt.Fprintf(&b, "# TYPE %s counter\n", name)
			fmt.Fprintf(&b, "%s%s %f\n", name, labels, mc.totals[name])
		default:
			fmt.Fprintf(&b, "# TYPE %s %s\n", name, metric.Type)
			fmt.Fprintf(&b, "%s%s %f\n", name, labels, metric.Value)
		}
	}
	return b.String()
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%q", k, labels[k])
	}
	return "{" + strings.Join(pairs, ",") + "}"
}

// GetUptime time since the collector was created
func (mc *MetricsCollector) GetUptime() time.Duration {
	return time.Since(mc.startTime)
}

// GetSystemStats process level runtime stats
func (mc *MetricsCollector) GetSystemStats() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"uptime":     mc.GetUptime().String(),
		"goroutines": runtime.NumGoroutine(),
		"heap_alloc": m.HeapAlloc,
		"gc_count":   m.NumGC,
	}
}
