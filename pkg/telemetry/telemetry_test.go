package telemetry_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/vango-dev/reactive/pkg/collection"
	"github.com/vango-dev/reactive/pkg/telemetry"
)

func even(x int) bool { return x%2 == 0 }

func TestMetricsCountChangesAndRecomputes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics(telemetry.WithRegistry(reg))

	nums := collection.New([]int{1, 2}, collection.WithName("nums"), collection.WithObserver(m))
	nums.Filter(even, nil)

	require.NoError(t, nums.Push(4, 6))
	require.NoError(t, nums.Merge([]int{8}))

	expected := `
# HELP reactive_collection_changes_total Change records fired.
# TYPE reactive_collection_changes_total counter
reactive_collection_changes_total{collection="nums",op="append"} 1
reactive_collection_changes_total{collection="nums",op="merge"} 1
reactive_collection_changes_total{collection="nums.filter",op="append"} 1
reactive_collection_changes_total{collection="nums.filter",op="merge"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "reactive_collection_changes_total"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Items().WithLabelValues("nums.filter", "append")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Recomputes().WithLabelValues("nums.filter", "merge")))
}

func TestMetricsNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics(
		telemetry.WithRegistry(reg),
		telemetry.WithNamespace("app"),
		telemetry.WithSubsystem("todos"),
		telemetry.WithConstLabels(prometheus.Labels{"env": "test"}),
	)
	m.ObserveRecompute("x", "swap")

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "app_todos_recomputes_total")
}

func TestTracerRecordsRecomputeSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tr := telemetry.NewTracer(telemetry.WithTracerProvider(tp))
	nums := collection.New([]int{3, 1, 2}, collection.WithName("nums"), collection.WithObserver(tr))
	nums.Unique(nil)

	require.NoError(t, nums.Merge([]int{2, 2}))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1, "change spans are off by default")
	assert.Equal(t, "reactive.recompute", spans[0].Name)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "nums.unique", attrs["reactive.collection"])
	assert.Equal(t, "merge", attrs["reactive.cause"])
}

func TestTracerChangeSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tr := telemetry.NewTracer(telemetry.WithTracerProvider(tp), telemetry.WithChangeSpans(true))
	nums := collection.New([]int{1}, collection.WithObserver(tr))
	require.NoError(t, nums.Push(2))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "reactive.change", spans[0].Name)
}

func TestLoggerObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs := telemetry.NewLogger(logger)

	obs.ObserveChange("nums", "append", 2)
	obs.ObserveRecompute("nums.sort", "swap")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "DEBUG", rec["level"])
	assert.Equal(t, "collection changed", rec["msg"])
	assert.Equal(t, "append", rec["op"])
	assert.Equal(t, 2.0, rec["count"])

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, "nums.sort", rec["collection"])
}

func TestLoggerNilUsesDefault(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.NewLogger(nil).ObserveRecompute("x", "merge")
	})
}

type counter struct{ changes, recomputes int }

func (c *counter) ObserveChange(string, string, int) { c.changes++ }
func (c *counter) ObserveRecompute(string, string)   { c.recomputes++ }

func TestMulti(t *testing.T) {
	a, b := &counter{}, &counter{}
	obs := telemetry.Multi(a, nil, b)
	obs.ObserveChange("x", "append", 1)
	obs.ObserveRecompute("x", "merge")

	assert.Equal(t, counter{1, 1}, *a)
	assert.Equal(t, counter{1, 1}, *b)

	assert.Nil(t, telemetry.Multi(nil, nil))
	assert.Same(t, a, telemetry.Multi(a))
}
