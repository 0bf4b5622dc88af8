package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestCollector_RecordsRequestsAndCache(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequest("/posts", 200, 20*time.Millisecond)
	c.RecordRequest("/posts", 200, 30*time.Millisecond)
	c.RecordRequest("/posts", 503, time.Millisecond)
	c.RecordRetry("/posts")
	c.RecordCacheHit("formulas")
	c.RecordCacheMiss("formulas")
	c.RecordCacheMiss("formulas")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues("/posts", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("/posts", "503")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.retries.WithLabelValues("/posts")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheHits.WithLabelValues("formulas")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheMisses.WithLabelValues("formulas")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["toolbox_api_request_duration_seconds"])
}

func TestCorrelationID(t *testing.T) {
	t.Parallel()

	ctx, id := EnsureCorrelationID(context.Background())
	require.NotEmpty(t, id)
	assert.Equal(t, id, ExtractCorrelationID(ctx))

	same, again := EnsureCorrelationID(ctx)
	assert.Equal(t, id, again)
	assert.Equal(t, ctx, same)
}

func TestAPILogger_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	SetLevel("debug")
	defer SetLevel("info")

	l := NewAPILogger("api", NewLogger(&buf))
	ctx := WithCorrelationID(context.Background(), "corr-1")
	l.LogError(ctx, "GET", "/posts", errors.New("boom"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "api error", entry["msg"])
	assert.Equal(t, "corr-1", entry["correlation_id"])
	assert.Equal(t, "boom", entry["error"])
}

func TestStartClientSpan_RecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := Tracer
	Tracer = tp.Tracer("test")
	defer func() { Tracer = prev }()

	_, span := StartClientSpan(context.Background(), "GET", "/posts/:id")
	EndSpan(span, errors.New("HTTP error! status: 500"))

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "api GET /posts/:id", ended[0].Name())
	assert.Len(t, ended[0].Events(), 1)
}
