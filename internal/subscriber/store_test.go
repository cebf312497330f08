package subscriber

import (
	"context"
	"database/sql"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ovaphlow/pitchfork/service-subscriber/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-subscriber/internal/subscriber/entity"
)

func TestMeteredStore(t *testing.T) {
	reg := metrics.NewRegistry()
	store := NewMeteredStore(newMemStore(), reg)
	ctx := context.Background()

	assert.NoError(t, store.Create(ctx, entity.NewRecord("1", entity.New("a", "b"), testTime())))
	_, err := store.Get(ctx, "missing")
	assert.IsError(t, err, sql.ErrNoRows)

	count, err := testutil.GatherAndCount(reg.Gatherer(), "subscriber_store_operations_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestTracedStore(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	store := NewTracedStore(newMemStore())
	ctx := context.Background()
	assert.NoError(t, store.Create(ctx, entity.NewRecord("1", entity.New("a", "b"), testTime())))
	_, err := store.Get(ctx, "missing")
	assert.Error(t, err)

	spans := recorder.Ended()
	assert.Equal(t, 2, len(spans))
	assert.Equal(t, "subscriber.store.create", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, "subscriber.store.get", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
