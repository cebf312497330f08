package subscriber

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ovaphlow/pitchfork/service-subscriber/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-subscriber/internal/subscriber/entity"
	"github.com/ovaphlow/pitchfork/service-subscriber/internal/tracing"
)

// Store persists subscriber records. *repo.SubscriberRepo implements it.
// Get and Find return sql.ErrNoRows when nothing matches.
type Store interface {
	Create(ctx context.Context, rec *entity.Record) error
	Get(ctx context.Context, id string) (*entity.Record, error)
	Find(ctx context.Context, url, name string) (*entity.Record, error)
	List(ctx context.Context, name string, limit, offset int) ([]*entity.Record, error)
	Delete(ctx context.Context, id string) (int64, error)
}

// Layer order: tracedStore -> meteredStore -> repo.

type meteredStore struct {
	next    Store
	metrics *metrics.Registry
}

// NewMeteredStore records operation counts and latencies for next.
func NewMeteredStore(next Store, m *metrics.Registry) Store {
	return &meteredStore{next: next, metrics: m}
}

func (s *meteredStore) Create(ctx context.Context, rec *entity.Record) error {
	start := time.Now()
	err := s.next.Create(ctx, rec)
	s.metrics.RecordStore("create", err, time.Since(start))
	return err
}

func (s *meteredStore) Get(ctx context.Context, id string) (*entity.Record, error) {
	start := time.Now()
	rec, err := s.next.Get(ctx, id)
	s.metrics.RecordStore("get", err, time.Since(start))
	return rec, err
}

func (s *meteredStore) Find(ctx context.Context, url, name string) (*entity.Record, error) {
	start := time.Now()
	rec, err := s.next.Find(ctx, url, name)
	s.metrics.RecordStore("find", err, time.Since(start))
	return rec, err
}

func (s *meteredStore) List(ctx context.Context, name string, limit, offset int) ([]*entity.Record, error) {
	start := time.Now()
	recs, err := s.next.List(ctx, name, limit, offset)
	s.metrics.RecordStore("list", err, time.Since(start))
	return recs, err
}

func (s *meteredStore) Delete(ctx context.Context, id string) (int64, error) {
	start := time.Now()
	n, err := s.next.Delete(ctx, id)
	s.metrics.RecordStore("delete", err, time.Since(start))
	return n, err
}

type tracedStore struct {
	next Store
}

// NewTracedStore opens a span around every call to next.
func NewTracedStore(next Store) Store {
	return &tracedStore{next: next}
}

var dbSystem = attribute.String("db.system", "postgresql")

func (s *tracedStore) Create(ctx context.Context, rec *entity.Record) (err error) {
	ctx, span := tracing.Start(ctx, "subscriber.store.create", dbSystem, attribute.String("subscriber.id", rec.ID))
	defer func() { tracing.End(span, err) }()
	return s.next.Create(ctx, rec)
}

func (s *tracedStore) Get(ctx context.Context, id string) (rec *entity.Record, err error) {
	ctx, span := tracing.Start(ctx, "subscriber.store.get", dbSystem, attribute.String("subscriber.id", id))
	defer func() { tracing.End(span, err) }()
	return s.next.Get(ctx, id)
}

func (s *tracedStore) Find(ctx context.Context, url, name string) (rec *entity.Record, err error) {
	ctx, span := tracing.Start(ctx, "subscriber.store.find", dbSystem, attribute.String("subscriber.name", name))
	defer func() { tracing.End(span, err) }()
	return s.next.Find(ctx, url, name)
}

func (s *tracedStore) List(ctx context.Context, name string, limit, offset int) (recs []*entity.Record, err error) {
	ctx, span := tracing.Start(ctx, "subscriber.store.list", dbSystem,
		attribute.String("subscriber.name", name),
		attribute.Int("db.limit", limit),
		attribute.Int("db.offset", offset),
	)
	defer func() {
		span.SetAttributes(attribute.Int("subscriber.count", len(recs)))
		tracing.End(span, err)
	}()
	return s.next.List(ctx, name, limit, offset)
}

func (s *tracedStore) Delete(ctx context.Context, id string) (n int64, err error) {
	ctx, span := tracing.Start(ctx, "subscriber.store.delete", dbSystem, attribute.String("subscriber.id", id))
	defer func() { tracing.End(span, err) }()
	return s.next.Delete(ctx, id)
}
