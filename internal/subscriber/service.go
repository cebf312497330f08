package subscriber

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ovaphlow/pitchfork/service-subscriber/internal/subscriber/entity"
)

// IDGenerator produces storage ids; *utilities.IDGenerator implements it.
type IDGenerator interface {
	NewID() string
}

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

var ErrNotFound = errors.New("not found")

// Service stores and serves subscriber records. It never validates url or name.
type Service struct {
	store Store
	ids   IDGenerator
	now   func() time.Time
}

// NewService constructs a Service backed by store.
func NewService(store Store, ids IDGenerator) *Service {
	return &Service{store: store, ids: ids, now: time.Now}
}

// Create stores s under a fresh id.
func (s *Service) Create(ctx context.Context, sub entity.Subscriber) (*entity.Record, error) {
	rec := entity.NewRecord(s.ids.NewID(), sub, s.now().UTC())
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create subscriber: %w", err)
	}
	return rec, nil
}

// Get returns a subscriber by id.
func (s *Service) Get(ctx context.Context, id string) (*entity.Record, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// List returns subscribers, optionally filtered by exact name. limit <= 0
// means DefaultLimit and is capped at MaxLimit.
func (s *Service) List(ctx context.Context, name string, limit, offset int) ([]*entity.Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.List(ctx, name, limit, offset)
}

// Delete removes a subscriber by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	rows, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// LoadFile reads a JSON array of subscriber objects. Each element must
// satisfy entity.Decode; the first one that does not aborts the load.
func LoadFile(path string) ([]entity.Subscriber, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subscribers file: %w", err)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("subscribers file %s: expected a JSON array: %w", path, err)
	}
	out := make([]entity.Subscriber, 0, len(items))
	for i, raw := range items {
		sub, err := entity.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("subscribers file %s: element %d: %w", path, i, err)
		}
		out = append(out, sub)
	}
	return out, nil
}

// Seed stores every subscriber listed in path that is not already stored
// with the same url and name, and returns how many were added. An empty path
// is a no-op.
func (s *Service) Seed(ctx context.Context, path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	subs, err := LoadFile(path)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, sub := range subs {
		_, err := s.store.Find(ctx, sub.URL, sub.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return added, fmt.Errorf("seed %q: %w", sub.Name, err)
		}
		if _, err := s.Create(ctx, sub); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}
