package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-subscriber/internal/subscriber/entity"
)

type SubscriberRepo struct {
	db *sqlx.DB
}

func NewSubscriberRepo(db *sqlx.DB) *SubscriberRepo {
	return &SubscriberRepo{db: db}
}

// EnsureTable creates the subscribers table if it does not already exist.
// The (name, url) index serves name listing and exact lookups; neither is unique.
func (r *SubscriberRepo) EnsureTable(ctx context.Context) error {
	const tbl = `
	CREATE TABLE IF NOT EXISTS subscribers (
		id varchar(32) PRIMARY KEY,
		url text NOT NULL DEFAULT '',
		name text NOT NULL DEFAULT '',
		created_at timestamptz NOT NULL DEFAULT NOW()
	);
	`
	if _, err := r.db.ExecContext(ctx, tbl); err != nil {
		return err
	}

	const idx = `
	CREATE INDEX IF NOT EXISTS idx_subscribers_name_url ON subscribers (name, url);
	`
	if _, err := r.db.ExecContext(ctx, idx); err != nil {
		return err
	}
	return nil
}

// Create inserts rec.
func (r *SubscriberRepo) Create(ctx context.Context, rec *entity.Record) error {
	const q = `INSERT INTO subscribers (id, url, name, created_at) VALUES (:id, :url, :name, :created_at)`
	_, err := r.db.NamedExecContext(ctx, q, rec)
	return err
}

// Get returns the subscriber with id or sql.ErrNoRows.
func (r *SubscriberRepo) Get(ctx context.Context, id string) (*entity.Record, error) {
	const q = `SELECT id, url, name, created_at FROM subscribers WHERE id = $1`
	var rec entity.Record
	if err := r.db.GetContext(ctx, &rec, q, id); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Find returns the oldest subscriber with exactly url and name, or sql.ErrNoRows.
func (r *SubscriberRepo) Find(ctx context.Context, url, name string) (*entity.Record, error) {
	const q = `SELECT id, url, name, created_at FROM subscribers
		WHERE name = $1 AND url = $2
		ORDER BY created_at, id
		LIMIT 1`
	var rec entity.Record
	if err := r.db.GetContext(ctx, &rec, q, name, url); err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns subscribers in creation order. An empty name matches all rows.
func (r *SubscriberRepo) List(ctx context.Context, name string, limit, offset int) ([]*entity.Record, error) {
	const q = `SELECT id, url, name, created_at FROM subscribers
		WHERE ($1 = '' OR name = $1)
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3`
	out := []*entity.Record{}
	if err := r.db.SelectContext(ctx, &out, q, name, limit, offset); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the subscriber with id and reports how many rows went away.
func (r *SubscriberRepo) Delete(ctx context.Context, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subscribers WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
