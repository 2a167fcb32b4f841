// Package postgres exports events and price snapshots to Postgres.
package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"burrowfeed/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS burrow_events (
	session_id UUID NOT NULL,
	seq BIGINT NOT NULL,
	event_time TIMESTAMPTZ NOT NULL,
	account_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	data JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (session_id, seq)
);
CREATE INDEX IF NOT EXISTS burrow_events_time_idx ON burrow_events (event_time DESC);
CREATE TABLE IF NOT EXISTS price_snapshots (
	id BIGSERIAL PRIMARY KEY,
	session_id UUID NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL,
	pools INTEGER NOT NULL,
	reference_price NUMERIC NOT NULL,
	token_prices JSONB NOT NULL
);
`

const insertEvent = `
	INSERT INTO burrow_events (session_id, seq, event_time, account_id, kind, data)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (session_id, seq) DO NOTHING
`

const insertSnapshot = `
	INSERT INTO price_snapshots (session_id, fetched_at, pools, reference_price, token_prices)
	VALUES ($1, $2, $3, $4::text::numeric, $5)
`

// Store writes to Postgres. Sequence numbers restart with every process, so
// rows are keyed by a per-Store session id.
type Store struct {
	pool    *pgxpool.Pool
	session uuid.UUID
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, session: uuid.New()}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Session returns the id stamped on every row written by this Store.
func (s *Store) Session() uuid.UUID {
	return s.session
}

// EnsureSchema creates the export tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// PutEvents inserts events; rows already written for this session are skipped.
func (s *Store) PutEvents(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	return s.sendBatch(ctx, eventBatch(s.session, events))
}

// PutPriceSnapshot inserts one price snapshot.
func (s *Store) PutPriceSnapshot(ctx context.Context, snap model.PriceSnapshot) error {
	return s.sendBatch(ctx, snapshotBatch(s.session, snap))
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range batch.QueuedQueries {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func eventBatch(session uuid.UUID, events []model.Event) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, ev := range events {
		data := ev.Data
		if data == nil {
			data = map[string]any{}
		}
		batch.Queue(insertEvent,
			session,
			int64(ev.Seq),
			ev.Time,
			ev.AccountID,
			ev.Kind,
			data,
		)
	}
	return batch
}

func snapshotBatch(session uuid.UUID, snap model.PriceSnapshot) *pgx.Batch {
	prices := snap.TokenPrices
	if prices == nil {
		prices = map[string]string{}
	}
	ref := snap.ReferencePrice
	if ref == "" {
		ref = "0"
	}
	batch := &pgx.Batch{}
	batch.Queue(insertSnapshot, session, snap.FetchedAt, snap.Pools, ref, prices)
	return batch
}
