package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"travelbooking/internal/app/middleware"
)

// IdempotencyStore keeps command outcomes in app_idempotency. Rows older than ttl
// are ignored by Get and may be replaced by Save; a zero ttl keeps them forever.
type IdempotencyStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
	now  func() time.Time
}

func NewIdempotencyStore(pool *pgxpool.Pool, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{pool: pool, ttl: ttl, now: time.Now}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	rec := middleware.IdempotencyRecord{Key: key}
	err := s.pool.QueryRow(ctx,
		`SELECT payload, error_kind, error, occurred_at FROM app_idempotency WHERE key = $1 AND created_at > $2`,
		key, s.cutoff(),
	).Scan(&rec.Payload, &rec.ErrorKind, &rec.Error, &rec.OccurredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	rec.OccurredAt = rec.OccurredAt.UTC()
	return rec, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO app_idempotency (key, payload, error_kind, error, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO UPDATE SET
			payload = EXCLUDED.payload, error_kind = EXCLUDED.error_kind, error = EXCLUDED.error,
			occurred_at = EXCLUDED.occurred_at, created_at = EXCLUDED.created_at
		WHERE app_idempotency.created_at <= $7`,
		rec.Key, rec.Payload, rec.ErrorKind, rec.Error, rec.OccurredAt, s.now().UTC(), s.cutoff())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return middleware.ErrIdempotencyKeyExists
	}
	return nil
}

// cutoff is the oldest creation time still considered live.
func (s *IdempotencyStore) cutoff() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return s.now().UTC().Add(-s.ttl)
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
