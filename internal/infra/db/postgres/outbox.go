package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appoutbox "travelbooking/internal/app/outbox"
	infraoutbox "travelbooking/internal/infra/outbox"
)

type unitOutbox struct {
	unit *Unit
}

func (o unitOutbox) Add(ctx context.Context, rec appoutbox.EventRecord) error {
	if err := o.unit.writable(); err != nil {
		return err
	}
	headers, err := json.Marshal(headersOrEmpty(rec.Headers))
	if err != nil {
		return err
	}
	_, err = o.unit.tx.Exec(ctx, `
		INSERT INTO app_outbox (id, name, payload, occurred_at, aggregate, headers)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.Name, rec.Payload, rec.OccurredAt, rec.Aggregate, headers)
	return classify(err)
}

// OutboxStore is the relay side of app_outbox. Concurrent relays skip rows another
// relay has locked.
type OutboxStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewOutboxStore(pool *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{pool: pool, now: time.Now}
}

const claimSQL = `
	UPDATE app_outbox SET state = $1, claimed_by = $2, claimed_at = $3
	WHERE id = (
		SELECT id FROM app_outbox
		WHERE state = $4
		   OR (state = $5 AND next_attempt_at <= $3)
		   OR (state = $1 AND claimed_at < $6)
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	)
	RETURNING id, name, payload, occurred_at, aggregate, headers, attempts`

func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.Envelope, error) {
	now := s.now().UTC()
	var (
		env     infraoutbox.Envelope
		headers []byte
	)
	err := s.pool.QueryRow(ctx, claimSQL,
		infraoutbox.StateClaimed, workerID, now, infraoutbox.StateNew, infraoutbox.StateFailed,
		now.Add(-infraoutbox.ClaimTimeout),
	).Scan(&env.ID, &env.Name, &env.Payload, &env.OccurredAt, &env.Aggregate, &headers, &env.Attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(headers) > 0 {
		if err := json.Unmarshal(headers, &env.Headers); err != nil {
			return nil, err
		}
	}
	env.OccurredAt = env.OccurredAt.UTC()
	return &env, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE app_outbox SET state = $2, sent_at = $3, claimed_by = NULL, last_error = NULL WHERE id = $1`,
		id, infraoutbox.StateSent, s.now().UTC())
	return err
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE app_outbox SET state = $2, attempts = attempts + 1, next_attempt_at = $3, last_error = $4 WHERE id = $1`,
		id, infraoutbox.StateFailed, next.UTC(), errMsg)
	return err
}

func headersOrEmpty(h map[string]string) map[string]string {
	if h == nil {
		return map[string]string{}
	}
	return h
}

var (
	_ appoutbox.Outbox  = unitOutbox{}
	_ infraoutbox.Store = (*OutboxStore)(nil)
)
