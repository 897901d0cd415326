package memory

import (
	"context"
	"time"

	appoutbox "travelbooking/internal/app/outbox"
	infraoutbox "travelbooking/internal/infra/outbox"
)

type outboxEntry struct {
	record      appoutbox.EventRecord
	state       string
	attempts    int
	nextAttempt time.Time
	claimedAt   time.Time
	lastError   string
}

func newOutboxEntry(rec appoutbox.EventRecord) *outboxEntry {
	return &outboxEntry{record: rec, state: infraoutbox.StateNew}
}

// Claim hands the oldest due record to the relay.
func (s *Store) Claim(_ context.Context, _ string) (*infraoutbox.Envelope, error) {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.outbox {
		due := false
		switch e.state {
		case infraoutbox.StateNew:
			due = true
		case infraoutbox.StateFailed:
			due = !e.nextAttempt.After(now)
		case infraoutbox.StateClaimed:
			due = now.Sub(e.claimedAt) > infraoutbox.ClaimTimeout
		}
		if !due {
			continue
		}
		e.state = infraoutbox.StateClaimed
		e.claimedAt = now
		headers := make(map[string]string, len(e.record.Headers))
		for k, v := range e.record.Headers {
			headers[k] = v
		}
		return &infraoutbox.Envelope{
			ID:         e.record.ID,
			Name:       e.record.Name,
			Payload:    append([]byte(nil), e.record.Payload...),
			OccurredAt: e.record.OccurredAt,
			Aggregate:  e.record.Aggregate,
			Headers:    headers,
			Attempts:   e.attempts,
		}, nil
	}
	return nil, nil
}

func (s *Store) MarkSent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.entry(id); e != nil {
		e.state = infraoutbox.StateSent
	}
	return nil
}

func (s *Store) MarkFailed(_ context.Context, id string, next time.Time, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.entry(id); e != nil {
		e.state = infraoutbox.StateFailed
		e.attempts++
		e.nextAttempt = next
		e.lastError = errMsg
	}
	return nil
}

// OutboxRecords returns every committed record in commit order.
func (s *Store) OutboxRecords() []appoutbox.EventRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]appoutbox.EventRecord, 0, len(s.outbox))
	for _, e := range s.outbox {
		out = append(out, e.record)
	}
	return out
}

// PendingOutbox counts records not yet delivered.
func (s *Store) PendingOutbox() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.outbox {
		if e.state != infraoutbox.StateSent {
			n++
		}
	}
	return n
}

func (s *Store) entry(id string) *outboxEntry {
	for _, e := range s.outbox {
		if e.record.ID == id {
			return e
		}
	}
	return nil
}

var _ infraoutbox.Store = (*Store)(nil)
