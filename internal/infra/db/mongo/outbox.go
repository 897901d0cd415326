package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "travelbooking/internal/app/outbox"
	infraoutbox "travelbooking/internal/infra/outbox"
)

type outboxDocument struct {
	ID            string            `bson:"_id"`
	Name          string            `bson:"name"`
	Payload       []byte            `bson:"payload"`
	OccurredAt    time.Time         `bson:"occurred_at"`
	Aggregate     string            `bson:"aggregate"`
	Headers       map[string]string `bson:"headers,omitempty"`
	State         string            `bson:"state"`
	Attempts      int               `bson:"attempts"`
	NextAttemptAt time.Time         `bson:"next_attempt_at"`
	ClaimedBy     string            `bson:"claimed_by,omitempty"`
	ClaimedAt     time.Time         `bson:"claimed_at,omitempty"`
	LastError     string            `bson:"last_error,omitempty"`
	CreatedAt     time.Time         `bson:"created_at"`
}

func newOutboxDocument(rec appoutbox.EventRecord, now time.Time) outboxDocument {
	return outboxDocument{
		ID:            rec.ID,
		Name:          rec.Name,
		Payload:       rec.Payload,
		OccurredAt:    rec.OccurredAt,
		Aggregate:     rec.Aggregate,
		Headers:       rec.Headers,
		State:         infraoutbox.StateNew,
		NextAttemptAt: now,
		CreatedAt:     now,
	}
}

func (d outboxDocument) envelope() *infraoutbox.Envelope {
	return &infraoutbox.Envelope{
		ID:         d.ID,
		Name:       d.Name,
		Payload:    d.Payload,
		OccurredAt: d.OccurredAt.UTC(),
		Aggregate:  d.Aggregate,
		Headers:    d.Headers,
		Attempts:   d.Attempts,
	}
}

type unitOutbox struct {
	unit *Unit
	col  *mongo.Collection
}

// Add stages the record in the unit's transaction; it becomes visible to the relay on commit.
func (o unitOutbox) Add(ctx context.Context, rec appoutbox.EventRecord) error {
	if err := o.unit.writable(); err != nil {
		return err
	}
	_, err := o.col.InsertOne(o.unit.sessionContext(ctx), newOutboxDocument(rec, time.Now().UTC()))
	return classify(err)
}

// OutboxStore is the relay side of the outbox collection.
type OutboxStore struct {
	col *mongo.Collection
	now func() time.Time
}

func NewOutboxStore(db *mongo.Database) *OutboxStore {
	return &OutboxStore{col: db.Collection(outboxCollection), now: time.Now}
}

// Claim atomically takes the oldest due record. Records claimed longer than
// ClaimTimeout ago are considered abandoned and handed out again.
func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.Envelope, error) {
	now := s.now().UTC()
	update := bson.M{"$set": bson.M{
		"state":      infraoutbox.StateClaimed,
		"claimed_by": workerID,
		"claimed_at": now,
	}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetReturnDocument(options.After)

	var doc outboxDocument
	err := s.col.FindOneAndUpdate(ctx, claimFilter(now), update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.envelope(), nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.col.UpdateByID(ctx, id, bson.M{
		"$set":   bson.M{"state": infraoutbox.StateSent, "sent_at": s.now().UTC()},
		"$unset": bson.M{"claimed_by": "", "last_error": ""},
	})
	return err
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := s.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"state": infraoutbox.StateFailed, "next_attempt_at": next.UTC(), "last_error": errMsg},
		"$inc": bson.M{"attempts": 1},
	})
	return err
}

func claimFilter(now time.Time) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"state": infraoutbox.StateNew},
		bson.M{"state": infraoutbox.StateFailed, "next_attempt_at": bson.M{"$lte": now}},
		bson.M{"state": infraoutbox.StateClaimed, "claimed_at": bson.M{"$lt": now.Add(-infraoutbox.ClaimTimeout)}},
	}}
}

var (
	_ appoutbox.Outbox  = unitOutbox{}
	_ infraoutbox.Store = (*OutboxStore)(nil)
)
