package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "travelbooking/internal/domain/booking"
	domaincatalog "travelbooking/internal/domain/catalog"
	domainuser "travelbooking/internal/domain/user"
	"travelbooking/internal/infra/db/record"
)

type bookingRepository struct {
	unit *Unit
	col  *mongo.Collection
}

func (r bookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc record.Booking
	err := r.col.FindOne(r.unit.sessionContext(ctx), bson.M{"_id": string(id)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domainbooking.ErrBookingNotFound.WithDetail("booking_id", string(id))
	}
	if err != nil {
		return nil, classify(err)
	}
	return doc.ToBooking()
}

// Save inserts new aggregates and replaces existing ones only while the stored
// version still equals b.Version.
func (r bookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	if b == nil {
		return domainbooking.ErrBookingNotFound
	}
	if err := r.unit.writable(); err != nil {
		return err
	}
	ctx = r.unit.sessionContext(ctx)
	doc := record.FromBooking(b)
	doc.Version = b.Version + 1

	if b.Version == 0 {
		if _, err := r.col.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return errStaleVersion
			}
			return classify(err)
		}
	} else {
		res, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": b.Version}, doc)
		if err != nil {
			return classify(err)
		}
		if res.MatchedCount == 0 {
			return errStaleVersion
		}
	}
	b.Version = doc.Version
	return nil
}

func (r bookingRepository) ListNonTerminalByUnit(ctx context.Context, unitID domaincatalog.UnitID) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"unit_id": string(unitID),
		"status":  bson.M{"$in": bson.A{string(domainbooking.StatusPending), string(domainbooking.StatusConfirmed)}},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "check_in", Value: 1}}))
}

func (r bookingRepository) ListByGuest(ctx context.Context, guestID domainuser.ID) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"guest_id": string(guestID)}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r bookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domainbooking.Booking, error) {
	ctx = r.unit.sessionContext(ctx)
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, classify(err)
	}
	defer cur.Close(ctx)

	var out []*domainbooking.Booking
	for cur.Next(ctx) {
		var doc record.Booking
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		b, err := doc.ToBooking()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, classify(cur.Err())
}

var _ domainbooking.Repository = bookingRepository{}
