package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	domainbooking "travelbooking/internal/domain/booking"
	domaincatalog "travelbooking/internal/domain/catalog"
	domainuser "travelbooking/internal/domain/user"
	"travelbooking/internal/infra/db/record"
)

// Bookings are stored as a JSONB document plus the columns the queries filter on.
type bookingRepository struct {
	unit *Unit
}

func (r bookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc []byte
	err := r.unit.tx.QueryRow(ctx, `SELECT doc FROM bookings WHERE id = $1`, string(id)).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainbooking.ErrBookingNotFound.WithDetail("booking_id", string(id))
	}
	if err != nil {
		return nil, classify(err)
	}
	return decodeBooking(doc)
}

func (r bookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	if b == nil {
		return domainbooking.ErrBookingNotFound
	}
	if err := r.unit.writable(); err != nil {
		return err
	}
	rec := record.FromBooking(b)
	rec.Version = b.Version + 1
	doc, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	var affected int64
	if b.Version == 0 {
		tag, err := r.unit.tx.Exec(ctx, `
			INSERT INTO bookings (id, guest_id, unit_id, status, check_in, check_out, created_at, version, doc)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO NOTHING`,
			rec.ID, rec.GuestID, rec.UnitID, rec.Status, rec.CheckIn, rec.CheckOut, rec.CreatedAt, rec.Version, doc)
		if err != nil {
			return classify(err)
		}
		affected = tag.RowsAffected()
	} else {
		tag, err := r.unit.tx.Exec(ctx, `
			UPDATE bookings SET status = $2, check_in = $3, check_out = $4, version = $5, doc = $6
			WHERE id = $1 AND version = $7`,
			rec.ID, rec.Status, rec.CheckIn, rec.CheckOut, rec.Version, doc, b.Version)
		if err != nil {
			return classify(err)
		}
		affected = tag.RowsAffected()
	}
	if affected == 0 {
		return errStaleVersion
	}
	b.Version = rec.Version
	return nil
}

func (r bookingRepository) ListNonTerminalByUnit(ctx context.Context, unitID domaincatalog.UnitID) ([]*domainbooking.Booking, error) {
	return r.list(ctx, `SELECT doc FROM bookings WHERE unit_id = $1 AND status = ANY($2) ORDER BY check_in`,
		string(unitID), []string{string(domainbooking.StatusPending), string(domainbooking.StatusConfirmed)})
}

func (r bookingRepository) ListByGuest(ctx context.Context, guestID domainuser.ID) ([]*domainbooking.Booking, error) {
	return r.list(ctx, `SELECT doc FROM bookings WHERE guest_id = $1 ORDER BY created_at DESC`, string(guestID))
}

func (r bookingRepository) list(ctx context.Context, sql string, args ...any) ([]*domainbooking.Booking, error) {
	rows, err := r.unit.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, classify(err)
	}
	docs, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, classify(err)
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	for _, doc := range docs {
		b, err := decodeBooking(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func decodeBooking(doc []byte) (*domainbooking.Booking, error) {
	var rec record.Booking
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, err
	}
	return rec.ToBooking()
}

var _ domainbooking.Repository = bookingRepository{}
