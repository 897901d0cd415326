// Package record holds the flat storage shape of a booking shared by the database drivers.
package record

import (
	"fmt"
	"time"

	domainbooking "travelbooking/internal/domain/booking"
	"travelbooking/internal/domain/cancellation"
	"travelbooking/internal/domain/catalog"
	domainpricing "travelbooking/internal/domain/pricing"
	"travelbooking/internal/domain/shared/daterange"
	"travelbooking/internal/domain/shared/money"
	"travelbooking/internal/domain/user"
)

type Money struct {
	Amount   string `bson:"amount" json:"amount"`
	Currency string `bson:"currency" json:"currency"`
}

func FromMoney(m money.Money) Money {
	if m.Currency == "" {
		return Money{}
	}
	return Money{Amount: m.Amount.StringFixed(2), Currency: m.Currency}
}

func (m Money) ToMoney() (money.Money, error) {
	if m.Currency == "" {
		return money.Money{}, nil
	}
	return money.Parse(m.Amount, m.Currency)
}

type Price struct {
	Nights            int   `bson:"nights" json:"nights"`
	BasePricePerNight Money `bson:"base_price_per_night" json:"base_price_per_night"`
	TotalBasePrice    Money `bson:"total_base_price" json:"total_base_price"`
	ServiceFee        Money `bson:"service_fee" json:"service_fee"`
	CleaningFee       Money `bson:"cleaning_fee" json:"cleaning_fee"`
	Tax               Money `bson:"tax" json:"tax"`
	Discount          Money `bson:"discount" json:"discount"`
	Total             Money `bson:"total" json:"total"`
}

type Payment struct {
	ID            string    `bson:"id" json:"id"`
	Amount        Money     `bson:"amount" json:"amount"`
	Method        string    `bson:"method,omitempty" json:"method,omitempty"`
	Provider      string    `bson:"provider,omitempty" json:"provider,omitempty"`
	TransactionID string    `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	Status        string    `bson:"status" json:"status"`
	FailureReason string    `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`
	RefundAmount  Money     `bson:"refund_amount" json:"refund_amount"`
	RefundReason  string    `bson:"refund_reason,omitempty" json:"refund_reason,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	PaidAt        time.Time `bson:"paid_at" json:"paid_at"`
	RefundedAt    time.Time `bson:"refunded_at" json:"refunded_at"`
}

// Booking is the persisted aggregate. Dates are stored as UTC midnights.
type Booking struct {
	ID                 string                    `bson:"_id" json:"id"`
	GuestID            string                    `bson:"guest_id" json:"guest_id"`
	UnitID             string                    `bson:"unit_id" json:"unit_id"`
	HostID             string                    `bson:"host_id,omitempty" json:"host_id,omitempty"`
	CheckIn            time.Time                 `bson:"check_in" json:"check_in"`
	CheckOut           time.Time                 `bson:"check_out" json:"check_out"`
	Guests             domainbooking.GuestCounts `bson:"guests" json:"guests"`
	Price              Price                     `bson:"price" json:"price"`
	Status             string                    `bson:"status" json:"status"`
	CancellationReason string                    `bson:"cancellation_reason,omitempty" json:"cancellation_reason,omitempty"`
	SpecialRequests    string                    `bson:"special_requests,omitempty" json:"special_requests,omitempty"`
	GuestMessage       string                    `bson:"guest_message,omitempty" json:"guest_message,omitempty"`
	Policy             cancellation.Policy       `bson:"policy" json:"policy"`
	Payment            Payment                   `bson:"payment" json:"payment"`
	CreatedAt          time.Time                 `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time                 `bson:"updated_at" json:"updated_at"`
	ConfirmedAt        time.Time                 `bson:"confirmed_at" json:"confirmed_at"`
	CancelledAt        time.Time                 `bson:"cancelled_at" json:"cancelled_at"`
	CompletedAt        time.Time                 `bson:"completed_at" json:"completed_at"`
	Version            int64                     `bson:"version" json:"version"`
}

func FromBooking(b *domainbooking.Booking) Booking {
	p := b.Price
	return Booking{
		ID:       string(b.ID),
		GuestID:  string(b.GuestID),
		UnitID:   string(b.UnitID),
		HostID:   b.HostID,
		CheckIn:  b.Stay.Start.UTC(),
		CheckOut: b.Stay.End.UTC(),
		Guests:   b.Guests,
		Price: Price{
			Nights:            p.Nights,
			BasePricePerNight: FromMoney(p.BasePricePerNight),
			TotalBasePrice:    FromMoney(p.TotalBasePrice),
			ServiceFee:        FromMoney(p.ServiceFee),
			CleaningFee:       FromMoney(p.CleaningFee),
			Tax:               FromMoney(p.Tax),
			Discount:          FromMoney(p.Discount),
			Total:             FromMoney(p.Total),
		},
		Status:             string(b.Status),
		CancellationReason: b.CancellationReason,
		SpecialRequests:    b.SpecialRequests,
		GuestMessage:       b.GuestMessage,
		Policy:             b.Policy,
		Payment: Payment{
			ID:            string(b.Payment.ID),
			Amount:        FromMoney(b.Payment.Amount),
			Method:        b.Payment.Method,
			Provider:      b.Payment.Provider,
			TransactionID: b.Payment.TransactionID,
			Status:        string(b.Payment.Status),
			FailureReason: b.Payment.FailureReason,
			RefundAmount:  FromMoney(b.Payment.RefundAmount),
			RefundReason:  b.Payment.RefundReason,
			CreatedAt:     b.Payment.CreatedAt,
			PaidAt:        b.Payment.PaidAt,
			RefundedAt:    b.Payment.RefundedAt,
		},
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
		ConfirmedAt: b.ConfirmedAt,
		CancelledAt: b.CancelledAt,
		CompletedAt: b.CompletedAt,
		Version:     b.Version,
	}
}

func (r Booking) ToBooking() (*domainbooking.Booking, error) {
	stay, err := daterange.New(r.CheckIn, r.CheckOut)
	if err != nil {
		return nil, fmt.Errorf("record: booking %s stay: %w", r.ID, err)
	}
	price, err := r.Price.toBreakdown()
	if err != nil {
		return nil, fmt.Errorf("record: booking %s price: %w", r.ID, err)
	}
	paid, err := r.Payment.Amount.ToMoney()
	if err != nil {
		return nil, fmt.Errorf("record: booking %s payment: %w", r.ID, err)
	}
	refunded, err := r.Payment.RefundAmount.ToMoney()
	if err != nil {
		return nil, fmt.Errorf("record: booking %s refund: %w", r.ID, err)
	}
	status := domainbooking.Status(r.Status)
	if !status.Known() {
		return nil, fmt.Errorf("record: booking %s has unknown status %q", r.ID, r.Status)
	}
	paymentStatus := domainbooking.PaymentStatus(r.Payment.Status)
	if !paymentStatus.Known() {
		return nil, fmt.Errorf("record: booking %s has unknown payment status %q", r.ID, r.Payment.Status)
	}
	return &domainbooking.Booking{
		ID:                 domainbooking.BookingID(r.ID),
		GuestID:            user.ID(r.GuestID),
		UnitID:             catalog.UnitID(r.UnitID),
		HostID:             r.HostID,
		Stay:               stay,
		Guests:             r.Guests,
		Price:              price,
		Status:             status,
		CancellationReason: r.CancellationReason,
		SpecialRequests:    r.SpecialRequests,
		GuestMessage:       r.GuestMessage,
		Policy:             r.Policy,
		Payment: domainbooking.Payment{
			ID:            domainbooking.PaymentID(r.Payment.ID),
			BookingID:     domainbooking.BookingID(r.ID),
			Amount:        paid,
			Method:        r.Payment.Method,
			Provider:      r.Payment.Provider,
			TransactionID: r.Payment.TransactionID,
			Status:        paymentStatus,
			FailureReason: r.Payment.FailureReason,
			RefundAmount:  refunded,
			RefundReason:  r.Payment.RefundReason,
			CreatedAt:     utc(r.Payment.CreatedAt),
			PaidAt:        utc(r.Payment.PaidAt),
			RefundedAt:    utc(r.Payment.RefundedAt),
		},
		CreatedAt:   utc(r.CreatedAt),
		UpdatedAt:   utc(r.UpdatedAt),
		ConfirmedAt: utc(r.ConfirmedAt),
		CancelledAt: utc(r.CancelledAt),
		CompletedAt: utc(r.CompletedAt),
		Version:     r.Version,
	}, nil
}

func (p Price) toBreakdown() (domainpricing.PriceBreakdown, error) {
	out := domainpricing.PriceBreakdown{Nights: p.Nights}
	fields := []struct {
		src Money
		dst *money.Money
	}{
		{p.BasePricePerNight, &out.BasePricePerNight},
		{p.TotalBasePrice, &out.TotalBasePrice},
		{p.ServiceFee, &out.ServiceFee},
		{p.CleaningFee, &out.CleaningFee},
		{p.Tax, &out.Tax},
		{p.Discount, &out.Discount},
		{p.Total, &out.Total},
	}
	for _, f := range fields {
		m, err := f.src.ToMoney()
		if err != nil {
			return domainpricing.PriceBreakdown{}, err
		}
		*f.dst = m
	}
	return out, nil
}

// utc keeps zero times zero; drivers may hand back zero times in a local zone.
func utc(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC()
}

// Unit is the persisted catalog snapshot.
type Unit struct {
	ID                 string              `bson:"_id" json:"id"`
	HostID             string              `bson:"host_id" json:"host_id"`
	Title              string              `bson:"title" json:"title"`
	MaxGuests          int                 `bson:"max_guests" json:"max_guests"`
	BasePrice          Money               `bson:"base_price" json:"base_price"`
	CleaningFee        *Money              `bson:"cleaning_fee,omitempty" json:"cleaning_fee,omitempty"`
	ApprovalStatus     string              `bson:"approval_status" json:"approval_status"`
	CancellationPolicy cancellation.Policy `bson:"cancellation_policy" json:"cancellation_policy"`
}

func FromUnit(u *catalog.Unit) Unit {
	out := Unit{
		ID:                 string(u.ID),
		HostID:             u.HostID,
		Title:              u.Title,
		MaxGuests:          u.MaxGuests,
		BasePrice:          FromMoney(u.BasePrice),
		ApprovalStatus:     string(u.ApprovalStatus),
		CancellationPolicy: u.CancellationPolicy,
	}
	if u.CleaningFee != nil {
		fee := FromMoney(*u.CleaningFee)
		out.CleaningFee = &fee
	}
	return out
}

func (r Unit) ToUnit() (*catalog.Unit, error) {
	base, err := r.BasePrice.ToMoney()
	if err != nil {
		return nil, fmt.Errorf("record: unit %s base price: %w", r.ID, err)
	}
	out := &catalog.Unit{
		ID:                 catalog.UnitID(r.ID),
		HostID:             r.HostID,
		Title:              r.Title,
		MaxGuests:          r.MaxGuests,
		BasePrice:          base,
		ApprovalStatus:     catalog.ApprovalStatus(r.ApprovalStatus),
		CancellationPolicy: r.CancellationPolicy,
	}
	if r.CleaningFee != nil {
		fee, err := r.CleaningFee.ToMoney()
		if err != nil {
			return nil, fmt.Errorf("record: unit %s cleaning fee: %w", r.ID, err)
		}
		out.CleaningFee = &fee
	}
	return out, nil
}
