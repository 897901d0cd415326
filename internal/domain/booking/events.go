package booking

import (
	"time"

	"travelbooking/internal/domain/catalog"
	"travelbooking/internal/domain/shared/money"
	"travelbooking/internal/domain/user"
)

const (
	EventBookingRequested  = "booking.requested"
	EventBookingConfirmed  = "booking.confirmed"
	EventBookingCancelled  = "booking.cancelled"
	EventBookingCompleted  = "booking.completed"
	EventBookingNoShow     = "booking.no_show"
	EventPaymentProcessing = "payment.processing"
	EventPaymentCompleted  = "payment.completed"
	EventPaymentFailed     = "payment.failed"
	EventPaymentRefunded   = "payment.refunded"
)

type StayDates struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

type BookingRequested struct {
	BookingID BookingID      `json:"booking_id"`
	UnitID    catalog.UnitID `json:"unit_id"`
	HostID    string         `json:"host_id,omitempty"`
	GuestID   user.ID        `json:"guest_id"`
	Stay      StayDates      `json:"stay"`
	Guests    int            `json:"guests"`
	Total     money.Money    `json:"total"`
	At        time.Time      `json:"at"`
}

func (e BookingRequested) EventName() string     { return EventBookingRequested }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingConfirmed struct {
	BookingID BookingID      `json:"booking_id"`
	UnitID    catalog.UnitID `json:"unit_id"`
	GuestID   user.ID        `json:"guest_id"`
	Stay      StayDates      `json:"stay"`
	Total     money.Money    `json:"total"`
	At        time.Time      `json:"at"`
}

func (e BookingConfirmed) EventName() string     { return EventBookingConfirmed }
func (e BookingConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID BookingID      `json:"booking_id"`
	UnitID    catalog.UnitID `json:"unit_id"`
	GuestID   user.ID        `json:"guest_id"`
	Refund    money.Money    `json:"refund"`
	Reason    string         `json:"reason,omitempty"`
	At        time.Time      `json:"at"`
}

func (e BookingCancelled) EventName() string     { return EventBookingCancelled }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type BookingCompleted struct {
	BookingID BookingID `json:"booking_id"`
	GuestID   user.ID   `json:"guest_id"`
	At        time.Time `json:"at"`
}

func (e BookingCompleted) EventName() string     { return EventBookingCompleted }
func (e BookingCompleted) AggregateID() string   { return string(e.BookingID) }
func (e BookingCompleted) OccurredAt() time.Time { return e.At }

type NoShowRecorded struct {
	BookingID BookingID `json:"booking_id"`
	GuestID   user.ID   `json:"guest_id"`
	At        time.Time `json:"at"`
}

func (e NoShowRecorded) EventName() string     { return EventBookingNoShow }
func (e NoShowRecorded) AggregateID() string   { return string(e.BookingID) }
func (e NoShowRecorded) OccurredAt() time.Time { return e.At }

type PaymentStarted struct {
	BookingID BookingID `json:"booking_id"`
	PaymentID PaymentID `json:"payment_id"`
	Method    string    `json:"method,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	At        time.Time `json:"at"`
}

func (e PaymentStarted) EventName() string     { return EventPaymentProcessing }
func (e PaymentStarted) AggregateID() string   { return string(e.BookingID) }
func (e PaymentStarted) OccurredAt() time.Time { return e.At }

type PaymentCaptured struct {
	BookingID     BookingID   `json:"booking_id"`
	PaymentID     PaymentID   `json:"payment_id"`
	TransactionID string      `json:"transaction_id"`
	Amount        money.Money `json:"amount"`
	At            time.Time   `json:"at"`
}

func (e PaymentCaptured) EventName() string     { return EventPaymentCompleted }
func (e PaymentCaptured) AggregateID() string   { return string(e.BookingID) }
func (e PaymentCaptured) OccurredAt() time.Time { return e.At }

type PaymentDeclined struct {
	BookingID BookingID `json:"booking_id"`
	PaymentID PaymentID `json:"payment_id"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

func (e PaymentDeclined) EventName() string     { return EventPaymentFailed }
func (e PaymentDeclined) AggregateID() string   { return string(e.BookingID) }
func (e PaymentDeclined) OccurredAt() time.Time { return e.At }

type PaymentRefundIssued struct {
	BookingID BookingID   `json:"booking_id"`
	PaymentID PaymentID   `json:"payment_id"`
	Amount    money.Money `json:"amount"`
	Partial   bool        `json:"partial"`
	Reason    string      `json:"reason,omitempty"`
	At        time.Time   `json:"at"`
}

func (e PaymentRefundIssued) EventName() string     { return EventPaymentRefunded }
func (e PaymentRefundIssued) AggregateID() string   { return string(e.BookingID) }
func (e PaymentRefundIssued) OccurredAt() time.Time { return e.At }
