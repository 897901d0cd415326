package booking

import (
	"strings"
	"time"

	"travelbooking/internal/domain/shared/apperr"
	"travelbooking/internal/domain/shared/money"
)

var (
	ErrTransactionRequired = apperr.New(apperr.KindValidation, "booking: payment transaction id required")
	ErrInvalidRefund       = apperr.New(apperr.KindValidation, "booking: refund amount must be positive and not exceed the paid amount")
)

type PaymentID string

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "PENDING"
	PaymentProcessing        PaymentStatus = "PROCESSING"
	PaymentCompleted         PaymentStatus = "COMPLETED"
	PaymentFailed            PaymentStatus = "FAILED"
	PaymentRefunded          PaymentStatus = "REFUNDED"
	PaymentPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
)

func (s PaymentStatus) Known() bool {
	switch s {
	case PaymentPending, PaymentProcessing, PaymentCompleted, PaymentFailed, PaymentRefunded, PaymentPartiallyRefunded:
		return true
	}
	return false
}

// Payment is owned by its booking and only changes through the booking's payment methods.
type Payment struct {
	ID            PaymentID
	BookingID     BookingID
	Amount        money.Money
	Method        string
	Provider      string
	TransactionID string
	Status        PaymentStatus
	FailureReason string
	RefundAmount  money.Money
	RefundReason  string
	CreatedAt     time.Time
	PaidAt        time.Time
	RefundedAt    time.Time
}

func newPayment(id PaymentID, bookingID BookingID, amount money.Money, now time.Time) Payment {
	return Payment{
		ID:           id,
		BookingID:    bookingID,
		Amount:       amount,
		Status:       PaymentPending,
		RefundAmount: money.Zero(amount.Currency),
		CreatedAt:    now,
	}
}

// SettledBy reports whether the payment was already completed with this transaction.
func (p Payment) SettledBy(transactionID string) bool {
	switch p.Status {
	case PaymentCompleted, PaymentRefunded, PaymentPartiallyRefunded:
		return p.TransactionID != "" && p.TransactionID == strings.TrimSpace(transactionID)
	}
	return false
}

func (p *Payment) applyRefund(status PaymentStatus, amount money.Money, reason string, now time.Time) {
	p.Status = status
	p.RefundAmount = amount
	p.RefundReason = reason
	p.RefundedAt = now
}

// StartPayment moves the payment to PROCESSING. A failed payment may be retried.
func (b *Booking) StartPayment(method, provider string, now time.Time) error {
	if !b.Status.Blocking() {
		return ErrInvalidState
	}
	if b.Payment.Status != PaymentPending && b.Payment.Status != PaymentFailed {
		return ErrInvalidState
	}
	now = now.UTC()
	b.Payment.Status = PaymentProcessing
	b.Payment.FailureReason = ""
	if method != "" {
		b.Payment.Method = method
	}
	if provider != "" {
		b.Payment.Provider = provider
	}
	b.UpdatedAt = now
	b.Record(PaymentStarted{BookingID: b.ID, PaymentID: b.Payment.ID, Method: b.Payment.Method, Provider: b.Payment.Provider, At: now})
	return nil
}

// CompletePayment records a captured payment. The caller decides whether to confirm the booking.
func (b *Booking) CompletePayment(transactionID, method, provider string, now time.Time) error {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return ErrTransactionRequired
	}
	if !b.Status.Blocking() {
		return ErrInvalidState
	}
	if b.Payment.Status != PaymentPending && b.Payment.Status != PaymentProcessing {
		return ErrInvalidState
	}
	now = now.UTC()
	b.Payment.Status = PaymentCompleted
	b.Payment.TransactionID = transactionID
	b.Payment.FailureReason = ""
	if method != "" {
		b.Payment.Method = method
	}
	if provider != "" {
		b.Payment.Provider = provider
	}
	b.Payment.PaidAt = now
	b.UpdatedAt = now
	b.Record(PaymentCaptured{BookingID: b.ID, PaymentID: b.Payment.ID, TransactionID: transactionID, Amount: b.Payment.Amount, At: now})
	return nil
}

func (b *Booking) FailPayment(reason string, now time.Time) error {
	if b.Payment.Status != PaymentPending && b.Payment.Status != PaymentProcessing {
		return ErrInvalidState
	}
	now = now.UTC()
	b.Payment.Status = PaymentFailed
	b.Payment.FailureReason = strings.TrimSpace(reason)
	b.UpdatedAt = now
	b.Record(PaymentDeclined{BookingID: b.ID, PaymentID: b.Payment.ID, Reason: b.Payment.FailureReason, At: now})
	return nil
}

// Refund returns money for a completed payment. A nil amount refunds everything;
// anything less than the paid amount is a partial refund.
func (b *Booking) Refund(amount *money.Money, reason string, now time.Time) (money.Money, error) {
	if b.Payment.Status != PaymentCompleted {
		return money.Money{}, ErrInvalidState
	}
	refund := b.Payment.Amount
	if amount != nil {
		refund = *amount
	}
	if refund.IsZero() {
		return money.Money{}, ErrInvalidRefund
	}
	exceeds, err := refund.GreaterThan(b.Payment.Amount)
	if err != nil {
		return money.Money{}, err
	}
	if exceeds {
		return money.Money{}, ErrInvalidRefund
	}
	full, err := refund.Equal(b.Payment.Amount)
	if err != nil {
		return money.Money{}, err
	}
	status := PaymentPartiallyRefunded
	if full {
		status = PaymentRefunded
	}
	now = now.UTC()
	reason = strings.TrimSpace(reason)
	b.Payment.applyRefund(status, refund, reason, now)
	b.UpdatedAt = now
	b.Record(PaymentRefundIssued{BookingID: b.ID, PaymentID: b.Payment.ID, Amount: refund, Partial: !full, Reason: reason, At: now})
	return refund, nil
}
