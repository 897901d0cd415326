package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelbooking/internal/domain/cancellation"
	"travelbooking/internal/domain/pricing"
	"travelbooking/internal/domain/shared/apperr"
	"travelbooking/internal/domain/shared/daterange"
	"travelbooking/internal/domain/shared/money"
)

var baseNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func testPrice(t *testing.T, nights int, total string) pricing.PriceBreakdown {
	t.Helper()
	m := money.Must(total, "USD")
	zero := money.Zero("USD")
	return pricing.PriceBreakdown{
		Nights:            nights,
		BasePricePerNight: m,
		TotalBasePrice:    m,
		ServiceFee:        zero,
		CleaningFee:       zero,
		Tax:               zero,
		Discount:          zero,
		Total:             m,
	}
}

func newTestBooking(t *testing.T, checkInInDays int) *Booking {
	t.Helper()
	stay, err := daterange.New(baseNow.AddDate(0, 0, checkInInDays), baseNow.AddDate(0, 0, checkInInDays+2))
	require.NoError(t, err)
	b, err := NewBooking(CreateParams{
		ID:        "bk-1",
		PaymentID: "pay-1",
		GuestID:   "guest-1",
		UnitID:    "unit-1",
		Stay:      stay,
		Guests:    GuestCounts{Total: 2, Adults: 2},
		Price:     testPrice(t, 2, "1000.00"),
		Policy:    cancellation.Moderate(),
		CreatedAt: baseNow,
	})
	require.NoError(t, err)
	b.ClearEvents()
	return b
}

func TestNewBookingStartsPending(t *testing.T) {
	b := newTestBooking(t, 10)

	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, PaymentPending, b.Payment.Status)
	assert.Empty(t, b.Payment.TransactionID)
	assert.Equal(t, b.Price.Total, b.Payment.Amount)
	assert.Equal(t, BookingID("bk-1"), b.Payment.BookingID)
}

func TestNewBookingValidation(t *testing.T) {
	stay, err := daterange.Parse("2024-06-10", "2024-06-12")
	require.NoError(t, err)
	sameDay, err := daterange.Parse("2024-06-10", "2024-06-10")
	require.NoError(t, err)

	base := CreateParams{ID: "bk", GuestID: "g", UnitID: "u", Stay: stay, Guests: GuestCounts{Total: 1}, Price: testPrice(t, 2, "100"), CreatedAt: baseNow}

	tests := []struct {
		name   string
		mutate func(p *CreateParams)
		want   error
	}{
		{"missing guest", func(p *CreateParams) { p.GuestID = "" }, ErrGuestRequired},
		{"missing unit", func(p *CreateParams) { p.UnitID = " " }, ErrUnitRequired},
		{"zero nights", func(p *CreateParams) { p.Stay = sameDay }, ErrStayTooShort},
		{"no guests", func(p *CreateParams) { p.Guests = GuestCounts{} }, ErrInvalidGuests},
		{"breakdown mismatch", func(p *CreateParams) { p.Guests = GuestCounts{Total: 3, Adults: 1} }, ErrInvalidGuests},
		{"price nights mismatch", func(p *CreateParams) { p.Price = testPrice(t, 5, "100") }, ErrPriceInconsistent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := base
			tt.mutate(&params)
			_, err := NewBooking(params)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestEnsureCapacityAndCheckIn(t *testing.T) {
	assert.NoError(t, EnsureCapacity(GuestCounts{Total: 4}, 4))
	assert.ErrorIs(t, EnsureCapacity(GuestCounts{Total: 5}, 4), apperr.ErrCapacityExceeded)

	past, err := daterange.New(baseNow.AddDate(0, 0, -1), baseNow.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.ErrorIs(t, ValidateCheckIn(past, baseNow), ErrCheckInInPast)

	today, err := daterange.New(baseNow, baseNow.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.NoError(t, ValidateCheckIn(today, baseNow.Add(10*time.Hour)))
}

func TestStatusTransitions(t *testing.T) {
	b := newTestBooking(t, 10)
	now := baseNow.Add(time.Hour)

	require.ErrorIs(t, b.Complete(now), ErrInvalidState)
	require.ErrorIs(t, b.MarkNoShow(now), ErrInvalidState)

	require.NoError(t, b.Confirm(now))
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, now, b.ConfirmedAt)
	assert.ErrorIs(t, b.Confirm(now), ErrInvalidState)

	require.NoError(t, b.Complete(now.Add(time.Hour)))
	assert.Equal(t, StatusCompleted, b.Status)
	assert.Equal(t, now.Add(time.Hour), b.CompletedAt)
	assert.Equal(t, []string{EventBookingConfirmed, EventBookingCompleted}, b.Names())
}

func TestCancelCompletedBookingLeavesItUntouched(t *testing.T) {
	b := newTestBooking(t, 10)
	require.NoError(t, b.Confirm(baseNow))
	require.NoError(t, b.Complete(baseNow))
	b.ClearEvents()
	before := *b.Clone()

	_, err := b.Cancel("changed plans", baseNow)
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, StatusCompleted, b.Status)
	assert.Equal(t, before.UpdatedAt, b.UpdatedAt)
	assert.Empty(t, b.CancellationReason)
	assert.Empty(t, b.PendingEvents())
}

func TestNoShow(t *testing.T) {
	b := newTestBooking(t, 10)
	require.NoError(t, b.Confirm(baseNow))
	require.NoError(t, b.MarkNoShow(baseNow))
	assert.Equal(t, StatusNoShow, b.Status)
	_, err := b.Cancel("late", baseNow)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCancelWithoutPaymentOwesNothing(t *testing.T) {
	b := newTestBooking(t, 10)

	refund, err := b.Cancel("  plans changed ", baseNow)
	require.NoError(t, err)
	assert.True(t, refund.IsZero())
	assert.Equal(t, StatusCancelled, b.Status)
	assert.Equal(t, "plans changed", b.CancellationReason)
	assert.Equal(t, PaymentPending, b.Payment.Status)
	assert.Equal(t, baseNow, b.CancelledAt)
}

func TestCancelSettlesCompletedPayment(t *testing.T) {
	tests := []struct {
		name       string
		daysAhead  int
		wantRefund string
		wantStatus PaymentStatus
	}{
		{"full refund", 10, "1000.00", PaymentRefunded},
		{"partial refund", 3, "500.00", PaymentPartiallyRefunded},
		{"no refund keeps payment completed", 0, "0.00", PaymentCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBooking(t, tt.daysAhead)
			require.NoError(t, b.CompletePayment("tx-1", "card", "stripe", baseNow))
			require.NoError(t, b.Confirm(baseNow))

			refund, err := b.Cancel("", baseNow)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRefund, refund.Amount.StringFixed(2))
			assert.Equal(t, tt.wantStatus, b.Payment.Status)
			assert.Equal(t, StatusCancelled, b.Status)
		})
	}
}

func TestPaymentLifecycle(t *testing.T) {
	b := newTestBooking(t, 10)

	require.ErrorIs(t, b.CompletePayment(" ", "", "", baseNow), ErrTransactionRequired)
	require.NoError(t, b.StartPayment("card", "stripe", baseNow))
	assert.Equal(t, PaymentProcessing, b.Payment.Status)

	require.NoError(t, b.FailPayment("card declined", baseNow))
	assert.Equal(t, PaymentFailed, b.Payment.Status)
	assert.ErrorIs(t, b.CompletePayment("tx", "", "", baseNow), ErrInvalidState)

	require.NoError(t, b.StartPayment("", "", baseNow))
	assert.Empty(t, b.Payment.FailureReason)
	assert.Equal(t, "card", b.Payment.Method)

	require.NoError(t, b.CompletePayment("tx-9", "", "", baseNow))
	assert.Equal(t, PaymentCompleted, b.Payment.Status)
	assert.Equal(t, baseNow, b.Payment.PaidAt)
	assert.True(t, b.Payment.SettledBy("tx-9"))
	assert.False(t, b.Payment.SettledBy("tx-10"))
	assert.ErrorIs(t, b.StartPayment("", "", baseNow), ErrInvalidState)
	assert.ErrorIs(t, b.FailPayment("late", baseNow), ErrInvalidState)
}

func TestCompletePaymentRejectedOnTerminalBooking(t *testing.T) {
	b := newTestBooking(t, 10)
	_, err := b.Cancel("", baseNow)
	require.NoError(t, err)

	assert.ErrorIs(t, b.CompletePayment("tx", "", "", baseNow), ErrInvalidState)
	assert.Equal(t, PaymentPending, b.Payment.Status)
}

func TestRefund(t *testing.T) {
	b := newTestBooking(t, 10)
	_, err := b.Refund(nil, "", baseNow)
	require.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, b.CompletePayment("tx", "", "", baseNow))

	tooMuch := money.Must("1000.01", "USD")
	_, err = b.Refund(&tooMuch, "", baseNow)
	require.ErrorIs(t, err, ErrInvalidRefund)

	zero := money.Zero("USD")
	_, err = b.Refund(&zero, "", baseNow)
	require.ErrorIs(t, err, ErrInvalidRefund)

	eur := money.Must("10", "EUR")
	_, err = b.Refund(&eur, "", baseNow)
	require.ErrorIs(t, err, apperr.ErrCurrencyMismatch)
	assert.Equal(t, PaymentCompleted, b.Payment.Status)

	part := money.Must("250", "USD")
	refunded, err := b.Refund(&part, "damaged towel", baseNow)
	require.NoError(t, err)
	assert.Equal(t, "250.00", refunded.Amount.StringFixed(2))
	assert.Equal(t, PaymentPartiallyRefunded, b.Payment.Status)
	assert.Equal(t, "damaged towel", b.Payment.RefundReason)

	_, err = b.Refund(nil, "", baseNow)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestFullRefundByDefault(t *testing.T) {
	b := newTestBooking(t, 10)
	require.NoError(t, b.CompletePayment("tx", "", "", baseNow))

	refunded, err := b.Refund(nil, "host cancelled", baseNow)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", refunded.Amount.StringFixed(2))
	assert.Equal(t, PaymentRefunded, b.Payment.Status)
	assert.Equal(t, baseNow, b.Payment.RefundedAt)
}

func TestPaymentTransitionsRecordEvents(t *testing.T) {
	b := newTestBooking(t, 10)
	require.NoError(t, b.StartPayment("card", "stripe", baseNow))
	require.NoError(t, b.CompletePayment("tx-1", "", "", baseNow))
	_, err := b.Refund(nil, "", baseNow)
	require.NoError(t, err)

	assert.Equal(t, []string{EventPaymentProcessing, EventPaymentCompleted, EventPaymentRefunded}, b.Names())
	captured, ok := b.PendingEvents()[1].(PaymentCaptured)
	require.True(t, ok)
	assert.Equal(t, "tx-1", captured.TransactionID)
	refund, ok := b.PendingEvents()[2].(PaymentRefundIssued)
	require.True(t, ok)
	assert.False(t, refund.Partial)

	declined := newTestBooking(t, 10)
	require.NoError(t, declined.FailPayment("card declined", baseNow))
	require.Len(t, declined.PendingEvents(), 1)
	assert.IsType(t, PaymentDeclined{}, declined.PendingEvents()[0])
}
