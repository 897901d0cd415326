package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbooking "travelbooking/internal/domain/booking"
	"travelbooking/internal/domain/cancellation"
	domaincatalog "travelbooking/internal/domain/catalog"
	domainpricing "travelbooking/internal/domain/pricing"
	"travelbooking/internal/domain/shared/daterange"
	"travelbooking/internal/domain/shared/money"
)

var now = time.Date(2030, 1, 10, 12, 0, 0, 0, time.UTC)

func paidBooking(t *testing.T) *domainbooking.Booking {
	t.Helper()
	stay, err := daterange.Parse("2030-02-01", "2030-02-04")
	require.NoError(t, err)
	calc, err := domainpricing.NewCalculator(domainpricing.DefaultFeeConfig())
	require.NoError(t, err)
	price, err := calc.Quote(domainpricing.QuoteInput{UnitID: "unit-1", BasePricePerNight: money.Must("100", "USD"), Stay: stay, Guests: 2})
	require.NoError(t, err)
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:              "bk-1",
		PaymentID:       "pay-1",
		GuestID:         "guest-1",
		UnitID:          "unit-1",
		HostID:          "host-1",
		Stay:            stay,
		Guests:          domainbooking.GuestCounts{Total: 2, Adults: 2},
		Price:           price,
		Policy:          cancellation.Strict(),
		SpecialRequests: "late arrival",
		CreatedAt:       now,
	})
	require.NoError(t, err)
	require.NoError(t, b.CompletePayment("tx-1", "card", "stripe", now.Add(time.Minute)))
	partial := money.Must("50", "USD")
	_, err = b.Refund(&partial, "goodwill", now.Add(time.Hour))
	require.NoError(t, err)
	b.Version = 3
	return b
}

func TestBookingRecordRestoresAggregate(t *testing.T) {
	original := paidBooking(t)

	rec := FromBooking(original)
	assert.Equal(t, "bk-1", rec.ID)
	assert.Equal(t, Money{Amount: "50.00", Currency: "USD"}, rec.Payment.RefundAmount)

	restored, err := rec.ToBooking()
	require.NoError(t, err)
	assert.Equal(t, original.ID, restored.ID)
	assert.Equal(t, original.Stay, restored.Stay)
	assert.Equal(t, original.Guests, restored.Guests)
	assert.Equal(t, original.Policy, restored.Policy)
	assert.Equal(t, original.Status, restored.Status)
	assert.Equal(t, original.SpecialRequests, restored.SpecialRequests)
	assert.Equal(t, original.Price.Total.String(), restored.Price.Total.String())
	assert.Equal(t, original.Price.ServiceFee.String(), restored.Price.ServiceFee.String())
	assert.Equal(t, original.Price.Nights, restored.Price.Nights)
	assert.Equal(t, domainbooking.PaymentPartiallyRefunded, restored.Payment.Status)
	assert.Equal(t, "50.00 USD", restored.Payment.RefundAmount.String())
	assert.Equal(t, original.Payment.Amount.String(), restored.Payment.Amount.String())
	assert.Equal(t, domainbooking.BookingID("bk-1"), restored.Payment.BookingID)
	assert.Equal(t, "tx-1", restored.Payment.TransactionID)
	assert.True(t, restored.ConfirmedAt.IsZero())
	assert.Equal(t, int64(3), restored.Version)
	assert.Empty(t, restored.PendingEvents())
}

func TestBookingRecordRejectsBrokenStay(t *testing.T) {
	rec := FromBooking(paidBooking(t))
	rec.CheckOut = rec.CheckIn.Add(-48 * time.Hour)

	_, err := rec.ToBooking()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bk-1")
}

func TestBookingRecordRejectsLegacyPaymentStatus(t *testing.T) {
	rec := FromBooking(paidBooking(t))
	rec.Payment.Status = "PAID"

	_, err := rec.ToBooking()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown payment status")
}

func TestUnitRecordKeepsOptionalCleaningFee(t *testing.T) {
	fee := money.Must("35", "EUR")
	unit := &domaincatalog.Unit{
		ID:                 "unit-9",
		HostID:             "host-9",
		Title:              "Loft",
		MaxGuests:          3,
		BasePrice:          money.Must("120", "EUR"),
		CleaningFee:        &fee,
		ApprovalStatus:     domaincatalog.ApprovalApproved,
		CancellationPolicy: cancellation.Flexible(),
	}

	restored, err := FromUnit(unit).ToUnit()
	require.NoError(t, err)
	require.NotNil(t, restored.CleaningFee)
	assert.Equal(t, "35.00 EUR", restored.CleaningFee.String())
	assert.Equal(t, "120.00 EUR", restored.BasePrice.String())
	assert.True(t, restored.Bookable())

	unit.CleaningFee = nil
	restored, err = FromUnit(unit).ToUnit()
	require.NoError(t, err)
	assert.Nil(t, restored.CleaningFee)
}
