package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelbooking/internal/domain/shared/apperr"
	"travelbooking/internal/domain/shared/daterange"
	"travelbooking/internal/domain/shared/money"
)

func stay(t *testing.T, start, end string) daterange.DateRange {
	t.Helper()
	dr, err := daterange.Parse(start, end)
	require.NoError(t, err)
	return dr
}

func TestQuoteDefaultFees(t *testing.T) {
	calc, err := NewCalculator(DefaultFeeConfig())
	require.NoError(t, err)

	quote, err := calc.Quote(QuoteInput{
		BasePricePerNight: money.Must("100.00", "USD"),
		Stay:              stay(t, "2024-06-01", "2024-06-04"),
		Guests:            2,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, quote.Nights)
	assert.Equal(t, "300.00", quote.TotalBasePrice.Amount.StringFixed(2))
	assert.Equal(t, "30.00", quote.ServiceFee.Amount.StringFixed(2))
	assert.Equal(t, "25.00", quote.CleaningFee.Amount.StringFixed(2))
	assert.Equal(t, "26.40", quote.Tax.Amount.StringFixed(2))
	assert.Equal(t, "0.00", quote.Discount.Amount.StringFixed(2))
	assert.Equal(t, "381.40", quote.Total.Amount.StringFixed(2))
	assert.NoError(t, quote.Validate())
}

func TestServiceFeeClamps(t *testing.T) {
	cfg := DefaultFeeConfig()
	cfg.TaxRate = decimal.Zero
	cfg.CleaningFee = decimal.Zero
	calc, err := NewCalculator(cfg)
	require.NoError(t, err)

	cheap, err := calc.Quote(QuoteInput{BasePricePerNight: money.Must("10.00", "EUR"), Stay: stay(t, "2024-06-01", "2024-06-02"), Guests: 1})
	require.NoError(t, err)
	assert.Equal(t, "5.00", cheap.ServiceFee.Amount.StringFixed(2))

	luxury, err := calc.Quote(QuoteInput{BasePricePerNight: money.Must("2000.00", "EUR"), Stay: stay(t, "2024-06-01", "2024-06-04"), Guests: 1})
	require.NoError(t, err)
	assert.Equal(t, "500.00", luxury.ServiceFee.Amount.StringFixed(2))
	assert.Equal(t, "6500.00", luxury.Total.Amount.StringFixed(2))
}

func TestCleaningFeeModesAndOverride(t *testing.T) {
	cfg := DefaultFeeConfig()
	cfg.TaxRate = decimal.Zero
	cfg.CleaningFeeMode = CleaningPerNight
	calc, err := NewCalculator(cfg)
	require.NoError(t, err)

	perNight, err := calc.Quote(QuoteInput{BasePricePerNight: money.Must("100", "USD"), Stay: stay(t, "2024-06-01", "2024-06-05"), Guests: 1})
	require.NoError(t, err)
	assert.Equal(t, "100.00", perNight.CleaningFee.Amount.StringFixed(2))

	override := money.Must("10", "USD")
	custom, err := calc.Quote(QuoteInput{BasePricePerNight: money.Must("100", "USD"), CleaningFee: &override, Stay: stay(t, "2024-06-01", "2024-06-05"), Guests: 1})
	require.NoError(t, err)
	assert.Equal(t, "40.00", custom.CleaningFee.Amount.StringFixed(2))

	wrong := money.Must("10", "EUR")
	_, err = calc.Quote(QuoteInput{BasePricePerNight: money.Must("100", "USD"), CleaningFee: &wrong, Stay: stay(t, "2024-06-01", "2024-06-05"), Guests: 1})
	assert.ErrorIs(t, err, apperr.ErrCurrencyMismatch)
}

func TestLongStayDiscount(t *testing.T) {
	cfg := DefaultFeeConfig()
	cfg.LongStayMinNights = 7
	cfg.LongStayPercent = decimal.NewFromInt(10)
	calc, err := NewCalculator(cfg)
	require.NoError(t, err)

	week, err := calc.Quote(QuoteInput{BasePricePerNight: money.Must("100", "USD"), Stay: stay(t, "2024-06-01", "2024-06-08"), Guests: 2})
	require.NoError(t, err)
	assert.Equal(t, "70.00", week.Discount.Amount.StringFixed(2))
	assert.NoError(t, week.Validate())

	short, err := calc.Quote(QuoteInput{BasePricePerNight: money.Must("100", "USD"), Stay: stay(t, "2024-06-01", "2024-06-07"), Guests: 2})
	require.NoError(t, err)
	assert.True(t, short.Discount.IsZero())
}

func TestQuoteRejectsBadInput(t *testing.T) {
	calc, err := NewCalculator(DefaultFeeConfig())
	require.NoError(t, err)

	_, err = calc.Quote(QuoteInput{BasePricePerNight: money.Must("100", "USD"), Stay: stay(t, "2024-06-01", "2024-06-01"), Guests: 1})
	assert.ErrorIs(t, err, ErrInvalidNights)

	_, err = calc.Quote(QuoteInput{BasePricePerNight: money.Must("100", "USD"), Stay: stay(t, "2024-06-01", "2024-06-02")})
	assert.ErrorIs(t, err, ErrInvalidGuests)

	bad := DefaultFeeConfig()
	bad.ServiceFeeMax = decimal.NewFromInt(1)
	_, err = NewCalculator(bad)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidateDetectsTampering(t *testing.T) {
	calc, err := NewCalculator(DefaultFeeConfig())
	require.NoError(t, err)
	quote, err := calc.Quote(QuoteInput{BasePricePerNight: money.Must("80", "USD"), Stay: stay(t, "2024-06-01", "2024-06-03"), Guests: 1})
	require.NoError(t, err)

	quote.Total = money.Must("1.00", "USD")
	assert.ErrorIs(t, quote.Validate(), ErrTotalMismatch)

	quote.Tax = money.Must("1.00", "EUR")
	assert.ErrorIs(t, quote.Validate(), apperr.ErrCurrencyMismatch)
}
