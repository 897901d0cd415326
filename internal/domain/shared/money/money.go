package money

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"travelbooking/internal/domain/shared/apperr"
)

const scale = 2

var (
	ErrInvalidCurrency  = apperr.New(apperr.KindValidation, "money: invalid currency code")
	ErrNegativeAmount   = apperr.New(apperr.KindValidation, "money: amount must not be negative")
	ErrInvalidFactor    = apperr.New(apperr.KindValidation, "money: factor must not be negative")
	ErrInvalidDivisor   = apperr.New(apperr.KindValidation, "money: divisor must be positive")
	ErrCurrencyMismatch = apperr.New(apperr.KindCurrencyMismatch, "money: currency mismatch")
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

var hundred = decimal.NewFromInt(100)

// Money is a non-negative amount with exactly two fraction digits bound to an ISO currency.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// New validates the currency and sign, then rounds the amount half-up to cents.
func New(amount decimal.Decimal, currency string) (Money, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if !currencyPattern.MatchString(currency) {
		return Money{}, ErrInvalidCurrency
	}
	if amount.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	return Money{Amount: amount.Round(scale), Currency: currency}, nil
}

// Must creates Money and panics if validation fails; useful in tests and fixtures.
func Must(amount string, currency string) Money {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		panic(err)
	}
	m, err := New(d, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Parse reads a decimal string such as "120.50".
func Parse(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, apperr.Wrap(apperr.KindValidation, "money: invalid amount", err)
	}
	return New(d, currency)
}

func Zero(currency string) Money {
	m, err := New(decimal.Zero, currency)
	if err != nil {
		return Money{Amount: decimal.Zero, Currency: currency}
	}
	return m
}

func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return New(m.Amount.Add(other.Amount), m.Currency)
}

// Sub subtracts other from the receiver; a negative result is rejected.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return New(m.Amount.Sub(other.Amount), m.Currency)
}

func (m Money) Multiply(factor decimal.Decimal) (Money, error) {
	if factor.IsNegative() {
		return Money{}, ErrInvalidFactor
	}
	return New(m.Amount.Mul(factor), m.Currency)
}

func (m Money) MultiplyInt(times int64) (Money, error) {
	return m.Multiply(decimal.NewFromInt(times))
}

func (m Money) Divide(divisor decimal.Decimal) (Money, error) {
	if !divisor.IsPositive() {
		return Money{}, ErrInvalidDivisor
	}
	return New(m.Amount.Div(divisor), m.Currency)
}

// Percentage returns pct percent of the amount, e.g. 50 for half.
func (m Money) Percentage(pct decimal.Decimal) (Money, error) {
	if pct.IsNegative() {
		return Money{}, ErrInvalidFactor
	}
	return m.Multiply(pct.Div(hundred))
}

func (m Money) GreaterThan(other Money) (bool, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return false, err
	}
	return m.Amount.GreaterThan(other.Amount), nil
}

func (m Money) LessThan(other Money) (bool, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return false, err
	}
	return m.Amount.LessThan(other.Amount), nil
}

func (m Money) Equal(other Money) (bool, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return false, err
	}
	return m.Amount.Equal(other.Amount), nil
}

func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

func (m Money) String() string {
	return m.Amount.StringFixed(scale) + " " + m.Currency
}

type wireMoney struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMoney{Amount: m.Amount.StringFixed(scale), Currency: m.Currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var w wireMoney
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Currency == "" {
		*m = Money{}
		return nil
	}
	parsed, err := Parse(w.Amount, w.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency == "" || other.Currency == "" {
		return ErrInvalidCurrency
	}
	if m.Currency != other.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}
