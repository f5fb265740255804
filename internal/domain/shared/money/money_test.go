package money_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shorestay/internal/domain/shared/money"
)

func TestParseDecimal(t *testing.T) {
	m, err := money.ParseDecimal("199.50", "usd")
	require.NoError(t, err)
	assert.Equal(t, int64(19950), m.Amount)
	assert.Equal(t, "USD", m.Currency)

	m, err = money.ParseDecimal("200", "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(20000), m.Amount)

	m, err = money.ParseDecimal("0.5", "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(50), m.Amount)

	_, err = money.ParseDecimal("12.345", "USD")
	assert.ErrorIs(t, err, money.ErrInvalidAmount)

	_, err = money.ParseDecimal("abc", "USD")
	assert.ErrorIs(t, err, money.ErrInvalidAmount)

	_, err = money.ParseDecimal("1.-5", "USD")
	assert.ErrorIs(t, err, money.ErrInvalidAmount)

	_, err = money.ParseDecimal("1.-55", "USD")
	assert.ErrorIs(t, err, money.ErrInvalidAmount)

	_, err = money.ParseDecimal("92233720368547759.00", "USD")
	assert.ErrorIs(t, err, money.ErrInvalidAmount)

	_, err = money.ParseDecimal("10.00", "US")
	assert.ErrorIs(t, err, money.ErrInvalidCurrency)
}

func TestDecimalRoundTrip(t *testing.T) {
	assert.Equal(t, "199.50", money.Must(19950, "USD").Decimal())
	assert.Equal(t, "0.05", money.Must(5, "USD").Decimal())
	assert.Equal(t, "-3.25", money.Must(-325, "USD").Decimal())
}

func TestAddRequiresSameCurrency(t *testing.T) {
	sum, err := money.Must(1000, "USD").Add(money.Must(250, "USD"))
	require.NoError(t, err)
	assert.Equal(t, money.Must(1250, "USD"), sum)

	_, err = money.Must(1000, "USD").Add(money.Must(250, "EUR"))
	assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
}

func TestMultiply(t *testing.T) {
	total := money.Must(18500, "USD").Multiply(3)
	assert.Equal(t, money.Must(55500, "USD"), total)
}
