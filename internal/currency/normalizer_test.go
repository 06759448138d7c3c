package currency

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/ocr-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRates struct {
	mock.Mock
}

func (m *mockRates) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func TestNormalizer_ConvertsForeignAmounts(t *testing.T) {
	rates := new(mockRates)
	rates.On("Rate", mock.Anything, "SEK", "EUR").Return(decimal.RequireFromString("0.086"), nil).Once()

	n := NewNormalizer(rates, "")
	results := n.Normalize(context.Background(), []domain.Transaction{
		{Time: "22 August 2025 at 13:11", Amount: "742.52", Currency: "sek", Purpose: "Uber Eats"},
	})

	require.Len(t, results, 1)
	assert.True(t, results[0].Converted)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 63.86, results[0].Transaction.Amount)
	assert.Equal(t, "EUR", results[0].Transaction.Currency)
	assert.Empty(t, results[0].Transaction.ConversionError)
	rates.AssertExpectations(t)
}

func TestNormalizer_SkipsNonCandidates(t *testing.T) {
	rates := new(mockRates)
	n := NewNormalizer(rates, "EUR")

	in := []domain.Transaction{
		{Amount: "12.00", Currency: "eur"},
		{Amount: "12.00"},
		{Currency: "SEK"},
		{Amount: "", Currency: "SEK"},
		{Amount: 0.0, Currency: "SEK"},
	}
	results := n.Normalize(context.Background(), in)

	require.Len(t, results, len(in))
	for i, r := range results {
		assert.False(t, r.Converted, "record %d", i)
		assert.Equal(t, in[i], r.Transaction, "record %d", i)
	}
	rates.AssertNotCalled(t, "Rate", mock.Anything, mock.Anything, mock.Anything)
}

func TestNormalizer_IsIdempotent(t *testing.T) {
	rates := new(mockRates)
	rates.On("Rate", mock.Anything, "USD", "EUR").Return(decimal.RequireFromString("0.9"), nil).Once()

	n := NewNormalizer(rates, "EUR")
	txs := []domain.Transaction{{Amount: 10.0, Currency: "USD"}}

	Apply(txs, n.Normalize(context.Background(), txs))
	first := txs[0]

	Apply(txs, n.Normalize(context.Background(), txs))
	assert.Equal(t, first, txs[0])
	rates.AssertExpectations(t)
}

func TestNormalizer_FailureIsolation(t *testing.T) {
	rates := new(mockRates)
	rates.On("Rate", mock.Anything, "SEK", "EUR").Return(decimal.RequireFromString("0.1"), nil)
	rates.On("Rate", mock.Anything, "XXX", "EUR").
		Return(decimal.Zero, &domain.RateLookupError{From: "XXX", To: "EUR", StatusCode: 422, Reason: "bad currency"})

	n := NewNormalizer(rates, "EUR")
	txs := []domain.Transaction{
		{Amount: "100", Currency: "SEK", Purpose: "first"},
		{Amount: "50", Currency: "XXX", Purpose: "second"},
		{Amount: "abc", Currency: "SEK", Purpose: "third"},
		{Amount: "20", Currency: "SEK", Purpose: "fourth"},
	}

	results := n.Normalize(context.Background(), txs)
	converted, failed := Apply(txs, results)

	assert.Equal(t, 2, converted)
	assert.Equal(t, 2, failed)

	assert.Equal(t, 10.0, txs[0].Amount)
	assert.Equal(t, "EUR", txs[0].Currency)

	assert.Equal(t, "50", txs[1].Amount)
	assert.Equal(t, "XXX", txs[1].Currency)
	assert.Equal(t, "Currency API error 422: bad currency", txs[1].ConversionError)

	assert.Equal(t, "abc", txs[2].Amount)
	assert.Equal(t, "SEK", txs[2].Currency)
	assert.Equal(t, "Invalid amount: abc", txs[2].ConversionError)
	var amountErr *domain.InvalidAmountError
	assert.True(t, errors.As(results[2].Err, &amountErr))

	assert.Equal(t, 2.0, txs[3].Amount)
	assert.Equal(t, "EUR", txs[3].Currency)
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name   string
		amount any
		rate   string
		want   string
	}{
		{"rounds to cents", "742.52 SEK", "0.086", "63.86"},
		{"half away from zero", 0.25, "0.5", "0.13"},
		{"negative half away from zero", -0.25, "0.5", "-0.13"},
		{"unit rate keeps precision", "10.005", "1", "10.005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.amount, decimal.RequireFromString(tt.rate))
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestConvert_RoundTrip(t *testing.T) {
	there, err := Convert(123.45, decimal.RequireFromString("1.25"))
	require.NoError(t, err)

	back, err := Convert(there, decimal.RequireFromString("0.8"))
	require.NoError(t, err)

	diff := back.Sub(decimal.RequireFromString("123.45")).Abs()
	assert.True(t, diff.LessThanOrEqual(decimal.RequireFromString("0.01")), "round trip drifted by %s", diff)
}
