package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-share-backend/internal/apperr"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

func TestCalculate(t *testing.T) {
	five := decimal.NewFromInt(5)
	thirty := decimal.NewFromInt(30)

	testCases := []struct {
		name               string
		start, end         string
		expectedHours      int64
		expectedDays       int64
		expectedRemaining  int64
		expectedBase       string
		expectedCommission string
		expectedFinal      string
	}{
		{
			name:  "Two hours uses hourly rate only",
			start: "2025-07-28T10:00:00Z", end: "2025-07-28T12:00:00Z",
			expectedHours: 2, expectedDays: 0, expectedRemaining: 2,
			expectedBase: "10", expectedCommission: "1", expectedFinal: "11",
		},
		{
			name:  "Exactly one day",
			start: "2025-07-28T10:00:00Z", end: "2025-07-29T10:00:00Z",
			expectedHours: 24, expectedDays: 1, expectedRemaining: 0,
			expectedBase: "30", expectedCommission: "3", expectedFinal: "33",
		},
		{
			name:  "23h59m rounds up to one full day",
			start: "2025-07-28T10:00:00Z", end: "2025-07-29T09:59:00Z",
			expectedHours: 24, expectedDays: 1, expectedRemaining: 0,
			expectedBase: "30", expectedCommission: "3", expectedFinal: "33",
		},
		{
			name:  "Partial hour rounds up",
			start: "2025-07-28T10:00:00Z", end: "2025-07-28T10:01:00Z",
			expectedHours: 1, expectedDays: 0, expectedRemaining: 1,
			expectedBase: "5", expectedCommission: "0.5", expectedFinal: "5.5",
		},
		{
			name:  "Day plus three hours",
			start: "2025-07-28T10:00:00Z", end: "2025-07-29T13:00:00Z",
			expectedHours: 27, expectedDays: 1, expectedRemaining: 3,
			expectedBase: "45", expectedCommission: "4.5", expectedFinal: "49.5",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			quote, err := Calculate(mustTime(t, tc.start), mustTime(t, tc.end), five, thirty)
			require.NoError(t, err)

			assert.Equal(t, tc.expectedHours, quote.Hours)
			assert.Equal(t, tc.expectedDays, quote.Days)
			assert.Equal(t, tc.expectedRemaining, quote.RemainingHours)
			assert.True(t, decimal.RequireFromString(tc.expectedBase).Equal(quote.BasePrice), "base %s", quote.BasePrice)
			assert.True(t, decimal.RequireFromString(tc.expectedCommission).Equal(quote.Commission), "commission %s", quote.Commission)
			assert.True(t, decimal.RequireFromString(tc.expectedFinal).Equal(quote.FinalPrice), "final %s", quote.FinalPrice)
		})
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	start := mustTime(t, "2025-07-28T08:15:00Z")
	end := mustTime(t, "2025-08-02T19:40:00Z")
	hourly := decimal.RequireFromString("7.35")
	daily := decimal.RequireFromString("41.90")

	first, err := Calculate(start, end, hourly, daily)
	require.NoError(t, err)
	second, err := Calculate(start, end, hourly, daily)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCalculate_CommissionInvariant(t *testing.T) {
	start := mustTime(t, "2025-01-01T00:00:00Z")
	tolerance := decimal.RequireFromString("0.005")
	rates := []struct{ hourly, daily string }{
		{"5", "30"}, {"3.33", "17.77"}, {"12.01", "99.99"}, {"0.01", "0.07"},
	}

	for _, r := range rates {
		for minutes := 1; minutes <= 60*24*3; minutes += 37 {
			end := start.Add(time.Duration(minutes) * time.Minute)
			quote, err := Calculate(start, end, decimal.RequireFromString(r.hourly), decimal.RequireFromString(r.daily))
			require.NoError(t, err)

			expected := quote.BasePrice.Mul(decimal.RequireFromString("1.10"))
			assert.True(t, quote.FinalPrice.Sub(expected).Abs().LessThanOrEqual(tolerance),
				"final %s expected %s", quote.FinalPrice, expected)
			assert.Equal(t, quote.Hours, quote.Days*24+quote.RemainingHours)
		}
	}
}

func TestCalculate_Preconditions(t *testing.T) {
	start := mustTime(t, "2025-07-28T10:00:00Z")
	one := decimal.NewFromInt(1)

	_, err := Calculate(start, start, one, one)
	assert.True(t, errors.Is(err, apperr.ErrInvalidDateRange))

	_, err = Calculate(start, start.Add(-time.Hour), one, one)
	assert.True(t, errors.Is(err, apperr.ErrInvalidDateRange))

	_, err = Calculate(start, start.Add(time.Hour), decimal.Zero, one)
	assert.True(t, errors.Is(err, apperr.ErrInvalidRate))

	_, err = Calculate(start, start.Add(time.Hour), one, decimal.NewFromInt(-3))
	assert.True(t, errors.Is(err, apperr.ErrInvalidRate))
}

func TestBillableHours(t *testing.T) {
	assert.Equal(t, int64(0), BillableHours(0))
	assert.Equal(t, int64(1), BillableHours(time.Second))
	assert.Equal(t, int64(1), BillableHours(time.Hour))
	assert.Equal(t, int64(2), BillableHours(time.Hour+time.Nanosecond))
}
