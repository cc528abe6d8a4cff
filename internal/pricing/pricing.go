// Package pricing computes the two-tier price of a booking.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"parking-share-backend/internal/apperr"
)

// CommissionRate is the platform fee added on top of the base price.
var CommissionRate = decimal.RequireFromString("0.10")

// Quote is the breakdown of a booking price.
type Quote struct {
	Hours          int64           `json:"hours"`
	Days           int64           `json:"days"`
	RemainingHours int64           `json:"remaining_hours"`
	HourlyRate     decimal.Decimal `json:"hourly_rate"`
	DailyRate      decimal.Decimal `json:"daily_rate"`
	BasePrice      decimal.Decimal `json:"base_price"`
	Commission     decimal.Decimal `json:"commission"`
	FinalPrice     decimal.Decimal `json:"final_price"`
}

// BillableHours rounds a duration up to whole hours.
func BillableHours(d time.Duration) int64 {
	hours := int64(d / time.Hour)
	if d%time.Hour != 0 {
		hours++
	}
	return hours
}

// Calculate prices the range [start, end) at the given rates. Every full day
// is charged the daily rate and the remaining hours the hourly rate.
func Calculate(start, end time.Time, hourlyRate, dailyRate decimal.Decimal) (Quote, error) {
	if !end.After(start) {
		return Quote{}, apperr.ErrInvalidDateRange
	}
	if !hourlyRate.IsPositive() || !dailyRate.IsPositive() {
		return Quote{}, apperr.ErrInvalidRate
	}

	hours := BillableHours(end.Sub(start))
	days := hours / 24
	remaining := hours % 24

	base := dailyRate.Mul(decimal.NewFromInt(days)).
		Add(hourlyRate.Mul(decimal.NewFromInt(remaining)))
	commission := base.Mul(CommissionRate).Round(2)

	return Quote{
		Hours:          hours,
		Days:           days,
		RemainingHours: remaining,
		HourlyRate:     hourlyRate,
		DailyRate:      dailyRate,
		BasePrice:      base,
		Commission:     commission,
		FinalPrice:     base.Add(commission),
	}, nil
}
