package calendar

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// BUSINESS-DAY DURATION CALCULATOR
// =============================================================================

// Calculator turns a leave span into a count of business days. Every
// qualifying date contributes exactly one day.
type Calculator struct {
	Holidays Reader
}

func NewCalculator(holidays Reader) *Calculator {
	return &Calculator{Holidays: holidays}
}

// Duration counts the business days of the inclusive range [start, end].
// Time-of-day components are ignored.
func (c *Calculator) Duration(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	if start.IsZero() || end.IsZero() {
		return decimal.Zero, generic.Validation("start and end are required")
	}
	period := generic.NewPeriod(start, end)
	if err := period.Validate(); err != nil {
		return decimal.Zero, err
	}

	holidays, err := c.Holidays.GetHolidaysInRange(ctx, period)
	if err != nil {
		return decimal.Zero, err
	}
	byDate := make(map[string]Holiday, len(holidays))
	for _, h := range holidays {
		byDate[h.Date.String()] = h
	}

	days := 0
	for _, day := range period.Days() {
		h, ok := byDate[day.String()]
		if IsBusinessDay(day, holidayPtr(h, ok)) {
			days++
		}
	}
	return decimal.NewFromInt(int64(days)), nil
}

// IsBusinessDay applies the workday rule to one date and the holiday
// recorded on it, if any.
func IsBusinessDay(day generic.TimePoint, h *Holiday) bool {
	if day.IsWeekend() {
		return h != nil && h.IsWorkday
	}
	if h != nil && h.Type.Valid() {
		return false
	}
	return true
}

func holidayPtr(h Holiday, ok bool) *Holiday {
	if !ok {
		return nil
	}
	return &h
}
