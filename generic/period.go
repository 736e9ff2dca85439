package generic

import "time"

// =============================================================================
// PERIOD - Inclusive range of calendar dates
// =============================================================================

// Period is the closed date range [Start, End]. Leave spans, holiday range
// queries and list filters are all expressed as periods.
type Period struct {
	Start TimePoint
	End   TimePoint
}

// NewPeriod drops the time-of-day of both bounds.
func NewPeriod(start, end time.Time) Period {
	return Period{Start: DateOf(start), End: DateOf(end)}
}

// Validate rejects missing bounds and inverted ranges.
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return Validation("start and end dates are required")
	}
	if p.Start.After(p.End) {
		return Validation("start date %s is after end date %s", p.Start, p.End)
	}
	return nil
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Overlaps is true when the two closed ranges share at least one date.
func (p Period) Overlaps(other Period) bool {
	return !(p.End.Before(other.Start) || p.Start.After(other.End))
}

// Days returns all days in the period as a slice of TimePoints.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	current := p.Start
	for current.BeforeOrEqual(p.End) {
		days = append(days, current)
		current = current.AddDays(1)
	}
	return days
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
