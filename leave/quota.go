/*
quota.go - Annual leave entitlement by tenure

PURPOSE:
  Turns a hire date into the number of annual-leave days granted for a
  calendar year. Tenure is counted in whole years up to 1 January of that
  year.

TIERS:
  tenure < 1          5 days
  1  <= tenure < 10  10 days
  10 <= tenure < 20  15 days
  tenure >= 20       15 days (ceiling)
  unknown hire date   5 days

PRORATION:
  ProRated scales the full-year quota by the share of the year the
  employee is actually employed, rounded to one decimal:
  - Hired 1 July 2025, quota 5: 184/365 * 5 = 2.5 days for 2025
  - Hired after the year: 0
  - Hired before the year: full quota

SEE ALSO:
  - ledger.go: seeds new balance rows from the calculator
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

// TenureTier grants AnnualDays once tenure reaches AfterYears.
type TenureTier struct {
	AfterYears int
	AnnualDays decimal.Decimal
}

// DefaultTenureTiers are ordered by AfterYears ascending.
var DefaultTenureTiers = []TenureTier{
	{AfterYears: 0, AnnualDays: decimal.NewFromInt(5)},
	{AfterYears: 1, AnnualDays: decimal.NewFromInt(10)},
	{AfterYears: 10, AnnualDays: decimal.NewFromInt(15)},
	{AfterYears: 20, AnnualDays: decimal.NewFromInt(15)},
}

// DefaultQuota applies when the hire date is unknown.
var DefaultQuota = decimal.NewFromInt(5)

type QuotaCalculator struct {
	Tiers    []TenureTier
	ProRate  bool // seed first-year balances with ProRated
	Fallback decimal.Decimal
}

func NewQuotaCalculator(proRate bool) *QuotaCalculator {
	return &QuotaCalculator{Tiers: DefaultTenureTiers, ProRate: proRate, Fallback: DefaultQuota}
}

// Tenure counts whole years of service at 1 January of year.
func Tenure(hireDate time.Time, year int) int {
	return generic.FullYearsBetween(generic.DateOf(hireDate), generic.StartOfYear(year))
}

// Annual returns the full-year entitlement for year.
func (qc *QuotaCalculator) Annual(hireDate *time.Time, year int) decimal.Decimal {
	if hireDate == nil || hireDate.IsZero() {
		return qc.Fallback
	}
	tenure := Tenure(*hireDate, year)
	days := qc.Fallback
	for _, tier := range qc.Tiers {
		if tenure >= tier.AfterYears {
			days = tier.AnnualDays
		}
	}
	return days
}

// ProRated scales Annual by the fraction of year worked.
func (qc *QuotaCalculator) ProRated(hireDate *time.Time, year int) decimal.Decimal {
	full := qc.Annual(hireDate, year)
	if hireDate == nil || hireDate.IsZero() {
		return full
	}

	hire := generic.DateOf(*hireDate)
	yearStart, yearEnd := generic.StartOfYear(year), generic.EndOfYear(year)
	switch {
	case hire.After(yearEnd):
		return decimal.Zero
	case !hire.After(yearStart):
		return full
	}

	worked := decimal.NewFromInt(int64(generic.DaysBetween(hire, yearEnd) + 1))
	total := decimal.NewFromInt(int64(generic.DaysInYear(year)))
	return full.Mul(worked).Div(total).Round(1)
}

// ForYear is the quota a new balance row is seeded with.
func (qc *QuotaCalculator) ForYear(hireDate *time.Time, year int) decimal.Decimal {
	if qc.ProRate {
		return qc.ProRated(hireDate, year)
	}
	return qc.Annual(hireDate, year)
}
