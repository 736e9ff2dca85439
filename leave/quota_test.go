package leave_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/leave-engine/leave"
)

func TestQuota_TenureTiers(t *testing.T) {
	qc := leave.NewQuotaCalculator(false)

	tests := []struct {
		name string
		hire *time.Time
		want int64
	}{
		{"no hire date", nil, 5},
		{"hired last summer", date(2024, 6, 1), 5},
		{"exactly one year", date(2024, 1, 1), 10},
		{"nine years", date(2016, 1, 2), 10},
		{"ten years", date(2015, 1, 1), 15},
		{"twenty years", date(2005, 1, 1), 15},
		{"thirty years", date(1995, 1, 1), 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := qc.Annual(tt.hire, 2025)
			assert.True(t, decimal.NewFromInt(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestQuota_Tenure(t *testing.T) {
	assert.Equal(t, 0, leave.Tenure(*date(2024, 1, 2), 2025))
	assert.Equal(t, 1, leave.Tenure(*date(2024, 1, 1), 2025))
	assert.Equal(t, -1, leave.Tenure(*date(2025, 7, 1), 2025))
}

func TestQuota_ProRated(t *testing.T) {
	qc := leave.NewQuotaCalculator(true)

	// 184 of 365 days at the 5 day tier
	assert.Equal(t, "2.5", qc.ForYear(date(2025, 7, 1), 2025).String())
	assert.True(t, decimal.Zero.Equal(qc.ProRated(date(2026, 2, 1), 2025)))
	assert.True(t, days(10).Equal(qc.ProRated(date(2020, 1, 1), 2025)))
	assert.True(t, days(5).Equal(qc.ProRated(nil, 2025)))

	// the switch off ignores proration
	assert.True(t, days(5).Equal(leave.NewQuotaCalculator(false).ForYear(date(2025, 7, 1), 2025)))
}
