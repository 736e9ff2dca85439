package generic_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/generic"
)

func TestTimePoint_DropsTimeOfDay(t *testing.T) {
	tp := generic.DateOf(time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC))

	assert.Equal(t, "2025-03-10", tp.String())
	assert.True(t, tp.Equal(generic.NewTimePoint(2025, time.March, 10)))
	assert.False(t, tp.IsWeekend())
	assert.True(t, tp.AddDays(5).IsWeekend())
}

func TestParseDate(t *testing.T) {
	tp, err := generic.ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, 29, tp.Day())

	_, err = generic.ParseDate("2025-02-29")
	assert.Error(t, err)
}

func TestFullYearsBetween(t *testing.T) {
	hire := generic.NewTimePoint(2015, time.March, 15)

	assert.Equal(t, 9, generic.FullYearsBetween(hire, generic.NewTimePoint(2025, time.March, 14)))
	assert.Equal(t, 10, generic.FullYearsBetween(hire, generic.NewTimePoint(2025, time.March, 15)))
	assert.Equal(t, 366, generic.DaysInYear(2024))
	assert.Equal(t, 365, generic.DaysInYear(2025))
}

func TestPeriod(t *testing.T) {
	p := generic.NewPeriod(
		time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 12, 18, 0, 0, 0, time.UTC),
	)

	require.NoError(t, p.Validate())
	assert.Len(t, p.Days(), 3)
	assert.True(t, p.Contains(generic.NewTimePoint(2025, time.March, 12)))
	assert.True(t, p.Overlaps(generic.Period{
		Start: generic.NewTimePoint(2025, time.March, 12),
		End:   generic.NewTimePoint(2025, time.March, 20),
	}))
	assert.False(t, p.Overlaps(generic.Period{
		Start: generic.NewTimePoint(2025, time.March, 13),
		End:   generic.NewTimePoint(2025, time.March, 20),
	}))

	inverted := generic.Period{Start: p.End, End: p.Start}
	assert.Equal(t, generic.CodeInvalidInput, generic.CodeOf(inverted.Validate()))
}

func TestAppError(t *testing.T) {
	err := errors.Wrap(generic.NotFound("leave request %s not found", "LR1"), "loading")

	appErr := generic.AsAppError(err)
	assert.Equal(t, generic.CodeNotFound, appErr.Code)
	assert.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
	assert.True(t, generic.IsNotFound(err))

	internal := generic.AsAppError(errors.New("database is locked"))
	assert.Equal(t, generic.CodeInternal, internal.Code)
	assert.Equal(t, "an unexpected error occurred", internal.Message)

	insufficient := generic.Insufficient("emp-1", 2025, decimal.NewFromInt(1), decimal.NewFromInt(3))
	assert.Equal(t, http.StatusUnprocessableEntity, insufficient.HTTPStatus)

	base := generic.Conflict("overlap")
	detailed := base.WithDetails(map[string]any{"conflicting_ids": []string{"LR1"}})
	assert.Nil(t, base.Details)
	assert.NotNil(t, detailed.Details)

	assert.True(t, generic.IsRetryable(errors.Wrap(generic.ErrConcurrentModification, "balance")))
	assert.Empty(t, generic.CodeOf(nil))
}
