package calendar_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/store/sqlite"
)

func newService(t *testing.T) *calendar.Service {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return calendar.NewService(store)
}

func TestService_CRUD(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	// GIVEN: a company holiday
	h, err := svc.Create(ctx, calendar.HolidayInput{
		Date: generic.NewTimePoint(2025, time.June, 2),
		Name: "  Founders day ",
		Type: calendar.HolidayCompany,
	})
	require.NoError(t, err)
	assert.Equal(t, "Founders day", h.Name)
	assert.Equal(t, 2025, h.Year)

	// WHEN: it moves to another day
	moved, err := svc.Update(ctx, h.ID, calendar.HolidayInput{
		Date: generic.NewTimePoint(2025, time.June, 3),
		Name: "Founders day",
		Type: calendar.HolidayCompany,
	})
	require.NoError(t, err)

	// THEN: list and range see the new date
	assert.Equal(t, "2025-06-03", moved.Date.String())
	list, err := svc.List(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, list, 1)
	inRange, err := svc.Range(ctx, generic.Period{
		Start: generic.NewTimePoint(2025, time.June, 1),
		End:   generic.NewTimePoint(2025, time.June, 30),
	})
	require.NoError(t, err)
	assert.Len(t, inRange, 1)

	require.NoError(t, svc.Delete(ctx, h.ID))
	_, err = svc.Get(ctx, h.ID)
	assert.Equal(t, generic.CodeNotFound, generic.CodeOf(err))
}

func TestService_OneHolidayPerDate(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	in := calendar.HolidayInput{Date: generic.NewTimePoint(2025, time.May, 1), Name: "Labour day", Type: calendar.HolidayNational}

	first, err := svc.Create(ctx, in)
	require.NoError(t, err)
	_, err = svc.Create(ctx, in)
	assert.Equal(t, generic.CodeConflict, generic.CodeOf(err))

	// re-saving on its own date is fine
	_, err = svc.Update(ctx, first.ID, in)
	assert.NoError(t, err)
}

func TestService_Validation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   calendar.HolidayInput
	}{
		{"no date", calendar.HolidayInput{Name: "x", Type: calendar.HolidayNational}},
		{"no name", calendar.HolidayInput{Date: generic.NewTimePoint(2025, time.May, 1), Type: calendar.HolidayNational}},
		{"bad type", calendar.HolidayInput{Date: generic.NewTimePoint(2025, time.May, 1), Name: "x", Type: "religious"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in)
			assert.Equal(t, generic.CodeInvalidInput, generic.CodeOf(err))
		})
	}

	_, err := svc.Range(ctx, generic.Period{
		Start: generic.NewTimePoint(2025, time.June, 30),
		End:   generic.NewTimePoint(2025, time.June, 1),
	})
	assert.Equal(t, generic.CodeInvalidInput, generic.CodeOf(err))
}
