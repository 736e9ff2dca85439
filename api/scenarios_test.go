/*
scenarios_test.go - Tests for the demo data loaders

Each loader must leave the directory and calendar usable by the approval
chain, and loading twice must not fail or duplicate anything.
*/
package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/generic"
)

func TestScenario_OrgChartResolvesFullChain(t *testing.T) {
	// GIVEN: the org chart loaded (newTestServer loads it)
	s := newTestServer(t)
	ctx := context.Background()

	// WHEN: resolving Alex's approvers
	alex, err := s.handler.Store.GetEmployee(ctx, "emp-alex")
	require.NoError(t, err)
	require.NotNil(t, alex)

	gm, err := s.handler.Store.FindEmployeeByRole(ctx, "general_manager")
	require.NoError(t, err)
	require.NotNil(t, gm)
	dept, err := s.handler.Store.GetDepartment(ctx, alex.DepartmentID)
	require.NoError(t, err)

	// THEN: manager, department leader and general manager are all distinct
	assert.Equal(t, "emp-mgr", alex.ManagerID)
	assert.Equal(t, "emp-lead", dept.LeaderID)
	assert.Equal(t, "emp-gm", gm.ID)
}

func TestScenario_HolidayCalendarIsIdempotent(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, s.handler.loadHolidayCalendar(ctx, 2025))
	require.NoError(t, s.handler.loadHolidayCalendar(ctx, 2025))

	list, err := s.handler.Holidays.List(ctx, 2025)
	require.NoError(t, err)
	assert.Len(t, list, 6)

	// 2025-10-04 is the first Saturday of October
	makeUp, err := s.handler.Store.GetHolidayOnDate(ctx, generic.NewTimePoint(2025, time.October, 4))
	require.NoError(t, err)
	require.NotNil(t, makeUp)
	assert.True(t, makeUp.IsWorkday)
}

func TestScenario_LoadOverHTTP(t *testing.T) {
	s := newTestServer(t)

	rec := s.as("emp-alex", http.MethodGet, "/api/scenarios", nil)
	requireError(t, rec, http.StatusForbidden, generic.CodeForbidden)

	rec = s.asAdmin(http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]ScenarioDTO](t, rec), 2)

	rec = s.asAdmin(http.MethodPost, "/api/scenarios/load", map[string]any{"scenario_id": "org-chart"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.asAdmin(http.MethodPost, "/api/scenarios/load", map[string]any{"scenario_id": "unknown"})
	requireError(t, rec, http.StatusBadRequest, generic.CodeInvalidInput)
}
