/*
scenarios.go - Demo data loaders for development and demonstrations

PURPOSE:

	Populates the directory mirror and the holiday calendar with a small,
	realistic data set so the approval chain can be exercised end to end
	without an HR system feeding the directory endpoints.

AVAILABLE SCENARIOS:

	org-chart:         one department with a leader, a manager, two
	                   employees and a general manager
	holiday-calendar:  national holidays and one make-up workday for the
	                   current year

HOW SCENARIOS WORK:
 1. Upsert departments and employees (org-chart)
 2. Create holidays, skipping dates that already have one (holiday-calendar)

Loading is idempotent: running a scenario twice leaves the same data.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "org-chart"}

SEE ALSO:
  - directory.go: Directory sync endpoints
  - holidays.go: Holiday endpoints
*/
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes one loadable data set.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioBody struct {
	ScenarioID string `json:"scenario_id" validate:"required,oneof=org-chart holiday-calendar"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "org-chart",
		Name:        "Org Chart",
		Description: "Engineering department with manager, leader and general manager",
	},
	{
		ID:          "holiday-calendar",
		Name:        "Holiday Calendar",
		Description: "National holidays of the current year plus a make-up workday",
	},
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario loads one scenario by id.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var body LoadScenarioBody
	if err := decodeBody(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	var err error
	switch body.ScenarioID {
	case "org-chart":
		err = h.loadOrgChart(r.Context())
	case "holiday-calendar":
		err = h.loadHolidayCalendar(r.Context(), time.Now().Year())
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.WithField("scenario", body.ScenarioID).Info("scenario loaded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario_id": body.ScenarioID})
}

// =============================================================================
// LOADERS
// =============================================================================

func (h *Handler) loadOrgChart(ctx context.Context) error {
	hired := func(year int, month time.Month, day int) *time.Time {
		t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		return &t
	}

	dept := leave.Department{ID: "dept-eng", Name: "Engineering", LeaderID: "emp-lead"}
	if err := h.Store.SaveDepartment(ctx, dept); err != nil {
		return err
	}

	employees := []leave.Employee{
		{ID: "emp-gm", Name: "Grace Moreau", DepartmentID: "dept-eng", HireDate: hired(2008, time.March, 3), Role: "general_manager"},
		{ID: "emp-lead", Name: "Lin Okafor", ManagerID: "emp-gm", DepartmentID: "dept-eng", HireDate: hired(2012, time.September, 17)},
		{ID: "emp-mgr", Name: "Marta Silva", ManagerID: "emp-lead", DepartmentID: "dept-eng", HireDate: hired(2016, time.January, 11)},
		{ID: "emp-alex", Name: "Alex Chen", ManagerID: "emp-mgr", DepartmentID: "dept-eng", HireDate: hired(2019, time.June, 1)},
		{ID: "emp-sam", Name: "Sam Patel", ManagerID: "emp-mgr", DepartmentID: "dept-eng", HireDate: hired(time.Now().Year()-1, time.October, 1)},
	}
	for _, e := range employees {
		if err := h.Store.SaveEmployee(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadHolidayCalendar(ctx context.Context, year int) error {
	holidays := []calendar.HolidayInput{
		{Date: generic.NewTimePoint(year, time.January, 1), Name: "New Year's Day", Type: calendar.HolidayNational},
		{Date: generic.NewTimePoint(year, time.May, 1), Name: "Labour Day", Type: calendar.HolidayNational},
		{Date: generic.NewTimePoint(year, time.October, 1), Name: "National Day", Type: calendar.HolidayNational},
		{Date: generic.NewTimePoint(year, time.December, 25), Name: "Christmas Day", Type: calendar.HolidayNational},
		{Date: generic.NewTimePoint(year, time.December, 31), Name: "Year-end closing", Type: calendar.HolidayCompany},
	}
	// first Saturday of October becomes a working day
	makeUp := generic.NewTimePoint(year, time.October, 1)
	for makeUp.Weekday() != time.Saturday {
		makeUp = makeUp.AddDays(1)
	}
	holidays = append(holidays, calendar.HolidayInput{
		Date: makeUp, Name: "National Day make-up workday", Type: calendar.HolidayNational, IsWorkday: true,
	})

	for _, in := range holidays {
		_, err := h.Holidays.Create(ctx, in)
		if generic.CodeOf(err) == generic.CodeConflict {
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "failed to load holiday %s", in.Date)
		}
	}
	return nil
}
