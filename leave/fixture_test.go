package leave_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/directory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

// =============================================================================
// TEST FIXTURE
// =============================================================================
// Org chart used throughout:
//
//   gm-1 (general_manager)
//   lead-1 leads dept-1
//   mgr-1 manages emp-1 and emp-2
//   emp-1 hired 2020-01-01 (10 days in 2025)
//   emp-2 hired 2024-06-01 (5 days in 2025)

type fixture struct {
	ctx      context.Context
	store    *sqlite.Store
	dir      *directory.Memory
	ledger   *leave.BalanceLedger
	chain    *leave.ApprovalChain
	requests *leave.RequestService
	holidays *calendar.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	dir := directory.NewMemory()
	dir.PutDepartment(leave.Department{ID: "dept-1", Name: "Operations", LeaderID: "lead-1"})
	dir.PutEmployee(leave.Employee{ID: "gm-1", Name: "Gina", Role: leave.DefaultSeniorRole})
	dir.PutEmployee(leave.Employee{ID: "lead-1", Name: "Leo", DepartmentID: "dept-1"})
	dir.PutEmployee(leave.Employee{ID: "mgr-1", Name: "Mia", DepartmentID: "dept-1", ManagerID: "lead-1"})
	dir.PutEmployee(leave.Employee{ID: "emp-1", Name: "Eve", DepartmentID: "dept-1", ManagerID: "mgr-1", HireDate: date(2020, 1, 1)})
	dir.PutEmployee(leave.Employee{ID: "emp-2", Name: "Eli", DepartmentID: "dept-1", ManagerID: "mgr-1", HireDate: date(2024, 6, 1)})

	ledger := leave.NewBalanceLedger(store, dir, leave.NewQuotaCalculator(false))
	chain := leave.NewApprovalChain(dir, "")
	return &fixture{
		ctx:      context.Background(),
		store:    store,
		dir:      dir,
		ledger:   ledger,
		chain:    chain,
		requests: leave.NewRequestService(store, dir, ledger, chain),
		holidays: calendar.NewService(store),
	}
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func at(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func days(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

// annual builds an input from 09:00 on the first day to 18:00 on the last.
func annual(from, to time.Time) leave.RequestInput {
	return leave.RequestInput{
		Type:      leave.TypeAnnual,
		StartTime: from.Add(9 * time.Hour),
		EndTime:   to.Add(18 * time.Hour),
		Reason:    "holiday",
	}
}

// March 2025: the 10th is a Monday.
var (
	mon10 = at(2025, time.March, 10, 0)
	tue11 = at(2025, time.March, 11, 0)
	wed12 = at(2025, time.March, 12, 0)
	fri14 = at(2025, time.March, 14, 0)
	mon17 = at(2025, time.March, 17, 0)
	thu20 = at(2025, time.March, 20, 0)
	mon24 = at(2025, time.March, 24, 0)
	tue25 = at(2025, time.March, 25, 0)
)

func (f *fixture) createAndSubmit(t *testing.T, applicant string, in leave.RequestInput) *leave.Request {
	t.Helper()
	req, err := f.requests.Create(f.ctx, applicant, in)
	require.NoError(t, err)
	req, err = f.requests.Submit(f.ctx, applicant, req.ID)
	require.NoError(t, err)
	return req
}

func (f *fixture) addHoliday(t *testing.T, day time.Time, workday bool) {
	t.Helper()
	_, err := f.holidays.Create(f.ctx, calendar.HolidayInput{
		Date:      generic.DateOf(day),
		Name:      "holiday",
		Type:      calendar.HolidayNational,
		IsWorkday: workday,
	})
	require.NoError(t, err)
}

func (f *fixture) records(t *testing.T, id string) []leave.ApprovalRecord {
	t.Helper()
	records, err := f.store.ListApprovalRecords(f.ctx, id)
	require.NoError(t, err)
	return records
}

func (f *fixture) balance(t *testing.T, employeeID string) *leave.Balance {
	t.Helper()
	b, err := f.store.GetBalance(f.ctx, employeeID, 2025)
	require.NoError(t, err)
	return b
}
