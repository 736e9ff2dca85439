package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleRequest(id, applicant string, start, end time.Time, status leave.Status) leave.Request {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return leave.Request{
		ID:          id,
		ApplicantID: applicant,
		Type:        leave.TypeAnnual,
		StartTime:   start,
		EndTime:     end,
		Duration:    decimal.NewFromInt(2),
		Reason:      "family trip",
		Attachments: []string{"ticket.pdf"},
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// =============================================================================
// REQUESTS
// =============================================================================

func TestRequest_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// GIVEN: a stored request
	r := sampleRequest("LR202503010001", "emp-1", day(2025, 3, 10), day(2025, 3, 11), leave.StatusDraft)
	r.DepartmentID = "dept-1"
	require.NoError(t, store.InsertRequest(ctx, r))

	// WHEN: reading it back
	got, err := store.GetRequest(ctx, r.ID)

	// THEN: every field survives
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, r.ApplicantID, got.ApplicantID)
	assert.Equal(t, "dept-1", got.DepartmentID)
	assert.True(t, r.Duration.Equal(got.Duration))
	assert.Equal(t, []string{"ticket.pdf"}, got.Attachments)
	assert.Equal(t, r.StartTime, got.StartTime)
	assert.Equal(t, leave.StatusDraft, got.Status)
}

func TestGetRequest_MissingReturnsNil(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetRequest(context.Background(), "nope")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNextRequestSequence_NeverReuses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.NextRequestSequence(ctx, "LR20250301")
	require.NoError(t, err)
	second, err := store.NextRequestSequence(ctx, "LR20250301")
	require.NoError(t, err)
	other, err := store.NextRequestSequence(ctx, "LR20250302")
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
	assert.Equal(t, 1, other)
}

func TestFindOverlapping_IgnoresClosedRequests(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// GIVEN: one pending, one rejected and one cancelled request on the same days
	require.NoError(t, store.InsertRequest(ctx, sampleRequest("LR1", "emp-1", day(2025, 3, 10), day(2025, 3, 12), leave.StatusPending)))
	require.NoError(t, store.InsertRequest(ctx, sampleRequest("LR2", "emp-1", day(2025, 3, 10), day(2025, 3, 12), leave.StatusRejected)))
	require.NoError(t, store.InsertRequest(ctx, sampleRequest("LR3", "emp-1", day(2025, 3, 10), day(2025, 3, 12), leave.StatusCancelled)))
	require.NoError(t, store.InsertRequest(ctx, sampleRequest("LR4", "emp-2", day(2025, 3, 10), day(2025, 3, 12), leave.StatusPending)))

	// WHEN: checking a range touching the last day
	found, err := store.FindOverlapping(ctx, "emp-1", day(2025, 3, 12), day(2025, 3, 14), "LR9")

	// THEN: only the blocking request of the same applicant matches
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "LR1", found[0].ID)

	// AND: excluding itself yields nothing
	found, err = store.FindOverlapping(ctx, "emp-1", day(2025, 3, 12), day(2025, 3, 14), "LR1")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestListRequests_FiltersAndPages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"LR1", "LR2", "LR3"} {
		r := sampleRequest(id, "emp-1", day(2025, 3, 10+i*7), day(2025, 3, 11+i*7), leave.StatusDraft)
		r.CreatedAt = r.CreatedAt.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.InsertRequest(ctx, r))
	}
	sick := sampleRequest("LR4", "emp-2", day(2025, 4, 1), day(2025, 4, 1), leave.StatusPending)
	sick.Type = leave.TypeSick
	sick.Reason = "flu"
	require.NoError(t, store.InsertRequest(ctx, sick))

	t.Run("by applicant, newest first", func(t *testing.T) {
		items, total, err := store.ListRequests(ctx, leave.RequestFilter{
			ApplicantID: "emp-1",
			Pagination:  leave.Pagination{Page: 1, Size: 2},
		})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, items, 2)
		assert.Equal(t, "LR3", items[0].ID)
	})

	t.Run("by type and keyword", func(t *testing.T) {
		items, total, err := store.ListRequests(ctx, leave.RequestFilter{
			Type:       leave.TypeSick,
			Keyword:    "flu",
			Pagination: leave.Pagination{Page: 1, Size: 10},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, "LR4", items[0].ID)
	})

	t.Run("by overlapping date range", func(t *testing.T) {
		from := generic.NewTimePoint(2025, time.March, 11)
		to := generic.NewTimePoint(2025, time.March, 17)
		items, total, err := store.ListRequests(ctx, leave.RequestFilter{
			From:       &from,
			To:         &to,
			Pagination: leave.Pagination{Page: 1, Size: 10},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, items, 2)
	})
}

func TestListRequests_KeywordWildcardsMatchLiterally(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	discount := sampleRequest("LR1", "emp-1", day(2025, 3, 10), day(2025, 3, 10), leave.StatusDraft)
	discount.Reason = "50% off trip"
	plain := sampleRequest("LR2", "emp-1", day(2025, 3, 17), day(2025, 3, 17), leave.StatusDraft)
	plain.Reason = "family_visit"
	other := sampleRequest("LR3", "emp-1", day(2025, 3, 24), day(2025, 3, 24), leave.StatusDraft)
	other.Reason = "familyXvisit"
	for _, r := range []leave.Request{discount, plain, other} {
		require.NoError(t, store.InsertRequest(ctx, r))
	}

	cases := []struct {
		keyword string
		want    []string
	}{
		{"%", []string{"LR1"}},
		{"family_visit", []string{"LR2"}},
		{"_", []string{"LR2"}},
		{`\`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.keyword, func(t *testing.T) {
			items, total, err := store.ListRequests(ctx, leave.RequestFilter{
				Keyword:    tc.keyword,
				Pagination: leave.Pagination{Page: 1, Size: 10},
			})
			require.NoError(t, err)
			assert.Equal(t, len(tc.want), total)
			ids := make([]string, 0, len(items))
			for _, r := range items {
				ids = append(ids, r.ID)
			}
			assert.ElementsMatch(t, tc.want, ids)
		})
	}
}

// =============================================================================
// APPROVAL RECORDS
// =============================================================================

func TestCompleteApproval_OnlyOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertRequest(ctx, sampleRequest("LR1", "emp-1", day(2025, 3, 10), day(2025, 3, 11), leave.StatusPending)))
	require.NoError(t, store.InsertApprovalRecords(ctx, []leave.ApprovalRecord{
		{ID: "ar-1", RequestID: "LR1", Level: 1, ApproverID: "mgr", Status: leave.ApprovalPending, CreatedAt: day(2025, 3, 1)},
	}))

	// WHEN: two decisions race on the same record
	first, err := store.CompleteApproval(ctx, "ar-1", leave.ApprovalApproved, "ok", day(2025, 3, 2))
	require.NoError(t, err)
	second, err := store.CompleteApproval(ctx, "ar-1", leave.ApprovalRejected, "no", day(2025, 3, 2))
	require.NoError(t, err)

	// THEN: only the first one lands
	assert.True(t, first)
	assert.False(t, second)

	rec, err := store.GetApprovalRecord(ctx, "LR1", 1)
	require.NoError(t, err)
	assert.Equal(t, leave.ApprovalApproved, rec.Status)
	require.NotNil(t, rec.DecidedAt)
	assert.Equal(t, "ok", rec.Opinion)
}

func TestListApprovalTasks_PendingOnlyAtCurrentLevel(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r := sampleRequest("LR1", "emp-1", day(2025, 3, 10), day(2025, 3, 20), leave.StatusPending)
	r.CurrentApprovalLevel = 1
	require.NoError(t, store.InsertRequest(ctx, r))
	require.NoError(t, store.InsertApprovalRecords(ctx, []leave.ApprovalRecord{
		{ID: "ar-1", RequestID: "LR1", Level: 1, ApproverID: "mgr", Status: leave.ApprovalPending, CreatedAt: day(2025, 3, 1)},
		{ID: "ar-2", RequestID: "LR1", Level: 2, ApproverID: "lead", Status: leave.ApprovalWaiting, CreatedAt: day(2025, 3, 1)},
	}))

	page := leave.Pagination{Page: 1, Size: 10}

	mgrTasks, total, err := store.ListApprovalTasks(ctx, leave.TaskFilter{ApproverID: "mgr", Pagination: page})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, mgrTasks, 1)
	assert.Equal(t, "LR1", mgrTasks[0].Request.ID)
	assert.Equal(t, 1, mgrTasks[0].Record.Level)

	// level 2 is not due yet
	leadTasks, total, err := store.ListApprovalTasks(ctx, leave.TaskFilter{ApproverID: "lead", Pagination: page})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, leadTasks)

	_, err = store.CompleteApproval(ctx, "ar-1", leave.ApprovalApproved, "", day(2025, 3, 2))
	require.NoError(t, err)
	decided, total, err := store.ListApprovalTasks(ctx, leave.TaskFilter{ApproverID: "mgr", Decided: true, Pagination: page})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, leave.ApprovalApproved, decided[0].Record.Status)

	// WHEN: the chain advances to level 2
	activated, err := store.ActivateApproval(ctx, "LR1", 2)
	require.NoError(t, err)
	assert.True(t, activated)
	again, err := store.ActivateApproval(ctx, "LR1", 2)
	require.NoError(t, err)
	assert.False(t, again)

	r.CurrentApprovalLevel = 2
	r.Status = leave.StatusApproving
	require.NoError(t, store.UpdateRequest(ctx, r))

	// THEN: the leader now sees it
	leadTasks, total, err = store.ListApprovalTasks(ctx, leave.TaskFilter{ApproverID: "lead", Pagination: page})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 2, leadTasks[0].Record.Level)
}

func TestDeleteRequest_CascadesApprovalRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertRequest(ctx, sampleRequest("LR1", "emp-1", day(2025, 3, 10), day(2025, 3, 11), leave.StatusDraft)))
	require.NoError(t, store.InsertApprovalRecords(ctx, []leave.ApprovalRecord{
		{ID: "ar-1", RequestID: "LR1", Level: 1, Status: leave.ApprovalPending, CreatedAt: day(2025, 3, 1)},
	}))

	require.NoError(t, store.DeleteRequest(ctx, "LR1"))

	records, err := store.ListApprovalRecords(ctx, "LR1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

// =============================================================================
// BALANCES
// =============================================================================

func sampleBalance(total int64) leave.Balance {
	return leave.Balance{
		EmployeeID:      "emp-1",
		Year:            2025,
		AnnualTotal:     decimal.NewFromInt(total),
		AnnualUsed:      decimal.Zero,
		AnnualRemaining: decimal.NewFromInt(total),
		Version:         1,
		CreatedAt:       day(2025, 1, 1),
		UpdatedAt:       day(2025, 1, 1),
	}
}

func TestInsertBalance_SecondInsertIsIgnored(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inserted, err := store.InsertBalance(ctx, sampleBalance(10))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.InsertBalance(ctx, sampleBalance(99))
	require.NoError(t, err)
	assert.False(t, inserted)

	b, err := store.GetBalance(ctx, "emp-1", 2025)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(b.AnnualTotal))
}

func TestUpdateBalance_VersionMismatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.InsertBalance(ctx, sampleBalance(10))
	require.NoError(t, err)

	b := sampleBalance(10)
	b.AnnualUsed = decimal.NewFromInt(2)
	b.AnnualRemaining = decimal.NewFromInt(8)
	b.Version = 2
	require.NoError(t, store.UpdateBalance(ctx, b, 1))

	// stale writer still believes version 1
	err = store.UpdateBalance(ctx, b, 1)
	assert.True(t, errors.Is(err, generic.ErrConcurrentModification))

	got, err := store.GetBalance(ctx, "emp-1", 2025)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.True(t, decimal.NewFromInt(8).Equal(got.AnnualRemaining))
}

func TestUsageLog_IsAppendOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := leave.UsageLog{
		ID: "log-1", EmployeeID: "emp-1", Year: 2025, RequestID: "LR1",
		LeaveType: leave.TypeAnnual, Duration: decimal.RequireFromString("1.5"),
		ChangeType: leave.ChangeDeduct, CreatedAt: day(2025, 3, 1),
	}
	require.NoError(t, store.AppendUsageLog(ctx, entry))

	_, err := store.db.ExecContext(ctx, "UPDATE leave_usage_logs SET duration = '0' WHERE id = 'log-1'")
	assert.Error(t, err)
	_, err = store.db.ExecContext(ctx, "DELETE FROM leave_usage_logs WHERE id = 'log-1'")
	assert.Error(t, err)

	logs, err := store.ListUsageLogs(ctx, "emp-1", 2025)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, decimal.RequireFromString("1.5").Equal(logs[0].Duration))
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestHolidays_RangeAndDuplicateDate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	labour := calendar.Holiday{
		ID: "h-1", Date: generic.NewTimePoint(2025, time.May, 1), Name: "Labour Day",
		Type: calendar.HolidayNational, Year: 2025, CreatedAt: day(2025, 1, 1), UpdatedAt: day(2025, 1, 1),
	}
	makeup := calendar.Holiday{
		ID: "h-2", Date: generic.NewTimePoint(2025, time.April, 27), Name: "Make-up day",
		Type: calendar.HolidayNational, Year: 2025, IsWorkday: true, CreatedAt: day(2025, 1, 1), UpdatedAt: day(2025, 1, 1),
	}
	require.NoError(t, store.InsertHoliday(ctx, labour))
	require.NoError(t, store.InsertHoliday(ctx, makeup))

	in, err := store.GetHolidaysInRange(ctx, generic.Period{
		Start: generic.NewTimePoint(2025, time.April, 1),
		End:   generic.NewTimePoint(2025, time.April, 30),
	})
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.True(t, in[0].IsWorkday)

	dup := labour
	dup.ID = "h-3"
	err = store.InsertHoliday(ctx, dup)
	assert.Equal(t, generic.CodeConflict, generic.CodeOf(err))

	on, err := store.GetHolidayOnDate(ctx, generic.NewTimePoint(2025, time.May, 1))
	require.NoError(t, err)
	require.NotNil(t, on)
	assert.Equal(t, "Labour Day", on.Name)
}

// =============================================================================
// DIRECTORY
// =============================================================================

func TestDirectory_UpsertAndRoleLookup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	hired := day(2020, 6, 1)
	require.NoError(t, store.SaveEmployee(ctx, leave.Employee{ID: "gm-2", Name: "Grace", Role: "general_manager"}))
	require.NoError(t, store.SaveEmployee(ctx, leave.Employee{ID: "gm-1", Name: "Gus", Role: "general_manager"}))
	require.NoError(t, store.SaveEmployee(ctx, leave.Employee{ID: "emp-1", Name: "Ann", ManagerID: "mgr", HireDate: &hired}))
	require.NoError(t, store.SaveEmployee(ctx, leave.Employee{ID: "emp-1", Name: "Ann B.", ManagerID: "mgr-2", HireDate: &hired}))
	require.NoError(t, store.SaveDepartment(ctx, leave.Department{ID: "dept-1", Name: "Ops", LeaderID: "lead"}))

	gm, err := store.FindEmployeeByRole(ctx, "general_manager")
	require.NoError(t, err)
	assert.Equal(t, "gm-1", gm.ID)

	emp, err := store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "Ann B.", emp.Name)
	assert.Equal(t, "mgr-2", emp.ManagerID)
	require.NotNil(t, emp.HireDate)
	assert.Equal(t, hired, *emp.HireDate)

	dept, err := store.GetDepartment(ctx, "dept-1")
	require.NoError(t, err)
	assert.Equal(t, "lead", dept.LeaderID)

	missing, err := store.GetEmployee(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestWithTx_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx leave.Store) error {
		if err := tx.InsertRequest(ctx, sampleRequest("LR1", "emp-1", day(2025, 3, 10), day(2025, 3, 11), leave.StatusDraft)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.GetRequest(ctx, "LR1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_DriverFailuresAreWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := Open(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT .* FROM leave_balances").
		WithArgs("emp-1", 2025).
		WillReturnError(errors.New("disk I/O error"))

	_, err = store.GetBalance(ctx, "emp-1", 2025)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get balance emp-1/2025")
	assert.Contains(t, err.Error(), "disk I/O error")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO leave_usage_logs").WillReturnError(errors.New("readonly database"))
	mock.ExpectRollback()

	err = store.WithTx(ctx, func(tx leave.Store) error {
		return tx.AppendUsageLog(ctx, leave.UsageLog{ID: "log-1", Duration: decimal.NewFromInt(1)})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to append usage log")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBalance_NoRowsMeansConcurrentModification(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := Open(db)

	mock.ExpectExec("UPDATE leave_balances").WillReturnResult(sqlmock.NewResult(0, 0))

	err = store.UpdateBalance(context.Background(), sampleBalance(10), 3)
	assert.True(t, generic.IsRetryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
