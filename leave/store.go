package leave

import (
	"context"
	"time"

	"github.com/warp/leave-engine/calendar"
)

// =============================================================================
// STORE INTERFACES
// =============================================================================
// Getters return (nil, nil) when the row does not exist; the services turn
// that into NOT_FOUND where the caller referenced the row by id.

type RequestStore interface {
	// NextRequestSequence returns the next free per-day sequence for ids
	// starting with prefix (e.g. "LR20250310").
	NextRequestSequence(ctx context.Context, prefix string) (int, error)
	InsertRequest(ctx context.Context, r Request) error
	UpdateRequest(ctx context.Context, r Request) error
	DeleteRequest(ctx context.Context, id string) error
	GetRequest(ctx context.Context, id string) (*Request, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]Request, int, error)
	// FindOverlapping returns the calendar-blocking requests of applicant
	// whose [start, end] intersects the given range, excluding excludeID.
	FindOverlapping(ctx context.Context, applicantID string, start, end time.Time, excludeID string) ([]Request, error)
}

type ApprovalStore interface {
	InsertApprovalRecords(ctx context.Context, records []ApprovalRecord) error
	DeleteApprovalRecords(ctx context.Context, requestID string) error
	ListApprovalRecords(ctx context.Context, requestID string) ([]ApprovalRecord, error)
	GetApprovalRecord(ctx context.Context, requestID string, level int) (*ApprovalRecord, error)
	// CompleteApproval moves a pending record to status. It reports false
	// when the record was no longer pending.
	CompleteApproval(ctx context.Context, recordID string, status ApprovalStatus, opinion string, decidedAt time.Time) (bool, error)
	// ActivateApproval moves the waiting record of level to pending. It
	// reports false when there was no waiting record at that level.
	ActivateApproval(ctx context.Context, requestID string, level int) (bool, error)
	ListApprovalTasks(ctx context.Context, filter TaskFilter) ([]ApprovalTask, int, error)
}

type BalanceStore interface {
	GetBalance(ctx context.Context, employeeID string, year int) (*Balance, error)
	// InsertBalance reports false when the (employee, year) row already exists.
	InsertBalance(ctx context.Context, b Balance) (bool, error)
	// UpdateBalance writes b if the stored version still equals
	// expectedVersion; it returns generic.ErrConcurrentModification otherwise.
	UpdateBalance(ctx context.Context, b Balance, expectedVersion int) error
	ListBalances(ctx context.Context, year int) ([]Balance, error)
	AppendUsageLog(ctx context.Context, entry UsageLog) error
	ListUsageLogs(ctx context.Context, employeeID string, year int) ([]UsageLog, error)
}

// Store is everything a unit of work may touch.
type Store interface {
	RequestStore
	ApprovalStore
	BalanceStore
	calendar.Reader
}

// TxStore runs fn against a transactional view of the store. If fn returns
// an error nothing it wrote is kept.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
