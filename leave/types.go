// Package leave implements the leave-request lifecycle, its multi-level
// approval chain and the annual-leave balance ledger it draws down.
package leave

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// LEAVE TYPES
// =============================================================================

type Type string

const (
	TypeAnnual    Type = "annual"
	TypeSick      Type = "sick"
	TypePersonal  Type = "personal"
	TypeCompTime  Type = "comp_time"
	TypeMarriage  Type = "marriage"
	TypeMaternity Type = "maternity"
)

var AllTypes = []Type{TypeAnnual, TypeSick, TypePersonal, TypeCompTime, TypeMarriage, TypeMaternity}

func (t Type) Valid() bool {
	for _, v := range AllTypes {
		if t == v {
			return true
		}
	}
	return false
}

// DrawsBalance is true for types paid out of the annual balance.
func (t Type) DrawsBalance() bool { return t == TypeAnnual }

// =============================================================================
// REQUEST STATUS
// =============================================================================

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusApproving Status = "approving"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

var AllStatuses = []Status{StatusDraft, StatusPending, StatusApproving, StatusApproved, StatusRejected, StatusCancelled}

func (s Status) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// InApproval is true while the approval chain is running.
func (s Status) InApproval() bool { return s == StatusPending || s == StatusApproving }

// Terminal statuses admit no further approval-chain action.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

// BlocksCalendar is true for requests that still occupy their date range.
func (s Status) BlocksCalendar() bool {
	return s != StatusRejected && s != StatusCancelled
}

// =============================================================================
// LEAVE REQUEST
// =============================================================================

type Request struct {
	ID                   string
	ApplicantID          string
	DepartmentID         string
	Type                 Type
	StartTime            time.Time
	EndTime              time.Time
	Duration             decimal.Decimal
	Reason               string
	Attachments          []string
	Status               Status
	CurrentApprovalLevel int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Period is the calendar span the request occupies.
func (r *Request) Period() generic.Period {
	return generic.NewPeriod(r.StartTime, r.EndTime)
}

// BalanceYear is the year whose balance pays for the request.
func (r *Request) BalanceYear() int { return r.StartTime.Year() }

// =============================================================================
// APPROVAL RECORD
// =============================================================================

type ApprovalStatus string

// Records above the current level wait until the chain reaches them, so at
// most one record per request is pending.
const (
	ApprovalWaiting  ApprovalStatus = "waiting"
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Decided is true once an approver has acted on the record.
func (s ApprovalStatus) Decided() bool { return s == ApprovalApproved || s == ApprovalRejected }

type ApprovalRecord struct {
	ID           string
	RequestID    string
	Level        int
	ApproverID   string // empty when no approver could be resolved
	ApproverName string
	Status       ApprovalStatus
	Opinion      string
	DecidedAt    *time.Time
	CreatedAt    time.Time
}

// Decision is the verdict an approver hands down on one level.
type Decision string

const (
	DecisionApprove Decision = "approved"
	DecisionReject  Decision = "rejected"
)

func (d Decision) Valid() bool { return d == DecisionApprove || d == DecisionReject }

// ApprovalTask is one approval record with the request it belongs to.
type ApprovalTask struct {
	Record  ApprovalRecord
	Request Request
}

// =============================================================================
// BALANCE LEDGER
// =============================================================================

type Balance struct {
	EmployeeID      string
	Year            int
	AnnualTotal     decimal.Decimal
	AnnualUsed      decimal.Decimal
	AnnualRemaining decimal.Decimal
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type ChangeType string

const (
	ChangeDeduct   ChangeType = "deduct"
	ChangeRollback ChangeType = "rollback"
)

// UsageLog is an append-only ledger entry. Replaying all entries of one
// employee-year reproduces Balance.AnnualUsed.
type UsageLog struct {
	ID         string
	EmployeeID string
	Year       int
	RequestID  string
	LeaveType  Type
	Duration   decimal.Decimal
	ChangeType ChangeType
	CreatedAt  time.Time
}

// Signed is the effect of the entry on AnnualUsed.
func (u UsageLog) Signed() decimal.Decimal {
	if u.ChangeType == ChangeRollback {
		return u.Duration.Neg()
	}
	return u.Duration
}

// =============================================================================
// LISTING
// =============================================================================

type Pagination struct {
	Page int
	Size int
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Normalize clamps page and size into their allowed ranges.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Pagination) Offset() int { return (p.Page - 1) * p.Size }

type Page[T any] struct {
	Items []T
	Total int
	Page  int
	Size  int
}

// RequestFilter narrows request listings. Zero fields are ignored; the
// date range matches requests overlapping [From, To].
type RequestFilter struct {
	ApplicantID  string
	DepartmentID string
	Type         Type
	Status       Status
	From         *generic.TimePoint
	To           *generic.TimePoint
	Keyword      string
	Pagination
}

// TaskFilter selects approval records for one approver.
type TaskFilter struct {
	ApproverID string
	Decided    bool // false: waiting on the approver, true: already decided
	Pagination
}
