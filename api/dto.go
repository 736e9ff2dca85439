/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Domain types carry no
  json tags; everything the client sees is shaped here.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Body: Request body types from clients, with validate tags

TYPES:
  Leave requests:  LeaveRequestBody, LeaveRequestDTO, LeaveRequestDetailDTO
  Approvals:       DecideBody, ApprovalDTO, ApprovalTaskDTO
  Balances:        InitBalanceBody, UpdateBalanceBody, BalanceDTO, UsageLogDTO, VerificationDTO
  Holidays:        HolidayBody, HolidayDTO
  Directory:       EmployeeBody, EmployeeDTO, DepartmentBody

DURATIONS:
  Day counts are decimals and serialize as JSON strings ("1.5") so no
  precision is lost on the way out.

SEE ALSO:
  - validate.go: Tag-driven validation of *Body types
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

const dateLayout = "2006-01-02"

// =============================================================================
// COMMON
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// PageDTO is a paginated listing.
type PageDTO[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
}

func toPageDTO[S, T any](p *leave.Page[S], convert func(S) T) PageDTO[T] {
	items := make([]T, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, convert(item))
	}
	return PageDTO[T]{Items: items, Total: p.Total, Page: p.Page, Size: p.Size}
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

// LeaveRequestBody is accepted by create, update and resubmit. Duration is
// always computed server side.
type LeaveRequestBody struct {
	Type        string    `json:"type" validate:"required,oneof=annual sick personal comp_time marriage maternity"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required"`
	Reason      string    `json:"reason" validate:"max=500"`
	Attachments []string  `json:"attachments" validate:"max=20,dive,required,max=512"`
}

func (b LeaveRequestBody) input() leave.RequestInput {
	return leave.RequestInput{
		Type:        leave.Type(b.Type),
		StartTime:   b.StartTime,
		EndTime:     b.EndTime,
		Reason:      b.Reason,
		Attachments: b.Attachments,
	}
}

type LeaveRequestDTO struct {
	ID                   string          `json:"id"`
	ApplicantID          string          `json:"applicant_id"`
	DepartmentID         string          `json:"department_id"`
	Type                 string          `json:"type"`
	TypeLabel            string          `json:"type_label"`
	StartTime            string          `json:"start_time"`
	EndTime              string          `json:"end_time"`
	Duration             decimal.Decimal `json:"duration"`
	Reason               string          `json:"reason"`
	Attachments          []string        `json:"attachments"`
	Status               string          `json:"status"`
	StatusLabel          string          `json:"status_label"`
	CurrentApprovalLevel int             `json:"current_approval_level"`
	CreatedAt            string          `json:"created_at"`
	UpdatedAt            string          `json:"updated_at"`
}

type LeaveRequestDetailDTO struct {
	LeaveRequestDTO
	Approvals []ApprovalDTO `json:"approvals"`
}

func toLeaveRequestDTO(src leave.LabelSource, r leave.Request) LeaveRequestDTO {
	labels := leave.LabelRequest(src, r)
	attachments := r.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	return LeaveRequestDTO{
		ID:                   r.ID,
		ApplicantID:          r.ApplicantID,
		DepartmentID:         r.DepartmentID,
		Type:                 string(r.Type),
		TypeLabel:            labels.Type,
		StartTime:            r.StartTime.Format(time.RFC3339),
		EndTime:              r.EndTime.Format(time.RFC3339),
		Duration:             r.Duration,
		Reason:               r.Reason,
		Attachments:          attachments,
		Status:               string(r.Status),
		StatusLabel:          labels.Status,
		CurrentApprovalLevel: r.CurrentApprovalLevel,
		CreatedAt:            r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            r.UpdatedAt.Format(time.RFC3339),
	}
}

func toLeaveRequestDetailDTO(src leave.LabelSource, d leave.RequestDetail) LeaveRequestDetailDTO {
	approvals := make([]ApprovalDTO, 0, len(d.Approvals))
	for _, rec := range d.Approvals {
		approvals = append(approvals, toApprovalDTO(src, rec))
	}
	return LeaveRequestDetailDTO{
		LeaveRequestDTO: toLeaveRequestDTO(src, d.Request),
		Approvals:       approvals,
	}
}

// =============================================================================
// APPROVALS
// =============================================================================

type DecideBody struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
	Opinion  string `json:"opinion" validate:"max=500"`
}

type ApprovalDTO struct {
	ID           string  `json:"id"`
	RequestID    string  `json:"request_id"`
	Level        int     `json:"level"`
	ApproverID   string  `json:"approver_id"`
	ApproverName string  `json:"approver_name"`
	Status       string  `json:"status"`
	StatusLabel  string  `json:"status_label"`
	Opinion      string  `json:"opinion"`
	DecidedAt    *string `json:"decided_at"`
}

type ApprovalTaskDTO struct {
	Approval ApprovalDTO     `json:"approval"`
	Request  LeaveRequestDTO `json:"request"`
}

func toApprovalDTO(src leave.LabelSource, rec leave.ApprovalRecord) ApprovalDTO {
	return ApprovalDTO{
		ID:           rec.ID,
		RequestID:    rec.RequestID,
		Level:        rec.Level,
		ApproverID:   rec.ApproverID,
		ApproverName: rec.ApproverName,
		Status:       string(rec.Status),
		StatusLabel:  leave.LabelApproval(src, rec),
		Opinion:      rec.Opinion,
		DecidedAt:    formatOptionalTime(rec.DecidedAt),
	}
}

// =============================================================================
// BALANCES
// =============================================================================

// InitBalanceBody may override the computed quota.
type InitBalanceBody struct {
	AnnualTotal *decimal.Decimal `json:"annual_total"`
}

type UpdateBalanceBody struct {
	AnnualTotal *decimal.Decimal `json:"annual_total" validate:"required"`
}

type BalanceDTO struct {
	EmployeeID      string          `json:"employee_id"`
	Year            int             `json:"year"`
	AnnualTotal     decimal.Decimal `json:"annual_total"`
	AnnualUsed      decimal.Decimal `json:"annual_used"`
	AnnualRemaining decimal.Decimal `json:"annual_remaining"`
	Version         int             `json:"version"`
	UpdatedAt       string          `json:"updated_at"`
}

func toBalanceDTO(b leave.Balance) BalanceDTO {
	return BalanceDTO{
		EmployeeID:      b.EmployeeID,
		Year:            b.Year,
		AnnualTotal:     b.AnnualTotal,
		AnnualUsed:      b.AnnualUsed,
		AnnualRemaining: b.AnnualRemaining,
		Version:         b.Version,
		UpdatedAt:       b.UpdatedAt.Format(time.RFC3339),
	}
}

type UsageLogDTO struct {
	ID         string          `json:"id"`
	RequestID  string          `json:"request_id"`
	LeaveType  string          `json:"leave_type"`
	Duration   decimal.Decimal `json:"duration"`
	ChangeType string          `json:"change_type"`
	CreatedAt  string          `json:"created_at"`
}

func toUsageLogDTO(u leave.UsageLog) UsageLogDTO {
	return UsageLogDTO{
		ID:         u.ID,
		RequestID:  u.RequestID,
		LeaveType:  string(u.LeaveType),
		Duration:   u.Duration,
		ChangeType: string(u.ChangeType),
		CreatedAt:  u.CreatedAt.Format(time.RFC3339),
	}
}

type VerificationDTO struct {
	Balance      BalanceDTO      `json:"balance"`
	ReplayedUsed decimal.Decimal `json:"replayed_used"`
	Entries      int             `json:"entries"`
	Consistent   bool            `json:"consistent"`
}

// =============================================================================
// HOLIDAYS
// =============================================================================

type HolidayBody struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Name      string `json:"name" validate:"required,max=100"`
	Type      string `json:"holiday_type" validate:"required,oneof=national company"`
	IsWorkday bool   `json:"is_workday"`
}

func (b HolidayBody) input() (calendar.HolidayInput, error) {
	date, err := generic.ParseDate(b.Date)
	if err != nil {
		return calendar.HolidayInput{}, generic.Validation("date must be YYYY-MM-DD")
	}
	return calendar.HolidayInput{
		Date:      date,
		Name:      b.Name,
		Type:      calendar.HolidayType(b.Type),
		IsWorkday: b.IsWorkday,
	}, nil
}

type HolidayDTO struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Name      string `json:"name"`
	Type      string `json:"holiday_type"`
	Year      int    `json:"year"`
	IsWorkday bool   `json:"is_workday"`
}

func toHolidayDTO(h calendar.Holiday) HolidayDTO {
	return HolidayDTO{
		ID:        h.ID,
		Date:      h.Date.String(),
		Name:      h.Name,
		Type:      string(h.Type),
		Year:      h.Year,
		IsWorkday: h.IsWorkday,
	}
}

func toHolidayDTOs(list []calendar.Holiday) []HolidayDTO {
	dtos := make([]HolidayDTO, 0, len(list))
	for _, h := range list {
		dtos = append(dtos, toHolidayDTO(h))
	}
	return dtos
}

// =============================================================================
// DIRECTORY
// =============================================================================

type EmployeeBody struct {
	Name         string `json:"name" validate:"required,max=100"`
	ManagerID    string `json:"manager_id"`
	DepartmentID string `json:"department_id"`
	HireDate     string `json:"hire_date" validate:"omitempty,datetime=2006-01-02"`
	Role         string `json:"role"`
}

func (b EmployeeBody) employee(id string) (leave.Employee, error) {
	e := leave.Employee{
		ID:           id,
		Name:         b.Name,
		ManagerID:    b.ManagerID,
		DepartmentID: b.DepartmentID,
		Role:         b.Role,
	}
	if b.ManagerID == id {
		return e, generic.Validation("an employee cannot manage themselves")
	}
	if b.HireDate != "" {
		hired, err := time.Parse(dateLayout, b.HireDate)
		if err != nil {
			return e, generic.Validation("hire_date must be YYYY-MM-DD")
		}
		e.HireDate = &hired
	}
	return e, nil
}

type EmployeeDTO struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	ManagerID    string  `json:"manager_id"`
	DepartmentID string  `json:"department_id"`
	HireDate     *string `json:"hire_date"`
	Role         string  `json:"role"`
}

func toEmployeeDTO(e leave.Employee) EmployeeDTO {
	var hired *string
	if e.HireDate != nil {
		s := e.HireDate.Format(dateLayout)
		hired = &s
	}
	return EmployeeDTO{
		ID:           e.ID,
		Name:         e.Name,
		ManagerID:    e.ManagerID,
		DepartmentID: e.DepartmentID,
		HireDate:     hired,
		Role:         e.Role,
	}
}

type DepartmentBody struct {
	Name     string `json:"name" validate:"required,max=100"`
	LeaderID string `json:"leader_id"`
}

type DepartmentDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	LeaderID string `json:"leader_id"`
}
