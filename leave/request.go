/*
request.go - Leave request orchestrator

PURPOSE:
  Owns the request state machine and is the only entry point that mutates
  requests, approval records and (through the ledger) balances.

STATE MACHINE:
  draft ──submit──> pending ──approve──> approving ──approve(final)──> approved
                      │                     │
                      ├──reject──> rejected ┤──reject──> rejected
                      └──cancel──> cancelled└──cancel──> cancelled

  rejected ──resubmit (update + submit)──> pending
  draft    ──delete──> (gone)

  | Operation | Valid from         |
  |-----------|--------------------|
  | Update    | draft              |
  | Submit    | draft, rejected    |
  | Decide    | pending, approving |
  | Cancel    | pending, approving |
  | Resubmit  | rejected           |
  | Delete    | draft              |

TRANSACTIONAL:
  Every mutation runs inside Store.WithTx. The final approval of an annual
  request writes the request row, the approval record, the balance row and
  the usage log entry in one transaction; if any step fails, nothing is
  kept. Directory lookups happen before the transaction opens.

TIME CONFLICTS:
  Requests of one applicant that still block the calendar (anything but
  rejected and cancelled) may not overlap. Checked on update and submit.

SEE ALSO:
  - approval.go: chain building and decision rules
  - ledger.go: balance check and deduction
  - calendar/duration.go: duration recomputation
*/
package leave

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/generic"
)

// RequestIDPrefix starts every request id, followed by the creation date
// and a four-digit daily sequence.
const RequestIDPrefix = "LR"

// MaxExportRows caps unpaginated listings.
const MaxExportRows = 10000

type RequestService struct {
	store     TxStore
	directory Directory
	ledger    *BalanceLedger
	chain     *ApprovalChain
	logger    *log.Entry
	now       func() time.Time
}

func NewRequestService(store TxStore, directory Directory, ledger *BalanceLedger, chain *ApprovalChain) *RequestService {
	return &RequestService{
		store:     store,
		directory: directory,
		ledger:    ledger,
		chain:     chain,
		logger:    log.WithField("component", "leave-requests"),
		now:       time.Now,
	}
}

// RequestInput carries the caller-editable fields. Duration is never
// accepted from callers.
type RequestInput struct {
	Type        Type
	StartTime   time.Time
	EndTime     time.Time
	Reason      string
	Attachments []string
}

type RequestDetail struct {
	Request   Request
	Approvals []ApprovalRecord
}

// =============================================================================
// CREATE / UPDATE / DELETE
// =============================================================================

func (s *RequestService) Create(ctx context.Context, applicantID string, in RequestInput) (*Request, error) {
	in = in.normalized()
	if err := validateInput(in); err != nil {
		return nil, err
	}
	applicant, err := s.employee(ctx, applicantID)
	if err != nil {
		return nil, err
	}

	var req Request
	err = s.store.WithTx(ctx, func(tx Store) error {
		duration, err := s.duration(ctx, tx, in)
		if err != nil {
			return err
		}
		id, err := s.nextID(ctx, tx)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		req = Request{
			ID:           id,
			ApplicantID:  applicant.ID,
			DepartmentID: applicant.DepartmentID,
			Type:         in.Type,
			StartTime:    in.StartTime,
			EndTime:      in.EndTime,
			Duration:     duration,
			Reason:       strings.TrimSpace(in.Reason),
			Attachments:  attachments(in.Attachments),
			Status:       StatusDraft,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.InsertRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(log.Fields{"request_id": req.ID, "applicant_id": applicantID, "days": req.Duration.String()}).
		Info("leave request created")
	return &req, nil
}

// Update edits a draft.
func (s *RequestService) Update(ctx context.Context, actorID, id string, in RequestInput) (*Request, error) {
	in = in.normalized()
	if err := validateInput(in); err != nil {
		return nil, err
	}
	var req *Request
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		req, err = s.loadOwned(ctx, tx, id, actorID)
		if err != nil {
			return err
		}
		if req.Status != StatusDraft {
			return generic.InvalidState("cannot update request %s in status %s", id, req.Status)
		}
		if err := s.applyUpdate(ctx, tx, req, in); err != nil {
			return err
		}
		return tx.UpdateRequest(ctx, *req)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *RequestService) Delete(ctx context.Context, actorID, id string) error {
	err := s.store.WithTx(ctx, func(tx Store) error {
		req, err := s.loadOwned(ctx, tx, id, actorID)
		if err != nil {
			return err
		}
		if req.Status != StatusDraft {
			return generic.InvalidState("only drafts can be deleted, %s is %s", id, req.Status)
		}
		return tx.DeleteRequest(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.WithField("request_id", id).Info("leave request deleted")
	return nil
}

// =============================================================================
// SUBMIT / RESUBMIT
// =============================================================================

// Submit starts the approval chain of a draft or rejected request.
func (s *RequestService) Submit(ctx context.Context, actorID, id string) (*Request, error) {
	applicant, approvers, err := s.prepareSubmit(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	var req *Request
	err = s.store.WithTx(ctx, func(tx Store) error {
		var err error
		req, err = s.loadOwned(ctx, tx, id, actorID)
		if err != nil {
			return err
		}
		return s.submitTx(ctx, tx, req, applicant, approvers)
	})
	if err != nil {
		return nil, err
	}
	s.logSubmitted(req)
	return req, nil
}

// Resubmit edits a rejected request and submits it again in one unit of work.
func (s *RequestService) Resubmit(ctx context.Context, actorID, id string, in RequestInput) (*Request, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	applicant, approvers, err := s.prepareSubmit(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	var req *Request
	err = s.store.WithTx(ctx, func(tx Store) error {
		var err error
		req, err = s.loadOwned(ctx, tx, id, actorID)
		if err != nil {
			return err
		}
		if req.Status != StatusRejected {
			return generic.InvalidState("only rejected requests can be resubmitted, %s is %s", id, req.Status)
		}
		if err := s.applyUpdate(ctx, tx, req, in); err != nil {
			return err
		}
		return s.submitTx(ctx, tx, req, applicant, approvers)
	})
	if err != nil {
		return nil, err
	}
	s.logSubmitted(req)
	return req, nil
}

// prepareSubmit does the directory work ahead of the transaction.
func (s *RequestService) prepareSubmit(ctx context.Context, actorID, id string) (*Employee, []ResolvedApprover, error) {
	req, err := s.loadOwned(ctx, s.store, id, actorID)
	if err != nil {
		return nil, nil, err
	}
	applicant, err := s.employee(ctx, req.ApplicantID)
	if err != nil {
		return nil, nil, err
	}
	// Level 2 follows the department recorded on the request.
	snapshot := *applicant
	snapshot.DepartmentID = req.DepartmentID
	approvers, err := s.chain.ResolveAll(ctx, &snapshot)
	if err != nil {
		return nil, nil, err
	}
	return applicant, approvers, nil
}

func (s *RequestService) submitTx(ctx context.Context, tx Store, req *Request, applicant *Employee, approvers []ResolvedApprover) error {
	if req.Status != StatusDraft && req.Status != StatusRejected {
		return generic.InvalidState("cannot submit request %s in status %s", req.ID, req.Status)
	}
	if err := s.checkConflict(ctx, tx, req); err != nil {
		return err
	}
	if req.Type.DrawsBalance() {
		balance, err := s.ledger.getOrInitTx(ctx, tx, req.ApplicantID, req.BalanceYear(), applicant.HireDate)
		if err != nil {
			return err
		}
		if balance.AnnualRemaining.LessThan(req.Duration) {
			return generic.Insufficient(req.ApplicantID, req.BalanceYear(), balance.AnnualRemaining, req.Duration)
		}
	}

	if err := tx.DeleteApprovalRecords(ctx, req.ID); err != nil {
		return err
	}
	records := s.chain.BuildRecords(req.ID, LevelsFor(req.Duration), approvers)
	if err := tx.InsertApprovalRecords(ctx, records); err != nil {
		return err
	}

	req.Status = StatusPending
	req.CurrentApprovalLevel = 1
	req.UpdatedAt = s.now().UTC()
	return tx.UpdateRequest(ctx, *req)
}

func (s *RequestService) logSubmitted(req *Request) {
	s.logger.WithFields(log.Fields{
		"request_id": req.ID,
		"days":       req.Duration.String(),
		"levels":     LevelsFor(req.Duration),
	}).Info("leave request submitted")
}

// =============================================================================
// DECIDE / CANCEL
// =============================================================================

// Decide applies actorID's decision to the current approval level.
func (s *RequestService) Decide(ctx context.Context, actorID, id string, decision Decision, opinion string) (*Request, error) {
	pre, err := s.load(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	var hireDate *time.Time
	if pre.Type.DrawsBalance() {
		applicant, err := s.directory.GetEmployee(ctx, pre.ApplicantID)
		if err != nil {
			return nil, errors.Wrapf(err, "look up employee %s", pre.ApplicantID)
		}
		if applicant != nil {
			hireDate = applicant.HireDate
		}
	}

	var req *Request
	var final bool
	err = s.store.WithTx(ctx, func(tx Store) error {
		var err error
		req, err = s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if !req.Status.InApproval() {
			return generic.InvalidState("request %s is %s and cannot be decided", id, req.Status)
		}
		rec, err := tx.GetApprovalRecord(ctx, id, req.CurrentApprovalLevel)
		if err != nil {
			return err
		}
		if rec == nil || rec.Status != ApprovalPending {
			return generic.NotFound("no pending approval at level %d of %s", req.CurrentApprovalLevel, id)
		}
		if err := checkDecision(req, rec, actorID, decision, opinion); err != nil {
			return err
		}

		final, err = s.chain.applyDecision(ctx, tx, req, rec, decision, opinion)
		if err != nil {
			return err
		}
		if final && req.Type.DrawsBalance() {
			if _, err := s.ledger.deductTx(ctx, tx, req.ApplicantID, req.BalanceYear(), req.Duration, req.ID, req.Type, hireDate); err != nil {
				return err
			}
		}
		req.UpdatedAt = s.now().UTC()
		return tx.UpdateRequest(ctx, *req)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(log.Fields{
		"request_id": id, "approver_id": actorID, "decision": decision, "status": req.Status,
	}).Info("approval decided")
	return req, nil
}

// Cancel withdraws a request that is still in approval.
func (s *RequestService) Cancel(ctx context.Context, actorID, id string) (*Request, error) {
	var req *Request
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		req, err = s.loadOwned(ctx, tx, id, actorID)
		if err != nil {
			return err
		}
		if !req.Status.InApproval() {
			return generic.InvalidState("cannot cancel request %s in status %s", id, req.Status)
		}
		if err := tx.DeleteApprovalRecords(ctx, id); err != nil {
			return err
		}
		req.Status = StatusCancelled
		req.CurrentApprovalLevel = 0
		req.UpdatedAt = s.now().UTC()
		return tx.UpdateRequest(ctx, *req)
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithField("request_id", id).Info("leave request cancelled")
	return req, nil
}

// =============================================================================
// QUERIES
// =============================================================================

func (s *RequestService) Get(ctx context.Context, id string) (*RequestDetail, error) {
	req, err := s.load(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListApprovalRecords(ctx, id)
	if err != nil {
		return nil, err
	}
	return &RequestDetail{Request: *req, Approvals: records}, nil
}

func (s *RequestService) List(ctx context.Context, filter RequestFilter) (*Page[Request], error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, generic.Validation("unknown leave type %q", filter.Type)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, generic.Validation("unknown status %q", filter.Status)
	}
	filter.Pagination = filter.Pagination.Normalize()
	items, total, err := s.store.ListRequests(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &Page[Request]{Items: items, Total: total, Page: filter.Page, Size: filter.Size}, nil
}

// Export lists every matching request up to MaxExportRows.
func (s *RequestService) Export(ctx context.Context, filter RequestFilter) ([]Request, error) {
	filter.Pagination = Pagination{Page: 1, Size: MaxExportRows}
	items, _, err := s.store.ListRequests(ctx, filter)
	return items, err
}

// PendingApprovals lists records waiting on approverID at the current
// level of a request still in approval.
func (s *RequestService) PendingApprovals(ctx context.Context, approverID string, p Pagination) (*Page[ApprovalTask], error) {
	return s.tasks(ctx, TaskFilter{ApproverID: approverID, Decided: false, Pagination: p.Normalize()})
}

// DecidedApprovals lists records approverID has already decided.
func (s *RequestService) DecidedApprovals(ctx context.Context, approverID string, p Pagination) (*Page[ApprovalTask], error) {
	return s.tasks(ctx, TaskFilter{ApproverID: approverID, Decided: true, Pagination: p.Normalize()})
}

func (s *RequestService) tasks(ctx context.Context, filter TaskFilter) (*Page[ApprovalTask], error) {
	items, total, err := s.store.ListApprovalTasks(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &Page[ApprovalTask]{Items: items, Total: total, Page: filter.Page, Size: filter.Size}, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// normalized pins start and end to the dates the caller wrote. Duration,
// storage and BalanceYear all read these UTC wall-clock values.
func (in RequestInput) normalized() RequestInput {
	in.StartTime = generic.WallClockUTC(in.StartTime)
	in.EndTime = generic.WallClockUTC(in.EndTime)
	return in
}

func validateInput(in RequestInput) error {
	if !in.Type.Valid() {
		return generic.Validation("unknown leave type %q", in.Type)
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return generic.Validation("start and end are required")
	}
	if in.StartTime.After(in.EndTime) {
		return generic.Validation("start must not be after end")
	}
	return nil
}

func (s *RequestService) applyUpdate(ctx context.Context, tx Store, req *Request, in RequestInput) error {
	duration, err := s.duration(ctx, tx, in)
	if err != nil {
		return err
	}
	req.Type = in.Type
	req.StartTime = in.StartTime
	req.EndTime = in.EndTime
	req.Duration = duration
	req.Reason = strings.TrimSpace(in.Reason)
	req.Attachments = attachments(in.Attachments)
	req.UpdatedAt = s.now().UTC()
	return s.checkConflict(ctx, tx, req)
}

func (s *RequestService) duration(ctx context.Context, tx Store, in RequestInput) (decimal.Decimal, error) {
	d, err := calendar.NewCalculator(tx).Duration(ctx, in.StartTime, in.EndTime)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, generic.Validation("the requested range contains no working days")
	}
	return d, nil
}

func (s *RequestService) checkConflict(ctx context.Context, tx Store, req *Request) error {
	overlapping, err := tx.FindOverlapping(ctx, req.ApplicantID, req.StartTime, req.EndTime, req.ID)
	if err != nil {
		return err
	}
	if len(overlapping) == 0 {
		return nil
	}
	ids := make([]string, 0, len(overlapping))
	for _, o := range overlapping {
		ids = append(ids, o.ID)
	}
	return generic.Conflict("leave overlaps existing request %s", ids[0]).
		WithDetails(map[string]any{"conflicting_ids": ids})
}

func (s *RequestService) nextID(ctx context.Context, tx Store) (string, error) {
	prefix := RequestIDPrefix + s.now().Format("20060102")
	seq, err := tx.NextRequestSequence(ctx, prefix)
	if err != nil {
		return "", err
	}
	if seq > 9999 {
		return "", generic.Internal(fmt.Errorf("request sequence exhausted for %s", prefix))
	}
	return fmt.Sprintf("%s%04d", prefix, seq), nil
}

func (s *RequestService) load(ctx context.Context, st Store, id string) (*Request, error) {
	req, err := st.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, generic.NotFound("leave request %s not found", id)
	}
	return req, nil
}

func (s *RequestService) loadOwned(ctx context.Context, st Store, id, actorID string) (*Request, error) {
	req, err := s.load(ctx, st, id)
	if err != nil {
		return nil, err
	}
	if req.ApplicantID != actorID {
		return nil, generic.Forbidden("only the applicant can change request %s", id)
	}
	return req, nil
}

func (s *RequestService) employee(ctx context.Context, id string) (*Employee, error) {
	emp, err := s.directory.GetEmployee(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "look up employee %s", id)
	}
	if emp == nil {
		return nil, generic.NotFound("employee %s not found", id)
	}
	return emp, nil
}

func attachments(in []string) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
