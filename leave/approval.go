/*
approval.go - Approval chain engine

PURPOSE:
  Decides how many approval levels a request needs, binds an approver to
  each level at submission time and applies per-level decisions.

LEVEL RULE:
  duration <= 3 days   1 level
  duration <= 7 days   2 levels
  duration >  7 days   3 levels

APPROVER RESOLUTION (frozen into the records at submission):
  Level 1: the applicant's direct manager
  Level 2: the leader of the applicant's department
  Level 3: an employee holding the configured senior role

  A level whose approver cannot be resolved still gets a record, with no
  approver bound. Nobody can decide such a record; the request stays in
  approval until it is cancelled.

DECISION RULES:
  - the applicant can never decide their own request
  - only the bound approver of the current level can decide
  - a rejection needs an opinion
  - the pending record is completed with compare-and-set, so two racing
    approvers cannot both win
  - only the record at the current level is pending; the next one is
    activated when the level before it is approved

SEE ALSO:
  - request.go: Submit builds the chain, Decide applies decisions
*/
package leave

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/warp/leave-engine/generic"
)

const MaxApprovalLevels = 3

var (
	oneLevelMax  = decimal.NewFromInt(3)
	twoLevelsMax = decimal.NewFromInt(7)
)

// LevelsFor returns how many approval levels a request of duration days needs.
func LevelsFor(duration decimal.Decimal) int {
	switch {
	case duration.LessThanOrEqual(oneLevelMax):
		return 1
	case duration.LessThanOrEqual(twoLevelsMax):
		return 2
	default:
		return 3
	}
}

// ApproverResolver finds the approver of one level for an applicant. It
// returns (nil, nil) when nobody fits.
type ApproverResolver func(ctx context.Context, applicant *Employee) (*Employee, error)

// DefaultSeniorRole is the directory role consulted for level 3.
const DefaultSeniorRole = "general_manager"

type ApprovalChain struct {
	directory Directory
	resolvers map[int]ApproverResolver
	logger    *log.Entry
	now       func() time.Time
}

func NewApprovalChain(directory Directory, seniorRole string) *ApprovalChain {
	if seniorRole == "" {
		seniorRole = DefaultSeniorRole
	}
	c := &ApprovalChain{
		directory: directory,
		logger:    log.WithField("component", "approval-chain"),
		now:       time.Now,
	}
	c.resolvers = map[int]ApproverResolver{
		1: c.directManager,
		2: c.departmentLeader,
		3: c.seniorRole(seniorRole),
	}
	return c
}

// =============================================================================
// RESOLVERS
// =============================================================================

func (c *ApprovalChain) directManager(ctx context.Context, applicant *Employee) (*Employee, error) {
	if applicant.ManagerID == "" {
		return nil, nil
	}
	return c.directory.GetEmployee(ctx, applicant.ManagerID)
}

func (c *ApprovalChain) departmentLeader(ctx context.Context, applicant *Employee) (*Employee, error) {
	if applicant.DepartmentID == "" {
		return nil, nil
	}
	dept, err := c.directory.GetDepartment(ctx, applicant.DepartmentID)
	if err != nil || dept == nil || dept.LeaderID == "" {
		return nil, err
	}
	return c.directory.GetEmployee(ctx, dept.LeaderID)
}

func (c *ApprovalChain) seniorRole(role string) ApproverResolver {
	return func(ctx context.Context, _ *Employee) (*Employee, error) {
		return c.directory.FindEmployeeByRole(ctx, role)
	}
}

// ResolvedApprover is one level's approver, looked up ahead of the
// transaction that writes the chain.
type ResolvedApprover struct {
	Level int
	ID    string
	Name  string
}

// ResolveAll looks up the approvers of every possible level. The caller
// keeps the first LevelsFor(duration) of them.
func (c *ApprovalChain) ResolveAll(ctx context.Context, applicant *Employee) ([]ResolvedApprover, error) {
	resolved := make([]ResolvedApprover, 0, MaxApprovalLevels)
	for level := 1; level <= MaxApprovalLevels; level++ {
		approver, err := c.resolvers[level](ctx, applicant)
		if err != nil {
			return nil, errors.Wrapf(err, "resolve approver for level %d", level)
		}
		ra := ResolvedApprover{Level: level}
		if approver != nil {
			ra.ID, ra.Name = approver.ID, approver.Name
		}
		resolved = append(resolved, ra)
	}
	return resolved, nil
}

// BuildRecords creates the records for a chain of levels levels. Level 1
// starts pending, the rest wait.
func (c *ApprovalChain) BuildRecords(requestID string, levels int, approvers []ResolvedApprover) []ApprovalRecord {
	now := c.now().UTC()
	records := make([]ApprovalRecord, 0, levels)
	for level := 1; level <= levels; level++ {
		rec := ApprovalRecord{
			ID:        uuid.NewString(),
			RequestID: requestID,
			Level:     level,
			Status:    ApprovalWaiting,
			CreatedAt: now,
		}
		if level == 1 {
			rec.Status = ApprovalPending
		}
		if level <= len(approvers) {
			rec.ApproverID = approvers[level-1].ID
			rec.ApproverName = approvers[level-1].Name
		}
		if rec.ApproverID == "" {
			c.logger.WithFields(log.Fields{"request_id": requestID, "level": level}).
				Warn("no approver resolved for level, record created unbound")
		}
		records = append(records, rec)
	}
	return records
}

// =============================================================================
// DECISIONS
// =============================================================================

// checkDecision validates actor and input against the current record.
func checkDecision(req *Request, rec *ApprovalRecord, actorID string, decision Decision, opinion string) error {
	if actorID == req.ApplicantID {
		return generic.Forbidden("applicants cannot decide their own request")
	}
	if rec.ApproverID == "" || rec.ApproverID != actorID {
		return generic.Forbidden("user %s is not the approver of level %d", actorID, rec.Level)
	}
	if !decision.Valid() {
		return generic.Validation("unknown decision %q", decision)
	}
	if decision == DecisionReject && strings.TrimSpace(opinion) == "" {
		return generic.Validation("an opinion is required to reject")
	}
	return nil
}

// applyDecision completes the pending record and moves the request. It
// reports whether the request reached its final approval.
func (c *ApprovalChain) applyDecision(ctx context.Context, tx Store, req *Request, rec *ApprovalRecord, decision Decision, opinion string) (bool, error) {
	now := c.now().UTC()
	status := ApprovalApproved
	if decision == DecisionReject {
		status = ApprovalRejected
	}

	ok, err := tx.CompleteApproval(ctx, rec.ID, status, strings.TrimSpace(opinion), now)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, generic.InvalidState("level %d of %s was already decided", rec.Level, req.ID)
	}

	if decision == DecisionReject {
		req.Status = StatusRejected
		return false, nil
	}

	records, err := tx.ListApprovalRecords(ctx, req.ID)
	if err != nil {
		return false, err
	}
	if req.CurrentApprovalLevel >= len(records) {
		req.Status = StatusApproved
		return true, nil
	}
	next := req.CurrentApprovalLevel + 1
	activated, err := tx.ActivateApproval(ctx, req.ID, next)
	if err != nil {
		return false, err
	}
	if !activated {
		return false, generic.InvalidState("level %d of %s is not waiting", next, req.ID)
	}
	req.CurrentApprovalLevel = next
	req.Status = StatusApproving
	return false, nil
}
