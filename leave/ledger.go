/*
ledger.go - Annual leave balance ledger

PURPOSE:
  One summary row per (employee, year) holding total, used and remaining
  days, plus an append-only usage log. Every change to AnnualUsed is paired
  with exactly one log entry in the same transaction.

INVARIANTS:
  AnnualRemaining == AnnualTotal - AnnualUsed after every operation.
  AnnualUsed == sum(deduct) - sum(rollback) over the usage log.
  A rollback never exceeds what was deducted for the same request.

CONCURRENCY:
  Deduct, Rollback and Update take a keyed lock on "employee:year" and
  write the row with an optimistic version check. Two final approvals
  racing for the last days of a balance cannot both succeed.

  Collaborator lookups (hire date) run before the transaction opens; the
  *Tx variants take the hire date as an argument for that reason.

EXAMPLE:
  ledger := leave.NewBalanceLedger(store, directory, leave.NewQuotaCalculator(false))

  b, err := ledger.GetOrInit(ctx, "emp-1", 2025)
  b, err = ledger.Deduct(ctx, "emp-1", 2025, decimal.NewFromInt(2), "LR202503100001", leave.TypeAnnual)

SEE ALSO:
  - quota.go: seeds new rows
  - request.go: deducts on final approval
  - api/scheduler.go: periodic Verify over all rows
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/warp/leave-engine/generic"
)

// DefaultLockWait bounds how long a balance mutation queues behind others
// for the same employee-year.
const DefaultLockWait = 5 * time.Second

type BalanceLedger struct {
	store     TxStore
	directory Directory
	quota     *QuotaCalculator
	locks     *generic.KeyedMutex
	lockWait  time.Duration
	logger    *log.Entry
	now       func() time.Time
}

func NewBalanceLedger(store TxStore, directory Directory, quota *QuotaCalculator) *BalanceLedger {
	return &BalanceLedger{
		store:     store,
		directory: directory,
		quota:     quota,
		locks:     &generic.KeyedMutex{},
		lockWait:  DefaultLockWait,
		logger:    log.WithField("component", "balance-ledger"),
		now:       time.Now,
	}
}

// SetLockWait overrides DefaultLockWait. Non-positive values are ignored.
func (l *BalanceLedger) SetLockWait(d time.Duration) {
	if d > 0 {
		l.lockWait = d
	}
}

func balanceKey(employeeID string, year int) string {
	return fmt.Sprintf("%s:%d", employeeID, year)
}

// =============================================================================
// PUBLIC OPERATIONS - each one is its own unit of work
// =============================================================================

// GetOrInit returns the balance row, creating it from the quota if absent.
func (l *BalanceLedger) GetOrInit(ctx context.Context, employeeID string, year int) (*Balance, error) {
	emp, err := l.employee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	var b *Balance
	err = l.store.WithTx(ctx, func(tx Store) error {
		b, err = l.getOrInitTx(ctx, tx, employeeID, year, emp.HireDate)
		return err
	})
	return b, err
}

// Initialize creates the balance row explicitly. total overrides the quota.
func (l *BalanceLedger) Initialize(ctx context.Context, employeeID string, year int, total *decimal.Decimal) (*Balance, error) {
	if total != nil && total.IsNegative() {
		return nil, generic.Validation("annual total cannot be negative")
	}
	emp, err := l.employee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	amount := l.quota.ForYear(emp.HireDate, year)
	if total != nil {
		amount = *total
	}

	var b *Balance
	err = l.store.WithTx(ctx, func(tx Store) error {
		fresh := l.newBalance(employeeID, year, amount)
		inserted, err := tx.InsertBalance(ctx, fresh)
		if err != nil {
			return err
		}
		if !inserted {
			return generic.Conflict("balance for %s in %d already exists", employeeID, year)
		}
		b = &fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.logger.WithFields(log.Fields{"employee_id": employeeID, "year": year, "total": amount.String()}).
		Info("balance initialized")
	return b, nil
}

func (l *BalanceLedger) Deduct(ctx context.Context, employeeID string, year int, duration decimal.Decimal, requestID string, leaveType Type) (*Balance, error) {
	emp, err := l.employee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	var b *Balance
	err = l.store.WithTx(ctx, func(tx Store) error {
		b, err = l.deductTx(ctx, tx, employeeID, year, duration, requestID, leaveType, emp.HireDate)
		return err
	})
	return b, err
}

func (l *BalanceLedger) Rollback(ctx context.Context, employeeID string, year int, duration decimal.Decimal, requestID string, leaveType Type) (*Balance, error) {
	var b *Balance
	err := l.store.WithTx(ctx, func(tx Store) error {
		var err error
		b, err = l.rollbackTx(ctx, tx, employeeID, year, duration, requestID, leaveType)
		return err
	})
	return b, err
}

// Update overrides the annual total. It never shrinks the total below
// what is already used.
func (l *BalanceLedger) Update(ctx context.Context, employeeID string, year int, newTotal decimal.Decimal) (*Balance, error) {
	if newTotal.IsNegative() {
		return nil, generic.Validation("annual total cannot be negative")
	}
	var b *Balance
	err := l.store.WithTx(ctx, func(tx Store) error {
		return l.locks.WithLock(ctx, balanceKey(employeeID, year), l.lockWait, func() error {
			current, err := tx.GetBalance(ctx, employeeID, year)
			if err != nil {
				return err
			}
			if current == nil {
				return generic.NotFound("balance for %s in %d not found", employeeID, year)
			}
			if newTotal.LessThan(current.AnnualUsed) {
				return generic.Validation("annual total %s is below the %s days already used",
					newTotal.String(), current.AnnualUsed.String())
			}

			updated := *current
			updated.AnnualTotal = newTotal
			if err := l.write(ctx, tx, &updated, current.Version); err != nil {
				return err
			}
			b = &updated
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	l.logger.WithFields(log.Fields{"employee_id": employeeID, "year": year, "total": newTotal.String()}).
		Info("balance total updated")
	return b, nil
}

func (l *BalanceLedger) UsageLogs(ctx context.Context, employeeID string, year int) ([]UsageLog, error) {
	return l.store.ListUsageLogs(ctx, employeeID, year)
}

// Verification compares a summary row with a replay of its usage log.
type Verification struct {
	Balance      Balance
	ReplayedUsed decimal.Decimal
	Entries      int
	Consistent   bool
}

// Verify replays the usage log of one employee-year against its row.
func (l *BalanceLedger) Verify(ctx context.Context, employeeID string, year int) (*Verification, error) {
	b, err := l.store.GetBalance(ctx, employeeID, year)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, generic.NotFound("balance for %s in %d not found", employeeID, year)
	}
	logs, err := l.store.ListUsageLogs(ctx, employeeID, year)
	if err != nil {
		return nil, err
	}

	replayed := decimal.Zero
	for _, entry := range logs {
		replayed = replayed.Add(entry.Signed())
	}
	return &Verification{
		Balance:      *b,
		ReplayedUsed: replayed,
		Entries:      len(logs),
		Consistent: replayed.Equal(b.AnnualUsed) &&
			b.AnnualRemaining.Equal(b.AnnualTotal.Sub(b.AnnualUsed)),
	}, nil
}

// =============================================================================
// IN-TRANSACTION OPERATIONS - used by the request orchestrator
// =============================================================================

func (l *BalanceLedger) getOrInitTx(ctx context.Context, tx Store, employeeID string, year int, hireDate *time.Time) (*Balance, error) {
	b, err := tx.GetBalance(ctx, employeeID, year)
	if err != nil || b != nil {
		return b, err
	}

	fresh := l.newBalance(employeeID, year, l.quota.ForYear(hireDate, year))
	inserted, err := tx.InsertBalance(ctx, fresh)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return tx.GetBalance(ctx, employeeID, year)
	}
	l.logger.WithFields(log.Fields{"employee_id": employeeID, "year": year, "total": fresh.AnnualTotal.String()}).
		Info("balance initialized from quota")
	return &fresh, nil
}

func (l *BalanceLedger) deductTx(ctx context.Context, tx Store, employeeID string, year int, duration decimal.Decimal, requestID string, leaveType Type, hireDate *time.Time) (*Balance, error) {
	if !duration.IsPositive() {
		return nil, generic.Validation("deduction must be positive, got %s", duration.String())
	}
	var b *Balance
	err := l.locks.WithLock(ctx, balanceKey(employeeID, year), l.lockWait, func() error {
		current, err := l.getOrInitTx(ctx, tx, employeeID, year, hireDate)
		if err != nil {
			return err
		}
		if current.AnnualRemaining.LessThan(duration) {
			return generic.Insufficient(employeeID, year, current.AnnualRemaining, duration)
		}

		updated := *current
		updated.AnnualUsed = current.AnnualUsed.Add(duration)
		if err := l.write(ctx, tx, &updated, current.Version); err != nil {
			return err
		}
		if err := l.appendLog(ctx, tx, employeeID, year, requestID, leaveType, duration, ChangeDeduct); err != nil {
			return err
		}
		b = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.logger.WithFields(log.Fields{
		"employee_id": employeeID, "year": year, "request_id": requestID, "days": duration.String(),
	}).Info("annual leave deducted")
	return b, nil
}

func (l *BalanceLedger) rollbackTx(ctx context.Context, tx Store, employeeID string, year int, duration decimal.Decimal, requestID string, leaveType Type) (*Balance, error) {
	if !duration.IsPositive() {
		return nil, generic.Validation("rollback must be positive, got %s", duration.String())
	}
	var b *Balance
	err := l.locks.WithLock(ctx, balanceKey(employeeID, year), l.lockWait, func() error {
		current, err := tx.GetBalance(ctx, employeeID, year)
		if err != nil {
			return err
		}
		if current == nil {
			return generic.NotFound("balance for %s in %d not found", employeeID, year)
		}
		if duration.GreaterThan(current.AnnualUsed) {
			return generic.Validation("cannot roll back %s days, only %s used",
				duration.String(), current.AnnualUsed.String())
		}
		net, err := l.netDeducted(ctx, tx, employeeID, year, requestID)
		if err != nil {
			return err
		}
		if duration.GreaterThan(net) {
			return generic.Validation("cannot roll back %s days for %s, only %s deducted",
				duration.String(), requestID, net.String())
		}

		updated := *current
		updated.AnnualUsed = current.AnnualUsed.Sub(duration)
		if err := l.write(ctx, tx, &updated, current.Version); err != nil {
			return err
		}
		if err := l.appendLog(ctx, tx, employeeID, year, requestID, leaveType, duration, ChangeRollback); err != nil {
			return err
		}
		b = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.logger.WithFields(log.Fields{
		"employee_id": employeeID, "year": year, "request_id": requestID, "days": duration.String(),
	}).Info("annual leave rolled back")
	return b, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (l *BalanceLedger) employee(ctx context.Context, employeeID string) (*Employee, error) {
	emp, err := l.directory.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, errors.Wrapf(err, "look up employee %s", employeeID)
	}
	if emp == nil {
		return nil, generic.NotFound("employee %s not found", employeeID)
	}
	return emp, nil
}

func (l *BalanceLedger) newBalance(employeeID string, year int, total decimal.Decimal) Balance {
	now := l.now().UTC()
	return Balance{
		EmployeeID:      employeeID,
		Year:            year,
		AnnualTotal:     total,
		AnnualUsed:      decimal.Zero,
		AnnualRemaining: total,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// write recomputes the derived column, bumps the version and persists.
func (l *BalanceLedger) write(ctx context.Context, tx Store, b *Balance, expectedVersion int) error {
	b.AnnualRemaining = b.AnnualTotal.Sub(b.AnnualUsed)
	b.Version = expectedVersion + 1
	b.UpdatedAt = l.now().UTC()
	err := tx.UpdateBalance(ctx, *b, expectedVersion)
	if errors.Is(err, generic.ErrConcurrentModification) {
		return generic.Conflict("balance for %s in %d was modified concurrently, retry", b.EmployeeID, b.Year)
	}
	return err
}

func (l *BalanceLedger) appendLog(ctx context.Context, tx Store, employeeID string, year int, requestID string, leaveType Type, duration decimal.Decimal, change ChangeType) error {
	return tx.AppendUsageLog(ctx, UsageLog{
		ID:         uuid.NewString(),
		EmployeeID: employeeID,
		Year:       year,
		RequestID:  requestID,
		LeaveType:  leaveType,
		Duration:   duration,
		ChangeType: change,
		CreatedAt:  l.now().UTC(),
	})
}

func (l *BalanceLedger) netDeducted(ctx context.Context, tx Store, employeeID string, year int, requestID string) (decimal.Decimal, error) {
	logs, err := tx.ListUsageLogs(ctx, employeeID, year)
	if err != nil {
		return decimal.Zero, err
	}
	net := decimal.Zero
	for _, entry := range logs {
		if entry.RequestID == requestID {
			net = net.Add(entry.Signed())
		}
	}
	return net, nil
}
