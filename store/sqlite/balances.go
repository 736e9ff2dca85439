package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// BALANCE STORE
// =============================================================================

const balanceColumns = `employee_id, year, annual_total, annual_used, annual_remaining, version, created_at, updated_at`

func (q *queries) GetBalance(ctx context.Context, employeeID string, year int) (*leave.Balance, error) {
	query := `SELECT ` + balanceColumns + ` FROM leave_balances WHERE employee_id = ? AND year = ?`
	b, err := scanBalance(q.db.QueryRowContext(ctx, query, employeeID, year))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get balance %s/%d", employeeID, year)
	}
	return &b, nil
}

func (q *queries) InsertBalance(ctx context.Context, b leave.Balance) (bool, error) {
	query := `
		INSERT INTO leave_balances (` + balanceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, year) DO NOTHING
	`
	res, err := q.db.ExecContext(ctx, query,
		b.EmployeeID,
		b.Year,
		b.AnnualTotal.String(),
		b.AnnualUsed.String(),
		b.AnnualRemaining.String(),
		b.Version,
		formatTime(b.CreatedAt),
		formatTime(b.UpdatedAt),
	)
	if err != nil {
		return false, errors.Wrapf(err, "failed to insert balance %s/%d", b.EmployeeID, b.Year)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read affected rows")
	}
	return n == 1, nil
}

func (q *queries) UpdateBalance(ctx context.Context, b leave.Balance, expectedVersion int) error {
	query := `
		UPDATE leave_balances
		SET annual_total = ?, annual_used = ?, annual_remaining = ?, version = ?, updated_at = ?
		WHERE employee_id = ? AND year = ? AND version = ?
	`
	res, err := q.db.ExecContext(ctx, query,
		b.AnnualTotal.String(),
		b.AnnualUsed.String(),
		b.AnnualRemaining.String(),
		b.Version,
		formatTime(b.UpdatedAt),
		b.EmployeeID,
		b.Year,
		expectedVersion,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to update balance %s/%d", b.EmployeeID, b.Year)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return errors.Wrapf(generic.ErrConcurrentModification, "balance %s/%d at version %d", b.EmployeeID, b.Year, expectedVersion)
	}
	return nil
}

func (q *queries) ListBalances(ctx context.Context, year int) ([]leave.Balance, error) {
	query := `SELECT ` + balanceColumns + ` FROM leave_balances WHERE year = ? ORDER BY employee_id ASC`
	rows, err := q.db.QueryContext(ctx, query, year)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list balances for %d", year)
	}
	defer rows.Close()

	balances := []leave.Balance{}
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan balance")
		}
		balances = append(balances, b)
	}
	return balances, errors.Wrap(rows.Err(), "failed to iterate balances")
}

func scanBalance(row scanner) (leave.Balance, error) {
	var b leave.Balance
	var createdAt, updatedAt string
	err := row.Scan(
		&b.EmployeeID,
		&b.Year,
		&b.AnnualTotal,
		&b.AnnualUsed,
		&b.AnnualRemaining,
		&b.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return b, err
	}
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return b, nil
}

// =============================================================================
// USAGE LOG (append-only)
// =============================================================================

const usageLogColumns = `id, employee_id, year, request_id, leave_type, duration, change_type, created_at`

func (q *queries) AppendUsageLog(ctx context.Context, entry leave.UsageLog) error {
	query := `
		INSERT INTO leave_usage_logs (` + usageLogColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.db.ExecContext(ctx, query,
		entry.ID,
		entry.EmployeeID,
		entry.Year,
		entry.RequestID,
		string(entry.LeaveType),
		entry.Duration.String(),
		string(entry.ChangeType),
		formatTime(entry.CreatedAt),
	)
	return errors.Wrapf(err, "failed to append usage log for %s", entry.RequestID)
}

func (q *queries) ListUsageLogs(ctx context.Context, employeeID string, year int) ([]leave.UsageLog, error) {
	query := `
		SELECT ` + usageLogColumns + ` FROM leave_usage_logs
		WHERE employee_id = ? AND year = ?
		ORDER BY created_at ASC, rowid ASC
	`
	rows, err := q.db.QueryContext(ctx, query, employeeID, year)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list usage logs %s/%d", employeeID, year)
	}
	defer rows.Close()

	logs := []leave.UsageLog{}
	for rows.Next() {
		var entry leave.UsageLog
		var leaveType, changeType, createdAt string
		if err := rows.Scan(
			&entry.ID,
			&entry.EmployeeID,
			&entry.Year,
			&entry.RequestID,
			&leaveType,
			&entry.Duration,
			&changeType,
			&createdAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan usage log")
		}
		entry.LeaveType = leave.Type(leaveType)
		entry.ChangeType = leave.ChangeType(changeType)
		entry.CreatedAt = parseTime(createdAt)
		logs = append(logs, entry)
	}
	return logs, errors.Wrap(rows.Err(), "failed to iterate usage logs")
}
