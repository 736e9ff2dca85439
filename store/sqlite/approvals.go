package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// APPROVAL RECORD STORE
// =============================================================================

const approvalColumns = `id, request_id, level, approver_id, approver_name, status, opinion, decided_at, created_at`

func (q *queries) InsertApprovalRecords(ctx context.Context, records []leave.ApprovalRecord) error {
	query := `
		INSERT INTO approval_records (` + approvalColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, rec := range records {
		_, err := q.db.ExecContext(ctx, query,
			rec.ID,
			rec.RequestID,
			rec.Level,
			rec.ApproverID,
			rec.ApproverName,
			string(rec.Status),
			rec.Opinion,
			nullTime(rec.DecidedAt),
			formatTime(rec.CreatedAt),
		)
		if err != nil {
			return errors.Wrapf(err, "failed to insert approval record %s level %d", rec.RequestID, rec.Level)
		}
	}
	return nil
}

func (q *queries) DeleteApprovalRecords(ctx context.Context, requestID string) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM approval_records WHERE request_id = ?", requestID)
	return errors.Wrapf(err, "failed to delete approval records of %s", requestID)
}

func (q *queries) ListApprovalRecords(ctx context.Context, requestID string) ([]leave.ApprovalRecord, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_records WHERE request_id = ? ORDER BY level ASC`
	rows, err := q.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list approval records of %s", requestID)
	}
	defer rows.Close()

	records := []leave.ApprovalRecord{}
	for rows.Next() {
		rec, err := scanApproval(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan approval record")
		}
		records = append(records, rec)
	}
	return records, errors.Wrap(rows.Err(), "failed to iterate approval records")
}

func (q *queries) GetApprovalRecord(ctx context.Context, requestID string, level int) (*leave.ApprovalRecord, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_records WHERE request_id = ? AND level = ?`
	rec, err := scanApproval(q.db.QueryRowContext(ctx, query, requestID, level))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get approval record %s level %d", requestID, level)
	}
	return &rec, nil
}

// CompleteApproval only touches the row while it is still pending, so two
// approvers racing on one record cannot both win.
func (q *queries) CompleteApproval(ctx context.Context, recordID string, status leave.ApprovalStatus, opinion string, decidedAt time.Time) (bool, error) {
	query := `
		UPDATE approval_records
		SET status = ?, opinion = ?, decided_at = ?
		WHERE id = ? AND status = ?
	`
	res, err := q.db.ExecContext(ctx, query,
		string(status),
		opinion,
		formatTime(decidedAt),
		recordID,
		string(leave.ApprovalPending),
	)
	if err != nil {
		return false, errors.Wrapf(err, "failed to complete approval record %s", recordID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read affected rows")
	}
	return n == 1, nil
}

func (q *queries) ActivateApproval(ctx context.Context, requestID string, level int) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE approval_records SET status = ? WHERE request_id = ? AND level = ? AND status = ?`,
		string(leave.ApprovalPending), requestID, level, string(leave.ApprovalWaiting),
	)
	if err != nil {
		return false, errors.Wrapf(err, "failed to activate approval %s level %d", requestID, level)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read affected rows")
	}
	return n == 1, nil
}

func (q *queries) ListApprovalTasks(ctx context.Context, f leave.TaskFilter) ([]leave.ApprovalTask, int, error) {
	var clause, order string
	var args []any
	if f.Decided {
		clause = `ar.approver_id = ? AND ar.status IN (?, ?)`
		args = []any{f.ApproverID, string(leave.ApprovalApproved), string(leave.ApprovalRejected)}
		order = `ar.decided_at DESC, ar.id DESC`
	} else {
		// only the level the request is currently waiting on
		clause = `ar.approver_id = ? AND ar.status = ? AND lr.status IN (?, ?) AND ar.level = lr.current_approval_level`
		args = []any{
			f.ApproverID,
			string(leave.ApprovalPending),
			string(leave.StatusPending),
			string(leave.StatusApproving),
		}
		order = `lr.created_at ASC, lr.id ASC`
	}

	from := ` FROM approval_records ar JOIN leave_requests lr ON lr.id = ar.request_id WHERE ` + clause

	var total int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*)`+from, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count approval tasks")
	}

	query := `SELECT ` + prefixed("ar", approvalColumns) + `, ` + prefixed("lr", requestColumns) +
		from + ` ORDER BY ` + order + ` LIMIT ? OFFSET ?`
	rows, err := q.db.QueryContext(ctx, query, append(args, f.Size, f.Offset())...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list approval tasks")
	}
	defer rows.Close()

	tasks := []leave.ApprovalTask{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan approval task")
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "failed to iterate approval tasks")
	}
	return tasks, total, nil
}

func scanApproval(row scanner) (leave.ApprovalRecord, error) {
	var rec leave.ApprovalRecord
	var status, createdAt string
	var decidedAt sql.NullString
	err := row.Scan(
		&rec.ID,
		&rec.RequestID,
		&rec.Level,
		&rec.ApproverID,
		&rec.ApproverName,
		&status,
		&rec.Opinion,
		&decidedAt,
		&createdAt,
	)
	if err != nil {
		return rec, err
	}
	rec.Status = leave.ApprovalStatus(status)
	rec.DecidedAt = timePtr(decidedAt)
	rec.CreatedAt = parseTime(createdAt)
	return rec, nil
}

// scanTask reads a joined row: approval columns followed by request columns.
func scanTask(rows *sql.Rows) (leave.ApprovalTask, error) {
	var task leave.ApprovalTask
	var recStatus, recCreated string
	var decidedAt sql.NullString
	var leaveType, status, startTime, endTime, attachmentsJSON, createdAt, updatedAt string

	r := &task.Request
	err := rows.Scan(
		&task.Record.ID,
		&task.Record.RequestID,
		&task.Record.Level,
		&task.Record.ApproverID,
		&task.Record.ApproverName,
		&recStatus,
		&task.Record.Opinion,
		&decidedAt,
		&recCreated,
		&r.ID,
		&r.ApplicantID,
		&r.DepartmentID,
		&leaveType,
		&startTime,
		&endTime,
		&r.Duration,
		&r.Reason,
		&attachmentsJSON,
		&status,
		&r.CurrentApprovalLevel,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return task, err
	}

	task.Record.Status = leave.ApprovalStatus(recStatus)
	task.Record.DecidedAt = timePtr(decidedAt)
	task.Record.CreatedAt = parseTime(recCreated)

	r.Type = leave.Type(leaveType)
	r.Status = leave.Status(status)
	r.StartTime = parseTime(startTime)
	r.EndTime = parseTime(endTime)
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	if err := decodeAttachments(attachmentsJSON, &r.Attachments); err != nil {
		return task, errors.Wrapf(err, "bad attachments on %s", r.ID)
	}
	return task, nil
}
