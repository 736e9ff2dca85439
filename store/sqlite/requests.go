package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// LEAVE REQUEST STORE
// =============================================================================

const requestColumns = `id, applicant_id, department_id, leave_type, start_time, end_time, duration,
	reason, attachments_json, status, current_approval_level, created_at, updated_at`

// NextRequestSequence bumps and returns the counter for prefix.
func (q *queries) NextRequestSequence(ctx context.Context, prefix string) (int, error) {
	query := `
		INSERT INTO request_sequences (prefix, last_value) VALUES (?, 1)
		ON CONFLICT(prefix) DO UPDATE SET last_value = last_value + 1
		RETURNING last_value
	`
	var seq int
	if err := q.db.QueryRowContext(ctx, query, prefix).Scan(&seq); err != nil {
		return 0, errors.Wrapf(err, "failed to allocate request sequence for %s", prefix)
	}
	return seq, nil
}

func (q *queries) InsertRequest(ctx context.Context, r leave.Request) error {
	attachmentsJSON, err := json.Marshal(r.Attachments)
	if err != nil {
		return errors.Wrap(err, "failed to encode attachments")
	}

	query := `
		INSERT INTO leave_requests (` + requestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = q.db.ExecContext(ctx, query,
		r.ID,
		r.ApplicantID,
		r.DepartmentID,
		string(r.Type),
		formatTime(r.StartTime),
		formatTime(r.EndTime),
		r.Duration.String(),
		r.Reason,
		string(attachmentsJSON),
		string(r.Status),
		r.CurrentApprovalLevel,
		formatTime(r.CreatedAt),
		formatTime(r.UpdatedAt),
	)
	return errors.Wrapf(err, "failed to insert leave request %s", r.ID)
}

func (q *queries) UpdateRequest(ctx context.Context, r leave.Request) error {
	attachmentsJSON, err := json.Marshal(r.Attachments)
	if err != nil {
		return errors.Wrap(err, "failed to encode attachments")
	}

	query := `
		UPDATE leave_requests SET
			leave_type = ?, start_time = ?, end_time = ?, duration = ?, reason = ?,
			attachments_json = ?, status = ?, current_approval_level = ?, updated_at = ?
		WHERE id = ?
	`
	_, err = q.db.ExecContext(ctx, query,
		string(r.Type),
		formatTime(r.StartTime),
		formatTime(r.EndTime),
		r.Duration.String(),
		r.Reason,
		string(attachmentsJSON),
		string(r.Status),
		r.CurrentApprovalLevel,
		formatTime(r.UpdatedAt),
		r.ID,
	)
	return errors.Wrapf(err, "failed to update leave request %s", r.ID)
}

func (q *queries) DeleteRequest(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM leave_requests WHERE id = ?", id)
	return errors.Wrapf(err, "failed to delete leave request %s", id)
}

func (q *queries) GetRequest(ctx context.Context, id string) (*leave.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM leave_requests WHERE id = ?`
	r, err := scanRequest(q.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get leave request %s", id)
	}
	return &r, nil
}

func (q *queries) ListRequests(ctx context.Context, f leave.RequestFilter) ([]leave.Request, int, error) {
	var where []string
	var args []any

	if f.ApplicantID != "" {
		where = append(where, "applicant_id = ?")
		args = append(args, f.ApplicantID)
	}
	if f.DepartmentID != "" {
		where = append(where, "department_id = ?")
		args = append(args, f.DepartmentID)
	}
	if f.Type != "" {
		where = append(where, "leave_type = ?")
		args = append(args, string(f.Type))
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.From != nil {
		where = append(where, "end_time >= ?")
		args = append(args, formatTime(f.From.Time))
	}
	if f.To != nil {
		// requests starting any time on the To date still match
		where = append(where, "start_time < ?")
		args = append(args, formatTime(f.To.AddDays(1).Time))
	}
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		where = append(where, `(id LIKE ? ESCAPE '\' OR reason LIKE ? ESCAPE '\')`)
		like := "%" + likeEscaper.Replace(kw) + "%"
		args = append(args, like, like)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM leave_requests"+clause, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count leave requests")
	}

	query := `SELECT ` + requestColumns + ` FROM leave_requests` + clause +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	items, err := q.queryRequests(ctx, query, append(args, f.Size, f.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (q *queries) FindOverlapping(ctx context.Context, applicantID string, start, end time.Time, excludeID string) ([]leave.Request, error) {
	query := `
		SELECT ` + requestColumns + ` FROM leave_requests
		WHERE applicant_id = ?
		  AND id != ?
		  AND status NOT IN (?, ?)
		  AND start_time <= ?
		  AND end_time >= ?
		ORDER BY start_time ASC
	`
	return q.queryRequests(ctx, query,
		applicantID,
		excludeID,
		string(leave.StatusRejected),
		string(leave.StatusCancelled),
		formatTime(end),
		formatTime(start),
	)
}

func (q *queries) queryRequests(ctx context.Context, query string, args ...any) ([]leave.Request, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query leave requests")
	}
	defer rows.Close()

	requests := []leave.Request{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan leave request")
		}
		requests = append(requests, r)
	}
	return requests, errors.Wrap(rows.Err(), "failed to iterate leave requests")
}

func scanRequest(row scanner) (leave.Request, error) {
	var r leave.Request
	var leaveType, status, startTime, endTime, attachmentsJSON, createdAt, updatedAt string
	err := row.Scan(
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
		return r, err
	}

	r.Type = leave.Type(leaveType)
	r.Status = leave.Status(status)
	r.StartTime = parseTime(startTime)
	r.EndTime = parseTime(endTime)
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	if err := decodeAttachments(attachmentsJSON, &r.Attachments); err != nil {
		return r, errors.Wrapf(err, "bad attachments on %s", r.ID)
	}
	return r, nil
}

func decodeAttachments(raw string, dst *[]string) error {
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return err
	}
	if *dst == nil {
		*dst = []string{}
	}
	return nil
}

// likeEscaper makes user keywords match literally inside LIKE patterns.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
