package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// HOLIDAY STORE (calendar.Store interface)
// =============================================================================

const holidayColumns = `id, date, name, holiday_type, year, is_workday, created_at, updated_at`

func (q *queries) GetHolidaysInRange(ctx context.Context, period generic.Period) ([]calendar.Holiday, error) {
	query := `SELECT ` + holidayColumns + ` FROM holidays WHERE date >= ? AND date <= ? ORDER BY date ASC`
	return q.queryHolidays(ctx, query, period.Start.String(), period.End.String())
}

func (q *queries) GetHolidayOnDate(ctx context.Context, date generic.TimePoint) (*calendar.Holiday, error) {
	query := `SELECT ` + holidayColumns + ` FROM holidays WHERE date = ?`
	h, err := scanHoliday(q.db.QueryRowContext(ctx, query, date.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get holiday on %s", date)
	}
	return &h, nil
}

func (q *queries) GetHoliday(ctx context.Context, id string) (*calendar.Holiday, error) {
	query := `SELECT ` + holidayColumns + ` FROM holidays WHERE id = ?`
	h, err := scanHoliday(q.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get holiday %s", id)
	}
	return &h, nil
}

func (q *queries) ListHolidays(ctx context.Context, year int) ([]calendar.Holiday, error) {
	query := `SELECT ` + holidayColumns + ` FROM holidays WHERE year = ? ORDER BY date ASC`
	return q.queryHolidays(ctx, query, year)
}

func (q *queries) InsertHoliday(ctx context.Context, h calendar.Holiday) error {
	query := `
		INSERT INTO holidays (` + holidayColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.db.ExecContext(ctx, query,
		h.ID,
		h.Date.String(),
		h.Name,
		string(h.Type),
		h.Year,
		h.IsWorkday,
		formatTime(h.CreatedAt),
		formatTime(h.UpdatedAt),
	)
	if isUniqueConstraintError(err) {
		return generic.Conflict("a holiday already exists on %s", h.Date)
	}
	return errors.Wrapf(err, "failed to insert holiday %s", h.Date)
}

func (q *queries) UpdateHoliday(ctx context.Context, h calendar.Holiday) error {
	query := `
		UPDATE holidays
		SET date = ?, name = ?, holiday_type = ?, year = ?, is_workday = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := q.db.ExecContext(ctx, query,
		h.Date.String(),
		h.Name,
		string(h.Type),
		h.Year,
		h.IsWorkday,
		formatTime(h.UpdatedAt),
		h.ID,
	)
	if isUniqueConstraintError(err) {
		return generic.Conflict("a holiday already exists on %s", h.Date)
	}
	return errors.Wrapf(err, "failed to update holiday %s", h.ID)
}

func (q *queries) DeleteHoliday(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	return errors.Wrapf(err, "failed to delete holiday %s", id)
}

func (q *queries) queryHolidays(ctx context.Context, query string, args ...any) ([]calendar.Holiday, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query holidays")
	}
	defer rows.Close()

	holidays := []calendar.Holiday{}
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan holiday")
		}
		holidays = append(holidays, h)
	}
	return holidays, errors.Wrap(rows.Err(), "failed to iterate holidays")
}

func scanHoliday(row scanner) (calendar.Holiday, error) {
	var h calendar.Holiday
	var date, holidayType, createdAt, updatedAt string
	err := row.Scan(
		&h.ID,
		&date,
		&h.Name,
		&holidayType,
		&h.Year,
		&h.IsWorkday,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return h, err
	}
	h.Date, err = generic.ParseDate(date)
	if err != nil {
		return h, errors.Wrapf(err, "bad holiday date %q", date)
	}
	h.Type = calendar.HolidayType(holidayType)
	h.CreatedAt = parseTime(createdAt)
	h.UpdatedAt = parseTime(updatedAt)
	return h, nil
}
