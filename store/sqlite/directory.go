package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// DIRECTORY MIRROR (leave.Directory interface)
// =============================================================================
// Employees and departments are pushed in by the directory sync endpoints.
// These reads run on the pool, never inside WithTx.

const employeeColumns = `id, name, manager_id, department_id, hire_date, role`

func (s *Store) GetEmployee(ctx context.Context, id string) (*leave.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = ?`
	e, err := scanEmployee(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get employee %s", id)
	}
	return &e, nil
}

// FindEmployeeByRole picks the lowest id among holders of role.
func (s *Store) FindEmployeeByRole(ctx context.Context, role string) (*leave.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE role = ? ORDER BY id ASC LIMIT 1`
	e, err := scanEmployee(s.db.QueryRowContext(ctx, query, role))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find employee with role %s", role)
	}
	return &e, nil
}

func (s *Store) GetDepartment(ctx context.Context, id string) (*leave.Department, error) {
	var d leave.Department
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, leader_id FROM departments WHERE id = ?`, id,
	).Scan(&d.ID, &d.Name, &d.LeaderID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get department %s", id)
	}
	return &d, nil
}

// SaveEmployee inserts or replaces one employee.
func (s *Store) SaveEmployee(ctx context.Context, e leave.Employee) error {
	query := `
		INSERT INTO employees (id, name, manager_id, department_id, hire_date, role, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			manager_id = excluded.manager_id,
			department_id = excluded.department_id,
			hire_date = excluded.hire_date,
			role = excluded.role,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.Name,
		e.ManagerID,
		e.DepartmentID,
		nullTime(e.HireDate),
		e.Role,
		formatTime(time.Now()),
	)
	return errors.Wrapf(err, "failed to save employee %s", e.ID)
}

// SaveDepartment inserts or replaces one department.
func (s *Store) SaveDepartment(ctx context.Context, d leave.Department) error {
	query := `
		INSERT INTO departments (id, name, leader_id, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			leader_id = excluded.leader_id,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query, d.ID, d.Name, d.LeaderID, formatTime(time.Now()))
	return errors.Wrapf(err, "failed to save department %s", d.ID)
}

func scanEmployee(row scanner) (leave.Employee, error) {
	var e leave.Employee
	var hireDate sql.NullString
	err := row.Scan(&e.ID, &e.Name, &e.ManagerID, &e.DepartmentID, &hireDate, &e.Role)
	if err != nil {
		return e, err
	}
	e.HireDate = timePtr(hireDate)
	return e, nil
}
