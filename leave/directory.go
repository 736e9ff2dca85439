package leave

import (
	"context"
	"time"
)

// Employee is what the directory tells us about a person.
type Employee struct {
	ID           string
	Name         string
	ManagerID    string
	DepartmentID string
	HireDate     *time.Time
	Role         string
}

type Department struct {
	ID       string
	Name     string
	LeaderID string
}

// Directory is the employee/department collaborator. Lookups of unknown
// ids return (nil, nil).
type Directory interface {
	GetEmployee(ctx context.Context, id string) (*Employee, error)
	GetDepartment(ctx context.Context, id string) (*Department, error)
	// FindEmployeeByRole returns one holder of role, used for the
	// senior-approver level.
	FindEmployeeByRole(ctx context.Context, role string) (*Employee, error)
}
