// Package directory provides leave.Directory implementations.
package directory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MEMORY DIRECTORY - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	employees   map[string]leave.Employee
	departments map[string]leave.Department
}

func NewMemory() *Memory {
	return &Memory{
		employees:   make(map[string]leave.Employee),
		departments: make(map[string]leave.Department),
	}
}

// PutEmployee adds or replaces an employee.
func (m *Memory) PutEmployee(e leave.Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = e
}

// PutDepartment adds or replaces a department.
func (m *Memory) PutDepartment(d leave.Department) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.departments[d.ID] = d
}

func (m *Memory) GetEmployee(_ context.Context, id string) (*leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.employees[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *Memory) GetDepartment(_ context.Context, id string) (*leave.Department, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.departments[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

// FindEmployeeByRole picks the lowest id among holders of role so the
// answer is stable.
func (m *Memory) FindEmployeeByRole(_ context.Context, role string) (*leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for id, e := range m.employees {
		if e.Role == role {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)
	e := m.employees[ids[0]]
	return &e, nil
}

var _ leave.Directory = (*Memory)(nil)
