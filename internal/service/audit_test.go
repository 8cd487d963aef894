package service

import (
	"testing"

	"github.com/org-chart-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func i64(v int64) *int64    { return &v }
func str(s string) *string { return &s }

func TestAudit_CleanTree(t *testing.T) {
	employees := []domain.Employee{
		{PersonID: 1, Role: domain.RoleCEO},
		{PersonID: 10, Role: domain.RoleEmployee, DepartmentID: i64(5), ManagerID: i64(1), AncestorPath: str("1")},
		{PersonID: 11, Role: domain.RoleEmployee, DepartmentID: i64(5), ManagerID: i64(10), AncestorPath: str("1>10")},
		{PersonID: 12, Role: domain.RoleEmployee},
	}
	departments := []domain.Department{
		{UnitID: 5, ManagerID: i64(10), EmployeeCount: 2, MaxEmployees: 3},
		{UnitID: 6, MaxEmployees: 3},
	}

	report := audit(employees, departments)
	assert.True(t, report.Consistent(), report.Violations)
}

func TestAudit_Violations(t *testing.T) {
	employees := []domain.Employee{
		{PersonID: 1, Role: domain.RoleCEO},
		{PersonID: 10, Role: domain.RoleEmployee, DepartmentID: i64(5), ManagerID: i64(1), AncestorPath: str("1")},
		{PersonID: 11, Role: domain.RoleEmployee, DepartmentID: i64(5), ManagerID: i64(10), AncestorPath: str("1>99")},
		{PersonID: 20, Role: domain.RoleEmployee, DepartmentID: i64(6), ManagerID: i64(21), AncestorPath: str("21")},
		{PersonID: 21, Role: domain.RoleEmployee, DepartmentID: i64(6), ManagerID: i64(20), AncestorPath: str("20")},
		{PersonID: 30, Role: domain.RoleEmployee, ManagerID: i64(10)},
	}
	departments := []domain.Department{
		{UnitID: 5, ManagerID: i64(10), EmployeeCount: 3, MaxEmployees: 5},
		{UnitID: 6, EmployeeCount: 2, MaxEmployees: 5},
		{UnitID: 7, ManagerID: i64(10), MaxEmployees: 5},
	}

	report := audit(employees, departments)
	assert.False(t, report.Consistent())
	assert.Contains(t, report.Violations, `employee 11 path "1>99" ends at 99, manager is 10`)
	assert.Contains(t, report.Violations, "employee 20 is part of a manager cycle")
	assert.Contains(t, report.Violations, "unassigned employee 30 keeps manager or path")
	assert.Contains(t, report.Violations, "department 5 counts 3 employees, has 2")
	assert.Contains(t, report.Violations, "department 6 has members but no manager")
	assert.Contains(t, report.Violations, "empty department 7 keeps manager 10")
	assert.Contains(t, report.Violations, "department 7 manager 10 is not its member")
}

func TestAudit_RootCount(t *testing.T) {
	report := audit(nil, nil)
	assert.Equal(t, []string{"expected exactly one root, found 0"}, report.Violations)
}
