package service_test

import (
	"context"
	"testing"

	"github.com/org-chart-api/internal/database"
	"github.com/org-chart-api/internal/domain"
	"github.com/org-chart-api/internal/dto"
	"github.com/org-chart-api/internal/repository"
	"github.com/org-chart-api/internal/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fixture struct {
	t           *testing.T
	ctx         context.Context
	db          *gorm.DB
	store       repository.Store
	employees   service.EmployeeService
	departments service.DepartmentService
	hierarchy   service.HierarchyService
	queries     service.QueryService
	root        *domain.Employee
}

func newFixture(t *testing.T, opts ...repository.Option) *fixture {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	logger := zaptest.NewLogger(t)
	store := repository.NewStore(db, opts...)

	f := &fixture{
		t:           t,
		ctx:         context.Background(),
		db:          db,
		store:       store,
		employees:   service.NewEmployeeService(store, logger),
		departments: service.NewDepartmentService(store.Departments(), 1, logger),
		hierarchy:   service.NewHierarchyService(store, logger),
		queries:     service.NewQueryService(store),
	}

	f.root, err = f.employees.CreateRoot(f.ctx, &dto.CreateEmployeeRequest{
		FirstName: "Olga",
		LastName:  "Romanova",
		Title:     "Chief Executive Officer",
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) department(name string, maxEmployees int) *domain.Department {
	f.t.Helper()
	dept, err := f.departments.Create(f.ctx, &dto.CreateDepartmentRequest{
		UnitName:     name,
		MaxEmployees: maxEmployees,
	})
	require.NoError(f.t, err)
	return dept
}

func (f *fixture) employee(firstName string) *domain.Employee {
	f.t.Helper()
	emp, err := f.employees.Create(f.ctx, &dto.CreateEmployeeRequest{
		FirstName: firstName,
		LastName:  "Test",
		Title:     "Engineer",
	})
	require.NoError(f.t, err)
	return emp
}

// assign назначает сотрудника под руководителя managerID (0 - руководитель подразделения)
func (f *fixture) assign(emp *domain.Employee, dept *domain.Department, managerID int64) *domain.Employee {
	f.t.Helper()
	req := &dto.AssignRequest{PersonID: emp.PersonID, DropDepartmentID: dept.UnitID}
	if managerID != 0 {
		req.DropEmployeeID = &managerID
	}
	updated, err := f.hierarchy.AssignToDepartment(f.ctx, req)
	require.NoError(f.t, err)
	return updated
}

func (f *fixture) reloadEmployee(id int64) *domain.Employee {
	f.t.Helper()
	emp, err := f.employees.GetByID(f.ctx, id)
	require.NoError(f.t, err)
	return emp
}

func (f *fixture) reloadDepartment(id int64) *domain.Department {
	f.t.Helper()
	dept, err := f.departments.GetByID(f.ctx, id)
	require.NoError(f.t, err)
	return dept
}

func (f *fixture) requireConsistent() {
	f.t.Helper()
	report, err := f.queries.CheckConsistency(f.ctx)
	require.NoError(f.t, err)
	require.Empty(f.t, report.Violations)
}

func ptr[T any](v T) *T {
	return &v
}
