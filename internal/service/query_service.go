package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/org-chart-api/internal/ancestry"
	"github.com/org-chart-api/internal/domain"
	"github.com/org-chart-api/internal/repository"
)

// QueryService отдаёт снимки иерархии и ничего не изменяет
type QueryService interface {
	Hierarchy(ctx context.Context) ([]domain.HierarchyRow, error)
	Unassigned(ctx context.Context) ([]domain.Employee, error)
	Departments(ctx context.Context) ([]domain.Department, error)
	Root(ctx context.Context) (*domain.Employee, error)
	CheckConsistency(ctx context.Context) (*ConsistencyReport, error)
}

// ConsistencyReport - нарушения инвариантов иерархии, найденные полным обходом
type ConsistencyReport struct {
	Violations []string
}

// Consistent сообщает, что нарушений не найдено
func (r *ConsistencyReport) Consistent() bool {
	return len(r.Violations) == 0
}

type queryService struct {
	store repository.Store
}

// NewQueryService создаёт новый экземпляр сервиса
func NewQueryService(store repository.Store) QueryService {
	return &queryService{store: store}
}

func (s *queryService) Hierarchy(ctx context.Context) ([]domain.HierarchyRow, error) {
	return s.store.Employees().ListHierarchy(ctx)
}

func (s *queryService) Unassigned(ctx context.Context) ([]domain.Employee, error) {
	return s.store.Employees().ListUnassigned(ctx)
}

func (s *queryService) Departments(ctx context.Context) ([]domain.Department, error) {
	return s.store.Departments().List(ctx)
}

func (s *queryService) Root(ctx context.Context) (*domain.Employee, error) {
	return s.store.Employees().GetRoot(ctx)
}

func (s *queryService) CheckConsistency(ctx context.Context) (*ConsistencyReport, error) {
	var (
		employees   []domain.Employee
		departments []domain.Department
	)
	err := s.store.WithTransaction(ctx, func(tx repository.Store) error {
		var err error
		if employees, err = tx.Employees().List(ctx); err != nil {
			return err
		}
		departments, err = tx.Departments().List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	return audit(employees, departments), nil
}

// audit проверяет указатели на руководителей, пути, счётчики
// и руководителей подразделений по полному снимку
func audit(employees []domain.Employee, departments []domain.Department) *ConsistencyReport {
	report := &ConsistencyReport{Violations: []string{}}
	addf := func(format string, args ...any) {
		report.Violations = append(report.Violations, fmt.Sprintf(format, args...))
	}

	byID := make(map[int64]*domain.Employee, len(employees))
	for i := range employees {
		byID[employees[i].PersonID] = &employees[i]
	}
	deptByID := make(map[int64]*domain.Department, len(departments))
	for i := range departments {
		deptByID[departments[i].UnitID] = &departments[i]
	}

	roots := 0
	members := make(map[int64]int, len(departments))

	for i := range employees {
		emp := &employees[i]

		if emp.IsRoot() {
			roots++
			if emp.DepartmentID != nil || emp.ManagerID != nil || emp.AncestorPath != nil {
				addf("root %d has hierarchy fields set", emp.PersonID)
			}
			continue
		}

		if !emp.IsAssigned() {
			if emp.ManagerID != nil || emp.AncestorPath != nil {
				addf("unassigned employee %d keeps manager or path", emp.PersonID)
			}
			continue
		}

		if _, ok := deptByID[*emp.DepartmentID]; !ok {
			addf("employee %d references missing department %d", emp.PersonID, *emp.DepartmentID)
		}
		members[*emp.DepartmentID]++

		if emp.ManagerID == nil {
			addf("assigned employee %d has no manager", emp.PersonID)
			continue
		}
		manager, ok := byID[*emp.ManagerID]
		if !ok {
			addf("employee %d references missing manager %d", emp.PersonID, *emp.ManagerID)
			continue
		}
		if emp.AncestorPath == nil {
			addf("assigned employee %d has no path", emp.PersonID)
		} else if ids, err := ancestry.Parse(*emp.AncestorPath); err != nil {
			addf("employee %d: %v", emp.PersonID, err)
		} else if slices.Contains(ids, emp.PersonID) {
			addf("employee %d appears in its own path %q", emp.PersonID, *emp.AncestorPath)
		} else if last, _ := ancestry.Last(*emp.AncestorPath); last != manager.PersonID {
			addf("employee %d path %q ends at %d, manager is %d", emp.PersonID, *emp.AncestorPath, last, manager.PersonID)
		} else if want := ancestry.Append(manager.AncestorPath, manager.PersonID); *emp.AncestorPath != want {
			addf("employee %d has path %q, want %q", emp.PersonID, *emp.AncestorPath, want)
		}

		if cyclic(emp, byID) {
			addf("employee %d is part of a manager cycle", emp.PersonID)
		}
	}

	if roots != 1 {
		addf("expected exactly one root, found %d", roots)
	}

	for i := range departments {
		dept := &departments[i]
		if dept.EmployeeCount != members[dept.UnitID] {
			addf("department %d counts %d employees, has %d", dept.UnitID, dept.EmployeeCount, members[dept.UnitID])
		}
		if members[dept.UnitID] > 0 && !dept.HasManager() {
			addf("department %d has members but no manager", dept.UnitID)
		}
		if members[dept.UnitID] == 0 && dept.HasManager() {
			addf("empty department %d keeps manager %d", dept.UnitID, *dept.ManagerID)
		}
		if dept.HasManager() {
			head, ok := byID[*dept.ManagerID]
			if !ok || !head.InDepartment(dept.UnitID) {
				addf("department %d manager %d is not its member", dept.UnitID, *dept.ManagerID)
			}
		}
	}

	return report
}

func cyclic(emp *domain.Employee, byID map[int64]*domain.Employee) bool {
	seen := map[int64]bool{emp.PersonID: true}
	for cur := emp; cur.ManagerID != nil; {
		next, ok := byID[*cur.ManagerID]
		if !ok {
			return false
		}
		if seen[next.PersonID] {
			return true
		}
		seen[next.PersonID] = true
		cur = next
	}
	return false
}
