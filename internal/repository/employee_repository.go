package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/org-chart-api/internal/ancestry"
	"github.com/org-chart-api/internal/domain"
	"gorm.io/gorm"
)

// EmployeeRepository определяет интерфейс для работы с сотрудниками
type EmployeeRepository interface {
	Create(ctx context.Context, emp *domain.Employee) error
	GetByID(ctx context.Context, id int64) (*domain.Employee, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Employee, error)
	GetRoot(ctx context.Context) (*domain.Employee, error)
	List(ctx context.Context) ([]domain.Employee, error)
	ListByDepartment(ctx context.Context, departmentID int64) ([]domain.Employee, error)
	ListUnassigned(ctx context.Context) ([]domain.Employee, error)
	ListHierarchy(ctx context.Context) ([]domain.HierarchyRow, error)
	TransitiveReportIDs(ctx context.Context, id int64) ([]int64, error)
	CountSubtree(ctx context.Context, id int64) (int, error)
	SubtreeHeight(ctx context.Context, prefix string) (int, error)
	UpdateHierarchyFields(ctx context.Context, id int64, fields domain.HierarchyFields) error
	RewriteSubtreePaths(ctx context.Context, oldPrefix, newPrefix string, departmentID *int64) ([]int64, error)
	DetachSubtree(ctx context.Context, prefix string) ([]int64, error)
}

type employeeRepository struct {
	db       *gorm.DB
	maxDepth int
}

// NewEmployeeRepository создаёт новый экземпляр репозитория
func NewEmployeeRepository(db *gorm.DB, maxDepth int) EmployeeRepository {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &employeeRepository{db: db, maxDepth: maxDepth}
}

func (r *employeeRepository) Create(ctx context.Context, emp *domain.Employee) error {
	return r.db.WithContext(ctx).Create(emp).Error
}

func (r *employeeRepository) GetByID(ctx context.Context, id int64) (*domain.Employee, error) {
	return r.first(r.db.WithContext(ctx), id)
}

func (r *employeeRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Employee, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *employeeRepository) first(db *gorm.DB, id int64) (*domain.Employee, error) {
	var emp domain.Employee
	err := db.Where("person_id = ?", id).First(&emp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: person_id %d", domain.ErrEmployeeNotFound, id)
		}
		return nil, err
	}
	return &emp, nil
}

func (r *employeeRepository) GetRoot(ctx context.Context) (*domain.Employee, error) {
	var emp domain.Employee
	err := r.db.WithContext(ctx).
		Where("role = ?", domain.RoleCEO).
		Order("person_id ASC").
		First(&emp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRootNotFound
		}
		return nil, err
	}
	return &emp, nil
}

func (r *employeeRepository) List(ctx context.Context) ([]domain.Employee, error) {
	var employees []domain.Employee
	err := r.db.WithContext(ctx).Order("person_id ASC").Find(&employees).Error
	return employees, err
}

func (r *employeeRepository) ListByDepartment(ctx context.Context, departmentID int64) ([]domain.Employee, error) {
	var employees []domain.Employee
	err := r.db.WithContext(ctx).
		Where("department_id = ?", departmentID).
		Order("person_id ASC").
		Find(&employees).Error
	return employees, err
}

func (r *employeeRepository) ListUnassigned(ctx context.Context) ([]domain.Employee, error) {
	var employees []domain.Employee
	err := r.db.WithContext(ctx).
		Where("department_id IS NULL AND role <> ?", domain.RoleCEO).
		Order("person_id ASC").
		Find(&employees).Error
	return employees, err
}

func (r *employeeRepository) ListHierarchy(ctx context.Context) ([]domain.HierarchyRow, error) {
	// CEO первым, затем по подразделениям, нераспределённые в конце
	query := `
		SELECT
			e.person_id, e.first_name, e.last_name, e.title, e.role,
			e.department_id, e.manager_id, e.ancestor_path,
			d.unit_name, d.manager_id AS dept_manager_id
		FROM employee e
		LEFT JOIN department d ON e.department_id = d.unit_id
		ORDER BY
			CASE WHEN e.role = ? THEN 0 WHEN e.department_id IS NULL THEN 2 ELSE 1 END,
			e.department_id, e.person_id
	`

	var rows []domain.HierarchyRow
	err := r.db.WithContext(ctx).Raw(query, domain.RoleCEO).Scan(&rows).Error
	return rows, err
}

// TransitiveReportIDs обходит подчинённых по manager_id в ширину.
// Обход ограничен maxDepth уровнями; если за пределом остаются
// подчинённые, возвращается ErrHierarchyTooDeep.
func (r *employeeRepository) TransitiveReportIDs(ctx context.Context, id int64) ([]int64, error) {
	visited := map[int64]bool{id: true}
	frontier := []int64{id}
	var result []int64

	for depth := 0; len(frontier) > 0; depth++ {
		var children []int64
		err := r.db.WithContext(ctx).
			Model(&domain.Employee{}).
			Where("manager_id IN ?", frontier).
			Order("person_id ASC").
			Pluck("person_id", &children).Error
		if err != nil {
			return nil, err
		}

		next := make([]int64, 0, len(children))
		for _, child := range children {
			if visited[child] {
				continue
			}
			visited[child] = true
			next = append(next, child)
		}
		if len(next) == 0 {
			break
		}
		if depth >= r.maxDepth {
			return nil, fmt.Errorf("%w: reports of person_id %d go deeper than %d levels",
				domain.ErrHierarchyTooDeep, id, r.maxDepth)
		}

		result = append(result, next...)
		frontier = next
	}

	return result, nil
}

func (r *employeeRepository) CountSubtree(ctx context.Context, id int64) (int, error) {
	reports, err := r.TransitiveReportIDs(ctx, id)
	if err != nil {
		return 0, err
	}
	return len(reports) + 1, nil
}

// SubtreeHeight возвращает число уровней под prefix: 0 для листа,
// 1 если есть только прямые подчинённые и т.д. Строки блокируются.
func (r *employeeRepository) SubtreeHeight(ctx context.Context, prefix string) (int, error) {
	rows, err := r.subtreeRows(ctx, prefix)
	if err != nil {
		return 0, err
	}

	base := ancestry.Depth(&prefix)
	height := 0
	for _, row := range rows {
		height = max(height, ancestry.Depth(row.AncestorPath)-base+1)
	}
	return height, nil
}

func (r *employeeRepository) UpdateHierarchyFields(ctx context.Context, id int64, fields domain.HierarchyFields) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Employee{}).
		Where("person_id = ?", id).
		Updates(map[string]any{
			"department_id": nullable(fields.DepartmentID),
			"manager_id":    nullable(fields.ManagerID),
			"ancestor_path": nullable(fields.AncestorPath),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: person_id %d", domain.ErrEmployeeNotFound, id)
	}
	return nil
}

// RewriteSubtreePaths переписывает путь каждого сотрудника под oldPrefix,
// заменяя префикс на newPrefix, и переносит его в departmentID (если задан).
func (r *employeeRepository) RewriteSubtreePaths(ctx context.Context, oldPrefix, newPrefix string, departmentID *int64) ([]int64, error) {
	rows, err := r.subtreeRows(ctx, oldPrefix)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		updates := map[string]any{
			"ancestor_path": ancestry.RewritePrefix(*row.AncestorPath, oldPrefix, newPrefix),
		}
		if departmentID != nil {
			updates["department_id"] = *departmentID
		}

		err := r.db.WithContext(ctx).
			Model(&domain.Employee{}).
			Where("person_id = ?", row.PersonID).
			Updates(updates).Error
		if err != nil {
			return nil, err
		}
		ids = append(ids, row.PersonID)
	}

	return ids, nil
}

// DetachSubtree снимает с иерархии всех сотрудников под prefix
func (r *employeeRepository) DetachSubtree(ctx context.Context, prefix string) ([]int64, error) {
	rows, err := r.subtreeRows(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.PersonID
	}

	err = r.db.WithContext(ctx).
		Model(&domain.Employee{}).
		Where("person_id IN ?", ids).
		Updates(map[string]any{
			"department_id": nil,
			"manager_id":    nil,
			"ancestor_path": nil,
		}).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// subtreeRows выбирает и блокирует строки, чей путь лежит под prefix.
// LIKE сужает выборку, окончательная проверка - ancestry.InSubtree.
func (r *employeeRepository) subtreeRows(ctx context.Context, prefix string) ([]domain.Employee, error) {
	var candidates []domain.Employee
	err := forUpdate(r.db.WithContext(ctx)).
		Where("ancestor_path = ? OR ancestor_path LIKE ? ESCAPE '\\'",
			prefix, ancestry.EscapeLike(prefix+ancestry.Separator)+"%").
		Order("person_id ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	rows := candidates[:0]
	for _, c := range candidates {
		if c.AncestorPath != nil && ancestry.InSubtree(*c.AncestorPath, prefix) {
			rows = append(rows, c)
		}
	}
	return rows, nil
}
