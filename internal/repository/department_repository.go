package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/org-chart-api/internal/domain"
	"gorm.io/gorm"
)

// DepartmentRepository определяет интерфейс для работы с подразделениями
type DepartmentRepository interface {
	Create(ctx context.Context, dept *domain.Department) error
	GetByID(ctx context.Context, id int64) (*domain.Department, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Department, error)
	List(ctx context.Context) ([]domain.Department, error)
	AdjustCount(ctx context.Context, id int64, delta int) error
	SetManager(ctx context.Context, id int64, managerID *int64) error
}

type departmentRepository struct {
	db *gorm.DB
}

// NewDepartmentRepository создаёт новый экземпляр репозитория
func NewDepartmentRepository(db *gorm.DB) DepartmentRepository {
	return &departmentRepository{db: db}
}

func (r *departmentRepository) Create(ctx context.Context, dept *domain.Department) error {
	return r.db.WithContext(ctx).Create(dept).Error
}

func (r *departmentRepository) GetByID(ctx context.Context, id int64) (*domain.Department, error) {
	return r.first(r.db.WithContext(ctx), id)
}

func (r *departmentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Department, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *departmentRepository) first(db *gorm.DB, id int64) (*domain.Department, error) {
	var dept domain.Department
	err := db.Where("unit_id = ?", id).First(&dept).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: unit_id %d", domain.ErrDepartmentNotFound, id)
		}
		return nil, err
	}
	return &dept, nil
}

func (r *departmentRepository) List(ctx context.Context) ([]domain.Department, error) {
	var departments []domain.Department
	err := r.db.WithContext(ctx).Order("unit_id ASC").Find(&departments).Error
	return departments, err
}

func (r *departmentRepository) AdjustCount(ctx context.Context, id int64, delta int) error {
	if delta == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).
		Model(&domain.Department{}).
		Where("unit_id = ?", id).
		Updates(map[string]any{
			"employee_count": gorm.Expr("employee_count + ?", delta),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: unit_id %d", domain.ErrDepartmentNotFound, id)
	}
	return nil
}

func (r *departmentRepository) SetManager(ctx context.Context, id int64, managerID *int64) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Department{}).
		Where("unit_id = ?", id).
		Updates(map[string]any{"manager_id": nullable(managerID)})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: unit_id %d", domain.ErrDepartmentNotFound, id)
	}
	return nil
}
