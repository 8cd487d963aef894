package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/org-chart-api/internal/domain"
	"github.com/org-chart-api/internal/dto"
	"github.com/org-chart-api/internal/repository"
	"go.uber.org/zap"
)

// EmployeeService определяет интерфейс бизнес-логики для сотрудников
type EmployeeService interface {
	Create(ctx context.Context, req *dto.CreateEmployeeRequest) (*domain.Employee, error)
	CreateRoot(ctx context.Context, req *dto.CreateEmployeeRequest) (*domain.Employee, error)
	GetByID(ctx context.Context, id int64) (*domain.Employee, error)
}

type employeeService struct {
	store  repository.Store
	logger *zap.Logger
}

// NewEmployeeService создаёт новый экземпляр сервиса
func NewEmployeeService(store repository.Store, logger *zap.Logger) EmployeeService {
	return &employeeService{
		store:  store,
		logger: logger.Named("employee_service"),
	}
}

// Create создаёт нераспределённого сотрудника: без подразделения,
// руководителя и пути
func (s *employeeService) Create(ctx context.Context, req *dto.CreateEmployeeRequest) (*domain.Employee, error) {
	emp := newEmployee(req, domain.RoleEmployee)

	if err := s.store.Employees().Create(ctx, emp); err != nil {
		return nil, err
	}

	s.logger.Info("employee created", zap.Int64("person_id", emp.PersonID))
	return emp, nil
}

// CreateRoot создаёт CEO. Повторная попытка завершается ErrRootExists.
func (s *employeeService) CreateRoot(ctx context.Context, req *dto.CreateEmployeeRequest) (*domain.Employee, error) {
	emp := newEmployee(req, domain.RoleCEO)

	err := s.store.WithTransaction(ctx, func(tx repository.Store) error {
		root, err := tx.Employees().GetRoot(ctx)
		if err == nil {
			return fmt.Errorf("%w: person_id %d", domain.ErrRootExists, root.PersonID)
		}
		if !errors.Is(err, domain.ErrRootNotFound) {
			return err
		}
		return tx.Employees().Create(ctx, emp)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("root created", zap.Int64("person_id", emp.PersonID))
	return emp, nil
}

func (s *employeeService) GetByID(ctx context.Context, id int64) (*domain.Employee, error) {
	return s.store.Employees().GetByID(ctx, id)
}

func newEmployee(req *dto.CreateEmployeeRequest, role domain.Role) *domain.Employee {
	return &domain.Employee{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Title:     strings.TrimSpace(req.Title),
		Role:      role,
	}
}
