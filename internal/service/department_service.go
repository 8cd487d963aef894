package service

import (
	"context"
	"strings"

	"github.com/org-chart-api/internal/domain"
	"github.com/org-chart-api/internal/dto"
	"github.com/org-chart-api/internal/repository"
	"go.uber.org/zap"
)

// DepartmentService определяет интерфейс бизнес-логики для подразделений
type DepartmentService interface {
	Create(ctx context.Context, req *dto.CreateDepartmentRequest) (*domain.Department, error)
	GetByID(ctx context.Context, id int64) (*domain.Department, error)
}

type departmentService struct {
	deptRepo       repository.DepartmentRepository
	capacityBuffer int
	logger         *zap.Logger
}

// NewDepartmentService создаёт новый экземпляр сервиса.
// capacityBuffer добавляется к запрошенной вместимости при создании.
func NewDepartmentService(deptRepo repository.DepartmentRepository, capacityBuffer int, logger *zap.Logger) DepartmentService {
	if capacityBuffer < 0 {
		capacityBuffer = 0
	}
	return &departmentService{
		deptRepo:       deptRepo,
		capacityBuffer: capacityBuffer,
		logger:         logger.Named("department_service"),
	}
}

func (s *departmentService) Create(ctx context.Context, req *dto.CreateDepartmentRequest) (*domain.Department, error) {
	dept := &domain.Department{
		UnitName:     strings.TrimSpace(req.UnitName),
		MaxEmployees: req.MaxEmployees + s.capacityBuffer,
	}

	if err := s.deptRepo.Create(ctx, dept); err != nil {
		return nil, err
	}

	s.logger.Info("department created",
		zap.Int64("unit_id", dept.UnitID),
		zap.String("unit_name", dept.UnitName),
		zap.Int("max_employees", dept.MaxEmployees),
	)
	return dept, nil
}

func (s *departmentService) GetByID(ctx context.Context, id int64) (*domain.Department, error) {
	return s.deptRepo.GetByID(ctx, id)
}
