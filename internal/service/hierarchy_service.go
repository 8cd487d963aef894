package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/org-chart-api/internal/ancestry"
	"github.com/org-chart-api/internal/domain"
	"github.com/org-chart-api/internal/dto"
	"github.com/org-chart-api/internal/metrics"
	"github.com/org-chart-api/internal/repository"
	"go.uber.org/zap"
)

const (
	opAssign     = "assign_to_department"
	opMoveWithin = "move_within_department"
	opMoveAcross = "move_across_departments"
	opRemove     = "remove_from_hierarchy"
	opPlace      = "place"
)

// Действия, которыми может завершиться размещение сотрудника
const (
	PlacementAssigned    = "assigned"
	PlacementMovedWithin = "moved_within"
	PlacementMovedAcross = "moved_across"
	PlacementUnchanged   = "unchanged"
)

// HierarchyService определяет операции перемещения сотрудников по иерархии.
// Каждая операция выполняется одной транзакцией: при любой ошибке
// хранилище остаётся в исходном состоянии.
type HierarchyService interface {
	AssignToDepartment(ctx context.Context, req *dto.AssignRequest) (*domain.Employee, error)
	MoveWithinDepartment(ctx context.Context, req *dto.MoveWithinRequest) (*domain.Employee, error)
	MoveAcrossDepartments(ctx context.Context, req *dto.MoveAcrossRequest) (*domain.MoveResult, error)
	RemoveFromHierarchy(ctx context.Context, personID int64) (*domain.MoveResult, error)
	Place(ctx context.Context, req *dto.PlaceRequest) (*Placement, error)
}

// Placement - итог размещения сотрудника
type Placement struct {
	Action   string
	Employee *domain.Employee
	Moved    *domain.MoveResult
}

type hierarchyService struct {
	store  repository.Store
	logger *zap.Logger
}

// NewHierarchyService создаёт новый экземпляр сервиса
func NewHierarchyService(store repository.Store, logger *zap.Logger) HierarchyService {
	return &hierarchyService{
		store:  store,
		logger: logger.Named("hierarchy_service"),
	}
}

func (s *hierarchyService) AssignToDepartment(ctx context.Context, req *dto.AssignRequest) (emp *domain.Employee, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation(opAssign, start, err) }()

	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		var txErr error
		emp, txErr = s.assign(ctx, tx, req.PersonID, req.DropDepartmentID, req.DropEmployeeID)
		return txErr
	})
	if err != nil {
		return nil, s.fail(opAssign, err)
	}

	s.logger.Info("employee assigned to department",
		zap.Int64("person_id", emp.PersonID),
		zap.Int64("department_id", *emp.DepartmentID),
		zap.Int64("manager_id", *emp.ManagerID),
	)
	return emp, nil
}

func (s *hierarchyService) assign(ctx context.Context, tx repository.Store, personID, departmentID int64, chosenManagerID *int64) (*domain.Employee, error) {
	emps := tx.Employees()
	depts := tx.Departments()

	emp, err := emps.GetByIDForUpdate(ctx, personID)
	if err != nil {
		return nil, err
	}
	if emp.IsRoot() {
		return nil, fmt.Errorf("%w: person_id %d", domain.ErrRootImmutable, personID)
	}
	if emp.IsAssigned() {
		return nil, fmt.Errorf("%w: person_id %d belongs to department %d",
			domain.ErrAlreadyAssigned, personID, *emp.DepartmentID)
	}

	dept, err := depts.GetByIDForUpdate(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	if err := checkCapacity(dept, 1); err != nil {
		return nil, err
	}

	// Первый сотрудник пустого подразделения подчиняется CEO и возглавляет его
	becomesHead := !dept.HasManager()

	var manager *domain.Employee
	if becomesHead {
		manager, err = emps.GetRoot(ctx)
		if err != nil {
			return nil, err
		}
	} else {
		managerID := *dept.ManagerID
		if chosenManagerID != nil {
			managerID = *chosenManagerID
		}
		manager, err = loadManager(ctx, emps, managerID)
		if err != nil {
			return nil, err
		}
		if !manager.InDepartment(dept.UnitID) {
			return nil, fmt.Errorf("%w: manager %d is not in department %q (unit_id %d)",
				domain.ErrNotInDepartment, manager.PersonID, dept.UnitName, dept.UnitID)
		}
	}

	path := ancestry.Append(manager.AncestorPath, manager.PersonID)
	if err := checkDepth(tx.MaxDepth(), personID, path, 0); err != nil {
		return nil, err
	}

	err = emps.UpdateHierarchyFields(ctx, personID, domain.HierarchyFields{
		DepartmentID: &dept.UnitID,
		ManagerID:    &manager.PersonID,
		AncestorPath: &path,
	})
	if err != nil {
		return nil, err
	}
	if err := depts.AdjustCount(ctx, dept.UnitID, 1); err != nil {
		return nil, err
	}
	if becomesHead {
		if err := depts.SetManager(ctx, dept.UnitID, &personID); err != nil {
			return nil, err
		}
	}

	return emps.GetByID(ctx, personID)
}

func (s *hierarchyService) MoveWithinDepartment(ctx context.Context, req *dto.MoveWithinRequest) (emp *domain.Employee, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation(opMoveWithin, start, err) }()

	var rewritten int
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		var txErr error
		emp, rewritten, txErr = s.moveWithin(ctx, tx, req)
		return txErr
	})
	if err != nil {
		return nil, s.fail(opMoveWithin, err)
	}

	metrics.ObserveAffected(opMoveWithin, rewritten+1)
	s.logger.Info("employee moved within department",
		zap.Int64("person_id", emp.PersonID),
		zap.Int64("department_id", req.DropDepartmentID),
		zap.Int64("manager_id", req.DropEmployeeID),
		zap.Int("reports_rewritten", rewritten),
	)
	return emp, nil
}

func (s *hierarchyService) moveWithin(ctx context.Context, tx repository.Store, req *dto.MoveWithinRequest) (*domain.Employee, int, error) {
	emps := tx.Employees()
	depts := tx.Departments()

	if req.DropEmployeeID == req.PersonID {
		return nil, 0, fmt.Errorf("%w: person_id %d", domain.ErrSelfReference, req.PersonID)
	}

	emp, err := emps.GetByIDForUpdate(ctx, req.PersonID)
	if err != nil {
		return nil, 0, err
	}
	if emp.IsRoot() {
		return nil, 0, fmt.Errorf("%w: person_id %d", domain.ErrRootImmutable, emp.PersonID)
	}
	if !emp.InDepartment(req.DropDepartmentID) {
		return nil, 0, fmt.Errorf("%w: person_id %d is not in department %d",
			domain.ErrNotInDepartment, emp.PersonID, req.DropDepartmentID)
	}

	// Блокировка подразделения упорядочивает все структурные изменения внутри него
	if _, err := depts.GetByIDForUpdate(ctx, req.DropDepartmentID); err != nil {
		return nil, 0, err
	}

	manager, err := loadManager(ctx, emps, req.DropEmployeeID)
	if err != nil {
		return nil, 0, err
	}
	if !manager.IsRoot() && !manager.InDepartment(req.DropDepartmentID) {
		return nil, 0, fmt.Errorf("%w: manager %d is not in department %d",
			domain.ErrNotInDepartment, manager.PersonID, req.DropDepartmentID)
	}

	reports, err := emps.TransitiveReportIDs(ctx, emp.PersonID)
	if err != nil {
		return nil, 0, err
	}
	if slices.Contains(reports, manager.PersonID) {
		return nil, 0, fmt.Errorf("%w: %d reports to %d", domain.ErrCircularHierarchy, manager.PersonID, emp.PersonID)
	}

	oldAnchor := ancestry.Append(emp.AncestorPath, emp.PersonID)
	newPath := ancestry.Append(manager.AncestorPath, manager.PersonID)
	newAnchor := ancestry.Append(&newPath, emp.PersonID)

	height, err := emps.SubtreeHeight(ctx, oldAnchor)
	if err != nil {
		return nil, 0, err
	}
	if err := checkDepth(tx.MaxDepth(), emp.PersonID, newPath, height); err != nil {
		return nil, 0, err
	}

	err = emps.UpdateHierarchyFields(ctx, emp.PersonID, domain.HierarchyFields{
		DepartmentID: emp.DepartmentID,
		ManagerID:    &manager.PersonID,
		AncestorPath: &newPath,
	})
	if err != nil {
		return nil, 0, err
	}

	// Подчинённые остаются в подразделении, меняется только префикс их путей
	var rewritten []int64
	if oldAnchor != newAnchor {
		rewritten, err = emps.RewriteSubtreePaths(ctx, oldAnchor, newAnchor, nil)
		if err != nil {
			return nil, 0, err
		}
	}

	updated, err := emps.GetByID(ctx, emp.PersonID)
	if err != nil {
		return nil, 0, err
	}
	return updated, len(rewritten), nil
}

func (s *hierarchyService) MoveAcrossDepartments(ctx context.Context, req *dto.MoveAcrossRequest) (res *domain.MoveResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation(opMoveAcross, start, err) }()

	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		var txErr error
		res, txErr = s.moveAcross(ctx, tx, req)
		return txErr
	})
	if err != nil {
		return nil, s.fail(opMoveAcross, err)
	}

	metrics.ObserveAffected(opMoveAcross, res.Count)
	s.logger.Info("employee subtree moved across departments",
		zap.Int64("person_id", req.PersonID),
		zap.Int64("department_id", req.NewDepartmentID),
		zap.Int("moved_count", res.Count),
	)
	return res, nil
}

func (s *hierarchyService) moveAcross(ctx context.Context, tx repository.Store, req *dto.MoveAcrossRequest) (*domain.MoveResult, error) {
	emps := tx.Employees()
	depts := tx.Departments()

	if req.DropEmployeeID != nil && *req.DropEmployeeID == req.PersonID {
		return nil, fmt.Errorf("%w: person_id %d", domain.ErrSelfReference, req.PersonID)
	}

	emp, err := emps.GetByIDForUpdate(ctx, req.PersonID)
	if err != nil {
		return nil, err
	}
	if emp.IsRoot() {
		return nil, fmt.Errorf("%w: person_id %d", domain.ErrRootImmutable, emp.PersonID)
	}
	if !emp.IsAssigned() {
		return nil, fmt.Errorf("%w: person_id %d", domain.ErrNotAssigned, emp.PersonID)
	}
	if *emp.DepartmentID == req.NewDepartmentID {
		return nil, fmt.Errorf("%w: person_id %d already belongs to department %d",
			domain.ErrNoOpMove, emp.PersonID, req.NewDepartmentID)
	}

	src, dst, err := lockDepartmentPair(ctx, depts, *emp.DepartmentID, req.NewDepartmentID)
	if err != nil {
		return nil, err
	}

	// Размер поддерева считается по живому графу, а не по данным клиента
	moveCount, err := emps.CountSubtree(ctx, emp.PersonID)
	if err != nil {
		return nil, err
	}
	if req.EmployeesToMoveCount != nil && *req.EmployeesToMoveCount != moveCount {
		s.logger.Warn("client move count differs from server count",
			zap.Int64("person_id", emp.PersonID),
			zap.Int("client_count", *req.EmployeesToMoveCount),
			zap.Int("server_count", moveCount),
		)
	}
	if err := checkCapacity(dst, moveCount); err != nil {
		return nil, err
	}

	var manager *domain.Employee
	if req.DropEmployeeID != nil {
		manager, err = loadManager(ctx, emps, *req.DropEmployeeID)
		if err != nil {
			return nil, err
		}
		if !manager.IsRoot() && !manager.InDepartment(dst.UnitID) {
			return nil, fmt.Errorf("%w: manager %d is not in department %q (unit_id %d)",
				domain.ErrNotInDepartment, manager.PersonID, dst.UnitName, dst.UnitID)
		}
		reports, err := emps.TransitiveReportIDs(ctx, emp.PersonID)
		if err != nil {
			return nil, err
		}
		if slices.Contains(reports, manager.PersonID) {
			return nil, fmt.Errorf("%w: %d reports to %d", domain.ErrCircularHierarchy, manager.PersonID, emp.PersonID)
		}
	} else {
		manager, err = emps.GetRoot(ctx)
		if err != nil {
			return nil, err
		}
	}

	oldAnchor := ancestry.Append(emp.AncestorPath, emp.PersonID)
	newPath := ancestry.Append(manager.AncestorPath, manager.PersonID)
	newAnchor := ancestry.Append(&newPath, emp.PersonID)

	height, err := emps.SubtreeHeight(ctx, oldAnchor)
	if err != nil {
		return nil, err
	}
	if err := checkDepth(tx.MaxDepth(), emp.PersonID, newPath, height); err != nil {
		return nil, err
	}

	err = emps.UpdateHierarchyFields(ctx, emp.PersonID, domain.HierarchyFields{
		DepartmentID: &dst.UnitID,
		ManagerID:    &manager.PersonID,
		AncestorPath: &newPath,
	})
	if err != nil {
		return nil, err
	}

	rewritten, err := emps.RewriteSubtreePaths(ctx, oldAnchor, newAnchor, &dst.UnitID)
	if err != nil {
		return nil, err
	}
	if len(rewritten) != moveCount-1 {
		s.logger.Warn("ancestor paths disagree with manager links",
			zap.Int64("person_id", emp.PersonID),
			zap.Int("by_path", len(rewritten)),
			zap.Int("by_manager", moveCount-1),
		)
	}

	moved := append([]int64{emp.PersonID}, rewritten...)
	if err := depts.AdjustCount(ctx, src.UnitID, -len(moved)); err != nil {
		return nil, err
	}
	if err := depts.AdjustCount(ctx, dst.UnitID, len(moved)); err != nil {
		return nil, err
	}

	if !dst.HasManager() {
		if err := depts.SetManager(ctx, dst.UnitID, &emp.PersonID); err != nil {
			return nil, err
		}
	}
	if src.IsManagedBy(emp.PersonID) {
		if err := replaceHead(ctx, tx, src.UnitID); err != nil {
			return nil, err
		}
	}

	return &domain.MoveResult{Count: len(moved), IDs: moved}, nil
}

func (s *hierarchyService) RemoveFromHierarchy(ctx context.Context, personID int64) (res *domain.MoveResult, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation(opRemove, start, err) }()

	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		var txErr error
		res, txErr = s.remove(ctx, tx, personID)
		return txErr
	})
	if err != nil {
		return nil, s.fail(opRemove, err)
	}

	metrics.ObserveAffected(opRemove, res.Count)
	s.logger.Info("employee subtree removed from hierarchy",
		zap.Int64("person_id", personID),
		zap.Int("detached_count", res.Count),
	)
	return res, nil
}

func (s *hierarchyService) remove(ctx context.Context, tx repository.Store, personID int64) (*domain.MoveResult, error) {
	emps := tx.Employees()
	depts := tx.Departments()

	emp, err := emps.GetByIDForUpdate(ctx, personID)
	if err != nil {
		return nil, err
	}
	if emp.IsRoot() {
		return nil, fmt.Errorf("%w: person_id %d", domain.ErrRootImmutable, personID)
	}
	if !emp.IsAssigned() && emp.ManagerID == nil && emp.AncestorPath == nil {
		return &domain.MoveResult{Count: 0, IDs: []int64{}}, nil
	}

	var dept *domain.Department
	if emp.IsAssigned() {
		dept, err = depts.GetByIDForUpdate(ctx, *emp.DepartmentID)
		if err != nil {
			return nil, err
		}
	}

	anchor := ancestry.Append(emp.AncestorPath, emp.PersonID)
	if err := emps.UpdateHierarchyFields(ctx, emp.PersonID, domain.HierarchyFields{}); err != nil {
		return nil, err
	}
	reports, err := emps.DetachSubtree(ctx, anchor)
	if err != nil {
		return nil, err
	}
	detached := append([]int64{emp.PersonID}, reports...)

	if dept != nil {
		if err := depts.AdjustCount(ctx, dept.UnitID, -len(detached)); err != nil {
			return nil, err
		}
		if dept.IsManagedBy(emp.PersonID) {
			if err := replaceHead(ctx, tx, dept.UnitID); err != nil {
				return nil, err
			}
		}
	}

	return &domain.MoveResult{Count: len(detached), IDs: detached}, nil
}

// Place выбирает операцию по текущему положению сотрудника: назначение
// нераспределённого, смена руководителя в том же подразделении или перенос
// в другое. Выбор и сама операция выполняются в одной транзакции.
func (s *hierarchyService) Place(ctx context.Context, req *dto.PlaceRequest) (p *Placement, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation(opPlace, start, err) }()

	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		var txErr error
		p, txErr = s.place(ctx, tx, req)
		return txErr
	})
	if err != nil {
		return nil, s.fail(opPlace, err)
	}

	if p.Moved != nil {
		metrics.ObserveAffected(opPlace, p.Moved.Count)
	}
	s.logger.Info("employee placed",
		zap.Int64("person_id", req.PersonID),
		zap.Int64("department_id", req.DropDepartmentID),
		zap.String("action", p.Action),
	)
	return p, nil
}

func (s *hierarchyService) place(ctx context.Context, tx repository.Store, req *dto.PlaceRequest) (*Placement, error) {
	emp, err := tx.Employees().GetByIDForUpdate(ctx, req.PersonID)
	if err != nil {
		return nil, err
	}

	switch {
	case !emp.IsAssigned():
		assigned, err := s.assign(ctx, tx, req.PersonID, req.DropDepartmentID, req.DropEmployeeID)
		if err != nil {
			return nil, err
		}
		return &Placement{Action: PlacementAssigned, Employee: assigned}, nil

	case emp.InDepartment(req.DropDepartmentID):
		if req.DropEmployeeID == nil || (emp.ManagerID != nil && *emp.ManagerID == *req.DropEmployeeID) {
			return &Placement{Action: PlacementUnchanged, Employee: emp}, nil
		}
		moved, _, err := s.moveWithin(ctx, tx, &dto.MoveWithinRequest{
			PersonID:         req.PersonID,
			DropDepartmentID: req.DropDepartmentID,
			DropEmployeeID:   *req.DropEmployeeID,
		})
		if err != nil {
			return nil, err
		}
		return &Placement{Action: PlacementMovedWithin, Employee: moved}, nil

	default:
		res, err := s.moveAcross(ctx, tx, &dto.MoveAcrossRequest{
			PersonID:        req.PersonID,
			NewDepartmentID: req.DropDepartmentID,
			DropEmployeeID:  req.DropEmployeeID,
		})
		if err != nil {
			return nil, err
		}
		updated, err := tx.Employees().GetByID(ctx, req.PersonID)
		if err != nil {
			return nil, err
		}
		return &Placement{Action: PlacementMovedAcross, Employee: updated, Moved: res}, nil
	}
}

// fail пропускает бизнес-ошибки как есть, остальные считает отказом хранилища
func (s *hierarchyService) fail(op string, err error) error {
	if isBusinessError(err) {
		return err
	}
	s.logger.Error("hierarchy operation failed",
		zap.String("operation", op),
		zap.Error(err),
	)
	return fmt.Errorf("%w: %s: %w", domain.ErrStorageFailure, op, err)
}

func isBusinessError(err error) bool {
	for _, target := range []error{
		domain.ErrEmployeeNotFound,
		domain.ErrDepartmentNotFound,
		domain.ErrManagerNotFound,
		domain.ErrRootNotFound,
		domain.ErrRootExists,
		domain.ErrRootImmutable,
		domain.ErrCapacityExceeded,
		domain.ErrSelfReference,
		domain.ErrCircularHierarchy,
		domain.ErrNoOpMove,
		domain.ErrNotInDepartment,
		domain.ErrAlreadyAssigned,
		domain.ErrNotAssigned,
		domain.ErrHierarchyTooDeep,
		domain.ErrStorageFailure,
		domain.ErrValidation,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func checkCapacity(dept *domain.Department, incoming int) error {
	if dept.EmployeeCount+incoming > dept.MaxEmployees {
		return fmt.Errorf("%w: department %q (unit_id %d) has %d of %d employees, cannot add %d",
			domain.ErrCapacityExceeded, dept.UnitName, dept.UnitID, dept.EmployeeCount, dept.MaxEmployees, incoming)
	}
	return nil
}

// checkDepth проверяет, что после привязки к newPath самый глубокий
// сотрудник поддерева (height уровней ниже) не выйдет за maxDepth
func checkDepth(maxDepth int, personID int64, newPath string, height int) error {
	if depth := ancestry.Depth(&newPath) + height; depth > maxDepth {
		return fmt.Errorf("%w: placing person_id %d would reach depth %d, limit is %d",
			domain.ErrHierarchyTooDeep, personID, depth, maxDepth)
	}
	return nil
}

// loadManager блокирует строку руководителя, чтобы его положение
// не изменилось до конца транзакции
func loadManager(ctx context.Context, emps repository.EmployeeRepository, id int64) (*domain.Employee, error) {
	manager, err := emps.GetByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrEmployeeNotFound) {
			return nil, fmt.Errorf("%w: person_id %d", domain.ErrManagerNotFound, id)
		}
		return nil, err
	}
	return manager, nil
}

// lockDepartmentPair блокирует два подразделения в порядке возрастания unit_id
func lockDepartmentPair(ctx context.Context, depts repository.DepartmentRepository, srcID, dstID int64) (src, dst *domain.Department, err error) {
	first, second := srcID, dstID
	if first > second {
		first, second = second, first
	}

	a, err := depts.GetByIDForUpdate(ctx, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := depts.GetByIDForUpdate(ctx, second)
	if err != nil {
		return nil, nil, err
	}

	if a.UnitID == srcID {
		return a, b, nil
	}
	return b, a, nil
}

// replaceHead назначает нового руководителя подразделения после ухода прежнего:
// самого старшего по пути из оставшихся (при равенстве - с меньшим id)
// либо снимает руководителя, если подразделение опустело.
func replaceHead(ctx context.Context, tx repository.Store, departmentID int64) error {
	members, err := tx.Employees().ListByDepartment(ctx, departmentID)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return tx.Departments().SetManager(ctx, departmentID, nil)
	}

	head := members[0]
	for _, m := range members[1:] {
		if ancestry.Depth(m.AncestorPath) < ancestry.Depth(head.AncestorPath) {
			head = m
		}
	}
	return tx.Departments().SetManager(ctx, departmentID, &head.PersonID)
}
