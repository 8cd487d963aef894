package dto

import (
	"time"
)

// AssignRequest - запрос на назначение сотрудника в подразделение
type AssignRequest struct {
	PersonID         int64  `json:"person_id" validate:"required,gt=0"`
	DropDepartmentID int64  `json:"drop_department_id" validate:"required,gt=0"`
	DropEmployeeID   *int64 `json:"drop_employee_id" validate:"omitempty,gt=0"`
}

// MoveWithinRequest - запрос на смену руководителя внутри подразделения
type MoveWithinRequest struct {
	PersonID         int64 `json:"person_id" validate:"required,gt=0"`
	DropDepartmentID int64 `json:"drop_department_id" validate:"required,gt=0"`
	DropEmployeeID   int64 `json:"drop_employee_id" validate:"required,gt=0"`
}

// MoveAcrossRequest - запрос на перенос сотрудника с поддеревом в другое подразделение
type MoveAcrossRequest struct {
	PersonID             int64  `json:"person_id" validate:"required,gt=0"`
	NewDepartmentID      int64  `json:"new_department_id" validate:"required,gt=0"`
	DropEmployeeID       *int64 `json:"drop_employee_id" validate:"omitempty,gt=0"`
	EmployeesToMoveCount *int   `json:"employees_to_move_count" validate:"omitempty,gt=0"`
}

// RemoveRequest - запрос на снятие сотрудника с иерархии
type RemoveRequest struct {
	PersonID int64 `json:"person_id" validate:"required,gt=0"`
}

// PlaceRequest - запрос на размещение сотрудника: назначение или перенос
// в зависимости от его текущего положения
type PlaceRequest struct {
	PersonID         int64  `json:"person_id" validate:"required,gt=0"`
	DropDepartmentID int64  `json:"drop_department_id" validate:"required,gt=0"`
	DropEmployeeID   *int64 `json:"drop_employee_id" validate:"omitempty,gt=0"`
}

// CreateEmployeeRequest - запрос на создание сотрудника
type CreateEmployeeRequest struct {
	FirstName string `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string `json:"last_name" validate:"required,min=1,max=100"`
	Title     string `json:"title" validate:"required,min=1,max=200"`
}

// CreateDepartmentRequest - запрос на создание подразделения
type CreateDepartmentRequest struct {
	UnitName     string `json:"unit_name" validate:"required,min=1,max=200"`
	MaxEmployees int    `json:"max_employees" validate:"required,gt=0"`
}

// EmployeeResponse - ответ с данными сотрудника
type EmployeeResponse struct {
	PersonID     int64     `json:"person_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Title        string    `json:"title"`
	Role         string    `json:"role"`
	DepartmentID *int64    `json:"department_id"`
	ManagerID    *int64    `json:"manager_id"`
	AncestorPath *string   `json:"ancestor_path"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DepartmentResponse - ответ с данными подразделения
type DepartmentResponse struct {
	UnitID        int64     `json:"unit_id"`
	UnitName      string    `json:"unit_name"`
	ManagerID     *int64    `json:"manager_id"`
	MaxEmployees  int       `json:"max_employees"`
	EmployeeCount int       `json:"employee_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HierarchyRowResponse - строка полной иерархии
type HierarchyRowResponse struct {
	PersonID      int64   `json:"person_id"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	Title         string  `json:"title"`
	Role          string  `json:"role"`
	DepartmentID  *int64  `json:"department_id"`
	ManagerID     *int64  `json:"manager_id"`
	AncestorPath  *string `json:"ancestor_path"`
	UnitName      *string `json:"unit_name"`
	DeptManagerID *int64  `json:"dept_manager_id"`
}

// MoveResponse - результат переноса поддерева
type MoveResponse struct {
	Message    string  `json:"message"`
	MovedCount int     `json:"moved_count"`
	MovedIDs   []int64 `json:"moved_ids"`
}

// RemoveResponse - результат снятия поддерева с иерархии
type RemoveResponse struct {
	Message      string  `json:"message"`
	UpdatedCount int     `json:"updated_count"`
	DetachedIDs  []int64 `json:"detached_ids"`
}

// PlacementResponse - результат размещения сотрудника
type PlacementResponse struct {
	Action     string           `json:"action"`
	Employee   EmployeeResponse `json:"employee"`
	MovedCount int              `json:"moved_count,omitempty"`
	MovedIDs   []int64          `json:"moved_ids,omitempty"`
}

// ConsistencyResponse - результат проверки инвариантов иерархии
type ConsistencyResponse struct {
	Consistent bool     `json:"consistent"`
	Violations []string `json:"violations"`
}

// ErrorResponse - стандартный ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
