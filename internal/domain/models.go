package domain

import (
	"time"
)

// Role различает корень организации и обычных сотрудников
type Role string

const (
	RoleCEO      Role = "CEO"
	RoleEmployee Role = "EMPLOYEE"
)

// Employee представляет сотрудника
type Employee struct {
	PersonID     int64     `json:"person_id" gorm:"column:person_id;primaryKey;autoIncrement"`
	FirstName    string    `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName     string    `json:"last_name" gorm:"type:varchar(100);not null"`
	Title        string    `json:"title" gorm:"type:varchar(200);not null"`
	Role         Role      `json:"role" gorm:"type:varchar(20);not null;index"`
	DepartmentID *int64    `json:"department_id" gorm:"index"`
	ManagerID    *int64    `json:"manager_id" gorm:"index"`
	AncestorPath *string   `json:"ancestor_path" gorm:"type:text;index"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName задаёт имя таблицы для GORM
func (Employee) TableName() string {
	return "employee"
}

// IsRoot сообщает, является ли сотрудник CEO
func (e *Employee) IsRoot() bool {
	return e.Role == RoleCEO
}

// IsAssigned сообщает, состоит ли сотрудник в подразделении
func (e *Employee) IsAssigned() bool {
	return e.DepartmentID != nil
}

// InDepartment сообщает, состоит ли сотрудник в подразделении id
func (e *Employee) InDepartment(id int64) bool {
	return e.DepartmentID != nil && *e.DepartmentID == id
}

// Department представляет подразделение организации
type Department struct {
	UnitID        int64     `json:"unit_id" gorm:"column:unit_id;primaryKey;autoIncrement"`
	UnitName      string    `json:"unit_name" gorm:"type:varchar(200);not null"`
	ManagerID     *int64    `json:"manager_id" gorm:"index"`
	MaxEmployees  int       `json:"max_employees" gorm:"not null"`
	EmployeeCount int       `json:"employee_count" gorm:"not null;default:0"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName задаёт имя таблицы для GORM
func (Department) TableName() string {
	return "department"
}

// HasManager сообщает, назначен ли руководитель подразделения
func (d *Department) HasManager() bool {
	return d.ManagerID != nil
}

// IsManagedBy сообщает, руководит ли подразделением сотрудник id
func (d *Department) IsManagedBy(id int64) bool {
	return d.ManagerID != nil && *d.ManagerID == id
}

// HierarchyFields - поля сотрудника, которыми владеет движок перемещений
type HierarchyFields struct {
	DepartmentID *int64
	ManagerID    *int64
	AncestorPath *string
}

// HierarchyRow - строка полной иерархии: сотрудник вместе с данными подразделения
type HierarchyRow struct {
	PersonID      int64   `json:"person_id"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	Title         string  `json:"title"`
	Role          Role    `json:"role"`
	DepartmentID  *int64  `json:"department_id"`
	ManagerID     *int64  `json:"manager_id"`
	AncestorPath  *string `json:"ancestor_path"`
	UnitName      *string `json:"unit_name"`
	DeptManagerID *int64  `json:"dept_manager_id"`
}

// MoveResult - итог операции, затронувшей поддерево
type MoveResult struct {
	Count int
	IDs   []int64
}
