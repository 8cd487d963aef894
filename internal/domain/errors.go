package domain

import "errors"

// Определение бизнес-ошибок
var (
	ErrValidation         = errors.New("validation error")
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrDepartmentNotFound = errors.New("department not found")
	ErrManagerNotFound    = errors.New("manager not found")
	ErrRootNotFound       = errors.New("organization root (CEO) not found")
	ErrRootExists         = errors.New("organization root (CEO) already exists")
	ErrRootImmutable      = errors.New("organization root cannot be moved")
	ErrCapacityExceeded   = errors.New("department capacity exceeded")
	ErrSelfReference      = errors.New("employee cannot be their own manager")
	ErrCircularHierarchy  = errors.New("move would create a cycle in the hierarchy")
	ErrNoOpMove           = errors.New("employee is already in this department")
	ErrNotInDepartment    = errors.New("employee does not belong to the department")
	ErrAlreadyAssigned    = errors.New("employee is already assigned to a department")
	ErrNotAssigned        = errors.New("employee is not assigned to a department")
	ErrHierarchyTooDeep   = errors.New("hierarchy exceeds maximum depth")
	ErrStorageFailure     = errors.New("storage failure")
)
