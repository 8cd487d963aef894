package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/org-chart-api/internal/domain"
	"github.com/org-chart-api/internal/dto"
	"github.com/org-chart-api/internal/middleware"
	"go.uber.org/zap"
)

// responder содержит общие для обработчиков разбор запроса и запись ответа
type responder struct {
	validator *validator.Validate
	logger    *zap.Logger
}

func newResponder(logger *zap.Logger) responder {
	return responder{
		validator: validator.New(),
		logger:    logger,
	}
}

// decode читает JSON-тело и валидирует его. При ошибке ответ уже записан.
func (h *responder) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			h.respondError(w, http.StatusBadRequest, "invalid request body", "request body is empty")
			return false
		}
		h.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		h.respondError(w, http.StatusBadRequest, "validation error", err.Error())
		return false
	}
	return true
}

func (h *responder) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrEmployeeNotFound):
		h.respondError(w, http.StatusNotFound, "employee not found", err.Error())
	case errors.Is(err, domain.ErrDepartmentNotFound):
		h.respondError(w, http.StatusNotFound, "department not found", err.Error())
	case errors.Is(err, domain.ErrManagerNotFound):
		h.respondError(w, http.StatusNotFound, "manager not found", err.Error())
	case errors.Is(err, domain.ErrRootNotFound):
		h.respondError(w, http.StatusNotFound, "organization root not found", "")
	case errors.Is(err, domain.ErrValidation):
		h.respondError(w, http.StatusBadRequest, "validation error", err.Error())
	case errors.Is(err, domain.ErrCapacityExceeded):
		h.respondError(w, http.StatusBadRequest, "department capacity exceeded", err.Error())
	case errors.Is(err, domain.ErrSelfReference):
		h.respondError(w, http.StatusBadRequest, "employee cannot report to themselves", err.Error())
	case errors.Is(err, domain.ErrNotInDepartment):
		h.respondError(w, http.StatusBadRequest, "employee is not in the department", err.Error())
	case errors.Is(err, domain.ErrNoOpMove):
		h.respondError(w, http.StatusBadRequest, "employee is already in the target department", err.Error())
	case errors.Is(err, domain.ErrNotAssigned):
		h.respondError(w, http.StatusBadRequest, "employee is not assigned to a department", err.Error())
	case errors.Is(err, domain.ErrRootImmutable):
		h.respondError(w, http.StatusBadRequest, "organization root cannot be moved", err.Error())
	case errors.Is(err, domain.ErrCircularHierarchy):
		h.respondError(w, http.StatusConflict, "move would create a reporting cycle", err.Error())
	case errors.Is(err, domain.ErrAlreadyAssigned):
		h.respondError(w, http.StatusConflict, "employee is already assigned", err.Error())
	case errors.Is(err, domain.ErrHierarchyTooDeep):
		h.respondError(w, http.StatusConflict, "hierarchy is deeper than allowed", err.Error())
	case errors.Is(err, domain.ErrRootExists):
		h.respondError(w, http.StatusConflict, "organization root already exists", err.Error())
	default:
		h.logger.Error("internal error",
			zap.Error(err),
			zap.String("request_id", middleware.GetRequestID(r.Context())),
		)
		h.respondError(w, http.StatusInternalServerError, "internal server error", "")
	}
}

func (h *responder) respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *responder) respondError(w http.ResponseWriter, status int, errMsg, details string) {
	w.WriteHeader(status)
	resp := dto.ErrorResponse{Error: errMsg}
	if details != "" {
		resp.Message = details
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode error response", zap.Error(err))
	}
}

func toEmployeeResponse(emp *domain.Employee) dto.EmployeeResponse {
	return dto.EmployeeResponse{
		PersonID:     emp.PersonID,
		FirstName:    emp.FirstName,
		LastName:     emp.LastName,
		Title:        emp.Title,
		Role:         string(emp.Role),
		DepartmentID: emp.DepartmentID,
		ManagerID:    emp.ManagerID,
		AncestorPath: emp.AncestorPath,
		CreatedAt:    emp.CreatedAt,
		UpdatedAt:    emp.UpdatedAt,
	}
}

func toEmployeeResponses(emps []domain.Employee) []dto.EmployeeResponse {
	resp := make([]dto.EmployeeResponse, len(emps))
	for i := range emps {
		resp[i] = toEmployeeResponse(&emps[i])
	}
	return resp
}

func toDepartmentResponse(dept *domain.Department) dto.DepartmentResponse {
	return dto.DepartmentResponse{
		UnitID:        dept.UnitID,
		UnitName:      dept.UnitName,
		ManagerID:     dept.ManagerID,
		MaxEmployees:  dept.MaxEmployees,
		EmployeeCount: dept.EmployeeCount,
		CreatedAt:     dept.CreatedAt,
		UpdatedAt:     dept.UpdatedAt,
	}
}
