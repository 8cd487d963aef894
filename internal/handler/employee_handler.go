package handler

import (
	"net/http"

	"github.com/org-chart-api/internal/dto"
	"github.com/org-chart-api/internal/service"
	"go.uber.org/zap"
)

type EmployeeHandler struct {
	responder
	empService   service.EmployeeService
	queryService service.QueryService
}

func NewEmployeeHandler(
	empService service.EmployeeService,
	queryService service.QueryService,
	logger *zap.Logger,
) *EmployeeHandler {
	return &EmployeeHandler{
		responder:    newResponder(logger),
		empService:   empService,
		queryService: queryService,
	}
}

func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateEmployeeRequest
	if !h.decode(w, r, &req) {
		return
	}

	emp, err := h.empService.Create(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, toEmployeeResponse(emp))
}

func (h *EmployeeHandler) Unassigned(w http.ResponseWriter, r *http.Request) {
	emps, err := h.queryService.Unassigned(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, toEmployeeResponses(emps))
}

func (h *EmployeeHandler) Root(w http.ResponseWriter, r *http.Request) {
	root, err := h.queryService.Root(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, toEmployeeResponse(root))
}
