package handler

import (
	"net/http"

	"github.com/org-chart-api/internal/dto"
	"github.com/org-chart-api/internal/service"
	"go.uber.org/zap"
)

type DepartmentHandler struct {
	responder
	deptService  service.DepartmentService
	queryService service.QueryService
}

func NewDepartmentHandler(
	deptService service.DepartmentService,
	queryService service.QueryService,
	logger *zap.Logger,
) *DepartmentHandler {
	return &DepartmentHandler{
		responder:    newResponder(logger),
		deptService:  deptService,
		queryService: queryService,
	}
}

func (h *DepartmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateDepartmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	dept, err := h.deptService.Create(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, toDepartmentResponse(dept))
}

func (h *DepartmentHandler) List(w http.ResponseWriter, r *http.Request) {
	depts, err := h.queryService.Departments(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	resp := make([]dto.DepartmentResponse, len(depts))
	for i := range depts {
		resp[i] = toDepartmentResponse(&depts[i])
	}
	h.respondJSON(w, http.StatusOK, resp)
}
