package handler

import (
	"fmt"
	"net/http"

	"github.com/org-chart-api/internal/dto"
	"github.com/org-chart-api/internal/service"
	"go.uber.org/zap"
)

// HierarchyHandler обслуживает перемещения сотрудников и снимки иерархии
type HierarchyHandler struct {
	responder
	hierarchy service.HierarchyService
	queries   service.QueryService
}

func NewHierarchyHandler(
	hierarchy service.HierarchyService,
	queries service.QueryService,
	logger *zap.Logger,
) *HierarchyHandler {
	return &HierarchyHandler{
		responder: newResponder(logger),
		hierarchy: hierarchy,
		queries:   queries,
	}
}

func (h *HierarchyHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req dto.AssignRequest
	if !h.decode(w, r, &req) {
		return
	}

	emp, err := h.hierarchy.AssignToDepartment(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, toEmployeeResponse(emp))
}

func (h *HierarchyHandler) MoveWithin(w http.ResponseWriter, r *http.Request) {
	var req dto.MoveWithinRequest
	if !h.decode(w, r, &req) {
		return
	}

	emp, err := h.hierarchy.MoveWithinDepartment(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, toEmployeeResponse(emp))
}

func (h *HierarchyHandler) MoveAcross(w http.ResponseWriter, r *http.Request) {
	var req dto.MoveAcrossRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.hierarchy.MoveAcrossDepartments(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.MoveResponse{
		Message:    fmt.Sprintf("moved %d employee(s) to department %d", res.Count, req.NewDepartmentID),
		MovedCount: res.Count,
		MovedIDs:   res.IDs,
	})
}

func (h *HierarchyHandler) Remove(w http.ResponseWriter, r *http.Request) {
	var req dto.RemoveRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.hierarchy.RemoveFromHierarchy(r.Context(), req.PersonID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.RemoveResponse{
		Message:      fmt.Sprintf("detached %d employee(s) from the hierarchy", res.Count),
		UpdatedCount: res.Count,
		DetachedIDs:  res.IDs,
	})
}

func (h *HierarchyHandler) Place(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.hierarchy.Place(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	resp := dto.PlacementResponse{
		Action:   p.Action,
		Employee: toEmployeeResponse(p.Employee),
	}
	if p.Moved != nil {
		resp.MovedCount = p.Moved.Count
		resp.MovedIDs = p.Moved.IDs
	}
	h.respondJSON(w, http.StatusOK, resp)
}

func (h *HierarchyHandler) Hierarchy(w http.ResponseWriter, r *http.Request) {
	rows, err := h.queries.Hierarchy(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	resp := make([]dto.HierarchyRowResponse, len(rows))
	for i, row := range rows {
		resp[i] = dto.HierarchyRowResponse{
			PersonID:      row.PersonID,
			FirstName:     row.FirstName,
			LastName:      row.LastName,
			Title:         row.Title,
			Role:          string(row.Role),
			DepartmentID:  row.DepartmentID,
			ManagerID:     row.ManagerID,
			AncestorPath:  row.AncestorPath,
			UnitName:      row.UnitName,
			DeptManagerID: row.DeptManagerID,
		}
	}
	h.respondJSON(w, http.StatusOK, resp)
}

func (h *HierarchyHandler) Consistency(w http.ResponseWriter, r *http.Request) {
	report, err := h.queries.CheckConsistency(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.ConsistencyResponse{
		Consistent: report.Consistent(),
		Violations: report.Violations,
	})
}
