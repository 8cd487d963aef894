package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/org-chart-api/internal/database"
	"github.com/org-chart-api/internal/dto"
	"github.com/org-chart-api/internal/handler"
	"github.com/org-chart-api/internal/repository"
	"github.com/org-chart-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testServer struct {
	server    *httptest.Server
	employees service.EmployeeService
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	store := repository.NewStore(db)
	empService := service.NewEmployeeService(store, logger)
	deptService := service.NewDepartmentService(store.Departments(), 1, logger)
	hierarchyService := service.NewHierarchyService(store, logger)
	queryService := service.NewQueryService(store)

	router := handler.NewRouter(
		handler.NewHierarchyHandler(hierarchyService, queryService, logger),
		handler.NewEmployeeHandler(empService, queryService, logger),
		handler.NewDepartmentHandler(deptService, queryService, logger),
		handler.RouterConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			MetricsEnabled: true,
			MetricsPath:    "/metrics",
		},
		logger,
	)

	ts := &testServer{
		server:    httptest.NewServer(router.Setup()),
		employees: empService,
	}
	t.Cleanup(func() {
		ts.server.Close()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequest(method, ts.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (ts *testServer) createRoot(t *testing.T) dto.EmployeeResponse {
	t.Helper()
	root, err := ts.employees.CreateRoot(context.Background(), &dto.CreateEmployeeRequest{
		FirstName: "Olga", LastName: "Romanova", Title: "CEO",
	})
	require.NoError(t, err)
	return dto.EmployeeResponse{PersonID: root.PersonID}
}

func (ts *testServer) createEmployee(t *testing.T, name string) dto.EmployeeResponse {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/employees", map[string]any{
		"first_name": name, "last_name": "Test", "title": "Engineer",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[dto.EmployeeResponse](t, resp)
}

func (ts *testServer) createDepartment(t *testing.T, name string, maxEmployees int) dto.DepartmentResponse {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/departments", map[string]any{
		"unit_name": name, "max_employees": maxEmployees,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[dto.DepartmentResponse](t, resp)
}

func (ts *testServer) assign(t *testing.T, personID, departmentID int64) dto.EmployeeResponse {
	t.Helper()
	resp := ts.do(t, http.MethodPut, "/api/hierarchy/assignments", map[string]any{
		"person_id": personID, "drop_department_id": departmentID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[dto.EmployeeResponse](t, resp)
}

func (ts *testServer) requireConsistent(t *testing.T) {
	t.Helper()
	resp := ts.do(t, http.MethodGet, "/api/hierarchy/consistency", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[dto.ConsistencyResponse](t, resp)
	require.True(t, report.Consistent, "violations: %v", report.Violations)
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	ts.do(t, http.MethodGet, "/health", nil)

	resp := ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "orgchart_http_requests_total")
}

func TestCreateDepartment_StoresCapacityBuffer(t *testing.T) {
	ts := setupTestServer(t)

	dept := ts.createDepartment(t, "Sales", 3)
	assert.Equal(t, "Sales", dept.UnitName)
	assert.Equal(t, 4, dept.MaxEmployees)
	assert.Equal(t, 0, dept.EmployeeCount)
	assert.Nil(t, dept.ManagerID)

	resp := ts.do(t, http.MethodGet, "/api/departments", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]dto.DepartmentResponse](t, resp), 1)
}

func TestCreateDepartment_Validation(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"missing name", map[string]any{"max_employees": 3}},
		{"zero capacity", map[string]any{"unit_name": "Sales", "max_employees": 0}},
		{"invalid json", "{not json"},
		{"empty body", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodPost, "/api/departments", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			errResp := decode[dto.ErrorResponse](t, resp)
			assert.NotEmpty(t, errResp.Error)
		})
	}
}

func TestCreateEmployee_IsUnassigned(t *testing.T) {
	ts := setupTestServer(t)
	ts.createRoot(t)

	emp := ts.createEmployee(t, "Ivan")
	assert.Equal(t, "EMPLOYEE", emp.Role)
	assert.Nil(t, emp.DepartmentID)
	assert.Nil(t, emp.ManagerID)
	assert.Nil(t, emp.AncestorPath)

	resp := ts.do(t, http.MethodGet, "/api/employees/unassigned", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	unassigned := decode[[]dto.EmployeeResponse](t, resp)
	require.Len(t, unassigned, 1)
	assert.Equal(t, emp.PersonID, unassigned[0].PersonID)

	resp = ts.do(t, http.MethodPost, "/api/employees", map[string]any{"first_name": "NoTitle"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRoot(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/employees/root", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	root := ts.createRoot(t)
	resp = ts.do(t, http.MethodGet, "/api/employees/root", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[dto.EmployeeResponse](t, resp)
	assert.Equal(t, root.PersonID, got.PersonID)
	assert.Equal(t, "CEO", got.Role)
}

func TestAssign_EmptyDepartment(t *testing.T) {
	ts := setupTestServer(t)
	root := ts.createRoot(t)
	sales := ts.createDepartment(t, "Sales", 2)
	emp := ts.createEmployee(t, "Ivan")

	assigned := ts.assign(t, emp.PersonID, sales.UnitID)
	assert.Equal(t, sales.UnitID, *assigned.DepartmentID)
	assert.Equal(t, root.PersonID, *assigned.ManagerID)

	resp := ts.do(t, http.MethodGet, "/api/departments", nil)
	depts := decode[[]dto.DepartmentResponse](t, resp)
	require.Len(t, depts, 1)
	assert.Equal(t, 1, depts[0].EmployeeCount)
	assert.Equal(t, emp.PersonID, *depts[0].ManagerID)
	ts.requireConsistent(t)
}

func TestAssign_ErrorStatuses(t *testing.T) {
	ts := setupTestServer(t)
	ts.createRoot(t)
	team := ts.createDepartment(t, "Team", 1)
	a := ts.createEmployee(t, "A")
	b := ts.createEmployee(t, "B")
	c := ts.createEmployee(t, "C")
	ts.assign(t, a.PersonID, team.UnitID)
	ts.assign(t, b.PersonID, team.UnitID)

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"capacity", map[string]any{"person_id": c.PersonID, "drop_department_id": team.UnitID}, http.StatusBadRequest},
		{"already assigned", map[string]any{"person_id": a.PersonID, "drop_department_id": team.UnitID}, http.StatusConflict},
		{"unknown department", map[string]any{"person_id": c.PersonID, "drop_department_id": 999}, http.StatusNotFound},
		{"unknown employee", map[string]any{"person_id": 999, "drop_department_id": team.UnitID}, http.StatusNotFound},
		{"missing person", map[string]any{"drop_department_id": team.UnitID}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodPut, "/api/hierarchy/assignments", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	resp := ts.do(t, http.MethodPut, "/api/hierarchy/assignments", map[string]any{
		"person_id": c.PersonID, "drop_department_id": team.UnitID,
	})
	errResp := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "department capacity exceeded", errResp.Error)
	assert.Contains(t, errResp.Message, `"Team"`)
	ts.requireConsistent(t)
}

func TestMoveWithin_SelfAndCycle(t *testing.T) {
	ts := setupTestServer(t)
	ts.createRoot(t)
	sales := ts.createDepartment(t, "Sales", 5)
	head := ts.createEmployee(t, "Ivan")
	report := ts.createEmployee(t, "Petr")
	ts.assign(t, head.PersonID, sales.UnitID)
	ts.assign(t, report.PersonID, sales.UnitID)

	resp := ts.do(t, http.MethodPut, "/api/hierarchy/moves/within", map[string]any{
		"person_id": report.PersonID, "drop_department_id": sales.UnitID, "drop_employee_id": report.PersonID,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodPut, "/api/hierarchy/moves/within", map[string]any{
		"person_id": head.PersonID, "drop_department_id": sales.UnitID, "drop_employee_id": report.PersonID,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	ts.requireConsistent(t)
}

func TestMoveAcross_MovesSubtree(t *testing.T) {
	ts := setupTestServer(t)
	root := ts.createRoot(t)
	sales := ts.createDepartment(t, "Sales", 5)
	engineering := ts.createDepartment(t, "Engineering", 5)
	head := ts.createEmployee(t, "Ivan")
	report := ts.createEmployee(t, "Petr")
	ts.assign(t, head.PersonID, sales.UnitID)
	ts.assign(t, report.PersonID, sales.UnitID)

	resp := ts.do(t, http.MethodPut, "/api/hierarchy/moves/across", map[string]any{
		"person_id": head.PersonID, "new_department_id": engineering.UnitID, "employees_to_move_count": 2,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	moved := decode[dto.MoveResponse](t, resp)
	assert.Equal(t, 2, moved.MovedCount)
	assert.ElementsMatch(t, []int64{head.PersonID, report.PersonID}, moved.MovedIDs)

	resp = ts.do(t, http.MethodGet, "/api/hierarchy", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rows := decode[[]dto.HierarchyRowResponse](t, resp)
	require.Len(t, rows, 3)
	assert.Equal(t, root.PersonID, rows[0].PersonID)
	for _, row := range rows[1:] {
		require.NotNil(t, row.UnitName)
		assert.Equal(t, "Engineering", *row.UnitName)
		assert.Equal(t, head.PersonID, *row.DeptManagerID)
	}

	resp = ts.do(t, http.MethodPut, "/api/hierarchy/moves/across", map[string]any{
		"person_id": head.PersonID, "new_department_id": engineering.UnitID,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	ts.requireConsistent(t)
}

func TestRemove_IsIdempotent(t *testing.T) {
	ts := setupTestServer(t)
	root := ts.createRoot(t)
	sales := ts.createDepartment(t, "Sales", 5)
	head := ts.createEmployee(t, "Ivan")
	report := ts.createEmployee(t, "Petr")
	ts.assign(t, head.PersonID, sales.UnitID)
	ts.assign(t, report.PersonID, sales.UnitID)

	resp := ts.do(t, http.MethodDelete, "/api/hierarchy/members", map[string]any{"person_id": head.PersonID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	removed := decode[dto.RemoveResponse](t, resp)
	assert.Equal(t, 2, removed.UpdatedCount)

	resp = ts.do(t, http.MethodDelete, "/api/hierarchy/members", map[string]any{"person_id": head.PersonID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, decode[dto.RemoveResponse](t, resp).UpdatedCount)

	resp = ts.do(t, http.MethodDelete, "/api/hierarchy/members", map[string]any{"person_id": root.PersonID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	ts.requireConsistent(t)
}

func TestPlace(t *testing.T) {
	ts := setupTestServer(t)
	ts.createRoot(t)
	sales := ts.createDepartment(t, "Sales", 5)
	engineering := ts.createDepartment(t, "Engineering", 5)
	emp := ts.createEmployee(t, "Ivan")

	resp := ts.do(t, http.MethodPut, "/api/hierarchy/placements", map[string]any{
		"person_id": emp.PersonID, "drop_department_id": sales.UnitID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, service.PlacementAssigned, decode[dto.PlacementResponse](t, resp).Action)

	resp = ts.do(t, http.MethodPut, "/api/hierarchy/placements", map[string]any{
		"person_id": emp.PersonID, "drop_department_id": engineering.UnitID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	placed := decode[dto.PlacementResponse](t, resp)
	assert.Equal(t, service.PlacementMovedAcross, placed.Action)
	assert.Equal(t, 1, placed.MovedCount)
	assert.Equal(t, engineering.UnitID, *placed.Employee.DepartmentID)
	ts.requireConsistent(t)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/unknown", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, http.MethodPatch, "/api/departments", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
