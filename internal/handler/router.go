package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/org-chart-api/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// RouterConfig - параметры внешней обвязки роутера
type RouterConfig struct {
	AllowedOrigins []string
	MetricsEnabled bool
	MetricsPath    string
}

// Router настраивает маршруты API
type Router struct {
	mux         *mux.Router
	logger      *zap.Logger
	cfg         RouterConfig
	hierarchy   *HierarchyHandler
	employees   *EmployeeHandler
	departments *DepartmentHandler
}

// NewRouter создаёт новый роутер
func NewRouter(
	hierarchy *HierarchyHandler,
	employees *EmployeeHandler,
	departments *DepartmentHandler,
	cfg RouterConfig,
	logger *zap.Logger,
) *Router {
	return &Router{
		mux:         mux.NewRouter(),
		logger:      logger,
		cfg:         cfg,
		hierarchy:   hierarchy,
		employees:   employees,
		departments: departments,
	}
}

// Setup настраивает все маршруты
func (r *Router) Setup() http.Handler {
	api := r.mux.PathPrefix("/api").Subrouter()

	api.HandleFunc("/hierarchy", r.hierarchy.Hierarchy).Methods(http.MethodGet)
	api.HandleFunc("/hierarchy/consistency", r.hierarchy.Consistency).Methods(http.MethodGet)
	api.HandleFunc("/hierarchy/assignments", r.hierarchy.Assign).Methods(http.MethodPut)
	api.HandleFunc("/hierarchy/moves/within", r.hierarchy.MoveWithin).Methods(http.MethodPut)
	api.HandleFunc("/hierarchy/moves/across", r.hierarchy.MoveAcross).Methods(http.MethodPut)
	api.HandleFunc("/hierarchy/placements", r.hierarchy.Place).Methods(http.MethodPut)
	api.HandleFunc("/hierarchy/members", r.hierarchy.Remove).Methods(http.MethodDelete)

	api.HandleFunc("/employees", r.employees.Create).Methods(http.MethodPost)
	api.HandleFunc("/employees/unassigned", r.employees.Unassigned).Methods(http.MethodGet)
	api.HandleFunc("/employees/root", r.employees.Root).Methods(http.MethodGet)

	api.HandleFunc("/departments", r.departments.Create).Methods(http.MethodPost)
	api.HandleFunc("/departments", r.departments.List).Methods(http.MethodGet)

	// Health check
	r.mux.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	if r.cfg.MetricsEnabled {
		r.mux.Handle(r.cfg.MetricsPath, promhttp.Handler()).Methods(http.MethodGet)
	}

	r.mux.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	})
	r.mux.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
	})

	r.mux.Use(middleware.Metrics)

	// Применяем middleware
	handler := middleware.ContentType(r.mux)
	handler = middleware.Logger(r.logger)(handler)
	handler = middleware.RequestID(handler)
	handler = cors.New(cors.Options{
		AllowedOrigins: r.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
	}).Handler(handler)
	handler = middleware.Recoverer(r.logger)(handler)

	return handler
}
