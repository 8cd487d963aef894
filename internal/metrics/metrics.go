// Package metrics объявляет метрики Prometheus сервиса оргструктуры.
package metrics

import (
	"errors"
	"time"

	"github.com/org-chart-api/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orgchart",
		Subsystem: "hierarchy",
		Name:      "operations_total",
		Help:      "Total number of hierarchy operations broken down by operation and result.",
	}, []string{"operation", "result"})

	latency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "orgchart",
		Subsystem: "hierarchy",
		Name:      "operation_duration_seconds",
		Help:      "Latency distribution for hierarchy operations.",
		Buckets: []float64{
			0.001, 0.005, 0.01, 0.02, 0.05,
			0.1, 0.2, 0.5, 1, 2, 5,
		},
	}, []string{"operation"})

	movedEmployees = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "orgchart",
		Subsystem: "hierarchy",
		Name:      "affected_employees",
		Help:      "Number of employees touched by a single subtree operation.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
	}, []string{"operation"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orgchart",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests broken down by route and status class.",
	}, []string{"route", "status"})
)

// ObserveOperation учитывает завершение операции над иерархией
func ObserveOperation(operation string, start time.Time, err error) {
	operations.WithLabelValues(operation, Result(err)).Inc()
	latency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveAffected учитывает размер затронутого поддерева
func ObserveAffected(operation string, count int) {
	movedEmployees.WithLabelValues(operation).Observe(float64(count))
}

// ObserveHTTP учитывает HTTP-запрос
func ObserveHTTP(route string, status int) {
	httpRequests.WithLabelValues(route, statusClass(status)).Inc()
}

// Result сводит ошибку к низкокардинальной метке
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrEmployeeNotFound),
		errors.Is(err, domain.ErrDepartmentNotFound),
		errors.Is(err, domain.ErrManagerNotFound),
		errors.Is(err, domain.ErrRootNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, domain.ErrSelfReference),
		errors.Is(err, domain.ErrCircularHierarchy),
		errors.Is(err, domain.ErrHierarchyTooDeep):
		return "invalid_hierarchy"
	case errors.Is(err, domain.ErrStorageFailure):
		return "storage_failure"
	default:
		return "rejected"
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
