package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/org-chart-api/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestResult(t *testing.T) {
	assert.Equal(t, "ok", Result(nil))
	assert.Equal(t, "not_found", Result(fmt.Errorf("%w: unit_id 4", domain.ErrDepartmentNotFound)))
	assert.Equal(t, "capacity_exceeded", Result(domain.ErrCapacityExceeded))
	assert.Equal(t, "invalid_hierarchy", Result(domain.ErrCircularHierarchy))
	assert.Equal(t, "storage_failure", Result(fmt.Errorf("%w: boom", domain.ErrStorageFailure)))
	assert.Equal(t, "rejected", Result(errors.New("other")))
}

func TestObserveOperation(t *testing.T) {
	before := testutil.ToFloat64(operations.WithLabelValues("metrics_test_op", "ok"))
	ObserveOperation("metrics_test_op", time.Now(), nil)
	after := testutil.ToFloat64(operations.WithLabelValues("metrics_test_op", "ok"))
	assert.Equal(t, before+1, after)
}

func TestObserveHTTP(t *testing.T) {
	ObserveHTTP("/metrics-test", 503)
	assert.Equal(t, float64(1), testutil.ToFloat64(httpRequests.WithLabelValues("/metrics-test", "5xx")))
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "4xx", statusClass(404))
}
