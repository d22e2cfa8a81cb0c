package service

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceRecordsDomainCounters(t *testing.T) {
	m := NewMetricsService()

	m.ObserveProjection(5*time.Millisecond, 4, 1, 2)
	m.ObserveMaterialization(DecisionGenerate, 3, 1)
	m.ObserveMaterialization(DecisionReuse, 0, 0)
	m.RecordWarmup(nil)
	m.RecordWarmup(errors.New("boom"))

	assert.Equal(t, 4.0, testutil.ToFloat64(m.classEvents.WithLabelValues("emitted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.classEvents.WithLabelValues("cancelled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.materializations.WithLabelValues(DecisionGenerate)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.paymentEvents.WithLabelValues("inserted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.paymentEvents.WithLabelValues("conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.warmups.WithLabelValues("failure")))
}

func TestMetricsHandlerExposesRegistry(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/class/schedules", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "http_requests_total"))
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.ObserveProjection(time.Millisecond, 1, 0, 0)
		m.ObserveMaterialization(DecisionTrim, 0, 0)
		m.RecordWarmup(nil)
		m.RecordCacheOperation(true, time.Millisecond)
	})
}
