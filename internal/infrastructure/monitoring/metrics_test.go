package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", "/apps", "200", time.Millisecond)
		m.AddTransferBytes(10)
		m.IncRedirects()
		m.ObserveExtraction(time.Second)
		m.RecordRemoval("remove_all", nil)
		m.RecordCatalogLoad("remote")
		NewTimer(m, "install").Stop("complete")
	})
	assert.Equal(t, Snapshot{}, m.GetSnapshot())
}

func TestOperationTimer(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())

	timer := NewTimer(m, "install")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OperationsActive))
	assert.Equal(t, int64(1), m.GetSnapshot().ActiveOperations)

	timer.Stop("complete")
	assert.Equal(t, float64(0), testutil.ToFloat64(m.OperationsActive))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OperationsTotal.WithLabelValues("install", "complete")))
}

func TestCounters(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())

	m.AddTransferBytes(100)
	m.AddTransferBytes(-5)
	m.RecordRemoval("remove_all", errors.New("locked"))
	m.RecordRemoval("command", nil)
	m.RecordCatalogLoad("cache")

	assert.Equal(t, float64(100), testutil.ToFloat64(m.TransferBytes))
	assert.Equal(t, int64(100), m.GetSnapshot().BytesTransferred)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RemovalAttempts.WithLabelValues("remove_all", "failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RemovalAttempts.WithLabelValues("command", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CatalogLoads.WithLabelValues("cache")))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetricsWith(prometheus.NewRegistry())

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/apps/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		path   string
		status int
	}{
		{"/apps/demo", http.StatusOK},
		{"/apps/other", http.StatusOK},
		{"/missing", http.StatusNotFound},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, tt.status, w.Code)
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/apps/:id", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))

	snap := m.GetSnapshot()
	assert.Equal(t, int64(3), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.TotalErrors)
}
