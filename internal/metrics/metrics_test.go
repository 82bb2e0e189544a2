package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/BrandonDHaskell/Portunus/gate/internal/metrics"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveScan("user_scan", "access_granted", time.Millisecond)
		m.RoleLookupFailed()
		m.WebhookDelivered(false)
		m.RecordFailed("audit")
	})
}

func TestMetrics_CountsScans(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveScan("user_scan", "access_granted", time.Millisecond)
	m.ObserveScan("user_scan", "access_granted", time.Millisecond)
	m.ObserveScan("access_point_inactive", "access_denied", time.Millisecond)
	m.WebhookDelivered(true)

	n, err := testutil.GatherAndCount(reg, "portunus_scans_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, n) // two label sets

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `portunus_scans_total{grant_type="user_scan",response_code="access_granted"} 2`)
	assert.Contains(t, rec.Body.String(), `portunus_webhook_deliveries_total{result="ok"} 1`)
}
