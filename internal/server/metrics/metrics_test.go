package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.AuthOutcome("signin", "ok")
	m.AuthOutcome("signin", "ok")
	m.AuthOutcome("signin", "unauthorized")
	m.ObserveHTTP("POST", "/api/v1/auth", 200, 5*time.Millisecond)
	m.ObserveGRPC("ValidateSession", "OK")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.authOutcomes.WithLabelValues("signin", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authOutcomes.WithLabelValues("signin", "unauthorized")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "/api/v1/auth", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.grpcRequests.WithLabelValues("ValidateSession", "OK")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.AuthOutcome("signup", "ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `townsquare_auth_operations_total{action="signup",outcome="ok"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}

func TestNewIsolated(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
