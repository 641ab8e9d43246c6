package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserve(t *testing.T) {
	m := New()

	m.Observe(http.MethodGet, "GET /api/tasks", http.StatusOK, 20*time.Millisecond)
	m.Observe(http.MethodGet, "GET /api/tasks", http.StatusOK, 30*time.Millisecond)
	m.Observe(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "GET /api/tasks", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", UnmatchedRoute, "404")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.Observe(http.MethodPost, "POST /api/auth/login", http.StatusUnauthorized, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `taskd_http_requests_total{method="POST",route="POST /api/auth/login",status="401"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}
