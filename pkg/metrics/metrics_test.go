// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveForward(t *testing.T) {
	m := New()
	m.ObserveForward("get_ping", http.MethodGet, http.StatusOK, 10*time.Millisecond)
	m.ObserveForward("get_ping", http.MethodGet, http.StatusOK, 20*time.Millisecond)
	m.ObserveUpstreamError("get_ping")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.forwarded.WithLabelValues("get_ping", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamErrors.WithLabelValues("get_ping")))
}

func TestObserveAssembly(t *testing.T) {
	m := New()
	m.ObserveAssembly(0, errors.New("boom"))
	m.ObserveAssembly(4, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.assemblies.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.assemblies.WithLabelValues("success")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.routes))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveForward("get_ping", http.MethodGet, http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "openapi_gateway_forwarded_requests_total")
}
