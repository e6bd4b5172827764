package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthReportsEnvironment(t *testing.T) {
	handler := NewHealthHandler("development", nil, nil)
	handler.now = func() time.Time { return time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC) }

	c, w := newGinContext(http.MethodGet, "/health", nil)
	handler.Health(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","timestamp":"2024-06-01T10:30:00Z","environment":"development"}`, w.Body.String())
}

func TestReadyDegradesOnFailingDependency(t *testing.T) {
	handler := NewHealthHandler("test", nil, map[string]Pinger{
		"database": PingFunc(func(ctx context.Context) error { return nil }),
		"redis":    PingFunc(func(ctx context.Context) error { return errors.New("connection refused") }),
		"disabled": nil,
	})

	c, w := newGinContext(http.MethodGet, "/ready", nil)
	handler.Ready(c)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"database":"ok","redis":"connection refused"}}`, w.Body.String())
}

func TestPrometheusUnavailableWithoutMetrics(t *testing.T) {
	handler := NewHealthHandler("test", nil, nil)

	c, w := newGinContext(http.MethodGet, "/metrics", nil)
	handler.Prometheus(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
