package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.Register(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestReadiness(t *testing.T) {
	t.Run("ready when all checks pass", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("database", func(context.Context) error { return nil })

		w := serve(h, "/health/ready")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("not ready when any check fails", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("database", func(context.Context) error { return nil })
		h.RegisterCheck("redis", func(context.Context) error { return errors.New("connection refused") })

		w := serve(h, "/health/ready")
		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		var body ReadinessResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "not_ready", body.Status)
		assert.Equal(t, "up", body.Checks["database"])
		assert.Equal(t, "down: connection refused", body.Checks["redis"])
	})

	t.Run("optional failure degrades but stays ready", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("database", func(context.Context) error { return nil })
		h.RegisterOptionalCheck("kafka", func(context.Context) error { return errors.New("no brokers") })

		w := serve(h, "/health/ready")
		require.Equal(t, http.StatusOK, w.Code)

		var body ReadinessResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "degraded", body.Status)
		assert.Equal(t, "down: no brokers", body.Checks["kafka"])
	})

	t.Run("required failure outranks optional", func(t *testing.T) {
		h := New("test")
		h.RegisterOptionalCheck("kafka", func(context.Context) error { return errors.New("no brokers") })
		h.RegisterCheck("redis", func(context.Context) error { return errors.New("timeout") })

		w := serve(h, "/health/ready")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("slow check is bounded", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("database", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})

		start := time.Now()
		w := serve(h, "/health/ready")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Less(t, time.Since(start), checkTimeout+time.Second)
	})
}

func TestLivenessAndStatus(t *testing.T) {
	h := New("test")
	h.RegisterCheck("broken", func(context.Context) error { return errors.New("down") })

	assert.Equal(t, http.StatusOK, serve(h, "/health/live").Code)

	w := serve(h, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	var body StatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "test", body.Environment)
}
