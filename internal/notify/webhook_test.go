package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/clickup-gmud/internal/metrics"
	"github.com/xela07ax/clickup-gmud/internal/notify"
)

func newWebhook(url string, m *metrics.Metrics) *notify.Webhook {
	return notify.NewWebhook(url, zap.NewNop(),
		notify.WithMetrics(m),
		notify.WithAttempts(3),
		notify.WithBackoff(time.Millisecond),
	)
}

func TestWebhook_PostsContentPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	m := metrics.NewMetrics(prometheus.NewRegistry())
	newWebhook(srv.URL, m).Notify(context.Background(), "✅ GMUD aprovada")

	assert.Equal(t, map[string]string{"content": "✅ GMUD aprovada"}, got)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("sent")))
}

func TestWebhook_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := metrics.NewMetrics(prometheus.NewRegistry())
	newWebhook(srv.URL, m).Notify(context.Background(), "hello")

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("sent")))
}

func TestWebhook_FailureIsSwallowed(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := metrics.NewMetrics(prometheus.NewRegistry())

	assert.NotPanics(t, func() {
		newWebhook(srv.URL, m).Notify(context.Background(), "hello")
	})
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("failed")))
}

func TestWebhook_UnreachableHostIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	m := metrics.NewMetrics(prometheus.NewRegistry())

	assert.NotPanics(t, func() {
		newWebhook(url, m).Notify(context.Background(), "hello")
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("failed")))
}

func TestWebhook_TimeoutBoundsSlowEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	m := metrics.NewMetrics(prometheus.NewRegistry())
	wh := notify.NewWebhook(srv.URL, zap.NewNop(),
		notify.WithMetrics(m),
		notify.WithAttempts(1),
		notify.WithTimeout(50*time.Millisecond),
	)

	start := time.Now()
	wh.Notify(context.Background(), "hello")

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("failed")))
}

func TestWebhook_EmptyURLSkips(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())

	newWebhook("", m).Notify(context.Background(), "hello")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("skipped")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Notifications.WithLabelValues("sent")))
}

func TestWebhook_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	m := metrics.NewMetrics(prometheus.NewRegistry())
	wh := notify.NewWebhook(srv.URL, zap.NewNop(),
		notify.WithMetrics(m),
		notify.WithAttempts(1),
	)

	for range 5 {
		wh.Notify(context.Background(), "hello")
	}

	// После трех неудач подряд предохранитель перестает ходить в сеть
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 5.0, testutil.ToFloat64(m.Notifications.WithLabelValues("failed")))
}

func TestNop(t *testing.T) {
	var n notify.Notifier = notify.Nop{}
	assert.NotPanics(t, func() { n.Notify(context.Background(), "x") })
}
