package monitor

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveSpawn("amqp-channel", nil)
	m.ObserveDirective("amqp", errors.New("x"))
	m.ObserveRequest("200", time.Millisecond)
	m.WorkerBusy(1)
	m.SetJoinAccepted(true)
}

func TestSpawnCounters(t *testing.T) {
	m := New()
	m.ObserveSpawn("amqp-channel", nil)
	m.ObserveSpawn("amqp-channel", errors.New("exec failed"))
	m.ObserveSpawn("amqp-channel", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ConnectorSpawns.WithLabelValues("amqp-channel", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectorSpawns.WithLabelValues("amqp-channel", "error")))
}

func TestIndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.SetJoinAccepted(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(a.JoinAccepted))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.JoinAccepted))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveRequest("500", 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `busnode_requests_total{code="500"} 1`)
}
