// Package monitor holds the node's prometheus collectors. They are
// registered on a per-process registry owned by the engine rather than the
// global default, so tests can build as many as they like.
package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	ConnectorSpawns *prometheus.CounterVec
	DirectivesSent  *prometheus.CounterVec
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	PoolBusy        prometheus.Gauge
	PoolQueued      prometheus.Gauge
	SchedulerFired  *prometheus.CounterVec
	ShutdownSteps   *prometheus.CounterVec
	JoinAccepted    prometheus.Gauge
	SingletonLeader prometheus.Gauge
	SnapshotBuiltAt prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ConnectorSpawns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "busnode_connector_spawns_total",
			Help: "Connector subprocess start attempts",
		}, []string{"kind", "status"}),
		DirectivesSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "busnode_directives_sent_total",
			Help: "Connector directives broadcast on the broker fabric",
		}, []string{"family", "status"}),
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "busnode_requests_total",
			Help: "Requests served by the dispatcher",
		}, []string{"code"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "busnode_request_duration_seconds",
			Help:    "Time spent in the request handler",
			Buckets: prometheus.DefBuckets,
		}, []string{"code"}),
		PoolBusy: f.NewGauge(prometheus.GaugeOpts{
			Name: "busnode_pool_busy_workers",
			Help: "Dispatcher workers currently handling a request",
		}),
		PoolQueued: f.NewGauge(prometheus.GaugeOpts{
			Name: "busnode_pool_queued_requests",
			Help: "Requests waiting for a dispatcher worker",
		}),
		SchedulerFired: f.NewCounterVec(prometheus.CounterOpts{
			Name: "busnode_scheduler_fired_total",
			Help: "Scheduled job executions requested",
		}, []string{"job_type", "status"}),
		ShutdownSteps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "busnode_shutdown_steps_total",
			Help: "Shutdown steps run",
		}, []string{"step", "status"}),
		JoinAccepted: f.NewGauge(prometheus.GaugeOpts{
			Name: "busnode_join_accepted",
			Help: "1 when the node is accepted into its cluster",
		}),
		SingletonLeader: f.NewGauge(prometheus.GaugeOpts{
			Name: "busnode_singleton_leader",
			Help: "1 while this node holds the cluster singleton lease",
		}),
		SnapshotBuiltAt: f.NewGauge(prometheus.GaugeOpts{
			Name: "busnode_worker_config_built_timestamp_seconds",
			Help: "Unix time the current worker config snapshot was built",
		}),
	}
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// The helpers below accept a nil receiver so components can run without
// metrics in tests.

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObserveSpawn(kind string, err error) {
	if m == nil {
		return
	}
	m.ConnectorSpawns.WithLabelValues(kind, status(err)).Inc()
}

func (m *Metrics) ObserveDirective(family string, err error) {
	if m == nil {
		return
	}
	m.DirectivesSent.WithLabelValues(family, status(err)).Inc()
}

func (m *Metrics) ObserveRequest(code string, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(code).Inc()
	m.RequestDuration.WithLabelValues(code).Observe(d.Seconds())
}

func (m *Metrics) WorkerBusy(delta float64) {
	if m == nil {
		return
	}
	m.PoolBusy.Add(delta)
}

func (m *Metrics) Queued(delta float64) {
	if m == nil {
		return
	}
	m.PoolQueued.Add(delta)
}

func (m *Metrics) ObserveFire(jobType string, err error) {
	if m == nil {
		return
	}
	m.SchedulerFired.WithLabelValues(jobType, status(err)).Inc()
}

func (m *Metrics) ObserveShutdownStep(step string, err error) {
	if m == nil {
		return
	}
	m.ShutdownSteps.WithLabelValues(step, status(err)).Inc()
}

func (m *Metrics) SetJoinAccepted(ok bool) {
	if m == nil {
		return
	}
	m.JoinAccepted.Set(boolGauge(ok))
}

func (m *Metrics) SetSingletonLeader(ok bool) {
	if m == nil {
		return
	}
	m.SingletonLeader.Set(boolGauge(ok))
}

func (m *Metrics) SetSnapshotBuilt(t time.Time) {
	if m == nil {
		return
	}
	m.SnapshotBuiltAt.Set(float64(t.Unix()))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
