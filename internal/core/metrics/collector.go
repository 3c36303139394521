package metrics

import (
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-dds/pkg/types"
)

// Collector DDS 指标收集器
type Collector struct {
	registry *prometheus.Registry
	rate     *RateMeter

	entitiesCreated *prometheus.CounterVec
	entitiesClosed  *prometheus.CounterVec
	entitiesActive  *prometheus.GaugeVec

	discovery *prometheus.CounterVec

	matches       prometheus.Counter
	unmatches     prometheus.Counter
	matchesActive prometheus.Gauge
	incompatible  *prometheus.CounterVec

	samplesPushed   prometheus.Counter
	samplesLost     prometheus.Counter
	samplesRejected *prometheus.CounterVec
	samplesTaken    prometheus.Counter
}

// New 创建收集器，namespace 为空时使用 "dds"
func New(namespace string, clk clock.Clock) *Collector {
	if namespace == "" {
		namespace = "dds"
	}
	c := &Collector{
		registry: prometheus.NewRegistry(),
		rate:     NewRateMeter(clk),

		entitiesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "entities_created_total",
			Help: "Entities created, by kind.",
		}, []string{"kind"}),
		entitiesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "entities_closed_total",
			Help: "Entities closed, by kind.",
		}, []string{"kind"}),
		entitiesActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "entities_active",
			Help: "Entities currently open, by kind.",
		}, []string{"kind"}),

		discovery: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "discovery_records_total",
			Help: "Remote discovery records, by record kind and outcome.",
		}, []string{"kind", "outcome"}),

		matches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "matches_total",
			Help: "Writer/reader matches established.",
		}),
		unmatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "unmatches_total",
			Help: "Writer/reader matches removed.",
		}),
		matchesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "matches_active",
			Help: "Writer/reader matches currently established.",
		}),
		incompatible: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "incompatible_qos_total",
			Help: "Incompatible QoS detections, by failing policy.",
		}, []string{"policy"}),

		samplesPushed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "samples_pushed_total",
			Help: "Samples accepted into reader caches.",
		}),
		samplesLost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "samples_lost_total",
			Help: "Unread samples evicted from reader caches.",
		}),
		samplesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "samples_rejected_total",
			Help: "Samples rejected by reader caches, by reason.",
		}, []string{"reason"}),
		samplesTaken: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "samples_taken_total",
			Help: "Samples removed from reader caches by take.",
		}),
	}

	pushRate := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace, Name: "samples_push_rate",
		Help: "Samples per second accepted into reader caches over the last minute.",
	}, c.rate.Rate)

	c.registry.MustRegister(
		c.entitiesCreated, c.entitiesClosed, c.entitiesActive,
		c.discovery,
		c.matches, c.unmatches, c.matchesActive, c.incompatible,
		c.samplesPushed, c.samplesLost, c.samplesRejected, c.samplesTaken,
		pushRate,
	)
	return c
}

// Registry 返回 Prometheus 注册表
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// PushRate 返回最近一分钟的样本写入速率
func (c *Collector) PushRate() float64 {
	return c.rate.Rate()
}

// Observe 计入一个事件，未知类型忽略
func (c *Collector) Observe(ev any) {
	switch e := ev.(type) {
	case types.EvtEntityCreated:
		c.entitiesCreated.WithLabelValues(e.Kind.String()).Inc()
		c.entitiesActive.WithLabelValues(e.Kind.String()).Inc()
	case types.EvtEntityClosed:
		c.entitiesClosed.WithLabelValues(e.Kind.String()).Inc()
		c.entitiesActive.WithLabelValues(e.Kind.String()).Dec()

	case types.EvtRemoteAnnounced:
		c.discovery.WithLabelValues(e.Record.Kind.String(), "announced").Inc()
	case types.EvtRemoteLost:
		c.discovery.WithLabelValues(e.Record.Kind.String(), "lost").Inc()
	case types.EvtRemoteIgnored:
		c.discovery.WithLabelValues(e.Record.Kind.String(), "ignored").Inc()

	case types.EvtMatched:
		c.matches.Inc()
		c.matchesActive.Inc()
	case types.EvtUnmatched:
		c.unmatches.Inc()
		c.matchesActive.Dec()
	case types.EvtIncompatibleQos:
		for _, p := range e.Policies {
			c.incompatible.WithLabelValues(p.String()).Inc()
		}

	case types.EvtSamplesPushed:
		c.samplesPushed.Add(float64(e.Count))
		c.rate.Add(int64(e.Count))
	case types.EvtSamplesLost:
		c.samplesLost.Add(float64(e.Count))
	case types.EvtSampleRejected:
		c.samplesRejected.WithLabelValues(e.Reason.String()).Inc()
	case types.EvtSamplesTaken:
		c.samplesTaken.Add(float64(e.Count))
	}
}
