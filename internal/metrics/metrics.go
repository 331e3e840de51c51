// Package metrics holds the replay daemon's Prometheus registry: replay
// lifecycle, emitted events by sampling mode, NATS delivery, trajectory build
// failures by route source and the configured playback pacing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Collector struct {
	reg *prometheus.Registry

	ActiveReplays prometheus.Gauge

	ReplaysStarted  prometheus.Counter
	ReplaysFinished prometheus.Counter
	ReplaysLooped   prometheus.Counter

	EventsEmitted *prometheus.CounterVec // mode label: constant|profile

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	BuildErrors *prometheus.CounterVec // source label: file|db|api

	TickDuration    prometheus.Histogram
	PublishDuration prometheus.Histogram

	SpeedMultiplier prometheus.Gauge
	TickInterval    prometheus.Gauge // seconds
	RefreshInterval prometheus.Gauge // seconds
}

func NewCollector(speedMultiplier float64, tickInterval, refreshInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		ActiveReplays: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "replay_active_replays",
			Help: "Number of currently running replay goroutines.",
		}),
		ReplaysStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replay_replays_started_total",
			Help: "Total replays started.",
		}),
		ReplaysFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replay_replays_finished_total",
			Help: "Total replays finished.",
		}),
		ReplaysLooped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replay_replays_looped_total",
			Help: "Total replays restarted from the beginning after reaching the end.",
		}),
		EventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replay_events_emitted_total",
			Help: "Total location events emitted, by sampling mode.",
		}, []string{"mode"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replay_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replay_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "replay_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		BuildErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replay_trajectory_build_errors_total",
			Help: "Routes that could not be turned into a trajectory.",
		}, []string{"source"}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "replay_tick_duration_seconds",
			Help:    "Duration of one emitter tick including publish.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "replay_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		SpeedMultiplier: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "replay_speed_multiplier",
			Help: "Current speed multiplier.",
		}),
		TickInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "replay_tick_interval_seconds",
			Help: "Route time covered by one tick, in seconds.",
		}),
		RefreshInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "replay_refresh_interval_seconds",
			Help: "Routes refresh interval in seconds.",
		}),
	}

	reg.MustRegister(
		c.ActiveReplays,
		c.ReplaysStarted, c.ReplaysFinished, c.ReplaysLooped,
		c.EventsEmitted,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.BuildErrors, c.TickDuration, c.PublishDuration,
		c.SpeedMultiplier, c.TickInterval, c.RefreshInterval,
	)

	c.SpeedMultiplier.Set(speedMultiplier)
	c.TickInterval.Set(tickInterval.Seconds())
	c.RefreshInterval.Set(refreshInterval.Seconds())

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", zap.Error(err))
		}
	}()
	log.Info("metrics listening", zap.String("addr", addr))
	return srv
}

// The methods below let a nil *Collector be used where metrics are optional.

func (c *Collector) NATSPublishedInc() {
	if c != nil {
		c.NATSPublished.Inc()
	}
}

func (c *Collector) NATSPublishErrInc() {
	if c != nil {
		c.NATSPublishErrs.Inc()
	}
}

func (c *Collector) PublishObserve(d time.Duration) {
	if c != nil {
		c.PublishDuration.Observe(d.Seconds())
	}
}

func (c *Collector) NATSSetConnected(connected bool) {
	if c == nil {
		return
	}
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}

func (c *Collector) BuildErrorInc(source string) {
	if c != nil {
		c.BuildErrors.WithLabelValues(source).Inc()
	}
}
