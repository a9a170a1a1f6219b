package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	workerLaunches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appman",
			Subsystem: "worker",
			Name:      "launches_total",
			Help:      "Number of successful worker launches.",
		}, []string{"name"},
	)
	launchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appman",
			Subsystem: "worker",
			Name:      "launch_failures_total",
			Help:      "Number of failed launch attempts by failure kind.",
		}, []string{"name", "reason"},
	)
	workerStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appman",
			Subsystem: "worker",
			Name:      "stops_total",
			Help:      "Number of successful stops (graceful or escalated).",
		}, []string{"name"},
	)
	stopEscalations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appman",
			Subsystem: "worker",
			Name:      "stop_escalations_total",
			Help:      "Number of stops that required the port-owner kill pass.",
		}, []string{"name"},
	)
	runningWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "appman",
			Subsystem: "worker",
			Name:      "running_total",
			Help:      "Current number of live tracked workers.",
		},
	)
	startupWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "appman",
			Subsystem: "worker",
			Name:      "startup_wait_seconds",
			Help:      "Time spent waiting for a worker port to open during launch.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"name"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{workerLaunches, launchFailures, workerStops, stopEscalations, runningWorkers, startupWait}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving Prometheus metrics for the
// DefaultGatherer. The caller wires the route.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncLaunch(name string) {
	if regOK.Load() {
		workerLaunches.WithLabelValues(name).Inc()
	}
}

func IncLaunchFailure(name, reason string) {
	if regOK.Load() {
		launchFailures.WithLabelValues(name, reason).Inc()
	}
}

func IncStop(name string) {
	if regOK.Load() {
		workerStops.WithLabelValues(name).Inc()
	}
}

func IncEscalation(name string) {
	if regOK.Load() {
		stopEscalations.WithLabelValues(name).Inc()
	}
}

func SetRunningWorkers(n int) {
	if regOK.Load() {
		runningWorkers.Set(float64(n))
	}
}

func ObserveStartupWait(name string, seconds float64) {
	if regOK.Load() {
		startupWait.WithLabelValues(name).Observe(seconds)
	}
}
