package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/loykin/appman/internal/history"
	"github.com/loykin/appman/internal/logger"
	"github.com/loykin/appman/internal/logring"
	"github.com/loykin/appman/internal/metrics"
	"github.com/loykin/appman/internal/probe"
)

// Options carries the supervisor's tunables. Zero values select defaults;
// the polling loops remain explicit bounded retries, not blocking waits.
type Options struct {
	// Runner is the fixed command prefix workers are launched with,
	// e.g. ["python3", "-m", "uvicorn"].
	Runner []string
	// StartupTimeout bounds the post-spawn wait for the port to open.
	StartupTimeout time.Duration
	// PollInterval is the sleep between port probes during startup.
	PollInterval time.Duration
	// ProbeTimeout bounds a single liveness probe connect attempt.
	ProbeTimeout time.Duration
	// StopWait is the grace period after signaling a tracked handle.
	StopWait time.Duration
	// EscalateWait is the pause after the forceful kill pass before the
	// final re-probe.
	EscalateWait time.Duration
	// LogCapacity is the per-worker log tail size in lines.
	LogCapacity int
	// WorkerLogs configures optional rotating per-worker output files.
	// Output always lands in the in-memory tail regardless.
	WorkerLogs logger.Config
	// Logger receives supervisor-side diagnostics. Defaults to slog.Default.
	Logger *slog.Logger
}

const (
	defaultStartupTimeout = 2 * time.Second
	defaultPollInterval   = 100 * time.Millisecond
	defaultStopWait       = 500 * time.Millisecond
	defaultEscalateWait   = 300 * time.Millisecond
)

func (o Options) withDefaults() Options {
	if len(o.Runner) == 0 {
		o.Runner = []string{"python3", "-m", "uvicorn"}
	}
	if o.StartupTimeout <= 0 {
		o.StartupTimeout = defaultStartupTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = probe.DefaultTimeout
	}
	if o.StopWait <= 0 {
		o.StopWait = defaultStopWait
	}
	if o.EscalateWait <= 0 {
		o.EscalateWait = defaultEscalateWait
	}
	if o.LogCapacity <= 0 {
		o.LogCapacity = logring.DefaultCapacity
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Supervisor launches, monitors, and terminates port-bound worker processes.
// It holds no state besides the handle table, the log rings, and the
// configured sinks; durable persistence belongs to the caller.
type Supervisor struct {
	opts   Options
	table  *handleTable
	rings  *logring.Store
	logger *slog.Logger

	mu    sync.Mutex
	sinks []history.Sink
}

// New constructs a Supervisor with the given options.
func New(opts Options) *Supervisor {
	o := opts.withDefaults()
	return &Supervisor{
		opts:   o,
		table:  newHandleTable(),
		rings:  logring.NewStore(o.LogCapacity),
		logger: o.Logger,
	}
}

// SetHistorySinks configures external lifecycle-event sinks. Passing no
// sinks clears the list.
func (s *Supervisor) SetHistorySinks(sinks ...history.Sink) {
	s.mu.Lock()
	s.sinks = append([]history.Sink(nil), sinks...)
	s.mu.Unlock()
}

func (s *Supervisor) emit(e history.Event) {
	s.mu.Lock()
	sinks := append([]history.Sink(nil), s.sinks...)
	s.mu.Unlock()
	for _, sink := range sinks {
		if err := sink.Send(context.Background(), e); err != nil {
			s.logger.Warn("history sink send failed", "name", e.Name, "type", string(e.Type), "error", err)
		}
	}
}

// IsRunning reports whether this supervisor instance holds a live tracked
// handle for name. This says nothing about whether something else occupies
// the worker's port; use Serving for the externally observable fact.
func (s *Supervisor) IsRunning(name string) bool {
	return s.table.isRunning(name)
}

// Serving reports whether host:port accepts TCP connections. Callers that
// present liveness to operators must derive it from this, not from
// IsRunning, because the two can diverge (tracked-but-dead,
// untracked-but-alive).
func (s *Supervisor) Serving(host string, port int) bool {
	return probe.PortIsOpen(host, port, s.opts.ProbeTimeout)
}

// Logs returns the retained log tail for name, oldest first. Unknown names
// yield an empty slice.
func (s *Supervisor) Logs(name string) []string {
	return s.rings.Snapshot(name)
}

// Restart stops the named worker (best-effort; failure ignored) and starts
// it again. It is not atomic: between the two steps the port is free with
// nothing listening, which concurrent liveness queries observe as "stopped".
func (s *Supervisor) Restart(spec LaunchSpec) (RunningInfo, error) {
	if err := s.Stop(spec.Name, spec.Host, spec.Port); err != nil {
		s.logger.Warn("restart: stop failed, starting anyway", "name", spec.Name, "error", err)
	}
	return s.Start(spec)
}

func (s *Supervisor) updateRunningGauge() {
	metrics.SetRunningWorkers(s.table.liveCount())
}
