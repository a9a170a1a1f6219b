package appman

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/appman/internal/catalog"
	"github.com/loykin/appman/internal/catalog/factory"
	cfg "github.com/loykin/appman/internal/config"
	"github.com/loykin/appman/internal/history"
	"github.com/loykin/appman/internal/logger"
	"github.com/loykin/appman/internal/metrics"
	iapi "github.com/loykin/appman/internal/server"
	"github.com/loykin/appman/internal/state"
	"github.com/loykin/appman/internal/supervisor"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type LaunchSpec = supervisor.LaunchSpec

type RunningInfo = supervisor.RunningInfo

type Options = supervisor.Options

type App = catalog.App

type CatalogStore = catalog.Store

type HistorySink = history.Sink

type WorkerLogConfig = logger.Config

// Supervisor is a thin facade over internal/supervisor.Supervisor.
// It provides a stable public API for embedding.

type Supervisor struct{ inner *supervisor.Supervisor }

func New(opts Options) *Supervisor {
	return &Supervisor{inner: supervisor.New(opts)}
}

func (s *Supervisor) Start(spec LaunchSpec) (RunningInfo, error) { return s.inner.Start(spec) }
func (s *Supervisor) Stop(name, host string, port int) error {
	return s.inner.Stop(name, host, port)
}
func (s *Supervisor) Restart(spec LaunchSpec) (RunningInfo, error) { return s.inner.Restart(spec) }
func (s *Supervisor) IsRunning(name string) bool                   { return s.inner.IsRunning(name) }
func (s *Supervisor) Serving(host string, port int) bool           { return s.inner.Serving(host, port) }
func (s *Supervisor) Logs(name string) []string                    { return s.inner.Logs(name) }
func (s *Supervisor) SetHistorySinks(sinks ...HistorySink)         { s.inner.SetHistorySinks(sinks...) }

// Error classification helpers.

func IsPortInUse(err error) bool         { return supervisor.IsPortInUse(err) }
func IsStartupFailure(err error) bool    { return supervisor.IsStartupFailure(err) }
func IsEscalationFailure(err error) bool { return supervisor.IsEscalationFailure(err) }

// OpenCatalog selects a catalog store by DSN: "postgres://..." for
// PostgreSQL, any other value is treated as a sqlite path ("sqlite://"
// prefix optional).
func OpenCatalog(dsn string) (CatalogStore, error) { return factory.NewFromDSN(dsn) }

// OpenStateStore opens the crash-recovery hint file.
func OpenStateStore(path string) (*state.Store, error) { return state.New(path) }

// LoadConfig reads the daemon TOML configuration.
func LoadConfig(path string) (cfg.FileConfig, error) { return cfg.Load(path) }

// LoadApps parses an apps.yaml catalog into App records.
func LoadApps(path string) ([]App, error) { return cfg.LoadApps(path) }

// NewHTTPHandler builds the catalog/lifecycle API as a mountable handler.
func NewHTTPHandler(store CatalogStore, s *Supervisor, hints *state.Store, basePath string, withMetrics bool) http.Handler {
	return iapi.NewRouter(store, s.inner, hints, basePath, withMetrics).Handler()
}

// RegisterMetrics registers the worker lifecycle metrics with r.
func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
