// Package server exposes the app catalog and worker lifecycle over HTTP.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/appman/internal/catalog"
	"github.com/loykin/appman/internal/config"
	"github.com/loykin/appman/internal/metrics"
	"github.com/loykin/appman/internal/probe"
	"github.com/loykin/appman/internal/state"
	"github.com/loykin/appman/internal/supervisor"
)

// Router provides embeddable HTTP handlers for the app catalog and
// worker lifecycle.
// Endpoints (under basePath):
//   GET    /apps              list apps with live status
//   POST   /apps              create app
//   PUT    /apps/:id          update app (rejected while serving)
//   DELETE /apps/:id          delete app (rejected while serving)
//   POST   /apps/import-yaml  upsert apps from a YAML catalog
//   POST   /apps/:id/start    launch the worker
//   POST   /apps/:id/stop     stop the worker
//   POST   /apps/:id/restart  stop then launch
//   GET    /apps/:id/logs     in-memory log tail
//   GET    /healthz           liveness
//   GET    /metrics           prometheus (optional)
// basePath may be empty or start with '/'; no trailing slash.

type Router struct {
	store    catalog.Store
	sup      *supervisor.Supervisor
	hints    *state.Store
	basePath string
	metrics  bool
}

// NewRouter constructs a Router. hints may be nil when crash-recovery
// persistence is disabled.
func NewRouter(store catalog.Store, sup *supervisor.Supervisor, hints *state.Store, basePath string, withMetrics bool) *Router {
	return &Router{
		store:    store,
		sup:      sup,
		hints:    hints,
		basePath: sanitizeBase(basePath),
		metrics:  withMetrics,
	}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/apps", r.handleList)
	group.POST("/apps", r.handleCreate)
	group.PUT("/apps/:id", r.handleUpdate)
	group.DELETE("/apps/:id", r.handleDelete)
	group.POST("/apps/import-yaml", r.handleImportYAML)
	group.POST("/apps/:id/start", r.handleStart)
	group.POST("/apps/:id/stop", r.handleStop)
	group.POST("/apps/:id/restart", r.handleRestart)
	group.GET("/apps/:id/logs", r.handleLogs)
	group.GET("/healthz", func(c *gin.Context) { writeJSON(c, http.StatusOK, okResp{OK: true}) })
	if r.metrics {
		group.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
// Shut it down via http.Server's Close or Shutdown.
func NewServer(addr string, r *Router) *http.Server {
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server
}

// --- status composition ---

type appStatus struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Enabled   bool    `json:"enabled"`
	Path      string  `json:"path"`
	Entry     string  `json:"entry"`
	Host      string  `json:"host"`
	Port      int     `json:"port"`
	Args      string  `json:"args"`
	PID       *int    `json:"pid"`
	Status    string  `json:"status"`
	Serving   bool    `json:"serving"`
	StartedAt *string `json:"started_at"`
}

// composeStatus derives the operator-facing view. "serving" comes from a
// live port probe; the tracked handle only distinguishes "starting" from
// "stopped" when nothing answers yet.
func (r *Router) composeStatus(a catalog.App) appStatus {
	serving := r.sup.Serving(a.Host, a.Port)
	tracked := r.sup.IsRunning(a.Name)

	status := "stopped"
	switch {
	case serving:
		status = "running"
	case tracked:
		status = "starting"
	}

	st := appStatus{
		ID:      a.ID,
		Name:    a.Name,
		Enabled: a.Enabled,
		Path:    a.Path,
		Entry:   a.Entry,
		Host:    a.Host,
		Port:    a.Port,
		Args:    a.Args,
		Status:  status,
		Serving: serving,
	}
	if r.hints != nil {
		if rec, ok := r.hints.Get(a.Name); ok {
			pid := rec.PID
			st.PID = &pid
			ts := rec.StartedAt.UTC().Format(time.RFC3339)
			st.StartedAt = &ts
		}
	}
	return st
}

// --- handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

func (r *Router) handleList(c *gin.Context) {
	apps, err := r.store.List(c.Request.Context())
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	out := make([]appStatus, 0, len(apps))
	for _, a := range apps {
		out = append(out, r.composeStatus(a))
	}
	writeJSON(c, http.StatusOK, out)
}

func (r *Router) handleCreate(c *gin.Context) {
	var p appPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if errs := p.validate(); len(errs) > 0 {
		writeJSON(c, http.StatusUnprocessableEntity, gin.H{"errors": errs})
		return
	}
	created, err := r.store.Create(c.Request.Context(), p.toApp(0))
	if err != nil {
		if errors.Is(err, catalog.ErrDuplicateName) {
			writeJSON(c, http.StatusConflict, errorResp{Error: "app name already exists"})
			return
		}
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, r.composeStatus(created))
}

func (r *Router) handleUpdate(c *gin.Context) {
	existing, ok := r.appFromParam(c)
	if !ok {
		return
	}
	// Editing a serving app would desync the catalog from the live worker.
	if r.sup.Serving(existing.Host, existing.Port) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "stop app before editing"})
		return
	}
	var p appPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if errs := p.validate(); len(errs) > 0 {
		writeJSON(c, http.StatusUnprocessableEntity, gin.H{"errors": errs})
		return
	}
	updated, err := r.store.Update(c.Request.Context(), p.toApp(existing.ID))
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrDuplicateName):
			writeJSON(c, http.StatusConflict, errorResp{Error: "another app already uses this name"})
		case errors.Is(err, catalog.ErrNotFound):
			writeJSON(c, http.StatusNotFound, errorResp{Error: "app not found"})
		default:
			writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		}
		return
	}
	writeJSON(c, http.StatusOK, r.composeStatus(updated))
}

func (r *Router) handleDelete(c *gin.Context) {
	existing, ok := r.appFromParam(c)
	if !ok {
		return
	}
	if r.sup.Serving(existing.Host, existing.Port) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "stop app before deleting"})
		return
	}
	if err := r.store.Delete(c.Request.Context(), existing.ID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeJSON(c, http.StatusNotFound, errorResp{Error: "app not found"})
			return
		}
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

type importReq struct {
	Path string `json:"path"`
}

func (r *Router) handleImportYAML(c *gin.Context) {
	req := importReq{Path: "config/apps.yaml"}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
			return
		}
		if req.Path == "" {
			req.Path = "config/apps.yaml"
		}
	}
	apps, err := config.LoadApps(req.Path)
	if err != nil {
		writeJSON(c, http.StatusNotFound, errorResp{Error: err.Error()})
		return
	}
	imported := make([]string, 0, len(apps))
	for _, a := range apps {
		up, err := r.store.UpsertByName(c.Request.Context(), a)
		if err != nil {
			writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
			return
		}
		imported = append(imported, up.Name)
	}
	writeJSON(c, http.StatusOK, gin.H{"ok": true, "imported": imported, "count": len(imported)})
}

func (r *Router) handleStart(c *gin.Context) {
	a, ok := r.appFromParam(c)
	if !ok {
		return
	}
	if !a.Enabled {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "app is disabled"})
		return
	}
	// Something already answering on the port is treated as running,
	// whether or not this daemon launched it.
	if r.sup.Serving(a.Host, a.Port) {
		writeJSON(c, http.StatusOK, gin.H{"ok": true, "status": "running", "port": a.Port})
		return
	}

	info, err := r.sup.Start(toLaunchSpec(a))
	if err != nil {
		r.writeLifecycleError(c, err)
		return
	}
	r.saveHint(a.Name, info)

	tail := r.sup.Logs(a.Name)
	if len(tail) > 20 {
		tail = tail[len(tail)-20:]
	}
	writeJSON(c, http.StatusOK, gin.H{
		"ok":     true,
		"status": "starting",
		"pid":    info.PID,
		"port":   info.Port,
		"logs":   tail,
	})
}

func (r *Router) handleStop(c *gin.Context) {
	a, ok := r.appFromParam(c)
	if !ok {
		return
	}
	err := r.sup.Stop(a.Name, a.Host, a.Port)
	if r.hints != nil {
		_ = r.hints.Delete(a.Name)
	}
	if err != nil {
		var esc *supervisor.EscalationError
		if errors.As(err, &esc) {
			writeJSON(c, http.StatusConflict, gin.H{
				"ok":            false,
				"still_serving": true,
				"port":          a.Port,
				"error":         esc.Error(),
			})
			return
		}
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	stillServing := probe.PortIsOpen(a.Host, a.Port, probe.DefaultTimeout)
	writeJSON(c, http.StatusOK, gin.H{
		"ok":            true,
		"stopped":       true,
		"still_serving": stillServing,
		"port":          a.Port,
	})
}

func (r *Router) handleRestart(c *gin.Context) {
	a, ok := r.appFromParam(c)
	if !ok {
		return
	}
	if !a.Enabled {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "app is disabled"})
		return
	}
	info, err := r.sup.Restart(toLaunchSpec(a))
	if err != nil {
		r.writeLifecycleError(c, err)
		return
	}
	r.saveHint(a.Name, info)
	writeJSON(c, http.StatusOK, gin.H{"ok": true, "status": "starting", "pid": info.PID, "port": info.Port})
}

func (r *Router) handleLogs(c *gin.Context) {
	a, ok := r.appFromParam(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"id": a.ID, "name": a.Name, "lines": r.sup.Logs(a.Name)})
}

func (r *Router) writeLifecycleError(c *gin.Context, err error) {
	switch {
	case supervisor.IsPortInUse(err):
		writeJSON(c, http.StatusConflict, errorResp{Error: err.Error()})
	case supervisor.IsStartupFailure(err):
		var se *supervisor.StartupError
		_ = errors.As(err, &se)
		writeJSON(c, http.StatusBadGateway, gin.H{"error": err.Error(), "logs": se.LogTail})
	case supervisor.IsEscalationFailure(err):
		writeJSON(c, http.StatusConflict, errorResp{Error: err.Error()})
	default:
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
	}
}

func (r *Router) saveHint(name string, info supervisor.RunningInfo) {
	if r.hints == nil {
		return
	}
	_ = r.hints.Upsert(name, state.Record{
		PID:       info.PID,
		Host:      info.Host,
		Port:      info.Port,
		Cmd:       info.Cmd,
		WorkDir:   info.WorkDir,
		StartedAt: info.StartedAt,
	})
}
