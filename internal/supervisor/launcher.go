package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/loykin/appman/internal/history"
	"github.com/loykin/appman/internal/metrics"
	"github.com/loykin/appman/internal/probe"
)

// Start launches the worker described by spec and waits (bounded) for its
// port to open.
//
// A second Start for a name that is already tracked and alive is a no-op
// success returning the existing handle's info. If the target port is
// already serving before anything is spawned, Start fails with
// PortInUseError. If the child exits before the port opens, Start fails
// with StartupError carrying the log tail. If the startup timeout elapses
// with neither signal, Start returns success anyway; the worker may simply
// be slow to bind, and callers are expected to re-poll liveness.
func (s *Supervisor) Start(spec LaunchSpec) (RunningInfo, error) {
	if h, ok := s.table.running(spec.Name); ok {
		s.logger.Debug("start: already running", "name", spec.Name, "pid", h.pid())
		return RunningInfo{
			Name:      spec.Name,
			PID:       h.pid(),
			Port:      spec.Port,
			Host:      spec.Host,
			WorkDir:   spec.WorkDir,
			Cmd:       append([]string(nil), h.cmd.Args...),
			StartedAt: time.Now(),
		}, nil
	}

	if probe.PortIsOpen(spec.Host, spec.Port, s.opts.ProbeTimeout) {
		metrics.IncLaunchFailure(spec.Name, "port_in_use")
		return RunningInfo{}, &PortInUseError{Host: spec.Host, Port: spec.Port}
	}

	argv := spec.argv(s.opts.Runner)
	// #nosec G204 -- argv is composed from the fixed runner prefix and the caller's spec
	cmd := exec.Command(argv[0], argv[1:]...)
	if spec.WorkDir != "" {
		cmd.Dir = spec.WorkDir
	}
	configureProcessGroup(cmd)

	// Combined stdout+stderr through one pipe owned by the log pump. Using
	// os.Pipe directly (instead of StdoutPipe) keeps cmd.Wait independent of
	// the pump's read progress.
	pr, pw, err := os.Pipe()
	if err != nil {
		return RunningInfo{}, fmt.Errorf("failed to create log pipe: %w", err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw
	cmd.Stdin = nil

	s.rings.Append(spec.Name, "[appman] starting: "+strings.Join(argv, " "))
	s.rings.Append(spec.Name, "[appman] workdir="+spec.WorkDir)

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		s.rings.Append(spec.Name, "[appman] spawn failed: "+err.Error())
		metrics.IncLaunchFailure(spec.Name, "spawn")
		return RunningInfo{}, &StartupError{Name: spec.Name, LogTail: s.rings.Snapshot(spec.Name), Err: err}
	}
	// The child holds its own copy of the write end.
	_ = pw.Close()

	fw, err := s.opts.WorkerLogs.Writer(spec.Name)
	if err != nil {
		s.logger.Warn("worker log file unavailable", "name", spec.Name, "error", err)
		fw = nil
	}

	h := newHandle(cmd)
	s.table.register(spec.Name, h)
	go s.reap(h)
	go s.pump(spec.Name, pr, fw)

	pid := h.pid()
	s.logger.Info("worker spawned", "name", spec.Name, "pid", pid, "host", spec.Host, "port", spec.Port)

	waitStart := time.Now()
	deadline := waitStart.Add(s.opts.StartupTimeout)
	for time.Now().Before(deadline) {
		select {
		case <-h.done:
			// Give the pump a moment to drain the child's last output so the
			// returned tail includes the crash diagnostics.
			time.Sleep(50 * time.Millisecond)
			s.rings.Append(spec.Name, fmt.Sprintf("[appman] process exited early: %v", exitDetail(h.waitErr)))
			s.table.unregister(spec.Name)
			s.updateRunningGauge()
			metrics.IncLaunchFailure(spec.Name, "startup")
			return RunningInfo{}, &StartupError{Name: spec.Name, PID: pid, LogTail: s.rings.Snapshot(spec.Name), Err: h.waitErr}
		default:
		}
		if probe.PortIsOpen(spec.Host, spec.Port, s.opts.ProbeTimeout) {
			s.rings.Append(spec.Name, "[appman] port opened successfully")
			break
		}
		time.Sleep(s.opts.PollInterval)
	}
	metrics.ObserveStartupWait(spec.Name, time.Since(waitStart).Seconds())
	metrics.IncLaunch(spec.Name)
	s.updateRunningGauge()

	info := RunningInfo{
		Name:      spec.Name,
		PID:       pid,
		Port:      spec.Port,
		Host:      spec.Host,
		WorkDir:   spec.WorkDir,
		Cmd:       argv,
		StartedAt: time.Now(),
	}
	s.emit(history.Event{
		Type:       history.EventLaunch,
		OccurredAt: time.Now().UTC(),
		Name:       spec.Name,
		PID:        pid,
		Host:       spec.Host,
		Port:       spec.Port,
	})
	return info, nil
}

// reap waits for the child and publishes the result through the handle.
func (s *Supervisor) reap(h *handle) {
	h.waitErr = h.cmd.Wait()
	close(h.done)
}

func exitDetail(err error) string {
	if err == nil {
		return "exit status 0"
	}
	return err.Error()
}
