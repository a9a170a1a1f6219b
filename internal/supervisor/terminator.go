package supervisor

import (
	"fmt"
	"time"

	"github.com/loykin/appman/internal/history"
	"github.com/loykin/appman/internal/metrics"
	"github.com/loykin/appman/internal/probe"
)

// Stop terminates the named worker through a three-tier escalation and
// returns nil once the port is closed.
//
// Tier 1 signals the tracked process group, when a live handle exists.
// Tier 2 re-probes the port; closed means done. Tier 3 discovers whatever
// actually listens on the port and force-kills those process trees. That
// path covers a worker surviving a supervisor restart, where no handle is
// tracked. Names are supervisor-local; the port is the durable identity
// of "is this worker still occupying its slot". If the port is still open
// after the kill pass, Stop returns EscalationError and leaves the tracked
// state untouched.
func (s *Supervisor) Stop(name, host string, port int) error {
	var pid int
	if h, ok := s.table.running(name); ok {
		pid = h.pid()
		s.rings.Append(name, fmt.Sprintf("[appman] stopping pid=%d", pid))
		if err := terminateTree(pid); err != nil {
			// Signal delivery failure (permissions, already gone) does not
			// abort the sequence; escalation still runs.
			s.rings.Append(name, "[appman] stop signal error: "+err.Error())
			s.logger.Warn("stop signal failed", "name", name, "pid", pid, "error", err)
		}
		select {
		case <-h.done:
		case <-time.After(s.opts.StopWait):
		}
	}

	if !probe.PortIsOpen(host, port, s.opts.ProbeTimeout) {
		s.finishStop(name, host, port, pid)
		return nil
	}

	owners, err := pidsListeningOn(port)
	if err != nil {
		s.logger.Warn("port owner discovery failed", "name", name, "port", port, "error", err)
	}
	metrics.IncEscalation(name)
	for _, owner := range owners {
		s.rings.Append(name, fmt.Sprintf("[appman] escalating: killing pid=%d on port %d", owner, port))
		if killErr := forceKillTree(owner); killErr != nil {
			s.logger.Warn("force kill failed", "name", name, "pid", owner, "error", killErr)
		}
	}
	time.Sleep(s.opts.EscalateWait)

	if probe.PortIsOpen(host, port, s.opts.ProbeTimeout) {
		return &EscalationError{Name: name, Host: host, Port: port, PIDs: owners}
	}
	s.finishStop(name, host, port, pid)
	return nil
}

// finishStop unregisters the handle and records the stop. Only reached once
// the port is confirmed closed; a failed stop leaves state untouched.
func (s *Supervisor) finishStop(name, host string, port, pid int) {
	if _, ok := s.table.get(name); ok {
		s.table.unregister(name)
	}
	s.updateRunningGauge()
	metrics.IncStop(name)
	s.logger.Info("worker stopped", "name", name, "host", host, "port", port)
	s.emit(history.Event{
		Type:       history.EventStop,
		OccurredAt: time.Now().UTC(),
		Name:       name,
		PID:        pid,
		Host:       host,
		Port:       port,
	})
}
