package supervisor

import (
	"os/exec"
	"sync"
)

// handle is an opaque reference to a spawned child. done is closed by the
// reaper goroutine once cmd.Wait returns; waitErr is only valid after that.
type handle struct {
	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error
}

func newHandle(cmd *exec.Cmd) *handle {
	return &handle{cmd: cmd, done: make(chan struct{})}
}

// alive reports whether the underlying process has not yet been reaped.
func (h *handle) alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *handle) pid() int {
	if h.cmd != nil && h.cmd.Process != nil {
		return h.cmd.Process.Pid
	}
	return 0
}

// handleTable maps worker name to its live handle. It is the single source
// of truth for "this supervisor instance holds a handle to a running child".
// Removing an entry does not imply the OS process is dead; the terminator's
// escalation path covers that gap. One table-wide mutex is enough because
// every operation is brief in-memory bookkeeping, never blocking I/O.
type handleTable struct {
	mu    sync.Mutex
	procs map[string]*handle
}

func newHandleTable() *handleTable {
	return &handleTable{procs: make(map[string]*handle)}
}

// running returns the handle for name iff it exists and the process has not
// exited.
func (t *handleTable) running(name string) (*handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.procs[name]
	if h == nil || !h.alive() {
		return nil, false
	}
	return h, true
}

// get returns the tracked handle for name whether or not it is alive.
func (t *handleTable) get(name string) (*handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.procs[name]
	return h, h != nil
}

func (t *handleTable) register(name string, h *handle) {
	t.mu.Lock()
	t.procs[name] = h
	t.mu.Unlock()
}

func (t *handleTable) unregister(name string) {
	t.mu.Lock()
	delete(t.procs, name)
	t.mu.Unlock()
}

// isRunning reports whether a live tracked handle exists for name.
func (t *handleTable) isRunning(name string) bool {
	_, ok := t.running(name)
	return ok
}

// liveCount returns the number of names with a live tracked handle.
func (t *handleTable) liveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, h := range t.procs {
		if h != nil && h.alive() {
			n++
		}
	}
	return n
}
