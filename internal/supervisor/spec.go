package supervisor

import (
	"strconv"
	"time"
)

// LaunchSpec describes one worker to launch. It is immutable per call; the
// supervisor keeps no reference to it after Start returns. Names are unique
// only within one running supervisor's handle table.
type LaunchSpec struct {
	Name    string   `json:"name"`
	Host    string   `json:"host"`
	Port    int      `json:"port"`
	WorkDir string   `json:"work_dir"`
	Entry   string   `json:"entry"`
	Args    []string `json:"args"`
}

// RunningInfo is the outcome of a successful launch. It is immutable once
// returned; callers persist it externally (e.g. as a crash-recovery hint)
// if they need it later. StartedAt is taken at the moment Start returns,
// not at spawn time.
type RunningInfo struct {
	Name      string    `json:"name"`
	PID       int       `json:"pid"`
	Port      int       `json:"port"`
	Host      string    `json:"host"`
	WorkDir   string    `json:"work_dir"`
	Cmd       []string  `json:"cmd"`
	StartedAt time.Time `json:"started_at"`
}

// argv composes the worker command line: runner prefix, entry point,
// --host/--port flags, then the spec's extra arguments.
func (s LaunchSpec) argv(runner []string) []string {
	out := make([]string, 0, len(runner)+5+len(s.Args))
	out = append(out, runner...)
	out = append(out, s.Entry, "--host", s.Host, "--port", strconv.Itoa(s.Port))
	out = append(out, s.Args...)
	return out
}
