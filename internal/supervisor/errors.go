package supervisor

import (
	"errors"
	"fmt"
)

// The launch/stop error taxonomy is a closed set of types so callers can
// branch on kind without string matching. Signal delivery failures and log
// pump read errors are handled internally (logged) and never surface here.

// PortInUseError reports that the target host:port was already serving
// before anything was spawned. Not retried.
type PortInUseError struct {
	Host string
	Port int
}

func (e *PortInUseError) Error() string {
	return fmt.Sprintf("port %s:%d already in use", e.Host, e.Port)
}

// StartupError reports that the child exited before its port opened. The
// captured log tail is included so an operator can diagnose the crash
// without separate log access.
type StartupError struct {
	Name    string
	PID     int
	LogTail []string
	Err     error
}

func (e *StartupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("worker %q failed during startup (pid %d): %v", e.Name, e.PID, e.Err)
	}
	return fmt.Sprintf("worker %q failed during startup (pid %d)", e.Name, e.PID)
}

func (e *StartupError) Unwrap() error { return e.Err }

// EscalationError reports that the port was still serving after the
// forceful kill pass. No further automatic retries happen; tracked state is
// left untouched.
type EscalationError struct {
	Name string
	Host string
	Port int
	PIDs []int
}

func (e *EscalationError) Error() string {
	return fmt.Sprintf("worker %q: port %s:%d still serving after kill escalation (pids %v)", e.Name, e.Host, e.Port, e.PIDs)
}

// IsPortInUse reports whether err is a PortInUseError.
func IsPortInUse(err error) bool {
	var t *PortInUseError
	return errors.As(err, &t)
}

// IsStartupFailure reports whether err is a StartupError.
func IsStartupFailure(err error) bool {
	var t *StartupError
	return errors.As(err, &t)
}

// IsEscalationFailure reports whether err is an EscalationError.
func IsEscalationFailure(err error) bool {
	var t *EscalationError
	return errors.As(err, &t)
}
