//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup places the child in a new process group so the whole
// subtree it may create can be signaled as one unit.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminateTree delivers SIGTERM to the process group led by pid.
func terminateTree(pid int) error {
	return syscall.Kill(-pid, syscall.SIGTERM)
}

// forceKillTree delivers SIGKILL to the process group containing pid. The
// pid may be a discovered port owner rather than one of our children, so it
// is not necessarily a group leader; resolve its group first and fall back
// to killing the single process.
func forceKillTree(pid int) error {
	if pgid, err := syscall.Getpgid(pid); err == nil && pgid > 0 {
		return syscall.Kill(-pgid, syscall.SIGKILL)
	}
	return syscall.Kill(pid, syscall.SIGKILL)
}
