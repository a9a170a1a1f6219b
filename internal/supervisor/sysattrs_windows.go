//go:build windows

package supervisor

import (
	"os/exec"
	"strconv"
	"syscall"
)

const createNewProcessGroup = 0x00000200

// configureProcessGroup places the child in a new process group so the whole
// subtree it may create can be signaled as one unit.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: createNewProcessGroup}
}

// terminateTree asks taskkill to end the process tree rooted at pid. There
// is no direct SIGTERM equivalent on Windows; /T without /F requests a
// cooperative shutdown of the tree.
func terminateTree(pid int) error {
	return exec.Command("taskkill", "/PID", strconv.Itoa(pid), "/T").Run()
}

// forceKillTree forcefully kills the process tree rooted at pid.
func forceKillTree(pid int) error {
	return exec.Command("taskkill", "/PID", strconv.Itoa(pid), "/T", "/F").Run()
}
