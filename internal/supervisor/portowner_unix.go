//go:build !windows

package supervisor

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// pidsListeningOn enumerates the PIDs of processes holding a TCP listener on
// port. Used by the terminator's escalation path when the tracked handle is
// gone but the port is still occupied.
func pidsListeningOn(port int) ([]int, error) {
	// lsof exits 1 when nothing matches; that is "no owners", not an error.
	out, err := exec.Command("lsof", "-nP", "-t", fmt.Sprintf("-iTCP:%d", port), "-sTCP:LISTEN").Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) && len(out) == 0 {
			return nil, nil
		}
		return nil, err
	}
	seen := make(map[int]bool)
	var pids []int
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pid, convErr := strconv.Atoi(line)
		if convErr != nil || pid <= 0 || seen[pid] {
			continue
		}
		seen[pid] = true
		pids = append(pids, pid)
	}
	return pids, nil
}
