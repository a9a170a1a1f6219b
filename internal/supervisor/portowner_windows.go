//go:build windows

package supervisor

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// pidsListeningOn enumerates the PIDs of processes holding a TCP listener on
// port by parsing netstat output. Used by the terminator's escalation path
// when the tracked handle is gone but the port is still occupied.
func pidsListeningOn(port int) ([]int, error) {
	out, err := exec.Command("netstat", "-ano", "-p", "tcp").Output()
	if err != nil {
		return nil, err
	}
	suffix := fmt.Sprintf(":%d", port)
	seen := make(map[int]bool)
	var pids []int
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		// TCP  local  foreign  LISTENING  pid
		if len(fields) < 5 || !strings.EqualFold(fields[0], "TCP") {
			continue
		}
		if !strings.EqualFold(fields[3], "LISTENING") || !strings.HasSuffix(fields[1], suffix) {
			continue
		}
		pid, convErr := strconv.Atoi(fields[4])
		if convErr != nil || pid <= 0 || seen[pid] {
			continue
		}
		seen[pid] = true
		pids = append(pids, pid)
	}
	return pids, nil
}
