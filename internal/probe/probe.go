package probe

import (
	"net"
	"strconv"
	"time"
)

// DefaultTimeout bounds a single connect attempt. Liveness callers that need
// to wait for a transition loop externally; the probe itself never retries.
const DefaultTimeout = 250 * time.Millisecond

// PortIsOpen reports whether something is accepting TCP connections on
// host:port. Any connection error (refused, timeout, unreachable) counts as
// closed. This is the sole ground truth for "serving".
func PortIsOpen(host string, port int, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
