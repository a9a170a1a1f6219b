package supervisor

import (
	"bufio"
	"io"
)

// pump drains a worker's combined stdout+stderr stream into its log ring,
// one line per append, until the stream closes. Empty lines produced by the
// stream are forwarded as-is. When a rotating file writer is configured,
// every raw line is mirrored there too; file write errors do not stop the
// pump. A read error is recorded as one synthetic diagnostic line before
// the pump exits. Pump termination is not a liveness signal; the port probe
// stays authoritative.
func (s *Supervisor) pump(name string, r io.ReadCloser, fw io.WriteCloser) {
	defer func() { _ = r.Close() }()
	if fw != nil {
		defer func() { _ = fw.Close() }()
	}
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			s.rings.Append(name, line)
			if fw != nil {
				_, _ = fw.Write([]byte(line))
			}
		}
		if err != nil {
			if err != io.EOF {
				s.rings.Append(name, "[appman] log pump error: "+err.Error())
			}
			return
		}
	}
}
