package deploy

import (
	"net"
	"strconv"

	"github.com/quatton/photon/pkg/qerr"
)

const MaxPort = 65535

// PortProbe reports whether port can be bound right now.
type PortProbe func(port int) bool

// TCPProbe binds and releases the port on all interfaces.
func TCPProbe(port int) bool {
	l, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return false
	}
	l.Close()
	return true
}

// ResolvePort returns the first bindable port at or above start. skipped is
// called for every occupied port. The search stops after maxAttempts ports or
// at 65535. The result can still race with other processes.
func ResolvePort(start, maxAttempts int, probe PortProbe, skipped func(port int)) (int, error) {
	if start < 1 || start > MaxPort {
		return 0, qerr.Newf(qerr.CodeValidation, "port %d is out of range", start)
	}
	port := start
	for attempt := 0; attempt < maxAttempts && port <= MaxPort; attempt++ {
		if probe(port) {
			return port, nil
		}
		if skipped != nil {
			skipped(port)
		}
		port++
	}
	return 0, qerr.Newf(qerr.CodePortUnavailable, "no free port in %d-%d", start, port-1)
}
