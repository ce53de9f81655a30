package supervisor

import (
	"net"
	"strconv"
)

// portFree probes whether the loopback port can still be bound. The listener
// is closed immediately; the plugin claims the port itself once spawned.
func portFree(port int) bool {
	l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = l.Close()

	return true
}
