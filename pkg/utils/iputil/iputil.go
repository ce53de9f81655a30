// Package iputil provides small network address helpers.
package iputil

import (
	"net"
)

// GetLocalIP returns the first non-loopback IPv4 address of this host, or
// the empty string when none exists.
func GetLocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}

	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ipnet.IP.To4() != nil {
			return ipnet.IP.String()
		}
	}

	return ""
}
