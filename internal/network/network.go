package network

import (
	"fmt"
	"regexp"
)

const (
	IPv4 = 4
	IPv6 = 6
)

var dottedQuad = regexp.MustCompile(`^(?:[0-9]{1,3}\.){3}[0-9]{1,3}$`)

// IPVersion classifies an address by its literal form: dotted quads are IPv4,
// anything else is treated as IPv6.
func IPVersion(ip string) int {
	if dottedQuad.MatchString(ip) {
		return IPv4
	}
	return IPv6
}

// HostName is the per-network name of a server, "<server>_<network>".
func HostName(server, network string) string {
	return fmt.Sprintf("%s_%s", server, network)
}

// Alias appends the address family suffix to a host name.
func Alias(hostName, ip string) string {
	return fmt.Sprintf("%s_v%d", hostName, IPVersion(ip))
}

// GroupName names the inventory group of a network and address family.
func GroupName(network string, ipVersion int) string {
	return fmt.Sprintf("%s_ipv%d", network, ipVersion)
}
