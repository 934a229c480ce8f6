package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_IPVersion(t *testing.T) {
	testCases := []struct {
		ip       string
		expected int
	}{
		{ip: "10.0.0.5", expected: IPv4},
		{ip: "192.168.100.254", expected: IPv4},
		{ip: "fd00::1", expected: IPv6},
		{ip: "2001:db8::8a2e:370:7334", expected: IPv6},
		{ip: "::ffff:10.0.0.5", expected: IPv6},
		{ip: "999.1.1.1", expected: IPv4},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, IPVersion(tc.ip), tc.ip)
	}
}

func Test_Alias(t *testing.T) {
	testCases := []struct {
		server   string
		network  string
		ip       string
		expected string
	}{
		{server: "h", network: "net1", ip: "10.0.0.5", expected: "h_net1_v4"},
		{server: "h", network: "net1", ip: "fd00::1", expected: "h_net1_v6"},
	}

	for _, tc := range testCases {
		actual := Alias(HostName(tc.server, tc.network), tc.ip)
		assert.Equal(t, tc.expected, actual)
	}
}

func Test_GroupName(t *testing.T) {
	assert.Equal(t, "net1_ipv4", GroupName("net1", IPv4))
	assert.Equal(t, "net1_ipv6", GroupName("net1", IPv6))
}
