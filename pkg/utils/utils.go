package utils

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome replaces a leading "~" with the current user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// IsUsableHostIP reports whether ip can be assigned to a host in network,
// i.e. it is inside the network and is neither its network nor its broadcast
// address. /31 and /32 networks have no reserved addresses.
func IsUsableHostIP(network net.IPNet, ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		ip = ip4
	}

	if !network.Contains(ip) {
		return false
	}

	ones, bits := network.Mask.Size()
	if bits-ones < 2 {
		return true
	}

	first := network.IP.Mask(network.Mask)
	return !ip.Equal(first) && !ip.Equal(lastIP(first, network.Mask))
}

func lastIP(first net.IP, mask net.IPMask) net.IP {
	last := dupIP(first)
	for j := range last {
		last[j] |= ^mask[j]
	}
	return last
}

func dupIP(ip net.IP) net.IP {
	dup := make(net.IP, len(ip))
	copy(dup, ip)
	return dup
}
