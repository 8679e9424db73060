package transport

import (
	"errors"
	"net"
	"strings"
)

// ErrNoSubnet is returned when no non-loopback IPv4 interface is up.
var ErrNoSubnet = errors.New("no IPv4 interface found")

// LocalSubnet returns the first three octets of the first non-loopback
// IPv4 address on the host, e.g. "192.168.2".
func LocalSubnet() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}
	return subnetFromAddrs(addrs)
}

func subnetFromAddrs(addrs []net.Addr) (string, error) {
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() || ipnet.IP.IsLinkLocalUnicast() {
			continue
		}
		ip4 := ipnet.IP.To4()
		if ip4 == nil {
			continue
		}
		parts := strings.Split(ip4.String(), ".")
		return strings.Join(parts[:3], "."), nil
	}
	return "", ErrNoSubnet
}
