package scan

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// parsePrefix validates a three-octet subnet prefix and returns it as the
// network address of the /24.
func parsePrefix(prefix string) (net.IP, error) {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		return nil, errors.New("is required")
	}
	parts := strings.Split(prefix, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("must hold exactly three octets, got %q", prefix)
	}
	ip := net.ParseIP(prefix + ".0").To4()
	if ip == nil {
		return nil, fmt.Errorf("is not an IPv4 prefix: %q", prefix)
	}
	return ip, nil
}

func (c Config) prefix() string {
	return strings.TrimSuffix(strings.TrimSpace(c.SubnetPrefix), ".")
}

// HostIP returns the address of host octet n on the configured subnet.
func (c Config) HostIP(n int) string {
	return c.prefix() + "." + strconv.Itoa(n)
}

// BroadcastIP returns the subnet broadcast address.
func (c Config) BroadcastIP() string {
	return c.HostIP(255)
}

// hostOctet returns the host octet of ip when ip lies on the configured
// subnet within the host range.
func (c Config) hostOctet(ip net.IP) (int, bool) {
	network, err := parsePrefix(c.SubnetPrefix)
	if err != nil {
		return 0, false
	}
	ip4 := ip.To4()
	if ip4 == nil || !ip4.Mask(net.CIDRMask(24, 32)).Equal(network) {
		return 0, false
	}
	n := int(ip4[3])
	if n < c.HostStart || n > c.HostEnd {
		return 0, false
	}
	return n, true
}

// hostRange lists the host octets from start to end inclusive.
func hostRange(start, end int) []int {
	if start > end {
		return nil
	}
	hosts := make([]int, 0, end-start+1)
	for n := start; n <= end; n++ {
		hosts = append(hosts, n)
	}
	return hosts
}
