package device

import (
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"sort"
	"strings"
)

// SortKey selects the order of the final inventory.
type SortKey int

const (
	SortByAlias SortKey = iota
	SortByIPAddress
)

func (k SortKey) String() string {
	switch k {
	case SortByIPAddress:
		return "ip"
	default:
		return "alias"
	}
}

// ParseSortKey maps a configuration value to a SortKey.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "alias", "name":
		return SortByAlias, nil
	case "ip", "ip_address", "ipaddress", "address":
		return SortByIPAddress, nil
	default:
		return SortByAlias, fmt.Errorf("unknown sort key %q", s)
	}
}

// Sort returns a new slice holding records ordered by key.
//
// SortByAlias compares aliases case-insensitively, puts records without an
// alias after all aliased ones and breaks ties by IP address. SortByIPAddress
// orders numerically on the 32-bit address. Remaining ties fall back to the
// identity so the result never depends on input order.
func Sort(records []Record, key SortKey) []Record {
	out := make([]Record, len(records))
	copy(out, records)

	byIP := func(a, b Record) int {
		av, bv := ipValue(a.IP), ipValue(b.IP)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return strings.Compare(a.Key(), b.Key())
	}

	var less func(a, b Record) bool
	switch key {
	case SortByIPAddress:
		less = func(a, b Record) bool { return byIP(a, b) < 0 }
	default:
		less = func(a, b Record) bool {
			aa := strings.ToLower(strings.TrimSpace(a.Alias))
			ba := strings.ToLower(strings.TrimSpace(b.Alias))
			switch {
			case aa == "" && ba != "":
				return false
			case aa != "" && ba == "":
				return true
			case aa != ba:
				return aa < ba
			}
			return byIP(a, b) < 0
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// ipValue returns the numeric value of an IPv4 address. Unparseable
// addresses sort last.
func ipValue(s string) uint64 {
	ip := net.ParseIP(strings.TrimSpace(s)).To4()
	if ip == nil {
		return math.MaxUint64
	}
	return uint64(binary.BigEndian.Uint32(ip))
}
