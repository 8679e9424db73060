package device

import (
	"regexp"
	"strings"
)

var (
	macPattern     = regexp.MustCompile(`(?i)([0-9a-f]{1,2}[:-]){5}([0-9a-f]{1,2})`)
	bareMACPattern = regexp.MustCompile(`(?i)^[0-9a-f]{12}$`)
)

// NormalizeMAC converts a MAC address in any common notation to upper-case
// colon form (AA:BB:CC:DD:EE:FF). It returns "" when raw holds no MAC.
func NormalizeMAC(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if bareMACPattern.MatchString(raw) {
		raw = strings.ToUpper(raw)
		parts := make([]string, 0, 6)
		for i := 0; i < 12; i += 2 {
			parts = append(parts, raw[i:i+2])
		}
		return nonZero(strings.Join(parts, ":"))
	}

	raw = strings.ToUpper(strings.ReplaceAll(strings.ReplaceAll(raw, "-", ":"), ".", ":"))
	match := macPattern.FindString(raw)
	if match == "" {
		return ""
	}
	parts := strings.Split(match, ":")
	if len(parts) != 6 {
		return ""
	}
	for i := range parts {
		if len(parts[i]) == 1 {
			parts[i] = "0" + parts[i]
		}
	}
	return nonZero(strings.Join(parts, ":"))
}

func nonZero(mac string) string {
	if mac == "00:00:00:00:00:00" {
		return ""
	}
	return mac
}
