package scan

import (
	"context"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strings"

	"github.com/endobit/oui"

	"kasafinder/internal/device"
)

var (
	macLinePattern    = regexp.MustCompile(`(?i)([0-9a-f]{1,2}[:-]){5}([0-9a-f]{1,2})`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// MACResolver finds the hardware address of a host that answered without
// reporting one.
type MACResolver interface {
	LookupMAC(ctx context.Context, ip string) string
}

// ARPResolver reads the operating system's neighbour table.
type ARPResolver struct {
	// ProcPath overrides /proc/net/arp; tests point it at a fixture.
	ProcPath string
	// DisableCommand skips the arp(8) fallback.
	DisableCommand bool
}

// LookupMAC returns the MAC for ip or "" when the table has no entry.
func (r ARPResolver) LookupMAC(ctx context.Context, ip string) string {
	path := r.ProcPath
	if path == "" {
		path = "/proc/net/arp"
	}
	if mac := lookupMACFromProc(path, ip); mac != "" {
		return mac
	}
	if r.DisableCommand {
		return ""
	}
	return lookupMACViaARPCommand(ctx, ip)
}

func lookupMACFromProc(path, host string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	lines := strings.Split(string(data), "\n")
	for _, line := range lines[1:] {
		fields := whitespacePattern.Split(strings.TrimSpace(line), -1)
		if len(fields) < 4 {
			continue
		}
		if fields[0] == host {
			if mac := device.NormalizeMAC(fields[3]); mac != "" {
				return mac
			}
		}
	}
	return ""
}

func lookupMACViaARPCommand(ctx context.Context, host string) string {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "arp", "-a", host)
	} else {
		cmd = exec.CommandContext(ctx, "arp", "-n", host)
	}
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return device.NormalizeMAC(macLinePattern.FindString(string(output)))
}

// lookupManufacturer returns the OUI vendor for mac, or "" when unknown.
func lookupManufacturer(mac string) string {
	if mac == "" {
		return ""
	}
	return oui.Vendor(strings.ToLower(mac))
}
