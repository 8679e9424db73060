package scan

import (
	"context"
	"runtime"
	"time"

	ping "github.com/go-ping/ping"
)

// Pinger answers whether a host responds to ICMP echo.
type Pinger interface {
	Reachable(ctx context.Context, ip string, timeout time.Duration) bool
}

// ICMPPinger sends a single echo request per check.
type ICMPPinger struct{}

// Reachable reports whether ip answered one echo request within timeout.
// Any setup failure, such as missing ICMP permissions, counts as reachable
// so the unicast probe still runs.
func (ICMPPinger) Reachable(ctx context.Context, ip string, timeout time.Duration) bool {
	pinger, err := ping.NewPinger(ip)
	if err != nil {
		return true
	}
	pinger.SetPrivileged(runtime.GOOS == "windows")
	pinger.Count = 1
	pinger.Timeout = timeout

	errCh := make(chan error, 1)
	go func() {
		errCh <- pinger.Run()
	}()

	select {
	case <-ctx.Done():
		pinger.Stop()
		<-errCh
		return false
	case err := <-errCh:
		if err != nil {
			return true
		}
	}
	return pinger.Statistics().PacketsRecv > 0
}
