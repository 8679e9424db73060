// Package transport carries discovery probes over UDP.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

const (
	defaultPollSlice = 50 * time.Millisecond
	maxDatagramSize  = 4096
)

// Datagram is one received payload and the address it came from.
type Datagram struct {
	Payload  []byte
	Source   net.IP
	Received time.Time
}

// UDP sends probes from a single unconnected IPv4 socket and polls it for
// replies.
type UDP struct {
	conn      *net.UDPConn
	port      int
	pollSlice time.Duration
}

// ListenUDP opens an ephemeral IPv4 socket that sends probes to port on
// the target hosts. The Go runtime enables SO_BROADCAST on datagram
// sockets, so the same socket serves broadcast and unicast probes.
func ListenUDP(port int) (*UDP, error) {
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port %d", port)
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero})
	if err != nil {
		return nil, fmt.Errorf("listen udp: %w", err)
	}
	return &UDP{conn: conn, port: port, pollSlice: defaultPollSlice}, nil
}

// LocalAddr returns the socket's local address.
func (u *UDP) LocalAddr() net.Addr {
	return u.conn.LocalAddr()
}

// SendBroadcast sends payload to the subnet broadcast address ip.
func (u *UDP) SendBroadcast(ctx context.Context, ip string, payload []byte) error {
	return u.send(ctx, ip, payload)
}

// SendUnicast sends payload to a single host.
func (u *UDP) SendUnicast(ctx context.Context, ip string, payload []byte) error {
	return u.send(ctx, ip, payload)
}

func (u *UDP) send(ctx context.Context, ip string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(ip, strconv.Itoa(u.port)))
	if err != nil {
		return fmt.Errorf("resolve %s: %w", ip, err)
	}
	if _, err := u.conn.WriteToUDP(payload, dst); err != nil {
		return fmt.Errorf("send to %s: %w", dst, err)
	}
	return nil
}

// PollReceive returns the datagrams that arrive within one short poll
// slice, never waiting past deadline. An empty result with a nil error
// means nothing was pending; callers loop until their own deadline.
func (u *UDP) PollReceive(ctx context.Context, deadline time.Time) ([]Datagram, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	until := time.Now().Add(u.pollSlice)
	if deadline.Before(until) {
		until = deadline
	}
	if err := u.conn.SetReadDeadline(until); err != nil {
		return nil, err
	}

	var out []Datagram
	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return out, nil
			}
			return out, err
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])
		out = append(out, Datagram{Payload: payload, Source: addr.IP, Received: time.Now()})
	}
}

// Close releases the socket.
func (u *UDP) Close() error {
	return u.conn.Close()
}
