package scan

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"kasafinder/internal/device"
	"kasafinder/internal/kasa"
	"kasafinder/internal/logging"
	"kasafinder/internal/transport"
)

// ProbeTransport sends discovery datagrams and polls for replies.
type ProbeTransport interface {
	SendBroadcast(ctx context.Context, ip string, payload []byte) error
	SendUnicast(ctx context.Context, ip string, payload []byte) error
	// PollReceive returns whatever arrived before a short poll slice or
	// deadline elapsed, possibly nothing.
	PollReceive(ctx context.Context, deadline time.Time) ([]transport.Datagram, error)
}

// Clock supplies the time used for phase deadlines.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces the wall clock used for deadlines.
func WithClock(c Clock) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithPinger replaces the ICMP pinger used by the reachability precheck.
func WithPinger(p Pinger) Option {
	return func(o *Orchestrator) { o.pinger = p }
}

// WithMACResolver fills missing MAC addresses from the neighbour table.
func WithMACResolver(r MACResolver) Option {
	return func(o *Orchestrator) { o.resolver = r }
}

// WithPhaseHandler registers fn to receive a report as each phase ends.
func WithPhaseHandler(fn func(context.Context, PhaseReport)) Option {
	return func(o *Orchestrator) { o.phaseHandler = fn }
}

// WithUpdateHandler registers fn to receive every merged device.
func WithUpdateHandler(fn func(Update)) Option {
	return func(o *Orchestrator) { o.updateHandler = fn }
}

// Orchestrator drives a discovery run through its phases and owns the
// registry while the run is active.
type Orchestrator struct {
	transport ProbeTransport
	clock     Clock
	log       *logging.Logger
	pinger    Pinger
	resolver  MACResolver

	phaseHandler  func(context.Context, PhaseReport)
	updateHandler func(Update)

	mu       sync.Mutex
	running  bool
	config   Config
	session  *Session
	registry *device.Registry
	updated  time.Time
}

// NewOrchestrator returns an Orchestrator that probes through t.
func NewOrchestrator(t ProbeTransport, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		transport: t,
		clock:     systemClock{},
		log:       logging.Discard(),
		pinger:    ICMPPinger{},
		registry:  device.NewRegistry(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run performs one discovery run: Idle, Broadcast, Direct, Reconciling,
// Done. A configuration error is returned before any datagram is sent.
// Network failures never abort the run; they leave hosts unresolved. A
// receive error does not shorten a collection window unless the socket
// was closed.
//
// If ctx is cancelled the remaining probes are skipped, the records found
// so far are reconciled and returned together with ctx.Err().
func (o *Orchestrator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		o.log.Error("invalid scan configuration", "error", err)
		return nil, err
	}

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrScanInProgress
	}
	o.running = true
	o.config = cfg
	o.session = newSession()
	o.session.enter(PhaseIdle, o.clock.Now())
	o.session.addPending(hostRange(cfg.HostStart, cfg.HostEnd))
	o.registry.Reset()
	o.updated = o.clock.Now()
	sessionID := o.session.ID
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	log := o.log.With("session", sessionID)
	log.Info("discovery started",
		"subnet", cfg.SubnetPrefix,
		"hosts", cfg.HostEnd-cfg.HostStart+1,
		"broadcast_timeout", cfg.BroadcastTimeout,
		"direct_timeout", cfg.DirectTimeout,
	)

	query := kasa.DiscoveryQuery()
	result := &Result{}

	if cfg.BroadcastTimeout > 0 {
		o.enter(PhaseBroadcast)
		o.broadcastPhase(ctx, cfg, query, log)
		result.Broadcast = o.report(ctx, PhaseBroadcast)
	}

	o.enter(PhaseDirect)
	o.directPhase(ctx, cfg, query, log)
	result.Direct = o.report(ctx, PhaseDirect)

	o.enter(PhaseReconciling)
	result.Combined = o.report(ctx, PhaseReconciling)

	o.enter(PhaseDone)
	o.mu.Lock()
	result.Session = o.session.clone()
	progress := o.progressLocked()
	o.mu.Unlock()

	log.Info("discovery finished",
		"devices", progress.Devices,
		"absent", progress.Absent,
		"parse_failures", progress.ParseFailures,
	)
	return result, ctx.Err()
}

func (o *Orchestrator) broadcastPhase(ctx context.Context, cfg Config, query []byte, log *logging.Logger) {
	deadline := o.clock.Now().Add(cfg.BroadcastTimeout)
	if err := o.transport.SendBroadcast(ctx, cfg.BroadcastIP(), query); err != nil {
		log.Warn("broadcast probe failed", "address", cfg.BroadcastIP(), "error", err)
		return
	}

	for o.clock.Now().Before(deadline) {
		if ctx.Err() != nil {
			return
		}
		datagrams, err := o.transport.PollReceive(ctx, deadline)
		for _, d := range datagrams {
			n, ok := cfg.hostOctet(d.Source)
			if !ok {
				log.Debug("ignoring reply outside host range", "source", d.Source.String())
				continue
			}
			o.accept(ctx, n, d, device.OriginBroadcast, log)
		}
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				log.Warn("broadcast receive stopped", "error", err)
				return
			}
			log.Debug("broadcast receive failed", "error", err)
		}
	}
}

func (o *Orchestrator) directPhase(ctx context.Context, cfg Config, query []byte, log *logging.Logger) {
	o.mu.Lock()
	hosts := o.session.PendingHosts()
	o.mu.Unlock()

	for _, n := range hosts {
		if ctx.Err() != nil {
			return
		}
		ip := cfg.HostIP(n)
		if cfg.PingPrecheck && o.pinger != nil && !o.pinger.Reachable(ctx, ip, cfg.DirectTimeout) {
			log.Debug("host did not answer ping", "ip", ip)
			o.markAbsent(n)
			continue
		}
		if !o.probeHost(ctx, cfg, n, query, log) {
			o.markAbsent(n)
		}
	}
}

// probeHost sends one unicast probe to host n and waits for its reply.
// Replies from other hosts are ignored.
func (o *Orchestrator) probeHost(ctx context.Context, cfg Config, n int, query []byte, log *logging.Logger) bool {
	ip := cfg.HostIP(n)
	deadline := o.clock.Now().Add(cfg.DirectTimeout)
	if err := o.transport.SendUnicast(ctx, ip, query); err != nil {
		log.Debug("unicast probe failed", "ip", ip, "error", err)
		return false
	}

	for o.clock.Now().Before(deadline) {
		if ctx.Err() != nil {
			return false
		}
		datagrams, err := o.transport.PollReceive(ctx, deadline)
		for _, d := range datagrams {
			if m, ok := cfg.hostOctet(d.Source); !ok || m != n {
				continue
			}
			if o.accept(ctx, n, d, device.OriginDirect, log) {
				return true
			}
		}
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				log.Warn("unicast receive stopped", "ip", ip, "error", err)
				return false
			}
			log.Debug("unicast receive failed", "ip", ip, "error", err)
		}
	}
	return false
}

// accept parses d and merges it into the registry. It reports whether d
// held a valid device descriptor.
func (o *Orchestrator) accept(ctx context.Context, n int, d transport.Datagram, origin device.Origin, log *logging.Logger) bool {
	rec, err := kasa.Parse(d.Payload, d.Source)
	if err != nil {
		o.mu.Lock()
		o.session.ParseFailures++
		o.mu.Unlock()
		log.Debug("discarding reply", "source", d.Source.String(), "error", err)
		return false
	}
	rec.DiscoveredBy = origin
	o.enrich(ctx, &rec)

	o.mu.Lock()
	merged, created := o.registry.Merge(rec)
	if o.session.IsPending(n) {
		o.session.resolve(n)
		if origin == device.OriginBroadcast {
			o.session.BroadcastHits++
		} else {
			o.session.DirectHits++
		}
	}
	o.updated = o.clock.Now()
	progress := o.progressLocked()
	handler := o.updateHandler
	o.mu.Unlock()

	log.Info("device found",
		"origin", origin.String(),
		"ip", merged.IP,
		"mac", merged.MAC,
		"alias", merged.Alias,
		"model", merged.Model,
		"state", merged.State.String(),
		"vendor", merged.Vendor,
	)
	if handler != nil {
		handler(Update{Record: merged, Created: created, Progress: progress})
	}
	return true
}

// enrich fills a missing MAC, first from the record already holding the
// address and then from the neighbour table, and derives the vendor from
// the MAC.
func (o *Orchestrator) enrich(ctx context.Context, rec *device.Record) {
	if rec.MAC == "" {
		o.mu.Lock()
		known, ok := o.registry.FindByIP(rec.IP)
		o.mu.Unlock()
		if ok && known.MAC != "" {
			rec.MAC = known.MAC
		} else if o.resolver != nil {
			rec.MAC = device.NormalizeMAC(o.resolver.LookupMAC(ctx, rec.IP))
		}
	}
	rec.Vendor = lookupManufacturer(rec.MAC)
}

func (o *Orchestrator) markAbsent(n int) {
	o.mu.Lock()
	o.session.resolve(n)
	o.session.Absent++
	o.mu.Unlock()
}

func (o *Orchestrator) enter(p Phase) {
	o.mu.Lock()
	o.session.enter(p, o.clock.Now())
	o.updated = o.clock.Now()
	o.mu.Unlock()
}

// report sorts the registry, hands the result to the phase handler and
// returns it.
func (o *Orchestrator) report(ctx context.Context, p Phase) []device.Record {
	o.mu.Lock()
	records := device.Sort(o.registry.All(), o.config.SortKey)
	progress := o.progressLocked()
	handler := o.phaseHandler
	o.mu.Unlock()

	if handler != nil {
		handler(ctx, PhaseReport{Phase: p, Records: records, Progress: progress})
	}
	return records
}

// Snapshot returns the current state of the run, or of the last run when
// none is active.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Running reports whether a run is in progress.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	return Snapshot{
		Config:   o.config,
		Progress: o.progressLocked(),
		Records:  device.Sort(o.registry.All(), o.config.SortKey),
		Updated:  o.updated,
	}
}

func (o *Orchestrator) progressLocked() Progress {
	if o.session == nil {
		return Progress{Phase: PhaseIdle, Devices: o.registry.Len()}
	}
	return Progress{
		SessionID:     o.session.ID,
		Phase:         o.session.Phase,
		Pending:       len(o.session.pending),
		Devices:       o.registry.Len(),
		Absent:        o.session.Absent,
		ParseFailures: o.session.ParseFailures,
	}
}
