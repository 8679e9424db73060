package scan

import (
	"errors"
	"fmt"
	"time"

	"kasafinder/internal/device"
)

// Config describes the parameters of a discovery run. It is resolved once
// before the run and never changes during it.
type Config struct {
	// BroadcastTimeout is the length of the single broadcast collection
	// window. Zero skips the broadcast phase.
	BroadcastTimeout time.Duration `json:"broadcastTimeout"`
	// DirectTimeout bounds the wait for each unicast reply.
	DirectTimeout time.Duration `json:"directTimeout"`
	// SubnetPrefix holds the first three octets, e.g. "192.168.2".
	SubnetPrefix string         `json:"subnetPrefix"`
	HostStart    int            `json:"hostStart"`
	HostEnd      int            `json:"hostEnd"`
	SortKey      device.SortKey `json:"sortKey"`
	// PingPrecheck skips the unicast probe for hosts that do not answer
	// an ICMP echo within DirectTimeout.
	PingPrecheck bool `json:"pingPrecheck"`
}

// ConfigurationError reports an unusable Config. It is raised before any
// network activity.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if _, err := parsePrefix(c.SubnetPrefix); err != nil {
		return &ConfigurationError{Field: "subnetPrefix", Reason: err.Error()}
	}
	if c.HostStart < 1 || c.HostStart > 254 {
		return &ConfigurationError{Field: "hostStart", Reason: fmt.Sprintf("must be within 1-254, got %d", c.HostStart)}
	}
	if c.HostEnd < 1 || c.HostEnd > 254 {
		return &ConfigurationError{Field: "hostEnd", Reason: fmt.Sprintf("must be within 1-254, got %d", c.HostEnd)}
	}
	if c.HostStart > c.HostEnd {
		return &ConfigurationError{Field: "hostStart", Reason: fmt.Sprintf("%d is greater than hostEnd %d", c.HostStart, c.HostEnd)}
	}
	if c.BroadcastTimeout < 0 {
		return &ConfigurationError{Field: "broadcastTimeout", Reason: "cannot be negative"}
	}
	if c.DirectTimeout <= 0 {
		return &ConfigurationError{Field: "directTimeout", Reason: "must be greater than 0"}
	}
	return nil
}

// Phase is a state of the discovery state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseBroadcast
	PhaseDirect
	PhaseReconciling
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseBroadcast:
		return "broadcast"
	case PhaseDirect:
		return "direct"
	case PhaseReconciling:
		return "reconciling"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Progress contains a summary of the current run.
type Progress struct {
	SessionID     string `json:"sessionId"`
	Phase         Phase  `json:"phase"`
	Pending       int    `json:"pending"`
	Devices       int    `json:"devices"`
	Absent        int    `json:"absent"`
	ParseFailures int    `json:"parseFailures"`
}

// Update represents a device merged into the registry.
type Update struct {
	Record   device.Record `json:"record"`
	Created  bool          `json:"created"`
	Progress Progress      `json:"progress"`
}

// PhaseReport is emitted when a phase completes. Records holds every
// device known at that point, sorted with the configured key.
type PhaseReport struct {
	Phase    Phase           `json:"phase"`
	Records  []device.Record `json:"records"`
	Progress Progress        `json:"progress"`
}

// Result is the outcome of a completed run.
type Result struct {
	Session   Session         `json:"session"`
	Broadcast []device.Record `json:"broadcast,omitempty"`
	Direct    []device.Record `json:"direct"`
	Combined  []device.Record `json:"combined"`
}

// Snapshot is a point-in-time view of a run, safe to read while it is in
// progress.
type Snapshot struct {
	Config   Config          `json:"config"`
	Progress Progress        `json:"progress"`
	Records  []device.Record `json:"records"`
	Updated  time.Time       `json:"updated"`
}

var (
	// ErrScanInProgress indicates a run is already active.
	ErrScanInProgress = errors.New("scan already in progress")
)
