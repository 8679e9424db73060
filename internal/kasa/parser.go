package kasa

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"kasafinder/internal/device"
)

var (
	// ErrMalformed matches parse errors for payloads that are not a
	// get_sysinfo reply.
	ErrMalformed = errors.New("malformed descriptor")
	// ErrIncompleteFields matches parse errors for replies that lack the
	// identity information needed to place the device.
	ErrIncompleteFields = errors.New("incomplete descriptor")
)

// ErrorKind classifies a ParseError.
type ErrorKind int

const (
	Malformed ErrorKind = iota + 1
	IncompleteFields
)

func (k ErrorKind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case IncompleteFields:
		return "incomplete fields"
	default:
		return "unknown"
	}
}

// ParseError reports why a payload could not become a device record.
type ParseError struct {
	Kind ErrorKind
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return "parse descriptor: " + e.Kind.String()
	}
	return fmt.Sprintf("parse descriptor: %s: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrMalformed and ErrIncompleteFields.
func (e *ParseError) Is(target error) bool {
	switch target {
	case ErrMalformed:
		return e.Kind == Malformed
	case ErrIncompleteFields:
		return e.Kind == IncompleteFields
	}
	return false
}

type sysinfoReply struct {
	System *struct {
		Sysinfo *sysinfo `json:"get_sysinfo"`
	} `json:"system"`
}

type sysinfo struct {
	ErrCode     int    `json:"err_code"`
	Alias       string `json:"alias"`
	Model       string `json:"model"`
	MAC         string `json:"mac"`
	MicMAC      string `json:"mic_mac"`
	EthernetMAC string `json:"ethernet_mac"`
	RelayState  *int   `json:"relay_state"`
	LightState  *struct {
		OnOff *int `json:"on_off"`
	} `json:"light_state"`
}

// Parse decodes a get_sysinfo reply received from source.
//
// It is pure and never panics: any payload that is not an encrypted
// get_sysinfo document yields a ParseError of kind Malformed, and a reply
// whose source is not a usable IPv4 host address yields IncompleteFields.
// The returned record carries no origin; the caller tags it.
func Parse(payload []byte, source net.IP) (device.Record, error) {
	if len(payload) == 0 {
		return device.Record{}, &ParseError{Kind: Malformed, Err: errors.New("empty payload")}
	}

	plain := Decrypt(stripFrame(payload))
	plain = bytes.TrimRight(plain, "\x00")

	var reply sysinfoReply
	if err := json.Unmarshal(plain, &reply); err != nil {
		return device.Record{}, &ParseError{Kind: Malformed, Err: err}
	}
	if reply.System == nil || reply.System.Sysinfo == nil {
		return device.Record{}, &ParseError{Kind: Malformed, Err: errors.New("missing system.get_sysinfo")}
	}
	info := reply.System.Sysinfo
	if info.ErrCode != 0 {
		return device.Record{}, &ParseError{Kind: Malformed, Err: fmt.Errorf("device reported err_code %d", info.ErrCode)}
	}

	ip := source.To4()
	if ip == nil || ip.IsUnspecified() || ip.Equal(net.IPv4bcast) {
		return device.Record{}, &ParseError{Kind: IncompleteFields, Err: fmt.Errorf("no IPv4 source address (%v)", source)}
	}

	rec := device.Record{
		IP:    ip.String(),
		Alias: strings.TrimSpace(info.Alias),
		Model: strings.TrimSpace(info.Model),
		State: stateOf(info),
	}
	for _, candidate := range []string{info.MAC, info.MicMAC, info.EthernetMAC} {
		if mac := device.NormalizeMAC(candidate); mac != "" {
			rec.MAC = mac
			break
		}
	}
	return rec, nil
}

func stateOf(info *sysinfo) device.State {
	var v *int
	switch {
	case info.RelayState != nil:
		v = info.RelayState
	case info.LightState != nil:
		v = info.LightState.OnOff
	}
	if v == nil {
		return device.StateUnknown
	}
	if *v != 0 {
		return device.StateOn
	}
	return device.StateOff
}
