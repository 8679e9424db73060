// Package device holds the reconciled view of discovered smart plugs: the
// record type, the registry that merges partial records by identity and
// the sorter that orders the final inventory.
package device

import "fmt"

// State is the relay state reported by a device.
type State int

const (
	StateUnknown State = iota
	StateOff
	StateOn
)

func (s State) String() string {
	switch s {
	case StateOff:
		return "OFF"
	case StateOn:
		return "ON"
	default:
		return "?"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Origin records which scan phase produced a record or a field.
type Origin int

const (
	OriginUnknown Origin = iota
	OriginBroadcast
	OriginDirect
	OriginBoth
)

func (o Origin) String() string {
	switch o {
	case OriginBroadcast:
		return "broadcast"
	case OriginDirect:
		return "direct"
	case OriginBoth:
		return "both"
	default:
		return "unknown"
	}
}

// MarshalText encodes the origin by name.
func (o Origin) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Combine returns the origin of a record seen by both o and other.
func (o Origin) Combine(other Origin) Origin {
	switch {
	case o == other, other == OriginUnknown:
		return o
	case o == OriginUnknown:
		return other
	default:
		return OriginBoth
	}
}

// Field names a displayable attribute of a record.
type Field int

const (
	FieldAlias Field = iota
	FieldIP
	FieldMAC
	FieldModel
	FieldState
	FieldVendor
)

// Fields lists every field in display order.
var Fields = []Field{FieldAlias, FieldIP, FieldMAC, FieldModel, FieldState, FieldVendor}

func (f Field) String() string {
	switch f {
	case FieldAlias:
		return "alias"
	case FieldIP:
		return "ip"
	case FieldMAC:
		return "mac"
	case FieldModel:
		return "model"
	case FieldState:
		return "state"
	case FieldVendor:
		return "vendor"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// MarshalText lets Field serve as a JSON map key.
func (f Field) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Record is one physical device's known attributes. Empty strings and
// StateUnknown mean "not known".
type Record struct {
	Identity     string           `json:"identity"`
	IP           string           `json:"ip"`
	MAC          string           `json:"mac,omitempty"`
	Alias        string           `json:"alias,omitempty"`
	Model        string           `json:"model,omitempty"`
	Vendor       string           `json:"vendor,omitempty"`
	State        State            `json:"state"`
	DiscoveredBy Origin           `json:"discoveredBy"`
	Updated      uint64           `json:"updated"`
	Origins      map[Field]Origin `json:"origins,omitempty"`
}

// Key returns the identity key: the assigned identity if any, else the MAC,
// else the IP address.
func (r Record) Key() string {
	switch {
	case r.Identity != "":
		return r.Identity
	case r.MAC != "":
		return r.MAC
	default:
		return r.IP
	}
}

// Value returns the display text of f, or "" when unknown.
func (r Record) Value(f Field) string {
	switch f {
	case FieldAlias:
		return r.Alias
	case FieldIP:
		return r.IP
	case FieldMAC:
		return r.MAC
	case FieldModel:
		return r.Model
	case FieldState:
		if r.State == StateUnknown {
			return ""
		}
		return r.State.String()
	case FieldVendor:
		return r.Vendor
	default:
		return ""
	}
}

// FieldOrigin returns the phase that last filled f, falling back to the
// record's own origin.
func (r Record) FieldOrigin(f Field) Origin {
	if o, ok := r.Origins[f]; ok {
		return o
	}
	return r.DiscoveredBy
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := r
	if r.Origins != nil {
		out.Origins = make(map[Field]Origin, len(r.Origins))
		for k, v := range r.Origins {
			out.Origins[k] = v
		}
	}
	return out
}
