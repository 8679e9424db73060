package device

import "strings"

// Registry reconciles partial records into exactly one Record per device.
//
// A Registry has a single writer (the scan orchestrator) and is read only
// once a run is quiescent, so it does no locking of its own.
type Registry struct {
	records map[string]*Record
	order   []string
	byMAC   map[string]string
	byIP    map[string]string
	seq     uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Reset()
	return r
}

// Reset drops every record.
func (r *Registry) Reset() {
	r.records = make(map[string]*Record)
	r.order = nil
	r.byMAC = make(map[string]string)
	r.byIP = make(map[string]string)
	r.seq = 0
}

// Len returns the number of distinct devices.
func (r *Registry) Len() int {
	return len(r.records)
}

// Merge folds rec into the registry and returns the stored result.
//
// The identity key prefers the MAC and falls back to the IP. Fields present
// in rec overwrite stored values; absent fields never erase what an earlier
// phase learned. DiscoveredBy becomes OriginBoth when the tags differ.
// Merging the same record twice changes nothing but Updated. Records with
// neither identity, MAC nor IP are ignored.
func (r *Registry) Merge(rec Record) (merged Record, created bool) {
	rec.MAC = NormalizeMAC(rec.MAC)
	rec.IP = strings.TrimSpace(rec.IP)
	if rec.Key() == "" {
		return Record{}, false
	}
	r.seq++

	id, ok := r.lookup(rec)
	if !ok {
		stored := &Record{
			Identity:     rec.Key(),
			DiscoveredBy: rec.DiscoveredBy,
			Origins:      make(map[Field]Origin),
		}
		r.apply(stored, rec)
		stored.Updated = r.seq
		r.records[stored.Identity] = stored
		r.order = append(r.order, stored.Identity)
		r.index(stored)
		return stored.Clone(), true
	}

	stored := r.records[id]
	if stored.IP != "" && rec.IP != "" && stored.IP != rec.IP && r.byIP[stored.IP] == id {
		delete(r.byIP, stored.IP)
	}
	r.apply(stored, rec)
	stored.DiscoveredBy = stored.DiscoveredBy.Combine(rec.DiscoveredBy)
	stored.Updated = r.seq
	r.index(stored)
	return stored.Clone(), false
}

func (r *Registry) lookup(rec Record) (string, bool) {
	if rec.Identity != "" {
		if _, ok := r.records[rec.Identity]; ok {
			return rec.Identity, true
		}
	}
	if rec.MAC != "" {
		if id, ok := r.byMAC[rec.MAC]; ok {
			return id, true
		}
		// A device first seen without a MAC keeps its IP identity once the
		// MAC becomes known.
		if id, ok := r.byIP[rec.IP]; ok && r.records[id].MAC == "" {
			return id, true
		}
		return "", false
	}
	if rec.IP != "" {
		if id, ok := r.byIP[rec.IP]; ok {
			return id, true
		}
	}
	return "", false
}

func (r *Registry) index(stored *Record) {
	if stored.MAC != "" {
		r.byMAC[stored.MAC] = stored.Identity
	}
	if stored.IP != "" {
		r.byIP[stored.IP] = stored.Identity
	}
}

// apply copies the present fields of in onto stored, noting which phase
// filled each field that changed.
func (r *Registry) apply(stored *Record, in Record) {
	set := func(f Field, dst *string, v string) {
		v = strings.TrimSpace(v)
		if v == "" || *dst == v {
			return
		}
		*dst = v
		stored.Origins[f] = in.DiscoveredBy
	}
	set(FieldIP, &stored.IP, in.IP)
	set(FieldMAC, &stored.MAC, in.MAC)
	set(FieldAlias, &stored.Alias, in.Alias)
	set(FieldModel, &stored.Model, in.Model)
	set(FieldVendor, &stored.Vendor, in.Vendor)
	if in.State != StateUnknown && stored.State != in.State {
		stored.State = in.State
		stored.Origins[FieldState] = in.DiscoveredBy
	}
}

// Get returns a copy of the record stored under identity.
func (r *Registry) Get(identity string) (Record, bool) {
	rec, ok := r.records[identity]
	if !ok {
		return Record{}, false
	}
	return rec.Clone(), true
}

// FindByIP returns a copy of the record currently holding ip.
func (r *Registry) FindByIP(ip string) (Record, bool) {
	id, ok := r.byIP[ip]
	if !ok {
		return Record{}, false
	}
	return r.Get(id)
}

// All returns copies of every record. The order is not significant;
// callers sort with Sort.
func (r *Registry) All() []Record {
	out := make([]Record, 0, len(r.order))
	for _, id := range r.order {
		if rec, ok := r.records[id]; ok {
			out = append(out, rec.Clone())
		}
	}
	return out
}
