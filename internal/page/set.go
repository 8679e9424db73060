package page

import (
	"fmt"
	"strings"

	"kasafinder/internal/device"
)

// Kind names one of the three result pages.
type Kind int

const (
	KindBroadcast Kind = iota
	KindDirect
	KindCombined
)

// Kinds lists the pages in presentation order.
var Kinds = []Kind{KindBroadcast, KindDirect, KindCombined}

func (k Kind) String() string {
	switch k {
	case KindBroadcast:
		return "broadcast"
	case KindDirect:
		return "direct"
	case KindCombined:
		return "combined"
	default:
		return "unknown"
	}
}

// Label is the page title shown above the grid.
func (k Kind) Label() string {
	switch k {
	case KindBroadcast:
		return "Broadcast scan"
	case KindDirect:
		return "Direct scan"
	case KindCombined:
		return "All devices"
	default:
		return ""
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind accepts a page name or its first letter.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "broadcast", "b":
		return KindBroadcast, nil
	case "direct", "d":
		return KindDirect, nil
	case "combined", "all", "c":
		return KindCombined, nil
	default:
		return 0, fmt.Errorf("unknown page %q", s)
	}
}

// Palette holds the colour of each page and the two-colour flag.
type Palette struct {
	Broadcast Color
	Direct    Color
	Combined  Color
	// TwoColor keeps the broadcast colour on the direct page for values
	// the broadcast phase supplied.
	TwoColor bool
}

// ColorFor returns the cell colouring of page k.
func (p Palette) ColorFor(k Kind) ColorFunc {
	switch k {
	case KindBroadcast:
		return func(device.Origin) Color { return p.Broadcast }
	case KindDirect:
		if !p.TwoColor {
			return func(device.Origin) Color { return p.Direct }
		}
		return func(o device.Origin) Color {
			if o == device.OriginBroadcast {
				return p.Broadcast
			}
			return p.Direct
		}
	default:
		return func(device.Origin) Color { return p.Combined }
	}
}

// Set holds the three pages and one viewport that shows the selected
// page. Each page remembers its own scroll offset.
//
// A Set is not safe for concurrent use.
type Set struct {
	vis      Visibility
	palette  Palette
	capacity Capacity

	buffers  map[Kind]*Buffer
	offsets  map[Kind]int
	selected Kind
	viewport *Viewport
}

// NewSet returns an empty Set whose viewport shows visibleRows rows.
func NewSet(vis Visibility, palette Palette, capacity Capacity, visibleRows int) *Set {
	return &Set{
		vis:      vis,
		palette:  palette,
		capacity: capacity,
		buffers:  make(map[Kind]*Buffer),
		offsets:  make(map[Kind]int),
		selected: KindCombined,
		viewport: NewViewport(visibleRows),
	}
}

// Reset drops every page.
func (s *Set) Reset() {
	s.buffers = make(map[Kind]*Buffer)
	s.offsets = make(map[Kind]int)
	s.viewport.Bind(nil)
}

// Build replaces page k with a rendering of records.
func (s *Set) Build(k Kind, records []device.Record) *Buffer {
	buf := Build(records, s.vis, s.palette.ColorFor(k), s.capacity)
	s.buffers[k] = buf
	s.offsets[k] = 0
	if s.selected == k {
		s.viewport.Bind(buf)
	}
	return buf
}

// Page returns page k if it has been built.
func (s *Set) Page(k Kind) (*Buffer, bool) {
	buf, ok := s.buffers[k]
	return buf, ok
}

// Select shows page k, restoring its last offset. It reports false and
// keeps the current page when k has not been built.
func (s *Set) Select(k Kind) bool {
	buf, ok := s.buffers[k]
	if !ok {
		return false
	}
	if s.viewport.Buffer() != nil {
		s.offsets[s.selected] = s.viewport.Offset()
	}
	s.selected = k
	s.viewport.Bind(buf)
	s.viewport.ScrollTo(s.offsets[k])
	return true
}

// Selected returns the page on show.
func (s *Set) Selected() Kind {
	return s.selected
}

// Viewport returns the viewport over the selected page.
func (s *Set) Viewport() *Viewport {
	return s.viewport
}
