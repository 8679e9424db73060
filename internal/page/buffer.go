// Package page lays sorted device records out as a bounded grid of
// coloured text cells and scrolls a fixed-height window over it.
package page

import (
	"kasafinder/internal/device"
)

// Placeholder is shown for a visible attribute whose value is unknown.
const Placeholder = "-"

// Color is an opaque colour tag. Renderers map it to whatever their
// surface understands.
type Color string

// Cell is one rendered attribute of one device.
type Cell struct {
	Text  string       `json:"text"`
	Color Color        `json:"color"`
	Field device.Field `json:"field"`
}

// Visibility selects which attributes become columns.
type Visibility struct {
	Alias  bool
	IP     bool
	MAC    bool
	Model  bool
	State  bool
	Vendor bool
}

// Fields returns the visible attributes in display order.
func (v Visibility) Fields() []device.Field {
	var out []device.Field
	for _, f := range device.Fields {
		if v.shows(f) {
			out = append(out, f)
		}
	}
	return out
}

func (v Visibility) shows(f device.Field) bool {
	switch f {
	case device.FieldAlias:
		return v.Alias
	case device.FieldIP:
		return v.IP
	case device.FieldMAC:
		return v.MAC
	case device.FieldModel:
		return v.Model
	case device.FieldState:
		return v.State
	case device.FieldVendor:
		return v.Vendor
	default:
		return false
	}
}

// Capacity bounds a Buffer. MaxColumns is the character width of a row,
// cells included and separated by one space. Zero means unbounded.
type Capacity struct {
	MaxRows    int
	MaxColumns int
}

// ColorFunc chooses the colour of a cell from the origin of its value.
type ColorFunc func(device.Origin) Color

// Buffer is an immutable grid with one row per device.
type Buffer struct {
	rows    [][]Cell
	dropped int
}

// Build renders records into a Buffer. Records beyond MaxRows are not
// represented and are counted in Dropped.
func Build(records []device.Record, vis Visibility, colorFor ColorFunc, capacity Capacity) *Buffer {
	fields := vis.Fields()
	n := len(records)
	if capacity.MaxRows > 0 && n > capacity.MaxRows {
		n = capacity.MaxRows
	}

	b := &Buffer{
		rows:    make([][]Cell, 0, n),
		dropped: len(records) - n,
	}
	for _, rec := range records[:n] {
		b.rows = append(b.rows, buildRow(rec, fields, colorFor, capacity.MaxColumns))
	}
	return b
}

func buildRow(rec device.Record, fields []device.Field, colorFor ColorFunc, width int) []Cell {
	row := make([]Cell, 0, len(fields))
	remaining := width
	for i, f := range fields {
		text := rec.Value(f)
		origin := rec.FieldOrigin(f)
		if text == "" {
			text = Placeholder
			origin = rec.DiscoveredBy
		}
		if width > 0 {
			if i > 0 {
				if remaining <= 1 {
					break
				}
				remaining--
			}
			text = truncate(text, remaining)
			remaining -= len([]rune(text))
		}
		var c Color
		if colorFor != nil {
			c = colorFor(origin)
		}
		row = append(row, Cell{Text: text, Color: c, Field: f})
		if width > 0 && remaining <= 0 {
			break
		}
	}
	return row
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 0 {
		return ""
	}
	return string(r[:n])
}

// Rows returns the number of rows.
func (b *Buffer) Rows() int {
	if b == nil {
		return 0
	}
	return len(b.rows)
}

// Dropped returns how many records did not fit.
func (b *Buffer) Dropped() int {
	if b == nil {
		return 0
	}
	return b.dropped
}

// Row returns a copy of row i.
func (b *Buffer) Row(i int) []Cell {
	if b == nil || i < 0 || i >= len(b.rows) {
		return nil
	}
	out := make([]Cell, len(b.rows[i]))
	copy(out, b.rows[i])
	return out
}
