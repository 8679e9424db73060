// Package display presents result pages on a fixed-size surface and maps
// pointer input to scrolling.
package display

import (
	"kasafinder/internal/page"
)

// Geometry describes the drawing surface in pixels. Reserved rows hold
// the title and status line.
type Geometry struct {
	Width     int `json:"width"`
	Height    int `json:"height"`
	RowHeight int `json:"rowHeight"`
	Reserved  int `json:"reserved"`
}

// VisibleRows returns how many grid rows fit, at least one.
func (g Geometry) VisibleRows() int {
	if g.RowHeight <= 0 {
		return 1
	}
	n := g.Height/g.RowHeight - g.Reserved
	if n < 1 {
		return 1
	}
	return n
}

// Status summarises the page on show.
type Status struct {
	Phase   string `json:"phase"`
	Devices int    `json:"devices"`
	Dropped int    `json:"dropped"`
	Offset  int    `json:"offset"`
	Visible int    `json:"visible"`
	Total   int    `json:"total"`

	// Dragging is set while a pointer drag is in progress.
	Dragging bool `json:"dragging"`
}

// Frame is everything a renderer needs to draw one screen.
type Frame struct {
	Kind   page.Kind     `json:"kind"`
	Label  string        `json:"label"`
	Cells  [][]page.Cell `json:"cells"`
	Status Status        `json:"status"`
}

// Renderer draws frames. Implementations never see the registry.
type Renderer interface {
	Geometry() Geometry
	Render(Frame) error
}
