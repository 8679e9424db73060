package page

// Viewport is a window of VisibleRows rows over a Buffer.
//
// The offset always satisfies 0 <= offset <= max(0, rows-visible);
// scrolling past either end clamps.
type Viewport struct {
	buf     *Buffer
	offset  int
	visible int
}

// NewViewport returns an unbound viewport showing visibleRows rows.
func NewViewport(visibleRows int) *Viewport {
	v := &Viewport{}
	v.Resize(visibleRows)
	return v
}

// Bind attaches buf and moves to the top.
func (v *Viewport) Bind(buf *Buffer) {
	v.buf = buf
	v.offset = 0
}

// Buffer returns the bound buffer, possibly nil.
func (v *Viewport) Buffer() *Buffer {
	return v.buf
}

// Resize changes the number of visible rows, keeping the offset in range.
func (v *Viewport) Resize(visibleRows int) {
	if visibleRows < 1 {
		visibleRows = 1
	}
	v.visible = visibleRows
	v.clamp()
}

// ScrollBy moves the window by delta rows and returns the new offset.
func (v *Viewport) ScrollBy(delta int) int {
	v.offset += delta
	v.clamp()
	return v.offset
}

// ScrollTo moves the window so offset is the first visible row.
func (v *Viewport) ScrollTo(offset int) int {
	v.offset = offset
	v.clamp()
	return v.offset
}

func (v *Viewport) clamp() {
	if v.offset > v.MaxOffset() {
		v.offset = v.MaxOffset()
	}
	if v.offset < 0 {
		v.offset = 0
	}
}

// Offset returns the first visible row.
func (v *Viewport) Offset() int { return v.offset }

// VisibleRows returns the window height.
func (v *Viewport) VisibleRows() int { return v.visible }

// TotalRows returns the row count of the bound buffer.
func (v *Viewport) TotalRows() int { return v.buf.Rows() }

// MaxOffset returns the largest valid offset.
func (v *Viewport) MaxOffset() int {
	if m := v.TotalRows() - v.visible; m > 0 {
		return m
	}
	return 0
}

// VisibleCells returns a copy of the rows inside the window.
func (v *Viewport) VisibleCells() [][]Cell {
	end := v.offset + v.visible
	if end > v.TotalRows() {
		end = v.TotalRows()
	}
	out := make([][]Cell, 0, end-v.offset)
	for i := v.offset; i < end; i++ {
		out = append(out, v.buf.Row(i))
	}
	return out
}
