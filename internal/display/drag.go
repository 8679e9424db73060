package display

// DragTracker turns vertical pointer movement into whole-row scroll
// deltas. Moving the pointer up yields positive deltas. Movement smaller
// than a row is carried into the next event.
type DragTracker struct {
	rowHeight int
	active    bool
	lastY     int
	remainder int
}

// NewDragTracker returns a tracker for rows rowHeight pixels tall.
func NewDragTracker(rowHeight int) *DragTracker {
	if rowHeight < 1 {
		rowHeight = 1
	}
	return &DragTracker{rowHeight: rowHeight}
}

// Down starts a drag at y.
func (d *DragTracker) Down(y int) {
	d.active = true
	d.lastY = y
	d.remainder = 0
}

// Move reports the row delta for a pointer now at y.
func (d *DragTracker) Move(y int) int {
	if !d.active {
		return 0
	}
	acc := d.remainder + (d.lastY - y)
	d.lastY = y
	rows := acc / d.rowHeight
	d.remainder = acc % d.rowHeight
	return rows
}

// Up ends the drag at y and reports the last delta.
func (d *DragTracker) Up(y int) int {
	rows := d.Move(y)
	d.active = false
	d.remainder = 0
	return rows
}

// Active reports whether a drag is in progress.
func (d *DragTracker) Active() bool {
	return d.active
}
