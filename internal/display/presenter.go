package display

import (
	"context"
	"sync"
	"time"

	"kasafinder/internal/logging"
	"kasafinder/internal/page"
	"kasafinder/internal/scan"
)

// Presenter owns the result pages and the viewport. It builds pages from
// phase reports and routes pointer input to scrolling. Input never reaches
// the scan.
type Presenter struct {
	mu       sync.Mutex
	renderer Renderer
	pages    *page.Set
	drag     *DragTracker
	delay    time.Duration
	log      *logging.Logger
	session  string
	phase    scan.Phase
	devices  int
}

// PresenterOption configures a Presenter.
type PresenterOption func(*Presenter)

// WithPresenterLogger sets the logger.
func WithPresenterLogger(l *logging.Logger) PresenterOption {
	return func(p *Presenter) {
		if l != nil {
			p.log = l
		}
	}
}

// WithScreenDelay sets the pause after the Broadcast and Direct pages.
func WithScreenDelay(d time.Duration) PresenterOption {
	return func(p *Presenter) { p.delay = d }
}

// NewPresenter returns a presenter drawing to r.
func NewPresenter(r Renderer, vis page.Visibility, palette page.Palette, capacity page.Capacity, opts ...PresenterOption) *Presenter {
	g := r.Geometry()
	p := &Presenter{
		renderer: r,
		pages:    page.NewSet(vis, palette, capacity, g.VisibleRows()),
		drag:     NewDragTracker(g.RowHeight),
		log:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func kindOf(phase scan.Phase) (page.Kind, bool) {
	switch phase {
	case scan.PhaseBroadcast:
		return page.KindBroadcast, true
	case scan.PhaseDirect:
		return page.KindDirect, true
	case scan.PhaseReconciling:
		return page.KindCombined, true
	default:
		return 0, false
	}
}

// HandlePhase builds and shows the page for a finished phase. After the
// Broadcast and Direct pages it waits the screen delay or until ctx ends.
// It matches the signature expected by scan.WithPhaseHandler.
func (p *Presenter) HandlePhase(ctx context.Context, report scan.PhaseReport) {
	kind, ok := kindOf(report.Phase)
	if !ok {
		return
	}

	p.mu.Lock()
	if report.Progress.SessionID != p.session {
		p.pages.Reset()
		p.session = report.Progress.SessionID
	}
	buf := p.pages.Build(kind, report.Records)
	p.pages.Select(kind)
	p.phase = report.Phase
	p.devices = len(report.Records)
	frame := p.frameLocked()
	p.mu.Unlock()

	if buf.Dropped() > 0 {
		p.log.Warn("page capacity exceeded", "page", kind.String(), "shown", buf.Rows(), "dropped", buf.Dropped())
	}
	if err := p.renderer.Render(frame); err != nil {
		p.log.Warn("render failed", "error", err)
	}

	if kind != page.KindCombined && p.delay > 0 {
		t := time.NewTimer(p.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
		}
	}
}

// Select shows page k. It reports false when k has not been built.
func (p *Presenter) Select(k page.Kind) bool {
	p.mu.Lock()
	ok := p.pages.Select(k)
	frame := p.frameLocked()
	p.mu.Unlock()
	if ok {
		p.render(frame)
	}
	return ok
}

// ScrollBy moves the viewport by delta rows and returns the new offset.
func (p *Presenter) ScrollBy(delta int) int {
	p.mu.Lock()
	before := p.pages.Viewport().Offset()
	offset := p.pages.Viewport().ScrollBy(delta)
	frame := p.frameLocked()
	p.mu.Unlock()
	if offset != before {
		p.render(frame)
	}
	return offset
}

// ScrollTo moves the viewport to offset and returns the clamped offset.
func (p *Presenter) ScrollTo(offset int) int {
	p.mu.Lock()
	offset = p.pages.Viewport().ScrollTo(offset)
	frame := p.frameLocked()
	p.mu.Unlock()
	p.render(frame)
	return offset
}

// PointerDown starts a drag at pixel row y.
func (p *Presenter) PointerDown(y int) {
	p.mu.Lock()
	p.drag.Down(y)
	p.mu.Unlock()
}

// PointerMove scrolls by the rows dragged since the last event.
func (p *Presenter) PointerMove(y int) int {
	p.mu.Lock()
	delta := p.drag.Move(y)
	p.mu.Unlock()
	if delta == 0 {
		return p.Offset()
	}
	return p.ScrollBy(delta)
}

// PointerUp ends a drag at y.
func (p *Presenter) PointerUp(y int) int {
	p.mu.Lock()
	delta := p.drag.Up(y)
	p.mu.Unlock()
	if delta == 0 {
		return p.Offset()
	}
	return p.ScrollBy(delta)
}

// Offset returns the viewport offset.
func (p *Presenter) Offset() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pages.Viewport().Offset()
}

// Frame returns the current screen contents.
func (p *Presenter) Frame() Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frameLocked()
}

// Redraw renders the current frame again.
func (p *Presenter) Redraw() {
	p.render(p.Frame())
}

func (p *Presenter) render(f Frame) {
	if err := p.renderer.Render(f); err != nil {
		p.log.Warn("render failed", "error", err)
	}
}

func (p *Presenter) frameLocked() Frame {
	vp := p.pages.Viewport()
	kind := p.pages.Selected()
	return Frame{
		Kind:  kind,
		Label: kind.Label(),
		Cells: vp.VisibleCells(),
		Status: Status{
			Phase:   p.phase.String(),
			Devices: p.devices,
			Dropped: vp.Buffer().Dropped(),
			Offset:  vp.Offset(),
			Visible: vp.VisibleRows(),
			Total:   vp.TotalRows(),

			Dragging: p.drag.Active(),
		},
	}
}
