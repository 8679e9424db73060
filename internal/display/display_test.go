package display

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasafinder/internal/device"
	"kasafinder/internal/page"
	"kasafinder/internal/scan"
)

type recordingRenderer struct {
	mu       sync.Mutex
	geometry Geometry
	frames   []Frame
}

func (r *recordingRenderer) Geometry() Geometry { return r.geometry }

func (r *recordingRenderer) Render(f Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
	return nil
}

func (r *recordingRenderer) last() Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames[len(r.frames)-1]
}

func deviceRecords(n int, origin device.Origin) []device.Record {
	out := make([]device.Record, 0, n)
	for i := 1; i <= n; i++ {
		ip := fmt.Sprintf("192.168.2.%d", i)
		out = append(out, device.Record{Identity: ip, IP: ip, Alias: fmt.Sprintf("plug%02d", i), DiscoveredBy: origin})
	}
	return out
}

// tftGeometry fits 4 grid rows: 6 rows of 20px minus title and status.
var tftGeometry = Geometry{Width: 240, Height: 120, RowHeight: 20, Reserved: 2}

func newTestPresenter(r Renderer) *Presenter {
	return NewPresenter(r,
		page.Visibility{Alias: true, IP: true},
		page.Palette{Broadcast: "blue", Direct: "cyan", Combined: "green"},
		page.Capacity{MaxRows: 200, MaxColumns: 40},
	)
}

func TestGeometryVisibleRows(t *testing.T) {
	assert.Equal(t, 4, tftGeometry.VisibleRows())
	assert.Equal(t, 18, Geometry{Width: 240, Height: 320, RowHeight: 16, Reserved: 2}.VisibleRows())
	assert.Equal(t, 1, Geometry{Height: 10, RowHeight: 20, Reserved: 2}.VisibleRows())
	assert.Equal(t, 1, Geometry{}.VisibleRows())
}

func TestDragTrackerCarriesRemainder(t *testing.T) {
	d := NewDragTracker(20)
	assert.Equal(t, 0, d.Move(100), "inactive tracker ignores moves")

	d.Down(200)
	assert.Equal(t, 0, d.Move(190))
	assert.Equal(t, 1, d.Move(175))
	assert.Equal(t, 2, d.Move(130))
	assert.Equal(t, -1, d.Up(165))
	assert.False(t, d.Active())
}

func TestPresenterShowsPagesInOrder(t *testing.T) {
	r := &recordingRenderer{geometry: tftGeometry}
	p := newTestPresenter(r)
	ctx := context.Background()

	p.HandlePhase(ctx, scan.PhaseReport{Phase: scan.PhaseBroadcast, Records: deviceRecords(2, device.OriginBroadcast), Progress: scan.Progress{SessionID: "a"}})
	assert.Equal(t, page.KindBroadcast, r.last().Kind)
	assert.Equal(t, page.Color("blue"), r.last().Cells[0][0].Color)

	p.HandlePhase(ctx, scan.PhaseReport{Phase: scan.PhaseDirect, Records: deviceRecords(3, device.OriginDirect), Progress: scan.Progress{SessionID: "a"}})
	p.HandlePhase(ctx, scan.PhaseReport{Phase: scan.PhaseReconciling, Records: deviceRecords(3, device.OriginDirect), Progress: scan.Progress{SessionID: "a"}})

	require.Len(t, r.frames, 3)
	last := r.last()
	assert.Equal(t, page.KindCombined, last.Kind)
	assert.Equal(t, "All devices", last.Label)
	assert.Equal(t, 3, last.Status.Total)
	assert.Equal(t, page.Color("green"), last.Cells[0][0].Color)

	require.True(t, p.Select(page.KindBroadcast))
	assert.Equal(t, 2, r.last().Status.Total)
}

func TestPresenterResetsPagesForNewSession(t *testing.T) {
	r := &recordingRenderer{geometry: tftGeometry}
	p := newTestPresenter(r)
	ctx := context.Background()

	p.HandlePhase(ctx, scan.PhaseReport{Phase: scan.PhaseBroadcast, Records: deviceRecords(2, device.OriginBroadcast), Progress: scan.Progress{SessionID: "a"}})
	p.HandlePhase(ctx, scan.PhaseReport{Phase: scan.PhaseDirect, Records: deviceRecords(2, device.OriginDirect), Progress: scan.Progress{SessionID: "b"}})

	assert.False(t, p.Select(page.KindBroadcast))
}

func TestPresenterWaitsScreenDelayUnlessCancelled(t *testing.T) {
	r := &recordingRenderer{geometry: tftGeometry}
	p := NewPresenter(r, page.Visibility{IP: true}, page.Palette{}, page.Capacity{}, WithScreenDelay(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		p.HandlePhase(ctx, scan.PhaseReport{Phase: scan.PhaseBroadcast})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("HandlePhase did not return after cancellation")
	}
}

func TestPresenterDragScrolls(t *testing.T) {
	r := &recordingRenderer{geometry: tftGeometry}
	p := newTestPresenter(r)
	p.HandlePhase(context.Background(), scan.PhaseReport{Phase: scan.PhaseReconciling, Records: deviceRecords(10, device.OriginDirect)})

	p.PointerDown(100)
	assert.True(t, p.Frame().Status.Dragging)
	assert.Equal(t, 2, p.PointerMove(60))
	assert.Equal(t, 6, p.PointerUp(-200))
	assert.Equal(t, "plug07", r.last().Cells[0][0].Text)
	assert.False(t, p.Frame().Status.Dragging)

	assert.Equal(t, 0, p.ScrollBy(-100))
}

func TestConsoleExecute(t *testing.T) {
	r := &recordingRenderer{geometry: tftGeometry}
	p := newTestPresenter(r)
	p.HandlePhase(context.Background(), scan.PhaseReport{Phase: scan.PhaseReconciling, Records: deviceRecords(10, device.OriginDirect)})

	var out bytes.Buffer
	c := &Console{presenter: p, out: &out}

	assert.False(t, c.Execute("scroll 3"))
	assert.Equal(t, 3, p.Offset())
	assert.False(t, c.Execute("bottom"))
	assert.Equal(t, 6, p.Offset())
	assert.False(t, c.Execute("top"))
	assert.Equal(t, 0, p.Offset())
	assert.False(t, c.Execute("drag 100 60"))
	assert.Equal(t, 2, p.Offset())

	assert.False(t, c.Execute("page broadcast"))
	assert.Contains(t, out.String(), "no results yet")
	assert.False(t, c.Execute("scroll x"))
	assert.Contains(t, out.String(), "Invalid row count")
	assert.False(t, c.Execute("frobnicate"))
	assert.Contains(t, out.String(), "Unknown command")
	assert.False(t, c.Execute("   "))
	assert.True(t, c.Execute("quit"))
}

func TestTerminalRenderPlainOutput(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(&out, Geometry{Height: 6, RowHeight: 1, Reserved: 2})

	err := term.Render(Frame{
		Label: "All devices",
		Cells: [][]page.Cell{{{Text: "Hall", Color: "blue"}, {Text: "192.168.2.10", Color: "blue"}}},
		Status: Status{
			Phase: "reconciling", Devices: 7, Dropped: 2, Offset: 0, Visible: 4, Total: 5,
		},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "All devices", lines[0])
	assert.Equal(t, "Hall 192.168.2.10", lines[1])
	assert.Equal(t, "reconciling | 7 devices | rows 1-4 of 5 | 2 not shown", lines[2])
	assert.False(t, IsTerminal(&out))
}

func TestTerminalSetOutputRedirectsFrames(t *testing.T) {
	var first, console bytes.Buffer
	term := NewTerminal(&first, Geometry{Height: 6, RowHeight: 1, Reserved: 2})
	p := NewPresenter(term, page.Visibility{Alias: true}, page.Palette{}, page.Capacity{})
	p.HandlePhase(context.Background(), scan.PhaseReport{Phase: scan.PhaseReconciling, Records: deviceRecords(6, device.OriginDirect)})
	require.Contains(t, first.String(), "plug01")
	written := first.Len()

	c := &Console{presenter: p, out: &console}
	term.SetOutput(c.Stdout())
	assert.False(t, c.Execute("scroll 2"))

	assert.Equal(t, written, first.Len())
	assert.Contains(t, console.String(), "plug06")
	assert.Contains(t, console.String(), "rows 3-6 of 6")
}

func TestStatusLineEmptyPage(t *testing.T) {
	assert.Equal(t, "idle | 0 devices | rows 0-0 of 0", StatusLine(Status{Phase: "idle", Visible: 4}))
}
