package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"kasafinder/internal/config"
	"kasafinder/internal/display"
	"kasafinder/internal/logging"
	"kasafinder/internal/page"
	"kasafinder/internal/scan"
	"kasafinder/internal/transport"
)

type emitFunc func(event string, data ...interface{})

// windowRenderer draws frames by pushing them to the web view.
type windowRenderer struct {
	geometry display.Geometry
	emit     func() emitFunc
}

func (r windowRenderer) Geometry() display.Geometry { return r.geometry }

func (r windowRenderer) Render(f display.Frame) error {
	if emit := r.emit(); emit != nil {
		emit("page:frame", f)
	}
	return nil
}

// App struct
type App struct {
	ctx      context.Context
	settings *config.Settings
	log      *logging.Logger

	mu        sync.Mutex
	emit      emitFunc
	closer    func() error
	orch      *scan.Orchestrator
	presenter *display.Presenter
	running   bool
	cancel    context.CancelFunc
}

// NewApp creates a new App application struct
func NewApp() *App {
	settings, err := config.Load(os.Getenv("KASAFINDER_CONFIG"))
	log := logging.Default()
	if err != nil {
		log.Error("falling back to default settings", "error", err)
		settings = config.Default()
	} else {
		log = logging.New(settings.Logging, version)
	}
	return newApp(settings, log)
}

func newApp(settings *config.Settings, log *logging.Logger) *App {
	a := &App{settings: settings, log: log}
	renderer := windowRenderer{geometry: settings.Geometry(), emit: a.emitter}
	a.presenter = display.NewPresenter(renderer,
		settings.Visibility(), settings.Palette(), settings.Capacity(),
		display.WithScreenDelay(settings.ScreenDelay()),
		display.WithPresenterLogger(log.With("component", "display")),
	)
	return a
}

// startup is called when the app starts. The context is saved
// so we can call the runtime methods
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.mu.Lock()
	a.emit = func(event string, data ...interface{}) {
		runtime.EventsEmit(ctx, event, data...)
	}
	a.mu.Unlock()

	udp, err := transport.ListenUDP(a.settings.Scan.Port)
	if err != nil {
		a.log.Error("opening discovery socket failed", "error", err)
		return
	}
	a.attach(udp, udp.Close)
}

func (a *App) shutdown(context.Context) {
	a.CancelDiscovery()
	a.mu.Lock()
	closer := a.closer
	a.mu.Unlock()
	if closer != nil {
		_ = closer()
	}
}

func (a *App) emitter() emitFunc {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.emit
}

// attach wires the probe transport into a new orchestrator.
func (a *App) attach(probe scan.ProbeTransport, closer func() error) {
	opts := []scan.Option{
		scan.WithLogger(a.log.With("component", "scan")),
		scan.WithPhaseHandler(a.presenter.HandlePhase),
		scan.WithUpdateHandler(a.handleUpdate),
	}
	if a.settings.Scan.ResolveMAC {
		opts = append(opts, scan.WithMACResolver(scan.ARPResolver{}))
	}
	a.mu.Lock()
	a.closer = closer
	a.orch = scan.NewOrchestrator(probe, opts...)
	a.mu.Unlock()
}

func (a *App) handleUpdate(update scan.Update) {
	if emit := a.emitter(); emit != nil {
		emit("scan:update", update)
	}
}

func (a *App) scanConfig() (scan.Config, error) {
	s := *a.settings
	if s.Scan.Subnet == "" {
		subnet, err := transport.LocalSubnet()
		if err != nil {
			return scan.Config{}, fmt.Errorf("detecting local subnet: %w", err)
		}
		s.Scan.Subnet = subnet
	}
	return s.ScanConfig()
}

// StartDiscovery begins a discovery run in the background. Pages are
// pushed as "page:frame" events and the result as "scan:done".
func (a *App) StartDiscovery() (scan.Snapshot, error) {
	cfg, err := a.scanConfig()
	if err != nil {
		return scan.Snapshot{}, err
	}

	a.mu.Lock()
	orch := a.orch
	if orch == nil {
		a.mu.Unlock()
		return scan.Snapshot{}, fmt.Errorf("discovery socket unavailable")
	}
	if a.running {
		a.mu.Unlock()
		return orch.Snapshot(), scan.ErrScanInProgress
	}
	parent := a.ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	a.running = true
	a.cancel = cancel
	a.mu.Unlock()

	started := make(chan struct{})
	go func() {
		defer func() {
			a.mu.Lock()
			a.running = false
			a.cancel = nil
			a.mu.Unlock()
			cancel()
		}()
		close(started)
		result, err := orch.Run(ctx, cfg)
		emit := a.emitter()
		if emit == nil {
			return
		}
		if err != nil && result == nil {
			emit("scan:error", err.Error())
			return
		}
		emit("scan:done", result)
	}()
	<-started
	return orch.Snapshot(), nil
}

// CancelDiscovery stops the active run.
func (a *App) CancelDiscovery() {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// SelectPage shows the broadcast, direct or combined page.
func (a *App) SelectPage(name string) (display.Frame, error) {
	kind, err := page.ParseKind(name)
	if err != nil {
		return display.Frame{}, err
	}
	if !a.presenter.Select(kind) {
		return a.presenter.Frame(), fmt.Errorf("page %s has no results yet", kind)
	}
	return a.presenter.Frame(), nil
}

// ScrollBy scrolls the visible page by delta rows.
func (a *App) ScrollBy(delta int) display.Frame {
	a.presenter.ScrollBy(delta)
	return a.presenter.Frame()
}

// PointerDown starts a touch drag at pixel row y.
func (a *App) PointerDown(y int) {
	a.presenter.PointerDown(y)
}

// PointerMove continues a touch drag.
func (a *App) PointerMove(y int) display.Frame {
	a.presenter.PointerMove(y)
	return a.presenter.Frame()
}

// PointerUp ends a touch drag.
func (a *App) PointerUp(y int) display.Frame {
	a.presenter.PointerUp(y)
	return a.presenter.Frame()
}

// GetFrame returns the current screen.
func (a *App) GetFrame() display.Frame {
	return a.presenter.Frame()
}

// GetSnapshot returns the latest discovery snapshot.
func (a *App) GetSnapshot() scan.Snapshot {
	a.mu.Lock()
	orch := a.orch
	a.mu.Unlock()
	if orch == nil {
		return scan.Snapshot{}
	}
	return orch.Snapshot()
}

// GetGeometry returns the display size the page layout assumes.
func (a *App) GetGeometry() display.Geometry {
	return a.settings.Geometry()
}
