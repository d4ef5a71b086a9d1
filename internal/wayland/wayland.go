// Package wayland connects the platform state machines to a compositor
// through go-wayland. It owns the single dispatch goroutine: every handler
// registered here runs on it.
package wayland

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rajveermalviya/go-wayland/wayland/client"
	xdg_activation "github.com/rajveermalviya/go-wayland/wayland/staging/xdg-activation-v1"
	xdg_shell "github.com/rajveermalviya/go-wayland/wayland/stable/xdg-shell"
	"golang.org/x/sync/errgroup"

	"github.com/bnema/wayplat/internal/config"
	"github.com/bnema/wayplat/internal/input"
	"github.com/bnema/wayplat/internal/logger"
	"github.com/bnema/wayplat/internal/registry"
	"github.com/bnema/wayplat/internal/screens"
	"github.com/bnema/wayplat/internal/transfer"
	"github.com/bnema/wayplat/internal/wlproto"
)

// Interface versions the client speaks.
const (
	compositorVersion        = 4
	shmVersion               = 1
	seatVersion              = 5
	dataDeviceManagerVersion = 3
	wmBaseVersion            = 2
	activationVersion        = 1
)

// ErrTimeout is returned when a roundtrip does not complete in time.
var ErrTimeout = errors.New("roundtrip timed out")

type boundOutput struct {
	proxy   *client.Output
	version uint32
}

// Client is a connection to the compositor with the platform components
// built on top of it.
type Client struct {
	cfg      *config.Config
	display  *client.Display
	registry *client.Registry

	tracker *registry.Tracker
	screens *screens.Registry
	serials input.SerialTracker
	mods    input.Modifiers
	cursor  input.CursorKind

	compositor *client.Compositor
	shm        *client.Shm
	wmBase     *xdg_shell.WmBase
	seat       *client.Seat
	keyboard   *client.Keyboard
	pointer    *client.Pointer
	ddm        *client.DataDeviceManager
	dataDevice *client.DataDevice
	transfer   *transfer.Manager
	activation *xdg_activation.Activation

	outputs  map[wlproto.OutputID]boundOutput
	surfaces map[wlproto.SurfaceID]*surface
	handlers map[uint32]client.Dispatcher

	focused wlproto.SurfaceID
	onFocus []func(id wlproto.SurfaceID)
}

// Connect opens the display, performs the startup roundtrip and binds the
// globals the platform needs. Missing required globals are fatal; a missing
// seat or data device manager only disables clipboard and drag-and-drop,
// a missing xdg_activation_v1 only disables Window.Activate.
func Connect(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		cfg = config.Get()
	}
	display, err := client.Connect(socketPath(cfg.Display.Socket))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Wayland display: %w", err)
	}

	c := newClient(cfg, display)
	display.SetErrorHandler(func(e client.DisplayErrorEvent) {
		var id uint32
		if e.ObjectId != nil {
			id = e.ObjectId.ID()
		}
		logger.Errorf("Protocol error on object %d: code %d: %s", id, e.Code, e.Message)
	})

	reg, err := display.GetRegistry()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to get registry: %w", err)
	}
	c.registry = reg

	reg.SetGlobalHandler(func(e client.RegistryGlobalEvent) {
		c.tracker.Handle(registry.GlobalAdded{Global: registry.Global{Name: e.Name, Interface: e.Interface, Version: e.Version}})
	})
	reg.SetGlobalRemoveHandler(func(e client.RegistryGlobalRemoveEvent) {
		c.tracker.Handle(registry.GlobalRemoved{Name: e.Name})
	})

	// Globals, then the first output events of the outputs bound meanwhile.
	for i := 0; i < 2; i++ {
		if err := c.Roundtrip(); err != nil {
			c.Close()
			return nil, err
		}
	}

	if err := c.bindGlobals(); err != nil {
		c.Close()
		return nil, err
	}
	logger.Infof("Connected to Wayland display (%d globals, %d screens)", len(c.tracker.Globals()), c.screens.ScreenCount())
	return c, nil
}

func newClient(cfg *config.Config, display *client.Display) *Client {
	c := &Client{
		cfg:      cfg,
		display:  display,
		outputs:  make(map[wlproto.OutputID]boundOutput),
		surfaces: make(map[wlproto.SurfaceID]*surface),
		handlers: make(map[uint32]client.Dispatcher),
	}
	c.tracker = registry.NewTracker(c)
	c.screens = screens.New(c.tracker)
	return c
}

// socketPath resolves a configured socket name the way libwayland does:
// relative names live in $XDG_RUNTIME_DIR. An empty name is left to
// go-wayland, which reads $WAYLAND_DISPLAY.
func socketPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(os.Getenv("XDG_RUNTIME_DIR"), name)
}

func (c *Client) bindGlobals() error {
	if _, err := c.tracker.Bind(wlproto.CompositorInterface, compositorVersion); err != nil {
		return fmt.Errorf("failed to bind compositor: %w", err)
	}
	if _, err := c.tracker.Bind(wlproto.XdgWmBaseInterface, wmBaseVersion); err != nil {
		return fmt.Errorf("failed to bind xdg_wm_base: %w", err)
	}
	if _, err := c.tracker.Bind(wlproto.ShmInterface, shmVersion); err != nil {
		return fmt.Errorf("failed to bind shm: %w", err)
	}
	c.tracker.BindOptional(wlproto.XdgActivationInterface, activationVersion)

	if _, ok := c.tracker.BindOptional(wlproto.SeatInterface, seatVersion); !ok {
		return nil
	}
	if _, ok := c.tracker.BindOptional(wlproto.DataDeviceManagerInterface, dataDeviceManagerVersion); !ok {
		return nil
	}
	return c.setupDataDevice()
}

// Bind implements registry.Binder.
func (c *Client) Bind(g registry.Global, version uint32) (wlproto.ObjectID, error) {
	var proxy client.Proxy
	switch g.Interface {
	case wlproto.CompositorInterface:
		c.compositor = client.NewCompositor(c.display.Context())
		proxy = c.compositor
	case wlproto.ShmInterface:
		c.shm = client.NewShm(c.display.Context())
		proxy = c.shm
	case wlproto.XdgWmBaseInterface:
		c.wmBase = xdg_shell.NewWmBase(c.display.Context())
		proxy = c.wmBase
	case wlproto.SeatInterface:
		c.seat = client.NewSeat(c.display.Context())
		proxy = c.seat
	case wlproto.DataDeviceManagerInterface:
		c.ddm = client.NewDataDeviceManager(c.display.Context())
		proxy = c.ddm
	case wlproto.XdgActivationInterface:
		c.activation = xdg_activation.NewActivation(c.display.Context())
		proxy = c.activation
	case wlproto.OutputInterface:
		o := client.NewOutput(c.display.Context())
		proxy = o
	default:
		return 0, fmt.Errorf("no binding for %s", g.Interface)
	}

	if err := c.registry.Bind(g.Name, g.Interface, version, proxy); err != nil {
		return 0, fmt.Errorf("failed to bind %s: %w", g.Interface, err)
	}
	id := wlproto.ObjectID(proxy.ID())

	switch p := proxy.(type) {
	case *client.Output:
		c.outputs[wlproto.OutputID(id)] = boundOutput{proxy: p, version: version}
		c.routeOutput(wlproto.OutputID(id), p)
	case *xdg_shell.WmBase:
		p.SetPingHandler(func(e xdg_shell.WmBasePingEvent) {
			if err := p.Pong(e.Serial); err != nil {
				logger.Warnf("Failed to answer ping: %v", err)
			}
		})
	case *client.Seat:
		c.routeSeat(p)
	}
	return id, nil
}

// Release implements registry.Binder.
func (c *Client) Release(id wlproto.ObjectID, iface string) {
	if iface != wlproto.OutputInterface {
		return
	}
	o, ok := c.outputs[wlproto.OutputID(id)]
	if !ok {
		return
	}
	delete(c.outputs, wlproto.OutputID(id))
	// wl_output.release only exists from version 3.
	if o.version < 3 {
		c.display.Context().Unregister(o.proxy)
		return
	}
	if err := o.proxy.Release(); err != nil {
		logger.Debugf("Failed to release output %d: %v", id, err)
	}
}

func (c *Client) routeOutput(id wlproto.OutputID, o *client.Output) {
	o.SetGeometryHandler(func(e client.OutputGeometryEvent) {
		c.screens.HandleOutputEvent(id, screens.Geometry{
			X: e.X, Y: e.Y,
			PhysicalWidth: e.PhysicalWidth, PhysicalHeight: e.PhysicalHeight,
			Make: e.Make, Model: e.Model, Transform: e.Transform,
		})
	})
	o.SetModeHandler(func(e client.OutputModeEvent) {
		c.screens.HandleOutputEvent(id, screens.Mode{Flags: e.Flags, Width: e.Width, Height: e.Height, Refresh: e.Refresh})
	})
	o.SetScaleHandler(func(e client.OutputScaleEvent) {
		c.screens.HandleOutputEvent(id, screens.Scale{Factor: e.Factor})
	})
	o.SetNameHandler(func(e client.OutputNameEvent) {
		c.screens.HandleOutputEvent(id, screens.Name{Name: e.Name})
	})
	o.SetDescriptionHandler(func(e client.OutputDescriptionEvent) {
		c.screens.HandleOutputEvent(id, screens.Description{Description: e.Description})
	})
	o.SetDoneHandler(func(client.OutputDoneEvent) {
		c.screens.HandleOutputEvent(id, screens.Done{})
	})
}

// Roundtrip blocks until the compositor processed every request sent so
// far, dispatching events meanwhile. It must run on the dispatch goroutine.
func (c *Client) Roundtrip() error {
	cb, err := c.display.Sync()
	if err != nil {
		return fmt.Errorf("failed to sync display: %w", err)
	}
	defer cb.Destroy()

	done := false
	cb.SetDoneHandler(func(client.CallbackDoneEvent) { done = true })

	deadline := time.Now().Add(c.cfg.Display.RoundtripTimeout)
	for !done {
		if c.cfg.Display.RoundtripTimeout > 0 && time.Now().After(deadline) {
			return ErrTimeout
		}
		if err := c.dispatch(); err != nil {
			return fmt.Errorf("failed to dispatch: %w", err)
		}
	}
	return nil
}

// Run dispatches events until ctx is cancelled or the connection fails.
func (c *Client) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	stopped := make(chan struct{})

	g.Go(func() error {
		defer close(stopped)
		for {
			if err := c.dispatch(); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("dispatch failed: %w", err)
			}
		}
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
			// Closing the socket unblocks the pending read.
			return c.display.Context().Close()
		case <-stopped:
			return nil
		}
	})
	return g.Wait()
}

// Close tears the connection down. Windows must be destroyed first.
func (c *Client) Close() {
	if c.transfer != nil {
		c.transfer.Close()
		c.transfer = nil
	}
	if c.display == nil {
		return
	}
	if err := c.display.Context().Close(); err != nil {
		logger.Debugf("Closing display connection: %v", err)
	}
	c.display = nil
}

// Tracker returns the global registry tracker.
func (c *Client) Tracker() *registry.Tracker {
	return c.tracker
}

// Screens returns the output registry.
func (c *Client) Screens() *screens.Registry {
	return c.screens
}

// Transfer returns the clipboard and drag API, nil without a seat or data
// device manager.
func (c *Client) Transfer() *transfer.Manager {
	return c.transfer
}

// Serials returns the input serials seen on the seat.
func (c *Client) Serials() *input.SerialTracker {
	return &c.serials
}

// OnKeyboardFocus registers fn for keyboard enter and leave. Leave passes
// a zero id. fn runs on the dispatch goroutine.
func (c *Client) OnKeyboardFocus(fn func(id wlproto.SurfaceID)) {
	c.onFocus = append(c.onFocus, fn)
}

func (c *Client) notifyFocus(id wlproto.SurfaceID) {
	for _, fn := range c.onFocus {
		fn(id)
	}
}

// Modifiers implements input.ModifierSource.
func (c *Client) Modifiers() input.Modifiers {
	return c.mods
}

// SetCursor implements input.CursorSetter. Cursor themes are not loaded,
// so the shape is only recorded.
func (c *Client) SetCursor(kind input.CursorKind) {
	if kind == c.cursor {
		return
	}
	c.cursor = kind
	logger.Debugf("Cursor shape %s", kind)
}

// Cursor returns the last requested cursor shape.
func (c *Client) Cursor() input.CursorKind {
	return c.cursor
}
