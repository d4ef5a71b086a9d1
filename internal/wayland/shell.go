package wayland

import (
	"errors"
	"fmt"

	"github.com/rajveermalviya/go-wayland/wayland/client"
	xdg_activation "github.com/rajveermalviya/go-wayland/wayland/staging/xdg-activation-v1"
	xdg_shell "github.com/rajveermalviya/go-wayland/wayland/stable/xdg-shell"

	"github.com/bnema/wayplat/internal/config"
	"github.com/bnema/wayplat/internal/geom"
	"github.com/bnema/wayplat/internal/input"
	"github.com/bnema/wayplat/internal/logger"
	"github.com/bnema/wayplat/internal/window"
	"github.com/bnema/wayplat/internal/wlproto"
)

var (
	errForeignSurface = errors.New("surface was not created by this client")
	errNoActivation   = errors.New("compositor does not support xdg_activation_v1")
)

// wl_surface events.
const (
	surfaceEnter = 0
	surfaceLeave = 1
)

// surface adapts a wl_surface to window.Surface.
type surface struct {
	c      *Client
	s      *client.Surface
	handle func(window.Event)
	frame  *client.Callback
}

func (s *surface) ID() wlproto.SurfaceID {
	return wlproto.SurfaceID(s.s.ID())
}

func (s *surface) RequestFrame() error {
	cb, err := s.s.Frame()
	if err != nil {
		return fmt.Errorf("failed to request frame: %w", err)
	}
	s.frame = cb
	cb.SetDoneHandler(func(e client.CallbackDoneEvent) {
		if s.frame == cb {
			s.frame = nil
		}
		cb.Destroy()
		s.handle(window.FrameDone{Time: e.CallbackData})
	})
	return nil
}

func (s *surface) SetBufferScale(scale int32) error {
	return s.s.SetBufferScale(scale)
}

func (s *surface) SetOpaqueRegion(r geom.Rect) error {
	if r.Empty() {
		return s.s.SetOpaqueRegion(nil)
	}
	region, err := s.c.compositor.CreateRegion()
	if err != nil {
		return fmt.Errorf("failed to create region: %w", err)
	}
	defer region.Destroy()
	if err := region.Add(r.Min.X, r.Min.Y, r.Size.Width, r.Size.Height); err != nil {
		return err
	}
	return s.s.SetOpaqueRegion(region)
}

func (s *surface) DamageBuffer(r geom.Rect) error {
	return s.s.DamageBuffer(r.Min.X, r.Min.Y, r.Size.Width, r.Size.Height)
}

func (s *surface) Commit() error {
	return s.s.Commit()
}

func (s *surface) Destroy() error {
	delete(s.c.surfaces, s.ID())
	s.c.unroute(s.s.ID())
	if s.frame != nil {
		s.frame.Destroy()
		s.frame = nil
	}
	return s.s.Destroy()
}

// toplevel adapts an xdg_surface with its xdg_toplevel to window.Role.
type toplevel struct {
	c  *Client
	s  *surface
	xs *xdg_shell.Surface
	tl *xdg_shell.Toplevel
}

func (t *toplevel) AckConfigure(serial uint32) error {
	return t.xs.AckConfigure(serial)
}

func (t *toplevel) SetTitle(title string) error {
	return t.tl.SetTitle(title)
}

func (t *toplevel) SetAppID(appID string) error {
	return t.tl.SetAppId(appID)
}

// Activate requests an activation token for the surface, stamped with the
// last user action when there is one, and spends it on the surface.
func (t *toplevel) Activate() error {
	c := t.c
	if c.activation == nil {
		return errNoActivation
	}
	tok, err := c.activation.GetActivationToken()
	if err != nil {
		return fmt.Errorf("failed to get activation token: %w", err)
	}
	if serial := c.serials.Get(input.SerialUserAction); serial != 0 && c.seat != nil {
		if err := tok.SetSerial(serial, c.seat); err != nil {
			return err
		}
	}
	if err := tok.SetSurface(t.s.s); err != nil {
		return err
	}
	id := t.s.ID()
	tok.SetDoneHandler(func(e xdg_activation.ActivationTokenDoneEvent) {
		tok.Destroy()
		s, ok := c.surfaces[id]
		if !ok {
			return
		}
		if err := c.activation.Activate(e.Token, s.s); err != nil {
			logger.Warnf("Failed to activate surface %d: %v", id, err)
		}
	})
	return tok.Commit()
}

func (t *toplevel) Destroy() error {
	err := t.tl.Destroy()
	if xerr := t.xs.Destroy(); err == nil {
		err = xerr
	}
	return err
}

// CreateSurface implements window.Shell.
func (c *Client) CreateSurface(handle func(window.Event)) (window.Surface, error) {
	ws, err := c.compositor.CreateSurface()
	if err != nil {
		return nil, fmt.Errorf("failed to create surface: %w", err)
	}
	s := &surface{c: c, s: ws, handle: handle}
	c.route(ws.ID(), &eventFilter{next: ws, ops: map[uint32]func(*wireReader){
		surfaceEnter: func(r *wireReader) {
			if id, ok := c.knownOutput(r, "wl_surface.enter"); ok {
				handle(window.Enter{Output: id})
			}
		},
		surfaceLeave: func(r *wireReader) {
			if id, ok := c.knownOutput(r, "wl_surface.leave"); ok {
				handle(window.Leave{Output: id})
			}
		},
	}})
	c.surfaces[s.ID()] = s
	return s, nil
}

// CreateToplevel implements window.Shell.
func (c *Client) CreateToplevel(ws window.Surface, handle func(window.Event)) (window.Role, error) {
	s, ok := ws.(*surface)
	if !ok {
		return nil, errForeignSurface
	}
	xs, err := c.wmBase.GetXdgSurface(s.s)
	if err != nil {
		return nil, fmt.Errorf("failed to create xdg surface: %w", err)
	}
	tl, err := xs.GetToplevel()
	if err != nil {
		xs.Destroy()
		return nil, fmt.Errorf("failed to create toplevel: %w", err)
	}
	xs.SetConfigureHandler(func(e xdg_shell.SurfaceConfigureEvent) {
		handle(window.Configure{Serial: e.Serial})
	})
	tl.SetConfigureHandler(func(e xdg_shell.ToplevelConfigureEvent) {
		handle(window.ToplevelConfigure{Width: e.Width, Height: e.Height})
	})
	tl.SetCloseHandler(func(xdg_shell.ToplevelCloseEvent) {
		handle(window.ToplevelClose{})
	})
	return &toplevel{c: c, s: s, xs: xs, tl: tl}, nil
}

// knownOutput decodes an output argument. Outputs released meanwhile are
// reported as unknown.
func (c *Client) knownOutput(r *wireReader, event string) (wlproto.OutputID, bool) {
	id := wlproto.OutputID(r.object())
	if !r.ok(event) {
		return 0, false
	}
	_, ok := c.outputs[id]
	if !ok {
		logger.Debugf("%s for unknown output %d", event, id)
	}
	return id, ok
}

// NewWindow creates a toplevel window on this connection with the window
// defaults currently loaded. render may be nil.
func (c *Client) NewWindow(render window.RenderFactory, cb window.Callbacks) (*window.Window, error) {
	w, err := window.New(window.Options{
		Shell:     c,
		Screens:   c.screens,
		Render:    render,
		Config:    config.Get().Window,
		Callbacks: cb,
	})
	if err != nil {
		return nil, err
	}
	logger.Debugf("Window %d created", w.SurfaceID())
	return w, nil
}
