package window

import (
	"github.com/bnema/wayplat/internal/geom"
	"github.com/bnema/wayplat/internal/wlproto"
)

// Surface is the wl_surface requests a window issues.
type Surface interface {
	ID() wlproto.SurfaceID
	// RequestFrame asks for one frame callback. Its completion arrives as a
	// FrameDone event through the handler the surface was created with.
	RequestFrame() error
	SetBufferScale(scale int32) error
	// SetOpaqueRegion replaces the opaque region; an empty rect clears it.
	SetOpaqueRegion(r geom.Rect) error
	DamageBuffer(r geom.Rect) error
	Commit() error
	Destroy() error
}

// Role is the shell role giving a surface window semantics.
type Role interface {
	AckConfigure(serial uint32) error
	SetTitle(title string) error
	SetAppID(appID string) error
	// Activate asks the compositor to focus the window. The compositor may
	// refuse without telling.
	Activate() error
	Destroy() error
}

// Shell creates surfaces and their toplevel roles. Events for both are
// delivered to handle on the dispatch goroutine.
type Shell interface {
	CreateSurface(handle func(Event)) (Surface, error)
	CreateToplevel(s Surface, handle func(Event)) (Role, error)
}

// RenderSurface is the paintable target built on top of a surface, e.g. an
// EGL window. The window only resizes and destroys it.
type RenderSurface interface {
	Resize(size geom.Size) error
	Destroy() error
}

// RenderFactory builds the render surface for a window, or returns nil when
// rendering is handled elsewhere.
type RenderFactory func(s Surface, size geom.Size) (RenderSurface, error)
