// Package window implements the toplevel surface state machine: the
// configure/ack handshake, frame-callback paced repaints, resize coalescing
// and scale tracking across outputs.
package window

import (
	"fmt"
	"math"
	"slices"

	"github.com/bnema/wayplat/internal/config"
	"github.com/bnema/wayplat/internal/geom"
	"github.com/bnema/wayplat/internal/input"
	"github.com/bnema/wayplat/internal/logger"
	"github.com/bnema/wayplat/internal/screens"
	"github.com/bnema/wayplat/internal/wlproto"
)

var log = logger.With("window")

// State is where a window is in its lifecycle.
type State int

const (
	Unconfigured State = iota
	AwaitingConfigure
	Configured
	Resizing
	Destroyed
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case AwaitingConfigure:
		return "awaiting-configure"
	case Configured:
		return "configured"
	case Resizing:
		return "resizing"
	case Destroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ResizeReason tells observers who asked for a size change.
type ResizeReason int

const (
	ResizeUnspecified ResizeReason = iota
	ResizeApplication
	ResizeUser
	ResizeDpiChange
)

func (r ResizeReason) String() string {
	switch r {
	case ResizeApplication:
		return "application"
	case ResizeUser:
		return "user"
	case ResizeDpiChange:
		return "dpi change"
	default:
		return "unspecified"
	}
}

// TransparencyLevel is the compositing hint for the window background.
type TransparencyLevel int

const (
	TransparencyNone TransparencyLevel = iota
	TransparencyTransparent
)

// scaleEpsilon is the tolerance when comparing fractional scales.
const scaleEpsilon = 1e-5

// Callbacks are the toolkit observers. Any of them may be nil.
type Callbacks struct {
	Paint          func(r geom.Rect)
	Resized        func(size geom.Size, reason ResizeReason)
	ScalingChanged func(scale float64)
	// CloseRequested is called for xdg_toplevel.close. The window stays
	// alive until Destroy.
	CloseRequested           func()
	Closed                   func()
	TransparencyLevelChanged func(level TransparencyLevel)
	Input                    input.Sink
	// Activated and Deactivated follow keyboard focus. LostFocus comes
	// right after Deactivated.
	Activated   func()
	Deactivated func()
	LostFocus   func()
}

// Options configure a new window.
type Options struct {
	Shell     Shell
	Screens   *screens.Registry
	Render    RenderFactory
	Config    config.WindowConfig
	Callbacks Callbacks
}

// Window is a toplevel surface. All methods run on the dispatch goroutine.
type Window struct {
	shell   Shell
	screens *screens.Registry
	cfg     config.WindowConfig
	cb      Callbacks

	surface Surface
	role    Role
	render  RenderSurface

	state      State
	clientSize geom.Size

	pendingSize   geom.Size
	pendingReason ResizeReason
	hasPending    bool

	configureSerial uint32
	configured      bool
	frameRequested  bool

	renderScale float64
	output      wlproto.OutputID
	hasOutput   bool
	entered     []wlproto.OutputID // most recent last

	active       bool
	transparency TransparencyLevel
	title        string
	appID        string
	parent       wlproto.SurfaceID
	inputRoot    input.Root
}

// New creates the surface and toplevel role and registers the window with
// the screens registry. The window waits for its first configure.
func New(opts Options) (*Window, error) {
	if opts.Shell == nil {
		return nil, fmt.Errorf("window: shell is required")
	}
	if opts.Screens == nil {
		return nil, fmt.Errorf("window: screens registry is required")
	}

	w := &Window{
		shell:       opts.Shell,
		screens:     opts.Screens,
		cfg:         opts.Config,
		cb:          opts.Callbacks,
		state:       Unconfigured,
		renderScale: 1,
	}

	surface, err := opts.Shell.CreateSurface(w.Handle)
	if err != nil {
		return nil, fmt.Errorf("failed to create surface: %w", err)
	}
	w.surface = surface

	role, err := opts.Shell.CreateToplevel(surface, w.Handle)
	if err != nil {
		_ = surface.Destroy()
		return nil, fmt.Errorf("failed to create toplevel role: %w", err)
	}
	w.role = role

	w.screens.AddWindow(w)
	w.clientSize = w.initialSize()

	if opts.Render != nil {
		render, err := opts.Render(surface, w.clientSize.Scale(w.renderScale))
		if err != nil {
			w.screens.RemoveWindow(surface.ID())
			_ = role.Destroy()
			_ = surface.Destroy()
			return nil, fmt.Errorf("failed to create render surface: %w", err)
		}
		w.render = render
	}

	if w.cfg.Title != "" {
		w.SetTitle(w.cfg.Title)
	}
	if w.cfg.AppID != "" {
		w.SetAppID(w.cfg.AppID)
	}
	w.updateRegion()

	w.state = AwaitingConfigure
	log.Debugf("window %d: created %s", surface.ID(), w.clientSize)
	return w, nil
}

func (w *Window) initialSize() geom.Size {
	fallback := geom.Size{Width: int32(w.cfg.FallbackWidth), Height: int32(w.cfg.FallbackHeight)}
	if fallback.Empty() {
		fallback = geom.Size{Width: 400, Height: 600}
	}

	primary, ok := w.screens.Primary()
	if !ok || primary.WorkingArea.Empty() {
		return fallback
	}
	wr, hr := w.cfg.WidthRatio, w.cfg.HeightRatio
	if wr <= 0 || wr > 1 {
		wr = 0.75
	}
	if hr <= 0 || hr > 1 {
		hr = 0.7
	}
	area := primary.WorkingArea.Size
	size := geom.Size{
		Width:  int32(float64(area.Width) * wr),
		Height: int32(float64(area.Height) * hr),
	}
	if size.Empty() {
		return fallback
	}
	return size
}

// SetCallbacks replaces the toolkit observers.
func (w *Window) SetCallbacks(cb Callbacks) {
	w.cb = cb
}

// SurfaceID identifies the window in the screens registry.
func (w *Window) SurfaceID() wlproto.SurfaceID {
	return w.surface.ID()
}

func (w *Window) State() State {
	return w.state
}

// ClientSize is the committed client size in logical pixels.
func (w *Window) ClientSize() geom.Size {
	return w.clientSize
}

// PendingSize returns a stashed size not yet applied.
func (w *Window) PendingSize() (geom.Size, bool) {
	return w.pendingSize, w.hasPending
}

// FrameRequested reports whether a frame callback is outstanding.
func (w *Window) FrameRequested() bool {
	return w.frameRequested
}

// RenderScaling is the scale of the output the window is on, or the last
// known one when it left every output.
func (w *Window) RenderScaling() float64 {
	return w.renderScale
}

// DesktopScaling is the same as the render scale on Wayland.
func (w *Window) DesktopScaling() float64 {
	return w.renderScale
}

// CurrentOutput is the output the window scale is taken from.
func (w *Window) CurrentOutput() (wlproto.OutputID, bool) {
	return w.output, w.hasOutput
}

// Position is always the origin: Wayland clients never learn where their
// toplevel is placed.
func (w *Window) Position() geom.Point {
	return geom.Point{}
}

// Bounds is the client area in global coordinates.
func (w *Window) Bounds() geom.Rect {
	return geom.Rect{Min: w.Position(), Size: w.clientSize}
}

func (w *Window) PointToClient(p geom.Point) geom.Point {
	return p
}

func (w *Window) PointToScreen(p geom.Point) geom.Point {
	return p
}

// Screen returns the screen the window is on, falling back to the screen its
// bounds overlap most.
func (w *Window) Screen() (screens.Screen, bool) {
	if w.hasOutput {
		if s, ok := w.screens.ScreenFromOutput(w.output); ok {
			return s, true
		}
	}
	return w.screens.ScreenFromWindow(w)
}

func (w *Window) configurePending() bool {
	return w.state == AwaitingConfigure || w.state == Resizing
}

// Show commits the role-only surface, which asks the compositor for the
// first configure. Buffers are attached once it arrived.
func (w *Window) Show() {
	if w.state != AwaitingConfigure {
		return
	}
	if err := w.surface.Commit(); err != nil {
		log.Warnf("window %d: initial commit failed: %v", w.SurfaceID(), err)
	}
}

// Resize changes the client size. While a configure is pending the size is
// stashed and applied on the next configure or frame completion.
func (w *Window) Resize(size geom.Size, reason ResizeReason) {
	if w.state == Destroyed {
		return
	}
	if w.configurePending() {
		w.stash(size, reason)
		return
	}
	w.apply(size, reason)
}

func (w *Window) stash(size geom.Size, reason ResizeReason) {
	w.pendingSize = size
	w.pendingReason = reason
	w.hasPending = true
}

// apply commits size and reports whether it changed anything.
func (w *Window) apply(size geom.Size, reason ResizeReason) bool {
	if size.Empty() || size == w.clientSize {
		return false
	}
	w.clientSize = size
	w.updateRegion()
	if w.render != nil {
		if err := w.render.Resize(size.Scale(w.renderScale)); err != nil {
			log.Warnf("window %d: render surface resize failed: %v", w.SurfaceID(), err)
		}
	}
	if w.cb.Resized != nil {
		w.cb.Resized(size, reason)
	}
	return true
}

func (w *Window) applyPending() {
	if !w.hasPending {
		return
	}
	size, reason := w.pendingSize, w.pendingReason
	w.hasPending = false
	w.pendingSize = geom.Size{}
	w.apply(size, reason)
}

func (w *Window) updateRegion() {
	region := geom.Rect{}
	if w.transparency == TransparencyNone {
		region = geom.Rect{Size: w.clientSize}
	}
	if err := w.surface.SetOpaqueRegion(region); err != nil {
		log.Debugf("window %d: set opaque region: %v", w.SurfaceID(), err)
	}
}

// Handle routes a compositor event to the window.
func (w *Window) Handle(ev Event) {
	if w.state == Destroyed {
		log.Debugf("window: %T after destroy ignored", ev)
		return
	}
	switch e := ev.(type) {
	case Configure:
		w.onConfigure(e.Serial)
	case ToplevelConfigure:
		w.onToplevelConfigure(e.Width, e.Height)
	case ToplevelClose:
		if w.cb.CloseRequested != nil {
			w.cb.CloseRequested()
		}
	case FrameDone:
		w.onFrameDone()
	case Enter:
		w.onEnter(e.Output)
	case Leave:
		w.onLeave(e.Output)
	case KeyboardFocus:
		w.onKeyboardFocus(e.Focused)
	default:
		log.Debugf("window %d: unhandled event %T", w.SurfaceID(), ev)
	}
}

func (w *Window) onConfigure(serial uint32) {
	if w.configured && serial == w.configureSerial {
		log.Debugf("window %d: duplicate configure %d", w.SurfaceID(), serial)
		return
	}
	w.configureSerial = serial
	w.configured = true
	if err := w.role.AckConfigure(serial); err != nil {
		log.Warnf("window %d: ack configure %d failed: %v", w.SurfaceID(), serial, err)
	}
	w.state = Configured
	w.applyPending()

	if !w.frameRequested {
		w.paint()
	}
}

func (w *Window) onToplevelConfigure(width, height int32) {
	if w.state == Configured {
		w.state = Resizing
	}
	if width <= 0 || height <= 0 {
		return
	}
	w.stash(geom.Size{Width: width, Height: height}, ResizeUser)
}

// RequestFrame asks for a frame callback unless one is outstanding.
func (w *Window) RequestFrame() {
	if w.state == Destroyed || w.frameRequested {
		return
	}
	if err := w.surface.RequestFrame(); err != nil {
		log.Warnf("window %d: frame request failed: %v", w.SurfaceID(), err)
		return
	}
	w.frameRequested = true
}

func (w *Window) onFrameDone() {
	if !w.frameRequested {
		log.Debugf("window %d: unexpected frame callback", w.SurfaceID())
	}
	w.frameRequested = false
	w.applyPending()
	w.paint()
}

func (w *Window) paint() {
	if w.cb.Paint != nil {
		w.cb.Paint(geom.Rect{Size: w.clientSize})
	}
}

// Invalidate damages r, given in logical pixels, in buffer coordinates.
func (w *Window) Invalidate(r geom.Rect) {
	if w.state == Destroyed {
		return
	}
	s := w.renderScale
	damage := geom.Rect{
		Min:  geom.Point{X: int32(float64(r.Min.X) * s), Y: int32(float64(r.Min.Y) * s)},
		Size: r.Size.Scale(s),
	}
	if err := w.surface.DamageBuffer(damage); err != nil {
		log.Debugf("window %d: damage failed: %v", w.SurfaceID(), err)
	}
}

func (w *Window) onEnter(id wlproto.OutputID) {
	w.forget(id)
	w.entered = append(w.entered, id)
	w.output = id
	w.hasOutput = true
	w.resolveScale()
}

func (w *Window) onLeave(id wlproto.OutputID) {
	w.forget(id)
	if !w.hasOutput || w.output != id {
		return
	}
	if n := len(w.entered); n > 0 {
		w.output = w.entered[n-1]
		w.resolveScale()
		return
	}
	w.hasOutput = false
}

func (w *Window) forget(id wlproto.OutputID) {
	w.entered = slices.DeleteFunc(w.entered, func(o wlproto.OutputID) bool { return o == id })
}

func (w *Window) resolveScale() {
	if !w.hasOutput {
		return
	}
	screen, ok := w.screens.ScreenFromOutput(w.output)
	if !ok {
		return
	}
	scale := screen.PixelDensity()
	if scale <= 0 || math.Abs(scale-w.renderScale) < scaleEpsilon {
		return
	}
	w.renderScale = scale
	if w.cb.ScalingChanged != nil {
		w.cb.ScalingChanged(scale)
	}
	if err := w.surface.SetBufferScale(bufferScale(scale)); err != nil {
		log.Warnf("window %d: set buffer scale failed: %v", w.SurfaceID(), err)
	}
	if w.render != nil {
		if err := w.render.Resize(w.clientSize.Scale(scale)); err != nil {
			log.Warnf("window %d: render surface resize failed: %v", w.SurfaceID(), err)
		}
	}
}

// bufferScale truncates a fractional scale to the integer wl_surface wants.
func bufferScale(scale float64) int32 {
	return max(1, int32(scale))
}

// OutputChanged re-resolves the scale when the current output committed.
func (w *Window) OutputChanged(id wlproto.OutputID) {
	if w.state == Destroyed || !w.hasOutput || w.output != id {
		return
	}
	w.resolveScale()
}

// OutputRemoved forgets an output. The window keeps its last scale until it
// enters another one.
func (w *Window) OutputRemoved(id wlproto.OutputID) {
	w.forget(id)
	if w.hasOutput && w.output == id {
		w.hasOutput = false
	}
}

func (w *Window) onKeyboardFocus(focused bool) {
	if focused == w.active {
		return
	}
	w.active = focused
	if focused {
		if w.cb.Activated != nil {
			w.cb.Activated()
		}
		return
	}
	if w.cb.Deactivated != nil {
		w.cb.Deactivated()
	}
	if w.cb.LostFocus != nil {
		w.cb.LostFocus()
	}
}

// IsActive reports whether the window holds keyboard focus.
func (w *Window) IsActive() bool {
	return w.active
}

// Activate asks the compositor to raise and focus the window. Success
// shows up as the Activated callback.
func (w *Window) Activate() {
	if w.state == Destroyed || w.active {
		return
	}
	if err := w.role.Activate(); err != nil {
		log.Debugf("window %d: activate: %v", w.SurfaceID(), err)
	}
}

// SetTransparencyLevelHint switches between an opaque and a transparent
// background. Only opaque windows declare an opaque region.
func (w *Window) SetTransparencyLevelHint(level TransparencyLevel) {
	if w.state == Destroyed || level == w.transparency {
		return
	}
	w.transparency = level
	w.updateRegion()
	if w.cb.TransparencyLevelChanged != nil {
		w.cb.TransparencyLevelChanged(level)
	}
}

func (w *Window) TransparencyLevel() TransparencyLevel {
	return w.transparency
}

func (w *Window) SetTitle(title string) {
	if w.state == Destroyed {
		return
	}
	w.title = title
	if err := w.role.SetTitle(title); err != nil {
		log.Debugf("window %d: set title: %v", w.SurfaceID(), err)
	}
}

func (w *Window) Title() string {
	return w.title
}

func (w *Window) SetAppID(appID string) {
	if w.state == Destroyed {
		return
	}
	w.appID = appID
	if err := w.role.SetAppID(appID); err != nil {
		log.Debugf("window %d: set app id: %v", w.SurfaceID(), err)
	}
}

func (w *Window) AppID() string {
	return w.appID
}

// SetParent records the parent window by surface id. Zero clears it.
func (w *Window) SetParent(id wlproto.SurfaceID) {
	w.parent = id
}

// Parent resolves the parent through the screens registry, so a destroyed
// parent simply disappears.
func (w *Window) Parent() (screens.Window, bool) {
	if w.parent == 0 {
		return nil, false
	}
	return w.screens.WindowFromSurface(w.parent)
}

func (w *Window) SetInputRoot(root input.Root) {
	w.inputRoot = root
}

func (w *Window) InputRoot() input.Root {
	return w.inputRoot
}

// DispatchInput hands a synthesized record to the toolkit input pipeline.
func (w *Window) DispatchInput(ev *input.DragEvent) {
	if w.state == Destroyed || w.cb.Input == nil {
		return
	}
	if ev.Root == nil {
		ev.Root = w.inputRoot
	}
	w.cb.Input(ev)
}

// Destroy tears the window down: registry entry, render surface, role and
// surface, in that order. Calling it again does nothing.
func (w *Window) Destroy() {
	if w.state == Destroyed {
		return
	}
	id := w.SurfaceID()
	w.state = Destroyed
	w.hasPending = false
	w.frameRequested = false

	w.screens.RemoveWindow(id)
	if w.render != nil {
		if err := w.render.Destroy(); err != nil {
			log.Debugf("window %d: render surface destroy: %v", id, err)
		}
		w.render = nil
	}
	if err := w.role.Destroy(); err != nil {
		log.Debugf("window %d: role destroy: %v", id, err)
	}
	if err := w.surface.Destroy(); err != nil {
		log.Debugf("window %d: surface destroy: %v", id, err)
	}
	log.Debugf("window %d: destroyed", id)

	if w.cb.Closed != nil {
		w.cb.Closed()
	}
}
