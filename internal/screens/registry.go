package screens

import (
	"github.com/bnema/wayplat/internal/geom"
	"github.com/bnema/wayplat/internal/logger"
	"github.com/bnema/wayplat/internal/registry"
	"github.com/bnema/wayplat/internal/wlproto"
)

const (
	outputMinVersion = 2 // wl_output.scale and wl_output.done
	outputMaxVersion = 4 // wl_output.name and wl_output.description
)

// Window is what the registry needs from a window: its surface id, and the
// notifications that keep its output reference valid.
type Window interface {
	SurfaceID() wlproto.SurfaceID
	// OutputChanged is called after the output committed a new screen.
	OutputChanged(id wlproto.OutputID)
	// OutputRemoved is called after the output left every index.
	OutputRemoved(id wlproto.OutputID)
}

// Bounded is anything with a position and size in global coordinates.
type Bounded interface {
	Bounds() geom.Rect
}

type pendingOutput struct {
	position    geom.Point
	size        geom.Size
	scale       int32
	name        string
	description string
}

type output struct {
	handle  registry.Handle
	pending pendingOutput
	screen  *Screen // nil until the first Done
}

// Registry tracks outputs and windows. It is driven from the dispatch
// goroutine only.
type Registry struct {
	tracker *registry.Tracker

	outputs map[wlproto.OutputID]*output
	byName  map[uint32]wlproto.OutputID
	order   []wlproto.OutputID

	windows     map[wlproto.SurfaceID]Window
	windowOrder []wlproto.SurfaceID
	active      wlproto.SurfaceID

	onChanged []func()
}

// New creates a registry that binds every output t advertises.
func New(t *registry.Tracker) *Registry {
	r := &Registry{
		tracker: t,
		outputs: make(map[wlproto.OutputID]*output),
		byName:  make(map[uint32]wlproto.OutputID),
		windows: make(map[wlproto.SurfaceID]Window),
	}
	t.OnAdded(r.onGlobalAdded)
	t.OnRemoved(r.onGlobalRemoved)
	for _, g := range t.Globals() {
		r.onGlobalAdded(g)
	}
	return r
}

// OnChanged subscribes to screen commits and removals.
func (r *Registry) OnChanged(fn func()) {
	r.onChanged = append(r.onChanged, fn)
}

func (r *Registry) onGlobalAdded(g registry.Global) {
	if g.Interface != wlproto.OutputInterface {
		return
	}
	if _, exists := r.byName[g.Name]; exists {
		return
	}
	h, err := r.tracker.BindUpTo(g, outputMinVersion, outputMaxVersion)
	if err != nil {
		logger.Warnf("Failed to bind output %d: %v", g.Name, err)
		return
	}
	id := wlproto.OutputID(h.ID)
	r.outputs[id] = &output{
		handle:  h,
		pending: pendingOutput{scale: 1},
	}
	r.byName[g.Name] = id
	r.order = append(r.order, id)
	logger.Debugf("Registered output %d (global %d)", id, g.Name)
}

func (r *Registry) onGlobalRemoved(g registry.Global) {
	if g.Interface != wlproto.OutputInterface {
		return
	}
	id, ok := r.byName[g.Name]
	if !ok {
		return
	}
	o := r.outputs[id]

	delete(r.byName, g.Name)
	delete(r.outputs, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	logger.Debugf("Unregistered output %d (global %d)", id, g.Name)

	for _, w := range r.Windows() {
		w.OutputRemoved(id)
	}
	r.tracker.Release(o.handle)
	r.notifyChanged()
}

// HandleOutputEvent applies one wl_output event.
func (r *Registry) HandleOutputEvent(id wlproto.OutputID, ev OutputEvent) {
	o, ok := r.outputs[id]
	if !ok {
		logger.Debugf("screens: event %T for unknown output %d", ev, id)
		return
	}

	switch e := ev.(type) {
	case Geometry:
		o.pending.position = geom.Point{X: e.X, Y: e.Y}
	case Mode:
		if e.Flags&wlproto.OutputModeCurrent == 0 {
			return
		}
		o.pending.size = geom.Size{Width: e.Width, Height: e.Height}
	case Scale:
		if e.Factor > 0 {
			o.pending.scale = e.Factor
		}
	case Name:
		o.pending.name = e.Name
	case Description:
		o.pending.description = e.Description
	case Done:
		r.commit(id, o)
	}
}

func (r *Registry) commit(id wlproto.OutputID, o *output) {
	bounds := geom.Rect{Min: o.pending.position, Size: o.pending.size}
	o.screen = &Screen{
		Output:      id,
		Name:        o.pending.name,
		Description: o.pending.description,
		Bounds:      bounds,
		WorkingArea: bounds,
		Scale:       float64(o.pending.scale),
	}
	logger.Debugf("Committed screen %s", o.screen)

	for _, w := range r.Windows() {
		w.OutputChanged(id)
	}
	r.notifyChanged()
}

func (r *Registry) notifyChanged() {
	for _, fn := range r.onChanged {
		fn()
	}
}

// committed returns the committed screens in registration order.
func (r *Registry) committed() []Screen {
	out := make([]Screen, 0, len(r.order))
	for _, id := range r.order {
		if s := r.outputs[id].screen; s != nil {
			out = append(out, *s)
		}
	}
	primary := -1
	for i, s := range out {
		if s.Bounds.Min == (geom.Point{}) {
			primary = i
			break
		}
	}
	if primary < 0 && len(out) > 0 {
		primary = 0
	}
	if primary >= 0 {
		out[primary].Primary = true
	}
	return out
}

// AllScreens returns every committed screen in registration order.
func (r *Registry) AllScreens() []Screen {
	return r.committed()
}

// ScreenCount returns the number of committed screens.
func (r *Registry) ScreenCount() int {
	return len(r.committed())
}

// Primary returns the screen at the origin, or the first registered one.
func (r *Registry) Primary() (Screen, bool) {
	for _, s := range r.committed() {
		if s.Primary {
			return s, true
		}
	}
	return Screen{}, false
}

// ScreenFromOutput returns the committed screen of an output.
func (r *Registry) ScreenFromOutput(id wlproto.OutputID) (Screen, bool) {
	for _, s := range r.committed() {
		if s.Output == id {
			return s, true
		}
	}
	return Screen{}, false
}

// ScreenFromPoint returns the first registered screen containing p.
func (r *Registry) ScreenFromPoint(p geom.Point) (Screen, bool) {
	for _, s := range r.committed() {
		if s.Contains(p) {
			return s, true
		}
	}
	return Screen{}, false
}

// ScreenFromRect returns the screen sharing the largest area with rect.
// Ties go to the screen registered first.
func (r *Registry) ScreenFromRect(rect geom.Rect) (Screen, bool) {
	var (
		best     Screen
		bestArea int64
		found    bool
	)
	for _, s := range r.committed() {
		area := s.Bounds.Intersect(rect).Area()
		if area > bestArea {
			best, bestArea, found = s, area, true
		}
	}
	return best, found
}

// ScreenFromWindow resolves a window by its bounds, like ScreenFromRect.
func (r *Registry) ScreenFromWindow(w Bounded) (Screen, bool) {
	return r.ScreenFromRect(w.Bounds())
}

// MaxAutoSizeHint returns the largest screen size in logical units.
func (r *Registry) MaxAutoSizeHint() geom.Size {
	var best geom.Size
	for _, s := range r.committed() {
		sz := s.LogicalSize()
		if int64(sz.Width)+int64(sz.Height) > int64(best.Width)+int64(best.Height) {
			best = sz
		}
	}
	return best
}

// Outputs returns the ids of every bound output, committed or not.
func (r *Registry) Outputs() []wlproto.OutputID {
	return append([]wlproto.OutputID(nil), r.order...)
}

// AddWindow indexes a window by its surface.
func (r *Registry) AddWindow(w Window) {
	id := w.SurfaceID()
	if _, exists := r.windows[id]; !exists {
		r.windowOrder = append(r.windowOrder, id)
	}
	r.windows[id] = w
}

// RemoveWindow drops a window from the index. Output events no longer reach
// it afterwards.
func (r *Registry) RemoveWindow(id wlproto.SurfaceID) {
	if _, ok := r.windows[id]; !ok {
		return
	}
	delete(r.windows, id)
	for i, wid := range r.windowOrder {
		if wid == id {
			r.windowOrder = append(r.windowOrder[:i], r.windowOrder[i+1:]...)
			break
		}
	}
	if r.active == id {
		r.active = 0
	}
}

// WindowFromSurface looks a window up by surface id.
func (r *Registry) WindowFromSurface(id wlproto.SurfaceID) (Window, bool) {
	w, ok := r.windows[id]
	return w, ok
}

// Windows returns the indexed windows in creation order.
func (r *Registry) Windows() []Window {
	out := make([]Window, 0, len(r.windowOrder))
	for _, id := range r.windowOrder {
		out = append(out, r.windows[id])
	}
	return out
}

// SetActiveWindow records which surface holds keyboard focus. Zero clears it.
func (r *Registry) SetActiveWindow(id wlproto.SurfaceID) {
	if id != 0 {
		if _, ok := r.windows[id]; !ok {
			return
		}
	}
	r.active = id
}

// ActiveWindow returns the window holding keyboard focus.
func (r *Registry) ActiveWindow() (Window, bool) {
	if r.active == 0 {
		return nil, false
	}
	return r.WindowFromSurface(r.active)
}
