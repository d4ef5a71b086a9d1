package window

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bnema/wayplat/internal/config"
	"github.com/bnema/wayplat/internal/geom"
	"github.com/bnema/wayplat/internal/input"
	"github.com/bnema/wayplat/internal/registry"
	"github.com/bnema/wayplat/internal/screens"
	"github.com/bnema/wayplat/internal/wlproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// calls records every request in order, across surface, role and render
// surface, so teardown ordering can be asserted.
type calls []string

func (c *calls) add(format string, args ...any) {
	*c = append(*c, fmt.Sprintf(format, args...))
}

type fakeSurface struct {
	id     wlproto.SurfaceID
	log    *calls
	frames int
	scale  int32
	opaque geom.Rect
	damage []geom.Rect
	handle func(Event)
}

func (s *fakeSurface) ID() wlproto.SurfaceID { return s.id }
func (s *fakeSurface) RequestFrame() error   { s.frames++; s.log.add("frame"); return nil }
func (s *fakeSurface) SetBufferScale(scale int32) error {
	s.scale = scale
	s.log.add("buffer_scale %d", scale)
	return nil
}
func (s *fakeSurface) SetOpaqueRegion(r geom.Rect) error { s.opaque = r; return nil }
func (s *fakeSurface) DamageBuffer(r geom.Rect) error    { s.damage = append(s.damage, r); return nil }
func (s *fakeSurface) Commit() error                     { s.log.add("commit"); return nil }
func (s *fakeSurface) Destroy() error                    { s.log.add("surface.destroy"); return nil }

type fakeRole struct {
	log         *calls
	acks        []uint32
	title       string
	appID       string
	activateErr error
}

func (r *fakeRole) AckConfigure(serial uint32) error {
	r.acks = append(r.acks, serial)
	r.log.add("ack %d", serial)
	return nil
}
func (r *fakeRole) SetTitle(title string) error { r.title = title; return nil }
func (r *fakeRole) SetAppID(appID string) error { r.appID = appID; return nil }
func (r *fakeRole) Activate() error             { r.log.add("activate"); return r.activateErr }
func (r *fakeRole) Destroy() error              { r.log.add("role.destroy"); return nil }

type fakeRender struct {
	log   *calls
	sizes []geom.Size
}

func (r *fakeRender) Resize(size geom.Size) error { r.sizes = append(r.sizes, size); return nil }
func (r *fakeRender) Destroy() error              { r.log.add("render.destroy"); return nil }

type fakeShell struct {
	log     calls
	next    wlproto.SurfaceID
	surface *fakeSurface
	role    *fakeRole
	failTop bool
}

func (s *fakeShell) CreateSurface(handle func(Event)) (Surface, error) {
	s.next++
	s.surface = &fakeSurface{id: s.next, log: &s.log, handle: handle}
	return s.surface, nil
}

func (s *fakeShell) CreateToplevel(surface Surface, handle func(Event)) (Role, error) {
	if s.failTop {
		return nil, errors.New("no xdg_wm_base")
	}
	s.role = &fakeRole{log: &s.log}
	return s.role, nil
}

type fakeBinder struct{ next wlproto.ObjectID }

func (b *fakeBinder) Bind(g registry.Global, version uint32) (wlproto.ObjectID, error) {
	b.next++
	return b.next, nil
}

func (b *fakeBinder) Release(id wlproto.ObjectID, iface string) {}

type observed struct {
	paints  []geom.Rect
	resized []geom.Size
	reasons []ResizeReason
	scales  []float64
	closed  int
	closing int
	focus   []string
}

func (o *observed) callbacks() Callbacks {
	return Callbacks{
		Paint: func(r geom.Rect) { o.paints = append(o.paints, r) },
		Resized: func(size geom.Size, reason ResizeReason) {
			o.resized = append(o.resized, size)
			o.reasons = append(o.reasons, reason)
		},
		ScalingChanged: func(scale float64) { o.scales = append(o.scales, scale) },
		CloseRequested: func() { o.closing++ },
		Closed:         func() { o.closed++ },
		Activated:      func() { o.focus = append(o.focus, "activated") },
		Deactivated:    func() { o.focus = append(o.focus, "deactivated") },
		LostFocus:      func() { o.focus = append(o.focus, "lost focus") },
	}
}

type fixture struct {
	screens *screens.Registry
	tracker *registry.Tracker
	shell   *fakeShell
	obs     *observed
	render  *fakeRender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tr := registry.NewTracker(&fakeBinder{})
	return &fixture{
		screens: screens.New(tr),
		tracker: tr,
		shell:   &fakeShell{},
		obs:     &observed{},
	}
}

func (f *fixture) addOutput(t *testing.T, name uint32, x, width, height, scale int32) wlproto.OutputID {
	t.Helper()
	f.tracker.Handle(registry.GlobalAdded{Global: registry.Global{Name: name, Interface: wlproto.OutputInterface, Version: 4}})
	outputs := f.screens.Outputs()
	require.NotEmpty(t, outputs)
	id := outputs[len(outputs)-1]
	f.commit(id, x, width, height, scale)
	return id
}

func (f *fixture) commit(id wlproto.OutputID, x, width, height, scale int32) {
	f.screens.HandleOutputEvent(id, screens.Geometry{X: x})
	f.screens.HandleOutputEvent(id, screens.Mode{Flags: wlproto.OutputModeCurrent, Width: width, Height: height})
	f.screens.HandleOutputEvent(id, screens.Scale{Factor: scale})
	f.screens.HandleOutputEvent(id, screens.Done{})
}

func (f *fixture) newWindow(t *testing.T) *Window {
	t.Helper()
	f.render = &fakeRender{log: &f.shell.log}
	w, err := New(Options{
		Shell:   f.shell,
		Screens: f.screens,
		Render: func(s Surface, size geom.Size) (RenderSurface, error) {
			return f.render, nil
		},
		Config:    config.DefaultConfig.Window,
		Callbacks: f.obs.callbacks(),
	})
	require.NoError(t, err)
	return w
}

// configured returns a window past its first configure with an 800x600
// client size and cleared observations.
func (f *fixture) configured(t *testing.T) *Window {
	t.Helper()
	w := f.newWindow(t)
	w.Handle(ToplevelConfigure{Width: 800, Height: 600})
	w.Handle(Configure{Serial: 1})
	require.Equal(t, Configured, w.State())
	require.Equal(t, geom.Size{Width: 800, Height: 600}, w.ClientSize())
	*f.obs = observed{}
	return w
}

func TestInitialSizeFallback(t *testing.T) {
	f := newFixture(t)
	w := f.newWindow(t)

	assert.Equal(t, AwaitingConfigure, w.State())
	assert.Equal(t, geom.Size{Width: 400, Height: 600}, w.ClientSize())
	assert.Equal(t, "wayplat", f.shell.role.title)
	assert.Equal(t, "dev.bnema.wayplat", f.shell.role.appID)

	got, ok := f.screens.WindowFromSurface(w.SurfaceID())
	require.True(t, ok)
	assert.Same(t, w, got)
}

func TestInitialSizeFromPrimaryScreen(t *testing.T) {
	f := newFixture(t)
	f.addOutput(t, 1, 0, 1920, 1080, 1)
	w := f.newWindow(t)

	assert.Equal(t, geom.Size{Width: 1440, Height: 756}, w.ClientSize())
	assert.Equal(t, geom.R(0, 0, 1440, 756), f.shell.surface.opaque)
}

func TestCreateFailureReleasesSurface(t *testing.T) {
	f := newFixture(t)
	f.shell.failTop = true
	_, err := New(Options{Shell: f.shell, Screens: f.screens})
	require.Error(t, err)
	assert.Equal(t, calls{"surface.destroy"}, f.shell.log)
	assert.Empty(t, f.screens.Windows())
}

func TestShowRequestsFirstConfigure(t *testing.T) {
	f := newFixture(t)
	w := f.newWindow(t)
	w.Show()
	assert.Equal(t, calls{"commit"}, f.shell.log)

	w.Handle(Configure{Serial: 1})
	w.Show()
	assert.Equal(t, calls{"commit", "ack 1"}, f.shell.log, "show only commits before the first configure")
}

func TestConfigureAcksAndPaints(t *testing.T) {
	f := newFixture(t)
	w := f.newWindow(t)

	w.Handle(Configure{Serial: 7})
	assert.Equal(t, []uint32{7}, f.shell.role.acks)
	assert.Equal(t, []geom.Rect{geom.R(0, 0, 400, 600)}, f.obs.paints)
	assert.Equal(t, Configured, w.State())
}

func TestDuplicateConfigureIgnored(t *testing.T) {
	f := newFixture(t)
	w := f.newWindow(t)

	w.Handle(Configure{Serial: 7})
	w.Handle(Configure{Serial: 7})
	assert.Equal(t, []uint32{7}, f.shell.role.acks)
	assert.Len(t, f.obs.paints, 1)

	w.Handle(Configure{Serial: 8})
	assert.Equal(t, []uint32{7, 8}, f.shell.role.acks)
}

func TestConfigureWithFrameOutstandingDoesNotPaint(t *testing.T) {
	f := newFixture(t)
	w := f.configured(t)

	w.RequestFrame()
	w.Handle(Configure{Serial: 2})
	assert.Empty(t, f.obs.paints)
	assert.Equal(t, []uint32{1, 2}, f.shell.role.acks)
}

func TestRequestFrameIsIdempotent(t *testing.T) {
	f := newFixture(t)
	w := f.configured(t)

	w.RequestFrame()
	w.RequestFrame()
	assert.Equal(t, 1, f.shell.surface.frames)
	assert.True(t, w.FrameRequested())

	w.Handle(FrameDone{})
	assert.False(t, w.FrameRequested())
	assert.Equal(t, []geom.Rect{geom.R(0, 0, 800, 600)}, f.obs.paints, "exactly one repaint")

	w.RequestFrame()
	assert.Equal(t, 2, f.shell.surface.frames, "a new request is allowed after completion")
}

func TestResizeSameSizeIsNoop(t *testing.T) {
	f := newFixture(t)
	w := f.configured(t)

	w.Resize(geom.Size{Width: 800, Height: 600}, ResizeApplication)
	assert.Empty(t, f.obs.resized)
}

func TestResizeWhenConfigured(t *testing.T) {
	f := newFixture(t)
	w := f.configured(t)

	w.Resize(geom.Size{Width: 1024, Height: 768}, ResizeApplication)
	assert.Equal(t, []geom.Size{{Width: 1024, Height: 768}}, f.obs.resized)
	assert.Equal(t, []ResizeReason{ResizeApplication}, f.obs.reasons)
	assert.Equal(t, geom.R(0, 0, 1024, 768), f.shell.surface.opaque)
	assert.Equal(t, geom.Size{Width: 1024, Height: 768}, f.render.sizes[len(f.render.sizes)-1])
}

func TestResizeWhileConfigurePendingAppliesOnConfigure(t *testing.T) {
	f := newFixture(t)
	w := f.newWindow(t)

	w.Resize(geom.Size{Width: 640, Height: 480}, ResizeApplication)
	assert.Empty(t, f.obs.resized)
	pending, ok := w.PendingSize()
	assert.True(t, ok)
	assert.Equal(t, geom.Size{Width: 640, Height: 480}, pending)

	w.Handle(Configure{Serial: 1})
	assert.Equal(t, []geom.Size{{Width: 640, Height: 480}}, f.obs.resized)

	w.Handle(FrameDone{})
	assert.Len(t, f.obs.resized, 1, "the pending size is applied once")
	_, ok = w.PendingSize()
	assert.False(t, ok)
}

func TestResizeWhileConfigurePendingAppliesOnFrame(t *testing.T) {
	f := newFixture(t)
	w := f.configured(t)

	w.RequestFrame()
	w.Handle(ToplevelConfigure{Width: 1000, Height: 700})
	assert.Equal(t, Resizing, w.State())

	w.Resize(geom.Size{Width: 900, Height: 650}, ResizeApplication)
	assert.Empty(t, f.obs.resized)

	w.Handle(FrameDone{})
	assert.Equal(t, []geom.Size{{Width: 900, Height: 650}}, f.obs.resized, "the latest request overwrites")
	assert.Equal(t, []geom.Rect{geom.R(0, 0, 900, 650)}, f.obs.paints)

	w.Handle(Configure{Serial: 2})
	assert.Len(t, f.obs.resized, 1)
	assert.Equal(t, Configured, w.State())
}

func TestToplevelConfigureSizeIsUserResize(t *testing.T) {
	f := newFixture(t)
	w := f.configured(t)

	w.Handle(ToplevelConfigure{Width: 1200, Height: 900})
	w.Handle(Configure{Serial: 2})
	assert.Equal(t, []ResizeReason{ResizeUser}, f.obs.reasons)
	assert.Equal(t, geom.Size{Width: 1200, Height: 900}, w.ClientSize())

	w.Handle(ToplevelConfigure{})
	w.Handle(Configure{Serial: 3})
	assert.Len(t, f.obs.resized, 1, "a zero size leaves the size to the client")
}

func TestToplevelClose(t *testing.T) {
	f := newFixture(t)
	w := f.configured(t)
	w.Handle(ToplevelClose{})
	assert.Equal(t, 1, f.obs.closing)
	assert.Equal(t, Configured, w.State())
}

func TestScaleFollowsOutputs(t *testing.T) {
	f := newFixture(t)
	low := f.addOutput(t, 1, 0, 1920, 1080, 1)
	high := f.addOutput(t, 2, 1920, 3840, 2160, 2)
	w := f.configured(t)

	w.Handle(Enter{Output: low})
	assert.Empty(t, f.obs.scales, "scale 1 is the initial scale")

	w.Handle(Enter{Output: high})
	assert.Equal(t, []float64{2}, f.obs.scales)
	assert.Equal(t, int32(2), f.shell.surface.scale)
	assert.Equal(t, 2.0, w.RenderScaling())

	w.Handle(Leave{Output: high})
	cur, ok := w.CurrentOutput()
	require.True(t, ok)
	assert.Equal(t, low, cur, "falls back to the remaining output")
	assert.Equal(t, []float64{2, 1}, f.obs.scales)

	w.Handle(Leave{Output: low})
	_, ok = w.CurrentOutput()
	assert.False(t, ok)
	assert.Equal(t, 1.0, w.RenderScaling())
}

func TestScaleReresolvedOnOutputCommit(t *testing.T) {
	f := newFixture(t)
	out := f.addOutput(t, 1, 0, 1920, 1080, 1)
	w := f.configured(t)
	w.Handle(Enter{Output: out})

	f.screens.HandleOutputEvent(out, screens.Scale{Factor: 3})
	assert.Empty(t, f.obs.scales, "not visible before done")
	f.screens.HandleOutputEvent(out, screens.Done{})
	assert.Equal(t, []float64{3}, f.obs.scales)
	assert.Equal(t, int32(3), f.shell.surface.scale)
}

func TestOutputRemovalKeepsLastScale(t *testing.T) {
	f := newFixture(t)
	out := f.addOutput(t, 5, 0, 3840, 2160, 2)
	w := f.configured(t)
	w.Handle(Enter{Output: out})
	require.Equal(t, 2.0, w.RenderScaling())

	f.tracker.Handle(registry.GlobalRemoved{Name: 5})
	_, ok := w.CurrentOutput()
	assert.False(t, ok)
	assert.Equal(t, 2.0, w.RenderScaling())
	_, ok = w.Screen()
	assert.False(t, ok)

	other := f.addOutput(t, 6, 0, 1920, 1080, 1)
	w.Handle(Enter{Output: other})
	assert.Equal(t, 1.0, w.RenderScaling())
}

func TestEnterUnknownOutputKeepsScale(t *testing.T) {
	f := newFixture(t)
	w := f.configured(t)
	w.Handle(Enter{Output: 99})
	assert.Equal(t, 1.0, w.RenderScaling())
	assert.Empty(t, f.obs.scales)
}

func TestBufferScaleTruncates(t *testing.T) {
	assert.Equal(t, int32(1), bufferScale(1.5))
	assert.Equal(t, int32(2), bufferScale(2.25))
	assert.Equal(t, int32(1), bufferScale(0.5))
}

func TestInvalidateScalesDamage(t *testing.T) {
	f := newFixture(t)
	out := f.addOutput(t, 1, 0, 3840, 2160, 2)
	w := f.configured(t)
	w.Handle(Enter{Output: out})

	w.Invalidate(geom.R(10, 20, 30, 40))
	assert.Equal(t, []geom.Rect{geom.R(20, 40, 60, 80)}, f.shell.surface.damage)
}

func TestTransparencyHint(t *testing.T) {
	f := newFixture(t)
	w := f.configured(t)
	var levels []TransparencyLevel
	cb := f.obs.callbacks()
	cb.TransparencyLevelChanged = func(l TransparencyLevel) { levels = append(levels, l) }
	w.SetCallbacks(cb)

	w.SetTransparencyLevelHint(TransparencyTransparent)
	assert.True(t, f.shell.surface.opaque.Empty())
	w.SetTransparencyLevelHint(TransparencyTransparent)
	w.SetTransparencyLevelHint(TransparencyNone)
	assert.Equal(t, geom.R(0, 0, 800, 600), f.shell.surface.opaque)
	assert.Equal(t, []TransparencyLevel{TransparencyTransparent, TransparencyNone}, levels)
}

func TestParentResolvedThroughRegistry(t *testing.T) {
	f := newFixture(t)
	parent := f.newWindow(t)
	child := f.newWindow(t)

	child.SetParent(parent.SurfaceID())
	got, ok := child.Parent()
	require.True(t, ok)
	assert.Same(t, parent, got)

	parent.Destroy()
	_, ok = child.Parent()
	assert.False(t, ok)
}

func TestDispatchInputFillsRoot(t *testing.T) {
	f := newFixture(t)
	w := f.configured(t)
	var got []*input.DragEvent
	cb := f.obs.callbacks()
	cb.Input = func(ev *input.DragEvent) { got = append(got, ev) }
	w.SetCallbacks(cb)
	w.SetInputRoot("root")

	w.DispatchInput(&input.DragEvent{Type: input.DragEnter})
	require.Len(t, got, 1)
	assert.Equal(t, "root", got[0].Root)
}

func TestDestroyOrderAndIdempotence(t *testing.T) {
	f := newFixture(t)
	w := f.configured(t)
	f.shell.log = nil

	w.Destroy()
	w.Destroy()
	assert.Equal(t, calls{"render.destroy", "role.destroy", "surface.destroy"}, f.shell.log)
	assert.Equal(t, 1, f.obs.closed)
	assert.Equal(t, Destroyed, w.State())
	_, ok := f.screens.WindowFromSurface(w.SurfaceID())
	assert.False(t, ok)

	w.Handle(FrameDone{})
	w.Handle(Configure{Serial: 9})
	w.Resize(geom.Size{Width: 10, Height: 10}, ResizeApplication)
	w.RequestFrame()
	assert.Empty(t, f.obs.paints)
	assert.Empty(t, f.obs.resized)
	assert.Equal(t, calls{"render.destroy", "role.destroy", "surface.destroy"}, f.shell.log)
}

func TestKeyboardFocusCallbacks(t *testing.T) {
	f := newFixture(t)
	w := f.configured(t)

	w.Handle(KeyboardFocus{Focused: true})
	assert.True(t, w.IsActive())
	w.Handle(KeyboardFocus{Focused: true})
	assert.Equal(t, []string{"activated"}, f.obs.focus, "repeated enter is not a new activation")

	w.Handle(KeyboardFocus{Focused: false})
	assert.False(t, w.IsActive())
	assert.Equal(t, []string{"activated", "deactivated", "lost focus"}, f.obs.focus)

	w.Handle(KeyboardFocus{Focused: false})
	assert.Len(t, f.obs.focus, 3)
}

func TestActivate(t *testing.T) {
	f := newFixture(t)
	w := f.configured(t)
	f.shell.log = nil

	w.Activate()
	assert.Equal(t, calls{"activate"}, f.shell.log)

	w.Handle(KeyboardFocus{Focused: true})
	w.Activate()
	assert.Equal(t, calls{"activate"}, f.shell.log, "an active window is not activated again")

	w.Handle(KeyboardFocus{Focused: false})
	f.shell.role.activateErr = errors.New("no xdg_activation_v1")
	w.Activate()
	assert.Equal(t, calls{"activate", "activate"}, f.shell.log)

	w.Destroy()
	f.shell.log = nil
	w.Activate()
	assert.Empty(t, f.shell.log)
}
