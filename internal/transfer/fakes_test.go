package transfer

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/bnema/wayplat/internal/input"
	"github.com/bnema/wayplat/internal/registry"
	"github.com/bnema/wayplat/internal/screens"
	"github.com/bnema/wayplat/internal/wlproto"
)

type setActions struct {
	actions, preferred wlproto.DndAction
}

type accept struct {
	serial uint32
	mime   string
}

type fakeOffer struct {
	accepts   []accept
	actions   []setActions
	finished  int
	destroyed int
	// payload is written for every Receive; nil keeps the pipe open
	// without writing.
	payload []byte
	held    []int
}

func (o *fakeOffer) Accept(serial uint32, mimeType string) error {
	o.accepts = append(o.accepts, accept{serial, mimeType})
	return nil
}

func (o *fakeOffer) SetActions(actions, preferred wlproto.DndAction) error {
	o.actions = append(o.actions, setActions{actions, preferred})
	return nil
}

func (o *fakeOffer) Receive(mimeType string, fd int) error {
	dup, err := unix.Dup(fd)
	if err != nil {
		return err
	}
	if o.payload == nil {
		o.held = append(o.held, dup)
		return nil
	}
	payload := o.payload
	go func() {
		_, _ = unix.Write(dup, payload)
		unix.Close(dup)
	}()
	return nil
}

func (o *fakeOffer) Finish() error  { o.finished++; return nil }
func (o *fakeOffer) Destroy() error { o.destroyed++; return nil }

func (o *fakeOffer) release() {
	for _, fd := range o.held {
		unix.Close(fd)
	}
	o.held = nil
}

type fakeSource struct {
	offered   []string
	actions   []wlproto.DndAction
	destroyed int
	handle    func(SourceEvent)
}

func (s *fakeSource) Offer(mimeType string) error {
	s.offered = append(s.offered, mimeType)
	return nil
}

func (s *fakeSource) SetActions(actions wlproto.DndAction) error {
	s.actions = append(s.actions, actions)
	return nil
}

func (s *fakeSource) Destroy() error { s.destroyed++; return nil }

type selection struct {
	src    SourceProxy
	serial uint32
}

type drag struct {
	src    SourceProxy
	origin wlproto.SurfaceID
	serial uint32
}

type fakeDevice struct {
	sources    []*fakeSource
	selections []selection
	drags      []drag
}

func (d *fakeDevice) CreateSource(handle func(SourceEvent)) (SourceProxy, error) {
	s := &fakeSource{handle: handle}
	d.sources = append(d.sources, s)
	return s, nil
}

func (d *fakeDevice) SetSelection(src SourceProxy, serial uint32) error {
	d.selections = append(d.selections, selection{src, serial})
	return nil
}

func (d *fakeDevice) StartDrag(src SourceProxy, origin wlproto.SurfaceID, serial uint32) error {
	d.drags = append(d.drags, drag{src, origin, serial})
	return nil
}

func (d *fakeDevice) last() *fakeSource {
	return d.sources[len(d.sources)-1]
}

// fakeTarget is a window receiving drag records. accept, when set, narrows
// the effects of every record it receives. onEvent sees each record while
// it is being dispatched.
type fakeTarget struct {
	id      wlproto.SurfaceID
	root    input.Root
	events  []input.DragEvent
	accept  *input.DragEffects
	onEvent func(ev *input.DragEvent)
}

func (t *fakeTarget) SurfaceID() wlproto.SurfaceID    { return t.id }
func (t *fakeTarget) OutputChanged(wlproto.OutputID) {}
func (t *fakeTarget) OutputRemoved(wlproto.OutputID) {}
func (t *fakeTarget) InputRoot() input.Root          { return t.root }
func (t *fakeTarget) DispatchInput(ev *input.DragEvent) {
	if t.accept != nil {
		ev.Effects &= *t.accept
	}
	if t.onEvent != nil {
		t.onEvent(ev)
	}
	t.events = append(t.events, *ev)
}

func (t *fakeTarget) types() []input.DragEventType {
	var out []input.DragEventType
	for _, ev := range t.events {
		out = append(out, ev.Type)
	}
	return out
}

type fakeMods struct{ mods input.Modifiers }

func (m *fakeMods) Modifiers() input.Modifiers { return m.mods }

type nopBinder struct{ next wlproto.ObjectID }

func (b *nopBinder) Bind(registry.Global, uint32) (wlproto.ObjectID, error) {
	b.next++
	return b.next, nil
}

func (b *nopBinder) Release(wlproto.ObjectID, string) {}

func newScreens(t *testing.T) *screens.Registry {
	t.Helper()
	return screens.New(registry.NewTracker(&nopBinder{}))
}

func effects(e input.DragEffects) *input.DragEffects {
	return &e
}
