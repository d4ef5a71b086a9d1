package transfer

import (
	"time"

	"github.com/bnema/wayplat/internal/geom"
	"github.com/bnema/wayplat/internal/input"
	"github.com/bnema/wayplat/internal/screens"
	"github.com/bnema/wayplat/internal/wlproto"
)

// Device tracks the offers of one wl_data_device: the staged offer, the
// drag offer and the selection offer, each independent of the others.
type Device struct {
	screens     *screens.Registry
	mods        input.ModifierSource
	readTimeout time.Duration

	offers    map[wlproto.OfferID]*Offer
	staged    *Offer
	drag      *Offer
	selection *Offer

	enterSerial uint32
	position    geom.Point
	target      DropTarget

	// localDrag returns the data of a drag we are running, nil otherwise.
	localDrag func() input.DataObject
}

// NewDevice creates a data device handler. mods may be nil.
func NewDevice(s *screens.Registry, mods input.ModifierSource, readTimeout time.Duration) *Device {
	return &Device{
		screens:     s,
		mods:        mods,
		readTimeout: readTimeout,
		offers:      make(map[wlproto.OfferID]*Offer),
	}
}

// Selection returns the current clipboard offer, nil when there is none.
func (d *Device) Selection() *Offer {
	return d.selection
}

// DragOffer returns the offer of the drag in progress.
func (d *Device) DragOffer() *Offer {
	return d.drag
}

// Staged returns the offer introduced last and not yet claimed.
func (d *Device) Staged() *Offer {
	return d.staged
}

func (d *Device) modifiers() input.Modifiers {
	if d.mods == nil {
		return 0
	}
	return d.mods.Modifiers()
}

// Handle routes a wl_data_device event.
func (d *Device) Handle(ev DeviceEvent) {
	switch e := ev.(type) {
	case DataOffer:
		d.onDataOffer(e.ID, e.Proxy)
	case Enter:
		d.onEnter(e)
	case Motion:
		d.onMotion(e.X, e.Y)
	case Drop:
		d.onDrop()
	case Leave:
		d.onLeave()
	case Selection:
		d.onSelection(e.Offer)
	default:
		log.Debugf("data device: unhandled event %T", ev)
	}
}

// HandleOfferEvent routes a wl_data_offer event to its offer.
func (d *Device) HandleOfferEvent(id wlproto.OfferID, ev OfferEvent) {
	o, ok := d.offers[id]
	if !ok {
		log.Debugf("data device: %T for unknown offer %d", ev, id)
		return
	}
	o.handle(ev)
}

func (d *Device) onDataOffer(id wlproto.OfferID, proxy OfferProxy) {
	if d.staged != nil {
		log.Debugf("data device: offer %d never claimed", d.staged.id)
		d.staged.dispose()
	}
	o := newOffer(id, proxy, d.readTimeout)
	o.onDispose = func(id wlproto.OfferID) { delete(d.offers, id) }
	d.offers[id] = o
	d.staged = o
}

func (d *Device) onEnter(e Enter) {
	d.disposeDrag()
	if d.staged == nil || d.staged.id != e.Offer {
		log.Debugf("data device: enter for offer %d does not match staged offer", e.Offer)
		return
	}
	d.drag, d.staged = d.staged, nil
	if d.localDrag != nil {
		// A seat runs one drag at a time: while ours is live, this is it.
		d.drag.local = d.localDrag()
	}
	d.enterSerial = e.Serial
	d.position = geom.Point{X: int32(e.X), Y: int32(e.Y)}
	d.target = d.resolveTarget(e.Surface)
	if d.target == nil {
		d.accept(input.EffectNone)
		return
	}

	ev := d.dragEvent(input.DragEnter, d.drag.OfferedEffects())
	d.target.DispatchInput(ev)
	d.accept(ev.Effects)
}

func (d *Device) onMotion(x, y float64) {
	if d.drag == nil || d.target == nil {
		return
	}
	d.position = geom.Point{X: int32(x), Y: int32(y)}
	ev := d.dragEvent(input.DragOver, d.drag.OfferedEffects())
	d.target.DispatchInput(ev)
	d.accept(ev.Effects)
}

func (d *Device) onDrop() {
	if d.drag == nil {
		return
	}
	if d.target != nil {
		ev := d.dragEvent(input.Drop, d.drag.MatchedEffects())
		d.target.DispatchInput(ev)
		if ev.Effects != input.EffectNone {
			if err := d.drag.proxy.Finish(); err != nil {
				log.Warnf("data device: finish offer %d: %v", d.drag.id, err)
			}
		}
	}
	d.disposeDrag()
}

func (d *Device) onLeave() {
	if d.drag != nil && d.target != nil {
		d.target.DispatchInput(d.dragEvent(input.DragLeave, input.EffectNone))
	}
	d.disposeDrag()
}

func (d *Device) onSelection(id wlproto.OfferID) {
	if id == 0 {
		d.disposeSelection()
		return
	}
	if d.staged == nil || d.staged.id != id {
		log.Debugf("data device: selection offer %d does not match staged offer", id)
		return
	}
	d.disposeSelection()
	d.selection, d.staged = d.staged, nil
}

// resolveTarget finds the window under the drag, falling back to the
// window holding keyboard focus.
func (d *Device) resolveTarget(surface wlproto.SurfaceID) DropTarget {
	if w, ok := d.screens.WindowFromSurface(surface); ok {
		if t, ok := w.(DropTarget); ok {
			return t
		}
	}
	if w, ok := d.screens.ActiveWindow(); ok {
		if t, ok := w.(DropTarget); ok {
			return t
		}
	}
	return nil
}

func (d *Device) dragEvent(typ input.DragEventType, effects input.DragEffects) *input.DragEvent {
	return &input.DragEvent{
		Device:    input.DragDevice,
		Type:      typ,
		Root:      d.target.InputRoot(),
		Position:  d.position,
		Data:      d.drag,
		Effects:   effects,
		Modifiers: d.modifiers(),
	}
}

// accept announces the acceptable actions and MIME type for the current
// drag, recomputing the preferred action from the live modifiers.
func (d *Device) accept(effects input.DragEffects) {
	preferred := PreferredEffect(effects, d.modifiers())
	if err := d.drag.proxy.SetActions(effectsToActions(effects), effectsToActions(preferred)); err != nil {
		log.Debugf("data device: set actions on offer %d: %v", d.drag.id, err)
	}
	mime := ""
	if effects != input.EffectNone && len(d.drag.mimes) > 0 {
		mime = d.drag.mimes[0]
	}
	if err := d.drag.proxy.Accept(d.enterSerial, mime); err != nil {
		log.Debugf("data device: accept on offer %d: %v", d.drag.id, err)
	}
}

func (d *Device) disposeDrag() {
	if d.drag != nil {
		d.drag.dispose()
		d.drag = nil
	}
	d.target = nil
}

func (d *Device) disposeSelection() {
	if d.selection != nil {
		d.selection.dispose()
		d.selection = nil
	}
}

// Close disposes every offer the device still holds.
func (d *Device) Close() {
	d.disposeDrag()
	d.disposeSelection()
	if d.staged != nil {
		d.staged.dispose()
		d.staged = nil
	}
}
