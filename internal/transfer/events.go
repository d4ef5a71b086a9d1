package transfer

import "github.com/bnema/wayplat/internal/wlproto"

// DeviceEvent is a wl_data_device event.
type DeviceEvent interface {
	isDeviceEvent()
}

// DataOffer introduces a new offer. It is followed by Enter or Selection
// naming the same id.
type DataOffer struct {
	ID    wlproto.OfferID
	Proxy OfferProxy
}

// Enter starts a drag over one of our surfaces. Offer is zero for a drag
// without data.
type Enter struct {
	Serial  uint32
	Surface wlproto.SurfaceID
	X, Y    float64
	Offer   wlproto.OfferID
}

type Motion struct {
	Time uint32
	X, Y float64
}

type Drop struct{}

type Leave struct{}

// Selection announces the clipboard offer. Offer is zero when the
// clipboard was cleared.
type Selection struct {
	Offer wlproto.OfferID
}

func (DataOffer) isDeviceEvent() {}
func (Enter) isDeviceEvent()     {}
func (Motion) isDeviceEvent()    {}
func (Drop) isDeviceEvent()      {}
func (Leave) isDeviceEvent()     {}
func (Selection) isDeviceEvent() {}

// OfferEvent is a wl_data_offer event.
type OfferEvent interface {
	isOfferEvent()
}

// OfferMime advertises one MIME type.
type OfferMime struct {
	MimeType string
}

// OfferSourceActions is the action mask the source allows.
type OfferSourceActions struct {
	Actions wlproto.DndAction
}

// OfferAction is the action the compositor selected.
type OfferAction struct {
	Action wlproto.DndAction
}

func (OfferMime) isOfferEvent()          {}
func (OfferSourceActions) isOfferEvent() {}
func (OfferAction) isOfferEvent()        {}

// SourceEvent is a wl_data_source event.
type SourceEvent interface {
	isSourceEvent()
}

// Send asks for the payload in MimeType to be written to Fd. The receiver
// owns Fd and must close it.
type Send struct {
	MimeType string
	Fd       int
}

type Cancelled struct{}

// Action is the action the compositor negotiated for a drag.
type Action struct {
	Action wlproto.DndAction
}

type DropPerformed struct{}

type Finished struct{}

// Target is the MIME type the drop target accepted, empty when none.
type Target struct {
	MimeType string
}

func (Send) isSourceEvent()          {}
func (Cancelled) isSourceEvent()     {}
func (Action) isSourceEvent()        {}
func (DropPerformed) isSourceEvent() {}
func (Finished) isSourceEvent()      {}
func (Target) isSourceEvent()        {}
