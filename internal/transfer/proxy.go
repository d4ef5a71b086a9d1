package transfer

import (
	"github.com/bnema/wayplat/internal/input"
	"github.com/bnema/wayplat/internal/screens"
	"github.com/bnema/wayplat/internal/wlproto"
)

// OfferProxy is the wl_data_offer requests.
type OfferProxy interface {
	// Accept accepts a MIME type for the drag at serial. An empty type
	// means no format is acceptable.
	Accept(serial uint32, mimeType string) error
	SetActions(actions, preferred wlproto.DndAction) error
	// Receive asks the source to write mimeType into fd. The caller keeps
	// ownership of fd.
	Receive(mimeType string, fd int) error
	Finish() error
	Destroy() error
}

// SourceProxy is the wl_data_source requests.
type SourceProxy interface {
	Offer(mimeType string) error
	SetActions(actions wlproto.DndAction) error
	Destroy() error
}

// DeviceProxy is the wl_data_device and wl_data_device_manager requests.
type DeviceProxy interface {
	// CreateSource creates a data source whose events go to handle.
	CreateSource(handle func(SourceEvent)) (SourceProxy, error)
	// SetSelection makes src the clipboard. A nil src clears it.
	SetSelection(src SourceProxy, serial uint32) error
	StartDrag(src SourceProxy, origin wlproto.SurfaceID, serial uint32) error
}

// DropTarget is a window that can receive drag records.
type DropTarget interface {
	screens.Window
	InputRoot() input.Root
	DispatchInput(ev *input.DragEvent)
}
