// Package wlproto holds the wire-level identifiers and enums the protocol
// state machines share. Objects refer to each other through these plain ids,
// resolved by whichever registry owns the object, never through pointers.
package wlproto

// ObjectID is the protocol object id assigned on the wire.
type ObjectID uint32

// OutputID identifies a bound wl_output.
type OutputID ObjectID

// SurfaceID identifies a wl_surface.
type SurfaceID ObjectID

// OfferID identifies a wl_data_offer. Zero means "no offer".
type OfferID ObjectID

// Interface names of the globals the platform binds.
const (
	CompositorInterface        = "wl_compositor"
	ShmInterface               = "wl_shm"
	SeatInterface              = "wl_seat"
	OutputInterface            = "wl_output"
	DataDeviceManagerInterface = "wl_data_device_manager"
	XdgWmBaseInterface         = "xdg_wm_base"
	XdgActivationInterface     = "xdg_activation_v1"
)

// OutputModeCurrent is the wl_output.mode flag marking the mode in use.
const OutputModeCurrent uint32 = 0x1

// DndAction is the wl_data_device_manager.dnd_action bitmask.
type DndAction uint32

const (
	DndActionNone DndAction = 0
	DndActionCopy DndAction = 1
	DndActionMove DndAction = 2
	DndActionAsk  DndAction = 4
)

// Has reports whether every bit of flag is set.
func (a DndAction) Has(flag DndAction) bool {
	return a&flag == flag
}

func (a DndAction) String() string {
	switch a {
	case DndActionNone:
		return "none"
	case DndActionCopy:
		return "copy"
	case DndActionMove:
		return "move"
	case DndActionAsk:
		return "ask"
	case DndActionCopy | DndActionMove:
		return "copy|move"
	default:
		return "mixed"
	}
}

// MIME types used for clipboard and drag-and-drop payloads.
const (
	MimeText     = "text/plain"
	MimeTextUTF8 = "text/plain;charset=utf-8"
	MimeURIList  = "text/uri-list"
)
