package window

import "github.com/bnema/wayplat/internal/wlproto"

// Event is anything the compositor sends to a window's surface, shell role
// or frame callback.
type Event interface {
	isWindowEvent()
}

// Configure is xdg_surface.configure.
type Configure struct {
	Serial uint32
}

// ToplevelConfigure is xdg_toplevel.configure. A zero width or height leaves
// the size to the client.
type ToplevelConfigure struct {
	Width, Height int32
}

// ToplevelClose is xdg_toplevel.close.
type ToplevelClose struct{}

// FrameDone is wl_callback.done for the outstanding frame request.
type FrameDone struct {
	Time uint32
}

// Enter is wl_surface.enter.
type Enter struct {
	Output wlproto.OutputID
}

// Leave is wl_surface.leave.
type Leave struct {
	Output wlproto.OutputID
}

// KeyboardFocus is wl_keyboard.enter or leave on the window's surface.
type KeyboardFocus struct {
	Focused bool
}

func (Configure) isWindowEvent()         {}
func (ToplevelConfigure) isWindowEvent() {}
func (ToplevelClose) isWindowEvent()     {}
func (FrameDone) isWindowEvent()         {}
func (Enter) isWindowEvent()             {}
func (Leave) isWindowEvent()             {}
func (KeyboardFocus) isWindowEvent()     {}
