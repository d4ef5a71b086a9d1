package wayland

import (
	"github.com/rajveermalviya/go-wayland/wayland/client"
	"golang.org/x/sys/unix"

	"github.com/bnema/wayplat/internal/input"
	"github.com/bnema/wayplat/internal/logger"
	"github.com/bnema/wayplat/internal/window"
	"github.com/bnema/wayplat/internal/wlproto"
)

// wl_seat capability bits.
const (
	seatCapPointer  = 1
	seatCapKeyboard = 2
)

// xkb modifier masks for the default keymap.
const (
	xkbShift   = 1 << 0
	xkbControl = 1 << 2
	xkbAlt     = 1 << 3
	xkbSuper   = 1 << 6

	// Caps Lock and Num Lock do not count as held modifiers.
	xkbLockKeys = 1<<1 | 1<<4
)

const pressed = 1

// Events whose surface argument is resolved by hand.
const (
	keyboardEnter = 1
	keyboardLeave = 2
	pointerEnter  = 0
	pointerLeave  = 1
)

func modifiersFromXkb(depressed, latched, locked uint32) input.Modifiers {
	mask := depressed | latched | locked
	var m input.Modifiers
	if mask&xkbShift != 0 {
		m |= input.ModShift
	}
	if mask&xkbControl != 0 {
		m |= input.ModControl
	}
	if mask&xkbAlt != 0 {
		m |= input.ModAlt
	}
	if mask&xkbSuper != 0 {
		m |= input.ModMeta
	}
	return m
}

func (c *Client) routeSeat(seat *client.Seat) {
	seat.SetCapabilitiesHandler(func(e client.SeatCapabilitiesEvent) {
		if e.Capabilities&seatCapKeyboard != 0 && c.keyboard == nil {
			if kb, err := seat.GetKeyboard(); err != nil {
				logger.Warnf("Failed to get keyboard: %v", err)
			} else {
				c.keyboard = kb
				c.routeKeyboard(kb)
			}
		}
		if e.Capabilities&seatCapPointer != 0 && c.pointer == nil {
			if p, err := seat.GetPointer(); err != nil {
				logger.Warnf("Failed to get pointer: %v", err)
			} else {
				c.pointer = p
				c.routePointer(p)
			}
		}
	})
	seat.SetNameHandler(func(e client.SeatNameEvent) {
		logger.Debugf("Seat %q", e.Name)
	})
}

func (c *Client) routeKeyboard(kb *client.Keyboard) {
	kb.SetKeymapHandler(func(e client.KeyboardKeymapEvent) {
		// The keymap itself is unused; the descriptor still has to go.
		unix.Close(e.Fd)
	})
	kb.SetModifiersHandler(func(e client.KeyboardModifiersEvent) {
		c.mods = modifiersFromXkb(e.ModsDepressed, e.ModsLatched, e.ModsLocked&^xkbLockKeys)
	})
	kb.SetKeyHandler(func(e client.KeyboardKeyEvent) {
		if e.State == pressed {
			c.serials.Record(input.SerialUserAction, e.Serial)
		}
	})
	c.route(kb.ID(), &eventFilter{next: kb, ops: map[uint32]func(*wireReader){
		keyboardEnter: func(r *wireReader) {
			serial := r.u32()
			surface := r.object()
			r.array()
			if !r.ok("wl_keyboard.enter") {
				return
			}
			c.serials.Record(input.SerialKeyboardEnter, serial)
			c.setKeyboardFocus(wlproto.SurfaceID(surface))
		},
		keyboardLeave: func(r *wireReader) {
			c.serials.Forget(input.SerialKeyboardEnter)
			c.mods = 0
			c.setKeyboardFocus(0)
		},
	}})
}

// setKeyboardFocus moves keyboard focus to id, zero meaning none, and tells
// the windows losing and gaining it.
func (c *Client) setKeyboardFocus(id wlproto.SurfaceID) {
	if prev := c.focused; prev != id {
		if s, ok := c.surfaces[prev]; ok {
			s.handle(window.KeyboardFocus{Focused: false})
		}
	}
	c.focused = id
	c.screens.SetActiveWindow(id)
	if s, ok := c.surfaces[id]; ok {
		s.handle(window.KeyboardFocus{Focused: true})
	}
	c.notifyFocus(id)
}

func (c *Client) routePointer(p *client.Pointer) {
	c.route(p.ID(), &eventFilter{next: p, ops: map[uint32]func(*wireReader){
		pointerEnter: func(r *wireReader) {
			serial := r.u32()
			if r.ok("wl_pointer.enter") {
				c.serials.Record(input.SerialPointerEnter, serial)
			}
		},
		pointerLeave: func(r *wireReader) {
			c.serials.Forget(input.SerialPointerEnter)
		},
	}})
	p.SetButtonHandler(func(e client.PointerButtonEvent) {
		if e.State == pressed {
			c.serials.Record(input.SerialUserAction, e.Serial)
		}
	})
}
