package wayland

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bnema/wayplat/internal/input"
	"github.com/bnema/wayplat/internal/wlproto"
)

func TestModifiersFromXkb(t *testing.T) {
	assert.Equal(t, input.Modifiers(0), modifiersFromXkb(0, 0, 0))
	assert.Equal(t, input.ModControl, modifiersFromXkb(xkbControl, 0, 0))
	assert.Equal(t, input.ModShift|input.ModAlt, modifiersFromXkb(xkbShift, xkbAlt, 0))
	assert.Equal(t, input.ModMeta, modifiersFromXkb(0, 0, xkbSuper))
}

func TestFill(t *testing.T) {
	data := make([]byte, 10)
	fill(data, 0xff112233)
	assert.Equal(t, []byte{0x33, 0x22, 0x11, 0xff, 0x33, 0x22, 0x11, 0xff, 0, 0}, data)
}

func TestCursorRecorded(t *testing.T) {
	c := &Client{}
	c.SetCursor(input.CursorDragMove)
	assert.Equal(t, input.CursorDragMove, c.Cursor())

	c.mods = input.ModControl
	assert.Equal(t, input.ModControl, c.Modifiers())
}

func TestKeyboardFocusHooks(t *testing.T) {
	c := &Client{}
	var got []wlproto.SurfaceID
	c.OnKeyboardFocus(func(id wlproto.SurfaceID) { got = append(got, id) })
	c.OnKeyboardFocus(func(id wlproto.SurfaceID) { got = append(got, id+100) })

	c.notifyFocus(7)
	c.notifyFocus(0)
	assert.Equal(t, []wlproto.SurfaceID{7, 107, 0, 100}, got)
}
