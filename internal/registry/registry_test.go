package registry

import (
	"errors"
	"testing"

	"github.com/bnema/wayplat/internal/wlproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBinder struct {
	next     wlproto.ObjectID
	bound    []Global
	versions []uint32
	released []wlproto.ObjectID
	fail     error
}

func (b *fakeBinder) Bind(g Global, version uint32) (wlproto.ObjectID, error) {
	if b.fail != nil {
		return 0, b.fail
	}
	b.next++
	b.bound = append(b.bound, g)
	b.versions = append(b.versions, version)
	return b.next + 100, nil
}

func (b *fakeBinder) Release(id wlproto.ObjectID, iface string) {
	b.released = append(b.released, id)
}

func advertise(t *Tracker, globals ...Global) {
	for _, g := range globals {
		t.Handle(GlobalAdded{Global: g})
	}
}

func TestTrackerNotifications(t *testing.T) {
	tr := NewTracker(&fakeBinder{})

	var added, removed []string
	tr.OnAdded(func(g Global) { added = append(added, g.Interface) })
	tr.OnRemoved(func(g Global) { removed = append(removed, g.Interface) })

	advertise(tr,
		Global{Name: 1, Interface: "wl_compositor", Version: 5},
		Global{Name: 2, Interface: "wl_output", Version: 4},
		Global{Name: 3, Interface: "wl_output", Version: 4},
	)
	tr.Handle(GlobalRemoved{Name: 2})
	tr.Handle(GlobalRemoved{Name: 42}) // unknown names are ignored

	assert.Equal(t, []string{"wl_compositor", "wl_output", "wl_output"}, added)
	assert.Equal(t, []string{"wl_output"}, removed)

	globals := tr.Globals()
	require.Len(t, globals, 2)
	assert.Equal(t, uint32(1), globals[0].Name)
	assert.Equal(t, uint32(3), globals[1].Name)
}

func TestBind(t *testing.T) {
	b := &fakeBinder{}
	tr := NewTracker(b)
	advertise(tr,
		Global{Name: 1, Interface: "wl_compositor", Version: 5},
		Global{Name: 7, Interface: "xdg_wm_base", Version: 2},
	)

	t.Run("advertised interface", func(t *testing.T) {
		h, err := tr.Bind("wl_compositor", 4)
		require.NoError(t, err)
		assert.Equal(t, uint32(1), h.Global.Name)
		assert.Equal(t, uint32(4), h.Version)
		assert.NotZero(t, h.ID)
	})

	t.Run("never advertised", func(t *testing.T) {
		_, err := tr.Bind("wl_data_device_manager", 3)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingCapability))

		var capErr *CapabilityError
		require.True(t, errors.As(err, &capErr))
		assert.Equal(t, uint32(0), capErr.Advertised)
	})

	t.Run("advertised below minimum", func(t *testing.T) {
		_, err := tr.Bind("xdg_wm_base", 3)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingCapability))
		assert.Contains(t, err.Error(), "advertised version 2, need 3")
	})

	t.Run("optional degrades", func(t *testing.T) {
		_, ok := tr.BindOptional("zwp_pointer_gestures_v1", 1)
		assert.False(t, ok)
	})

	t.Run("binder failure is not a missing capability", func(t *testing.T) {
		failing := NewTracker(&fakeBinder{fail: errors.New("broken pipe")})
		advertise(failing, Global{Name: 1, Interface: "wl_seat", Version: 7})
		_, err := failing.Bind("wl_seat", 5)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrMissingCapability))
	})
}

func TestBindUpTo(t *testing.T) {
	b := &fakeBinder{}
	tr := NewTracker(b)
	old := Global{Name: 1, Interface: "wl_output", Version: 2}
	recent := Global{Name: 2, Interface: "wl_output", Version: 9}
	advertise(tr, old, recent)

	_, err := tr.BindUpTo(old, 2, 4)
	require.NoError(t, err)
	_, err = tr.BindUpTo(recent, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 4}, b.versions)

	_, err = tr.BindUpTo(Global{Name: 1, Interface: "wl_output", Version: 1}, 2, 4)
	assert.True(t, errors.Is(err, ErrMissingCapability))
}

func TestRelease(t *testing.T) {
	b := &fakeBinder{}
	tr := NewTracker(b)
	advertise(tr, Global{Name: 1, Interface: "wl_output", Version: 4})

	h, err := tr.Bind("wl_output", 3)
	require.NoError(t, err)
	tr.Release(h)
	tr.Release(Handle{})

	assert.Equal(t, []wlproto.ObjectID{h.ID}, b.released)
}
