// Package registry tracks the globals a compositor advertises and binds them
// on request.
//
// Capability availability is fixed for the life of a connection, except for
// hot-pluggable globals such as outputs, so binding never retries: a missing
// or too-old interface fails with ErrMissingCapability and the caller decides
// whether that is fatal.
package registry

import (
	"errors"
	"fmt"

	"github.com/bnema/wayplat/internal/logger"
	"github.com/bnema/wayplat/internal/wlproto"
)

// ErrMissingCapability is returned when a required interface was never
// advertised, or only at a version below the one requested.
var ErrMissingCapability = errors.New("missing capability")

// CapabilityError carries the details of a failed bind.
type CapabilityError struct {
	Interface  string
	Want       uint32
	Advertised uint32 // zero when the interface was never advertised
}

func (e *CapabilityError) Error() string {
	if e.Advertised == 0 {
		return fmt.Sprintf("%s: not advertised by the compositor", e.Interface)
	}
	return fmt.Sprintf("%s: advertised version %d, need %d", e.Interface, e.Advertised, e.Want)
}

func (e *CapabilityError) Unwrap() error {
	return ErrMissingCapability
}

// Global is one advertised compositor capability.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Handle is a bound global.
type Handle struct {
	Global  Global
	ID      wlproto.ObjectID
	Version uint32
}

// Binder performs the wire-level bind and destroy requests.
type Binder interface {
	Bind(g Global, version uint32) (wlproto.ObjectID, error)
	Release(id wlproto.ObjectID, iface string)
}

// GlobalEvent is a wl_registry event.
type GlobalEvent interface {
	isGlobalEvent()
}

// GlobalAdded is wl_registry.global.
type GlobalAdded struct {
	Global Global
}

// GlobalRemoved is wl_registry.global_remove.
type GlobalRemoved struct {
	Name uint32
}

func (GlobalAdded) isGlobalEvent()   {}
func (GlobalRemoved) isGlobalEvent() {}

// Tracker keeps the advertised globals in advertisement order.
type Tracker struct {
	binder  Binder
	globals map[uint32]Global
	order   []uint32

	onAdded   []func(Global)
	onRemoved []func(Global)
}

// NewTracker creates a tracker binding through b.
func NewTracker(b Binder) *Tracker {
	return &Tracker{
		binder:  b,
		globals: make(map[uint32]Global),
	}
}

// OnAdded subscribes to new globals. Subscribers run in subscription order.
func (t *Tracker) OnAdded(fn func(Global)) {
	t.onAdded = append(t.onAdded, fn)
}

// OnRemoved subscribes to removed globals.
func (t *Tracker) OnRemoved(fn func(Global)) {
	t.onRemoved = append(t.onRemoved, fn)
}

// Handle applies a registry event.
func (t *Tracker) Handle(ev GlobalEvent) {
	switch e := ev.(type) {
	case GlobalAdded:
		t.add(e.Global)
	case GlobalRemoved:
		t.remove(e.Name)
	}
}

func (t *Tracker) add(g Global) {
	if _, exists := t.globals[g.Name]; exists {
		logger.Debugf("registry: duplicate global %d (%s), replacing", g.Name, g.Interface)
	} else {
		t.order = append(t.order, g.Name)
	}
	t.globals[g.Name] = g
	logger.Debugf("registry: global %d %s v%d", g.Name, g.Interface, g.Version)

	for _, fn := range t.onAdded {
		fn(g)
	}
}

func (t *Tracker) remove(name uint32) {
	g, ok := t.globals[name]
	if !ok {
		return
	}
	delete(t.globals, name)
	for i, n := range t.order {
		if n == name {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	logger.Debugf("registry: global %d %s removed", g.Name, g.Interface)

	for _, fn := range t.onRemoved {
		fn(g)
	}
}

// Globals returns every advertised global in advertisement order.
func (t *Tracker) Globals() []Global {
	out := make([]Global, 0, len(t.order))
	for _, n := range t.order {
		out = append(out, t.globals[n])
	}
	return out
}

// Lookup returns the first advertised global implementing iface.
func (t *Tracker) Lookup(iface string) (Global, bool) {
	for _, n := range t.order {
		if g := t.globals[n]; g.Interface == iface {
			return g, true
		}
	}
	return Global{}, false
}

// Bind binds the first global implementing iface at exactly version.
// It fails with ErrMissingCapability when no such global exists at that
// version or higher.
func (t *Tracker) Bind(iface string, version uint32) (Handle, error) {
	g, ok := t.Lookup(iface)
	if !ok {
		return Handle{}, &CapabilityError{Interface: iface, Want: version}
	}
	return t.BindGlobal(g, version)
}

// BindOptional binds iface when available and logs the degradation otherwise.
func (t *Tracker) BindOptional(iface string, version uint32) (Handle, bool) {
	h, err := t.Bind(iface, version)
	if err != nil {
		if errors.Is(err, ErrMissingCapability) {
			logger.Infof("Optional capability unavailable, feature disabled: %v", err)
		} else {
			logger.Warnf("Failed to bind optional %s: %v", iface, err)
		}
		return Handle{}, false
	}
	return h, true
}

// BindGlobal binds a specific advertised global.
func (t *Tracker) BindGlobal(g Global, version uint32) (Handle, error) {
	if _, ok := t.globals[g.Name]; !ok {
		return Handle{}, &CapabilityError{Interface: g.Interface, Want: version}
	}
	if g.Version < version {
		return Handle{}, &CapabilityError{Interface: g.Interface, Want: version, Advertised: g.Version}
	}
	id, err := t.binder.Bind(g, version)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to bind %s: %w", g.Interface, err)
	}
	return Handle{Global: g, ID: id, Version: version}, nil
}

// BindUpTo binds g at the highest version both sides support, but never
// below minVersion.
func (t *Tracker) BindUpTo(g Global, minVersion, maxVersion uint32) (Handle, error) {
	return t.BindGlobal(g, max(minVersion, min(g.Version, maxVersion)))
}

// Release destroys a bound object.
func (t *Tracker) Release(h Handle) {
	if h.ID == 0 {
		return
	}
	t.binder.Release(h.ID, h.Global.Interface)
}
