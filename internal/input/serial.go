package input

// SerialKind is the purpose a compositor serial was issued for.
type SerialKind int

const (
	// SerialAny is the most recent serial of any input event.
	SerialAny SerialKind = iota
	// SerialKeyboardEnter is needed to set the selection.
	SerialKeyboardEnter
	// SerialPointerEnter is needed to set the cursor.
	SerialPointerEnter
	// SerialUserAction is the last button or key press, needed to start a
	// drag or request activation.
	SerialUserAction
	serialKinds
)

// SerialTracker remembers the most recent serial per purpose. Serials are
// only ever replaced, so a stale one is never handed out once a newer one of
// the same kind arrived.
type SerialTracker struct {
	serials [serialKinds]uint32
}

// Record stores serial for kind and as the latest serial overall.
func (t *SerialTracker) Record(kind SerialKind, serial uint32) {
	if kind < 0 || kind >= serialKinds {
		return
	}
	t.serials[kind] = serial
	t.serials[SerialAny] = serial
}

// Get returns the latest serial of a kind, zero when none was seen.
func (t *SerialTracker) Get(kind SerialKind) uint32 {
	if kind < 0 || kind >= serialKinds {
		return 0
	}
	return t.serials[kind]
}

// Forget drops a serial, e.g. when keyboard focus leaves.
func (t *SerialTracker) Forget(kind SerialKind) {
	if kind <= SerialAny || kind >= serialKinds {
		return
	}
	t.serials[kind] = 0
}
