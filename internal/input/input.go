// Package input defines what the platform layer hands to the toolkit's input
// pipeline: synthesized drag records, modifier state and the data objects
// carried by clipboard and drag-and-drop.
package input

import (
	"strings"

	"github.com/bnema/wayplat/internal/geom"
)

// Modifiers is the keyboard modifier state attached to input records.
type Modifiers uint32

const (
	ModShift Modifiers = 1 << iota
	ModControl
	ModAlt
	ModMeta
)

// Has reports whether every modifier in m is held.
func (m Modifiers) Has(mod Modifiers) bool {
	return m&mod == mod
}

func (m Modifiers) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	for _, it := range []struct {
		mod  Modifiers
		name string
	}{{ModShift, "shift"}, {ModControl, "ctrl"}, {ModAlt, "alt"}, {ModMeta, "meta"}} {
		if m.Has(it.mod) {
			parts = append(parts, it.name)
		}
	}
	return strings.Join(parts, "+")
}

// DragEffects is the toolkit's drag-and-drop effect set.
type DragEffects uint32

const (
	EffectNone DragEffects = 0
	EffectCopy DragEffects = 1 << (iota - 1)
	EffectMove
	EffectLink
)

// Has reports whether every effect in e is allowed.
func (e DragEffects) Has(effect DragEffects) bool {
	return e&effect == effect
}

func (e DragEffects) String() string {
	if e == EffectNone {
		return "none"
	}
	var parts []string
	if e.Has(EffectCopy) {
		parts = append(parts, "copy")
	}
	if e.Has(EffectMove) {
		parts = append(parts, "move")
	}
	if e.Has(EffectLink) {
		parts = append(parts, "link")
	}
	return strings.Join(parts, "|")
}

// Root is the toolkit object receiving input for a window. The platform
// never inspects it.
type Root interface{}

// DragEventType orders the records of one drag gesture.
type DragEventType int

const (
	DragEnter DragEventType = iota
	DragOver
	DragLeave
	Drop
)

func (t DragEventType) String() string {
	switch t {
	case DragEnter:
		return "drag-enter"
	case DragOver:
		return "drag-over"
	case DragLeave:
		return "drag-leave"
	case Drop:
		return "drop"
	default:
		return "unknown"
	}
}

// DragDevice names the synthetic device drag records come from.
const DragDevice = "wayland-dnd"

// DragEvent is one synthesized drag record. The receiver may narrow Effects
// to what it accepts; the platform reads the field back after dispatch.
type DragEvent struct {
	Device    string
	Type      DragEventType
	Root      Root
	Position  geom.Point
	Data      DataObject
	Effects   DragEffects
	Modifiers Modifiers
}

// Sink receives synthesized records. Records of one gesture always reach the
// same sink in enter, over, drop order.
type Sink func(ev *DragEvent)

// CursorKind is the pointer shape shown while dragging.
type CursorKind int

const (
	CursorDefault CursorKind = iota
	CursorDragCopy
	CursorDragMove
)

func (c CursorKind) String() string {
	switch c {
	case CursorDragCopy:
		return "dnd-copy"
	case CursorDragMove:
		return "dnd-move"
	default:
		return "default"
	}
}

// CursorSetter changes the pointer shape.
type CursorSetter interface {
	SetCursor(kind CursorKind)
}

// ModifierSource reports the modifier state at the time of the call.
type ModifierSource interface {
	Modifiers() Modifiers
}
