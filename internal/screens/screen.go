// Package screens maintains one entry per physical display and the index of
// windows living on them.
package screens

import (
	"fmt"

	"github.com/bnema/wayplat/internal/geom"
	"github.com/bnema/wayplat/internal/wlproto"
)

// Screen is a committed, immutable description of one output.
type Screen struct {
	Output      wlproto.OutputID
	Name        string
	Description string
	Bounds      geom.Rect // Position in global coordinate space and pixel size
	WorkingArea geom.Rect
	Scale       float64
	Primary     bool
}

// PixelDensity is the number of physical pixels per logical pixel.
func (s Screen) PixelDensity() float64 {
	return s.Scale
}

// Contains checks if a point is within this screen
func (s Screen) Contains(p geom.Point) bool {
	return s.Bounds.Contains(p)
}

// LogicalSize is the screen size in device-independent units.
func (s Screen) LogicalSize() geom.Size {
	if s.Scale <= 0 {
		return s.Bounds.Size
	}
	return s.Bounds.Size.Scale(1 / s.Scale)
}

func (s Screen) String() string {
	name := s.Name
	if name == "" {
		name = fmt.Sprintf("output-%d", s.Output)
	}
	return fmt.Sprintf("%s %s @%.2gx", name, s.Bounds, s.Scale)
}
