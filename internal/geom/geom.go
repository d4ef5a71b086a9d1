// Package geom holds the integer pixel geometry shared by screens and windows.
package geom

import "fmt"

// Point is a position in the global compositor space, in pixels.
type Point struct {
	X int32
	Y int32
}

func (p Point) String() string {
	return fmt.Sprintf("%d,%d", p.X, p.Y)
}

// Size is a width and height in pixels.
type Size struct {
	Width  int32
	Height int32
}

// Empty reports whether either dimension is zero or negative.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Scale multiplies both dimensions, truncating toward zero.
func (s Size) Scale(factor float64) Size {
	return Size{Width: int32(float64(s.Width) * factor), Height: int32(float64(s.Height) * factor)}
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Rect is an axis-aligned rectangle. Max is exclusive.
type Rect struct {
	Min  Point
	Size Size
}

// R builds a rectangle from a position and a size.
func R(x, y, w, h int32) Rect {
	return Rect{Min: Point{X: x, Y: y}, Size: Size{Width: w, Height: h}}
}

// Bounds returns the rectangle's corners, the second one exclusive.
func (r Rect) Bounds() (x1, y1, x2, y2 int32) {
	return r.Min.X, r.Min.Y, r.Min.X + r.Size.Width, r.Min.Y + r.Size.Height
}

// Empty reports whether the rectangle covers no pixel.
func (r Rect) Empty() bool {
	return r.Size.Empty()
}

// Contains checks if a point is within the rectangle
func (r Rect) Contains(p Point) bool {
	x1, y1, x2, y2 := r.Bounds()
	return p.X >= x1 && p.X < x2 && p.Y >= y1 && p.Y < y2
}

// Intersect returns the overlapping part of two rectangles, or an empty
// rectangle when they do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	ax1, ay1, ax2, ay2 := r.Bounds()
	bx1, by1, bx2, by2 := o.Bounds()
	x1, y1 := max(ax1, bx1), max(ay1, by1)
	x2, y2 := min(ax2, bx2), min(ay2, by2)
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return R(x1, y1, x2-x1, y2-y1)
}

// Area returns the number of pixels covered, as int64 to avoid overflow on
// large virtual desktops.
func (r Rect) Area() int64 {
	if r.Empty() {
		return 0
	}
	return int64(r.Size.Width) * int64(r.Size.Height)
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", r.Min.X, r.Min.Y, r.Size.Width, r.Size.Height)
}
