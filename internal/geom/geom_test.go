package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectContains(t *testing.T) {
	r := R(0, 0, 1920, 1080)

	assert.True(t, r.Contains(Point{100, 100}))
	assert.True(t, r.Contains(Point{0, 0}))
	assert.False(t, r.Contains(Point{1920, 0}), "max edge is exclusive")
	assert.False(t, r.Contains(Point{-10, -10}))
}

func TestRectIntersect(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want Rect
		area int64
	}{
		{"disjoint", R(0, 0, 10, 10), R(20, 20, 5, 5), Rect{}, 0},
		{"touching edges", R(0, 0, 10, 10), R(10, 0, 10, 10), Rect{}, 0},
		{"partial", R(0, 0, 10, 10), R(5, 5, 10, 10), R(5, 5, 5, 5), 25},
		{"contained", R(0, 0, 100, 100), R(10, 10, 5, 5), R(10, 10, 5, 5), 25},
		{"negative origin", R(-1920, 0, 1920, 1080), R(-100, 0, 200, 100), R(-100, 0, 100, 100), 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.Intersect(tt.b)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.area, got.Area())
			assert.Equal(t, got, tt.b.Intersect(tt.a), "intersection is symmetric")
		})
	}
}

func TestSizeScale(t *testing.T) {
	assert.Equal(t, Size{1440, 810}, Size{1920, 1080}.Scale(0.75))
	assert.Equal(t, Size{3840, 2160}, Size{1920, 1080}.Scale(2))
	assert.True(t, Size{0, 10}.Empty())
	assert.False(t, Size{1, 1}.Empty())
}
