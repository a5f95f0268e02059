package layout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func onlyY(y float64) Vertex { return Vertex{Y: &y} }
func onlyX(x float64) Vertex { return Vertex{X: &x} }

func TestBounds(t *testing.T) {
	tests := []struct {
		name     string
		vertices []Vertex
		want     Rect
	}{
		{"rectangle", box(5, 10, 25, 50), Rect{X: 5, Y: 10, Width: 20, Height: 40}},
		{"empty", nil, Rect{}},
		{"missing x on one vertex", []Vertex{onlyY(0), V(10, 0), V(10, 20), V(4, 20)}, Rect{X: 4, Y: 0, Width: 6, Height: 20}},
		{"no y at all", []Vertex{onlyX(3), onlyX(9)}, Rect{X: 3, Width: 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Bounds(tt.vertices))
		})
	}
}

func TestOrient(t *testing.T) {
	tests := []struct {
		name        string
		vertices    []Vertex
		angle       float64
		orientation Orientation
	}{
		{"wide rectangle", box(0, 0, 100, 50), 0, Horizontal},
		{"tall rectangle", box(0, 0, 50, 100), -90, Vertical},
		{"square-ish rectangle", box(0, 0, 70, 65), 0, Diagonal},
		{"rotated quad", []Vertex{V(0, 20), V(50, 0), V(70, 45), V(20, 65)}, math.Atan2(-20, 50) * 180 / math.Pi, Diagonal},
		{"rotated quad walked backwards", []Vertex{V(50, 0), V(0, 20), V(20, 65), V(70, 45)}, math.Atan2(20, -50)*180/math.Pi - 180, Diagonal},
		{"degenerate", []Vertex{V(0, 0), V(3, 3)}, 0, Diagonal},
		{"no vertices", nil, 0, Diagonal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			angle, orientation := Orient(tt.vertices)
			assert.Equal(t, tt.orientation, orientation)
			assert.InDelta(t, tt.angle, angle, 1e-9)
			assert.GreaterOrEqual(t, angle, -90.0)
			assert.LessOrEqual(t, angle, 90.0)
		})
	}
}

func TestRawAngle(t *testing.T) {
	t.Run("ties keep the first edge", func(t *testing.T) {
		// top and bottom edges have equal length; the top edge comes first
		assert.InDelta(t, 0, RawAngle(box(0, 0, 10, 4)), 1e-9)
	})

	t.Run("skips incomplete vertices", func(t *testing.T) {
		vertices := []Vertex{onlyX(100), V(0, 0), V(0, 10), V(2, 10), V(2, 0)}
		assert.InDelta(t, 90, RawAngle(vertices), 1e-9)
	})

	t.Run("uses only the first four complete vertices", func(t *testing.T) {
		vertices := append(box(0, 0, 10, 2), V(500, 500))
		assert.InDelta(t, 0, RawAngle(vertices), 1e-9)
	})

	t.Run("fewer than four complete vertices", func(t *testing.T) {
		vertices := []Vertex{V(0, 0), V(10, 0), V(10, 10), onlyY(10)}
		assert.Equal(t, 0.0, RawAngle(vertices))
	})
}

func TestNormalizeAngle(t *testing.T) {
	assert.Equal(t, 0.0, NormalizeAngle(180))
	assert.Equal(t, -90.0, NormalizeAngle(-90))
	assert.Equal(t, 90.0, NormalizeAngle(90))
	assert.Equal(t, 80.0, NormalizeAngle(-100))
	assert.Equal(t, -80.0, NormalizeAngle(100))
}

func TestSymbolHeight(t *testing.T) {
	tests := []struct {
		name     string
		polygons [][]Vertex
		want     int
	}{
		{"single symbol", [][]Vertex{box(0, 0, 10, 20)}, 18},
		{"mean of symbols floored", [][]Vertex{box(0, 0, 10, 15), box(0, 0, 10, 16)}, 13},
		{"no polygons", nil, 20},
		{"polygons without enough points", [][]Vertex{{V(0, 0)}, {onlyY(0), onlyY(40)}}, 20},
		{"incomplete polygon ignored", [][]Vertex{{V(0, 0)}, box(0, 0, 5, 30)}, 27},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SymbolHeight(tt.polygons))
		})
	}
}

func TestLineFontSize(t *testing.T) {
	tests := []struct {
		name        string
		polygons    [][]Vertex
		orientation Orientation
		want        int
	}{
		{"horizontal", [][]Vertex{box(0, 0, 10, 40)}, Horizontal, 36},
		{"vertical scaled", [][]Vertex{box(0, 0, 10, 40)}, Vertical, 30},
		{"tiny glyphs floored", [][]Vertex{box(0, 0, 2, 3)}, Horizontal, 12},
		{"tiny vertical glyphs stay at floor", [][]Vertex{box(0, 0, 2, 3)}, Vertical, 12},
		{"default height", nil, Diagonal, 20},
		{"default height vertical", nil, Vertical, 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LineFontSize(tt.polygons, tt.orientation)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 12)
		})
	}
}

func TestManualFontSize(t *testing.T) {
	assert.Equal(t, 12, ManualFontSize(0))
	assert.Equal(t, 12, ManualFontSize(13))
	assert.Equal(t, 27, ManualFontSize(30))
	assert.Equal(t, 23, ManualFontSize(25))
}
