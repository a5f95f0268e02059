package layout

import "math"

// Orientation is the dominant writing direction of a line.
type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
	Diagonal   Orientation = "diagonal"
)

const (
	aspectThreshold     = 1.3
	fontScale           = 0.9
	verticalFontScale   = 0.85
	defaultSymbolHeight = 20
	minFontSize         = 12
)

// Rect is an axis-aligned box in source image pixels.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Bounds returns the axis-aligned bounding box of the vertices. Each axis
// only considers vertices where that coordinate is present; an axis with no
// values collapses to 0.
func Bounds(vertices []Vertex) Rect {
	minX, maxX, okX := extent(vertices, func(v Vertex) *float64 { return v.X })
	minY, maxY, okY := extent(vertices, func(v Vertex) *float64 { return v.Y })
	var r Rect
	if okX {
		r.X, r.Width = minX, maxX-minX
	}
	if okY {
		r.Y, r.Height = minY, maxY-minY
	}
	return r
}

func extent(vertices []Vertex, coord func(Vertex) *float64) (lo, hi float64, ok bool) {
	for _, v := range vertices {
		c := coord(v)
		if c == nil {
			continue
		}
		if !ok {
			lo, hi, ok = *c, *c, true
			continue
		}
		lo = math.Min(lo, *c)
		hi = math.Max(hi, *c)
	}
	return lo, hi, ok
}

// Orient classifies the polygon and returns the rotation angle in degrees
// used to render it.
func Orient(vertices []Vertex) (float64, Orientation) {
	r := Bounds(vertices)
	switch {
	case r.Width > r.Height*aspectThreshold:
		return 0, Horizontal
	case r.Height > r.Width*aspectThreshold:
		return -90, Vertical
	}
	return NormalizeAngle(RawAngle(vertices)), Diagonal
}

// RawAngle returns the direction, in degrees, of the longest edge of the
// quadrilateral formed by the first four complete vertices. Polygons with
// fewer than four complete vertices have angle 0.
func RawAngle(vertices []Vertex) float64 {
	pts := make([]Point, 0, 4)
	for _, v := range vertices {
		if p, ok := v.Point(); ok {
			pts = append(pts, p)
		}
		if len(pts) == 4 {
			break
		}
	}
	if len(pts) < 4 {
		return 0
	}

	var from, to Point
	longest := -1.0
	for i := range pts {
		p1, p2 := pts[i], pts[(i+1)%len(pts)]
		dx, dy := p2.X-p1.X, p2.Y-p1.Y
		if l := dx*dx + dy*dy; l > longest {
			longest = l
			from, to = p1, p2
		}
	}
	return math.Atan2(to.Y-from.Y, to.X-from.X) * 180 / math.Pi
}

// NormalizeAngle folds an angle into [-90, 90].
func NormalizeAngle(angle float64) float64 {
	if angle < -90 {
		angle += 180
	}
	if angle > 90 {
		angle -= 180
	}
	return angle
}

// SymbolHeight estimates the glyph height of a line: the mean height of its
// symbol polygons scaled by 0.9 and floored. Polygons with fewer than two
// complete vertices are ignored; with none left the estimate is 20.
func SymbolHeight(polygons [][]Vertex) int {
	var sum float64
	var count int
	for _, polygon := range polygons {
		var ys []float64
		for _, v := range polygon {
			if p, ok := v.Point(); ok {
				ys = append(ys, p.Y)
			}
		}
		if len(ys) < 2 {
			continue
		}
		lo, hi := ys[0], ys[0]
		for _, y := range ys[1:] {
			lo = math.Min(lo, y)
			hi = math.Max(hi, y)
		}
		sum += hi - lo
		count++
	}
	if count == 0 {
		return defaultSymbolHeight
	}
	return int(math.Floor(sum / float64(count) * fontScale))
}

// LineFontSize is the font size for an automatically detected line.
func LineFontSize(polygons [][]Vertex, orientation Orientation) int {
	size := max(minFontSize, SymbolHeight(polygons))
	if orientation == Vertical {
		size = int(math.Floor(float64(size) * verticalFontScale))
	}
	return max(minFontSize, size)
}

// ManualFontSize is the font size for a manual region of the given height.
func ManualFontSize(height float64) int {
	return max(minFontSize, int(math.Round(height*fontScale)))
}
