package layout

import (
	"strings"

	"github.com/google/uuid"
)

// DefaultColor is the text color given to every box unless configured.
const DefaultColor = "#000000"

// LayoutBox is a positioned, translated line handed to the renderer.
type LayoutBox struct {
	ID             string  `json:"id" yaml:"id"`
	OriginalText   string  `json:"original_text" yaml:"original_text"`
	TranslatedText string  `json:"translated_text" yaml:"translated_text"`
	X              float64 `json:"x" yaml:"x"`
	Y              float64 `json:"y" yaml:"y"`
	Width          float64 `json:"width" yaml:"width"`
	Height         float64 `json:"height" yaml:"height"`
	Angle          float64 `json:"angle" yaml:"angle"`
	FontSize       int     `json:"fontSize" yaml:"fontSize"`
	Color          string  `json:"color" yaml:"color"`
}

// Synthesizer turns assembled lines and their translations into boxes.
type Synthesizer struct {
	newID func() string
	color string
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithIDGenerator replaces the random UUID generator used for box IDs.
func WithIDGenerator(fn func() string) Option {
	return func(s *Synthesizer) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithColor sets the color assigned to every box.
func WithColor(color string) Option {
	return func(s *Synthesizer) {
		if color != "" {
			s.color = color
		}
	}
}

// NewSynthesizer creates a Synthesizer with random UUID box IDs and the
// default color.
func NewSynthesizer(opts ...Option) *Synthesizer {
	s := &Synthesizer{
		newID: uuid.NewString,
		color: DefaultColor,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize pairs lines with translations by position and computes each
// box's pose. Only the first min(len(lines), len(translated)) lines produce
// boxes. Manual lines continue in the same index space after those; a manual
// line without a translation keeps its own text.
func (s *Synthesizer) Synthesize(lines []TextLine, manual []ManualLine, translated []string) []LayoutBox {
	count := min(len(lines), len(translated))
	boxes := make([]LayoutBox, 0, count+len(manual))

	for i, line := range lines[:count] {
		boxes = append(boxes, s.lineBox(line, translated[i]))
	}

	next := count
	for _, line := range manual {
		line.Text = strings.TrimSpace(line.Text)
		if line.Text == "" {
			continue
		}
		translation := line.Text
		if next < len(translated) {
			translation = translated[next]
		}
		next++
		if box, ok := s.manualBox(line, translation); ok {
			boxes = append(boxes, box)
		}
	}

	return boxes
}

func (s *Synthesizer) lineBox(line TextLine, translation string) LayoutBox {
	r := Bounds(line.Vertices)
	angle, orientation := Orient(line.Vertices)
	return LayoutBox{
		ID:             s.newID(),
		OriginalText:   line.Text,
		TranslatedText: translation,
		X:              r.X,
		Y:              r.Y,
		Width:          r.Width,
		Height:         r.Height,
		Angle:          angle,
		FontSize:       LineFontSize(line.SymbolPolygons, orientation),
		Color:          s.color,
	}
}

// manualBox builds the box for a rectangular manual region. Regions missing
// every x or every y coordinate have no usable geometry and yield nothing.
func (s *Synthesizer) manualBox(line ManualLine, translation string) (LayoutBox, bool) {
	_, _, okX := extent(line.BBox, func(v Vertex) *float64 { return v.X })
	_, _, okY := extent(line.BBox, func(v Vertex) *float64 { return v.Y })
	if !okX || !okY {
		return LayoutBox{}, false
	}
	r := Bounds(line.BBox)
	return LayoutBox{
		ID:             s.newID(),
		OriginalText:   line.Text,
		TranslatedText: translation,
		X:              r.X,
		Y:              r.Y,
		Width:          r.Width,
		Height:         r.Height,
		Angle:          0,
		FontSize:       ManualFontSize(r.Height),
		Color:          s.color,
	}, true
}
