package layout

import "strings"

// TextLine is a logical line of automatically detected text.
type TextLine struct {
	Text           string
	Vertices       []Vertex
	SymbolPolygons [][]Vertex
}

// ManualLine is a manually selected region with its recognised text.
type ManualLine struct {
	Text string
	BBox []Vertex
}

// lineState accumulates symbols until the next line boundary.
type lineState struct {
	text     strings.Builder
	vertices []Vertex
	polygons [][]Vertex
}

func (s *lineState) add(symbol Symbol) {
	s.text.WriteString(symbol.Text)
	s.vertices = append(s.vertices, symbol.BoundingBox.Vertices...)
	s.polygons = append(s.polygons, cloneVertices(symbol.BoundingBox.Vertices))
}

// flush returns the accumulated line, if it has any visible text, and
// leaves the state empty. The returned line never shares memory with the
// state.
func (s *lineState) flush() (TextLine, bool) {
	text := strings.TrimSpace(s.text.String())
	line := TextLine{
		Text:           text,
		Vertices:       s.vertices,
		SymbolPolygons: s.polygons,
	}
	*s = lineState{}
	return line, text != ""
}

// Assemble regroups the document's symbols into text lines and collects the
// non-empty manual entries. Lines follow document order; a LINE_BREAK
// symbol closes the current line and a trailing unterminated line is kept.
func Assemble(doc *Document) ([]TextLine, []ManualLine) {
	lines := []TextLine{}
	var state lineState

	for _, symbol := range doc.Symbols() {
		state.add(symbol)
		if !symbol.LineBreak() {
			continue
		}
		if line, ok := state.flush(); ok {
			lines = append(lines, line)
		}
	}
	if line, ok := state.flush(); ok {
		lines = append(lines, line)
	}

	return lines, manualLines(doc)
}

func manualLines(doc *Document) []ManualLine {
	manual := []ManualLine{}
	if doc == nil {
		return manual
	}
	for _, entry := range doc.ManualTexts {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		manual = append(manual, ManualLine{Text: text, BBox: entry.BBox})
	}
	return manual
}

func cloneVertices(vertices []Vertex) []Vertex {
	out := make([]Vertex, len(vertices))
	copy(out, vertices)
	return out
}
