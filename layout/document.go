package layout

// BreakLine is the detectedBreak type that ends a logical text line.
const BreakLine = "LINE_BREAK"

// Document is the hierarchical OCR result. Its JSON shape follows the
// Google Cloud Vision fullTextAnnotation, plus the manualTexts array that the
// manual OCR correction feature appends.
type Document struct {
	Pages       []Page        `json:"pages,omitempty"`
	Text        string        `json:"text,omitempty"`
	ManualTexts []ManualEntry `json:"manualTexts,omitempty"`
}

type Page struct {
	Property *Property `json:"property,omitempty"`
	Width    int       `json:"width,omitempty"`
	Height   int       `json:"height,omitempty"`
	Blocks   []Block   `json:"blocks,omitempty"`
}

type Block struct {
	BoundingBox BoundingPoly `json:"boundingBox"`
	Paragraphs  []Paragraph  `json:"paragraphs,omitempty"`
	BlockType   string       `json:"blockType,omitempty"`
}

type Paragraph struct {
	BoundingBox BoundingPoly `json:"boundingBox"`
	Words       []Word       `json:"words,omitempty"`
}

type Word struct {
	Property    *Property    `json:"property,omitempty"`
	BoundingBox BoundingPoly `json:"boundingBox"`
	Symbols     []Symbol     `json:"symbols,omitempty"`
}

type Symbol struct {
	Property    *Property    `json:"property,omitempty"`
	BoundingBox BoundingPoly `json:"boundingBox"`
	Text        string       `json:"text,omitempty"`
}

type Property struct {
	DetectedLanguages []DetectedLanguage `json:"detectedLanguages,omitempty"`
	DetectedBreak     *DetectedBreak     `json:"detectedBreak,omitempty"`
}

type DetectedLanguage struct {
	LanguageCode string  `json:"languageCode"`
	Confidence   float64 `json:"confidence,omitempty"`
}

type DetectedBreak struct {
	Type string `json:"type"`
}

type BoundingPoly struct {
	Vertices []Vertex `json:"vertices"`
}

// Vertex is a polygon corner. Vision omits zero-valued coordinates from its
// JSON, so either axis may be absent; a nil coordinate is missing, not 0.
type Vertex struct {
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`
}

// V builds a vertex with both coordinates present.
func V(x, y float64) Vertex {
	return Vertex{X: &x, Y: &y}
}

// Point returns the vertex coordinates and whether both are present.
func (v Vertex) Point() (Point, bool) {
	if v.X == nil || v.Y == nil {
		return Point{}, false
	}
	return Point{X: *v.X, Y: *v.Y}, true
}

// Point is a vertex with both coordinates known.
type Point struct {
	X float64
	Y float64
}

// ManualEntry is a user-selected rectangular region whose text was
// recognised separately from the automatic pass.
type ManualEntry struct {
	Text string   `json:"text"`
	BBox []Vertex `json:"bbox"`
}

// LineBreak reports whether the symbol closes a logical line.
func (s Symbol) LineBreak() bool {
	return s.Property != nil && s.Property.DetectedBreak != nil && s.Property.DetectedBreak.Type == BreakLine
}

// Symbols flattens the document into its symbol stream in reading order.
func (d *Document) Symbols() []Symbol {
	if d == nil {
		return nil
	}
	var symbols []Symbol
	for _, page := range d.Pages {
		for _, block := range page.Blocks {
			for _, paragraph := range block.Paragraphs {
				for _, word := range paragraph.Words {
					symbols = append(symbols, word.Symbols...)
				}
			}
		}
	}
	return symbols
}
