package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"overlay-gpt/layout"
)

// TesseractProvider implements OCR with a local Tesseract installation.
// Symbol boxes are regrouped into the same page hierarchy Vision produces.
type TesseractProvider struct {
	languages []string
}

func newTesseractProvider(config Config) *TesseractProvider {
	languages := config.TesseractLanguages
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &TesseractProvider{languages: languages}
}

func (p *TesseractProvider) ProcessImage(ctx context.Context, imageContent []byte) (*Result, error) {
	if _, err := DetectImageType(imageContent); err != nil {
		return nil, err
	}
	logger := log.WithField("languages", p.languages)
	logger.Debug("Starting Tesseract processing")

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(p.languages...); err != nil {
		return nil, fmt.Errorf("failed to set languages: %w", err)
	}
	if err := client.SetImageFromBytes(imageContent); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_SYMBOL)
	if err != nil {
		return nil, fmt.Errorf("tesseract OCR failed: %w", err)
	}

	doc := buildDocument(boxes, languageCode(p.languages[0]))
	logger.WithFields(logrus.Fields{
		"symbols":     len(boxes),
		"text_length": len(doc.Text),
	}).Info("Successfully processed image")

	return &Result{
		Document: doc,
		Text:     doc.Text,
		Metadata: map[string]string{"provider": "tesseract"},
	}, nil
}

// languageCode maps a Tesseract language name such as "kor" to the BCP 47
// base language ("ko"). Script-suffixed names like "chi_sim" use the prefix.
func languageCode(name string) string {
	name, _, _ = strings.Cut(name, "_")
	tag, err := language.Parse(name)
	if err != nil {
		return name
	}
	base, _ := tag.Base()
	return base.String()
}

// buildDocument groups symbol boxes by block, paragraph and word number. The
// last symbol of each Tesseract line carries a LINE_BREAK.
func buildDocument(boxes []gosseract.BoundingBox, lang string) *layout.Document {
	doc := &layout.Document{}
	if len(boxes) == 0 {
		return doc
	}

	page := layout.Page{}
	if lang != "" {
		page.Property = &layout.Property{
			DetectedLanguages: []layout.DetectedLanguage{{LanguageCode: lang}},
		}
	}

	var text strings.Builder
	var block *layout.Block
	var paragraph *layout.Paragraph
	var word *layout.Word

	for i, box := range boxes {
		newBlock := i == 0 || box.BlockNum != boxes[i-1].BlockNum
		newParagraph := newBlock || box.ParNum != boxes[i-1].ParNum
		newWord := newParagraph || box.LineNum != boxes[i-1].LineNum || box.WordNum != boxes[i-1].WordNum

		if newBlock {
			page.Blocks = append(page.Blocks, layout.Block{BlockType: "TEXT"})
			block = &page.Blocks[len(page.Blocks)-1]
		}
		if newParagraph {
			block.Paragraphs = append(block.Paragraphs, layout.Paragraph{})
			paragraph = &block.Paragraphs[len(block.Paragraphs)-1]
		}
		if newWord {
			paragraph.Words = append(paragraph.Words, layout.Word{})
			word = &paragraph.Words[len(paragraph.Words)-1]
		}

		symbol := layout.Symbol{
			Text:        box.Word,
			BoundingBox: rectPoly(box.Box),
		}
		lastOfLine := i == len(boxes)-1 ||
			boxes[i+1].BlockNum != box.BlockNum ||
			boxes[i+1].ParNum != box.ParNum ||
			boxes[i+1].LineNum != box.LineNum
		if lastOfLine {
			symbol.Property = &layout.Property{DetectedBreak: &layout.DetectedBreak{Type: layout.BreakLine}}
		}
		word.Symbols = append(word.Symbols, symbol)
		word.BoundingBox = unionPoly(word.BoundingBox, box.Box)

		text.WriteString(box.Word)
		if lastOfLine {
			text.WriteString("\n")
		}
	}

	doc.Pages = []layout.Page{page}
	doc.Text = text.String()
	return doc
}

func rectPoly(r image.Rectangle) layout.BoundingPoly {
	x0, y0 := float64(r.Min.X), float64(r.Min.Y)
	x1, y1 := float64(r.Max.X), float64(r.Max.Y)
	return layout.BoundingPoly{Vertices: []layout.Vertex{
		layout.V(x0, y0), layout.V(x1, y0), layout.V(x1, y1), layout.V(x0, y1),
	}}
}

func unionPoly(poly layout.BoundingPoly, r image.Rectangle) layout.BoundingPoly {
	if len(poly.Vertices) == 0 {
		return rectPoly(r)
	}
	b := layout.Bounds(poly.Vertices)
	current := image.Rect(int(b.X), int(b.Y), int(b.X+b.Width), int(b.Y+b.Height))
	return rectPoly(current.Union(r))
}
