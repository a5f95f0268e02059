package ocr

import (
	"bytes"
	"context"
	"fmt"

	vision "cloud.google.com/go/vision/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"overlay-gpt/layout"
)

// GoogleVisionProvider implements OCR using Google Cloud Vision document
// text detection
type GoogleVisionProvider struct {
	client *vision.ImageAnnotatorClient
}

func newGoogleVisionProvider(ctx context.Context, config Config) (*GoogleVisionProvider, error) {
	logger := log.WithField("credentials_file", config.GoogleCredentialsFile)
	logger.Info("Creating new Google Cloud Vision provider")

	var opts []option.ClientOption
	if config.GoogleCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.GoogleCredentialsFile))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		logger.WithError(err).Error("Failed to create Vision client")
		return nil, fmt.Errorf("error creating Vision client: %w", err)
	}

	logger.Info("Successfully initialized Google Cloud Vision provider")
	return &GoogleVisionProvider{client: client}, nil
}

func (p *GoogleVisionProvider) ProcessImage(ctx context.Context, imageContent []byte) (*Result, error) {
	mimeType, err := DetectImageType(imageContent)
	if err != nil {
		return nil, err
	}
	logger := log.WithFields(logrus.Fields{
		"mime_type": mimeType,
		"size":      len(imageContent),
	})
	logger.Debug("Starting Vision processing")

	image, err := vision.NewImageFromReader(bytes.NewReader(imageContent))
	if err != nil {
		return nil, fmt.Errorf("error reading image: %w", err)
	}

	annotation, err := p.client.DetectDocumentText(ctx, image, nil)
	if err != nil {
		logger.WithError(err).Error("Failed to detect document text")
		return nil, fmt.Errorf("error detecting document text: %w", err)
	}

	doc := convertTextAnnotation(annotation)
	logger.WithFields(logrus.Fields{
		"pages":       len(doc.Pages),
		"text_length": len(doc.Text),
	}).Info("Successfully processed image")

	return &Result{
		Document: doc,
		Text:     doc.Text,
		Metadata: map[string]string{"provider": "google_vision"},
	}, nil
}

// Close releases the underlying gRPC connection
func (p *GoogleVisionProvider) Close() error {
	return p.client.Close()
}

func convertTextAnnotation(annotation *visionpb.TextAnnotation) *layout.Document {
	doc := &layout.Document{}
	if annotation == nil {
		return doc
	}
	doc.Text = annotation.GetText()

	for _, page := range annotation.GetPages() {
		convertedPage := layout.Page{
			Property: convertProperty(page.GetProperty()),
			Width:    int(page.GetWidth()),
			Height:   int(page.GetHeight()),
		}

		for _, block := range page.GetBlocks() {
			convertedBlock := layout.Block{
				BoundingBox: convertBoundingPoly(block.GetBoundingBox()),
				BlockType:   block.GetBlockType().String(),
			}

			for _, paragraph := range block.GetParagraphs() {
				convertedParagraph := layout.Paragraph{
					BoundingBox: convertBoundingPoly(paragraph.GetBoundingBox()),
				}

				for _, word := range paragraph.GetWords() {
					convertedWord := layout.Word{
						Property:    convertProperty(word.GetProperty()),
						BoundingBox: convertBoundingPoly(word.GetBoundingBox()),
					}

					for _, symbol := range word.GetSymbols() {
						convertedWord.Symbols = append(convertedWord.Symbols, layout.Symbol{
							Property:    convertProperty(symbol.GetProperty()),
							BoundingBox: convertBoundingPoly(symbol.GetBoundingBox()),
							Text:        symbol.GetText(),
						})
					}

					convertedParagraph.Words = append(convertedParagraph.Words, convertedWord)
				}

				convertedBlock.Paragraphs = append(convertedBlock.Paragraphs, convertedParagraph)
			}

			convertedPage.Blocks = append(convertedPage.Blocks, convertedBlock)
		}

		doc.Pages = append(doc.Pages, convertedPage)
	}

	return doc
}

func convertProperty(property *visionpb.TextAnnotation_TextProperty) *layout.Property {
	if property == nil {
		return nil
	}
	converted := &layout.Property{}
	for _, language := range property.GetDetectedLanguages() {
		converted.DetectedLanguages = append(converted.DetectedLanguages, layout.DetectedLanguage{
			LanguageCode: language.GetLanguageCode(),
			Confidence:   float64(language.GetConfidence()),
		})
	}
	if property.GetDetectedBreak() != nil {
		converted.DetectedBreak = &layout.DetectedBreak{
			Type: property.GetDetectedBreak().GetType().String(),
		}
	}
	return converted
}

func convertBoundingPoly(poly *visionpb.BoundingPoly) layout.BoundingPoly {
	if poly == nil {
		return layout.BoundingPoly{}
	}

	var vertices []layout.Vertex
	for _, vertex := range poly.GetVertices() {
		vertices = append(vertices, layout.V(float64(vertex.GetX()), float64(vertex.GetY())))
	}

	return layout.BoundingPoly{Vertices: vertices}
}
