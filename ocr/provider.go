package ocr

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"overlay-gpt/layout"
)

var log = logrus.New()

// Result holds the output from OCR processing
type Result struct {
	// Document is the recognised page hierarchy. Providers without geometry
	// return a document carrying only Text.
	Document *layout.Document

	// Text is the full recognised text of the image
	Text string

	// Additional provider-specific metadata
	Metadata map[string]string
}

// WordPolygons returns the bounding polygon of every recognised word. These
// are the regions painted into the text mask.
func (r *Result) WordPolygons() [][]layout.Vertex {
	if r == nil || r.Document == nil {
		return nil
	}
	var polygons [][]layout.Vertex
	for _, page := range r.Document.Pages {
		for _, block := range page.Blocks {
			for _, paragraph := range block.Paragraphs {
				for _, word := range paragraph.Words {
					if len(word.BoundingBox.Vertices) > 0 {
						polygons = append(polygons, word.BoundingBox.Vertices)
					}
				}
			}
		}
	}
	return polygons
}

// Provider defines the interface for OCR processing
type Provider interface {
	ProcessImage(ctx context.Context, imageContent []byte) (*Result, error)
}

// Config holds the OCR provider configuration
type Config struct {
	// Provider type ("google_vision", "tesseract", "llm")
	Provider string

	// Google Cloud Vision settings
	GoogleCredentialsFile string // Optional, defaults to application default credentials

	// Tesseract settings
	TesseractLanguages []string // Optional, defaults to eng

	// Vision LLM settings
	VisionLLMProvider string
	VisionLLMModel    string
	VisionLLMPrompt   string
}

// NewProvider creates a new OCR provider based on configuration
func NewProvider(ctx context.Context, config Config) (Provider, error) {
	log.Info("Initializing OCR provider: ", config.Provider)

	switch config.Provider {
	case "google_vision":
		log.WithField("credentials_file", config.GoogleCredentialsFile).Info("Using Google Cloud Vision provider")
		return newGoogleVisionProvider(ctx, config)

	case "tesseract":
		log.WithField("languages", config.TesseractLanguages).Info("Using Tesseract provider")
		return newTesseractProvider(config), nil

	case "llm":
		if config.VisionLLMProvider == "" || config.VisionLLMModel == "" {
			return nil, fmt.Errorf("missing required LLM configuration")
		}
		log.WithFields(logrus.Fields{
			"provider": config.VisionLLMProvider,
			"model":    config.VisionLLMModel,
		}).Info("Using LLM OCR provider")
		return newLLMProvider(config)

	default:
		return nil, fmt.Errorf("unsupported OCR provider: %s", config.Provider)
	}
}

// SetLogLevel sets the logging level for the OCR package
func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}
