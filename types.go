package main

import (
	"overlay-gpt/layout"
)

// OCRRequest is the payload for /api/ocr/auto
type OCRRequest struct {
	ProjectID string `json:"projectId"`
	ImageURL  string `json:"image_url" binding:"required"`
}

// OCRResponse is the result of an automatic OCR pass
type OCRResponse struct {
	ProjectID    string `json:"projectId"`
	ImageURL     string `json:"image_url"`
	OCRJSONURL   string `json:"ocr_json_url"`
	MaskImageURL string `json:"mask_image_url"`
}

// SelectOCRRequest is the payload for /api/ocr/select
type SelectOCRRequest struct {
	ProjectID string          `json:"projectId"`
	ImageURL  string          `json:"image_url" binding:"required"`
	BBox      []layout.Vertex `json:"bbox" binding:"required"`
}

// DownloadOCRRequest is the payload for /api/ocr/download-json
type DownloadOCRRequest struct {
	ImageURL string `json:"image_url" binding:"required"`
}

// OCRLinesRequest is the payload for /api/ocr/lines
type OCRLinesRequest struct {
	OCRJSONURL string `json:"ocr_json_url" binding:"required"`
}

// TranslateRequest is the payload for /api/translate and /api/jobs/translate
type TranslateRequest struct {
	ProjectID        string `json:"projectId"`
	OCRJSONURL       string `json:"ocrJsonUrl" binding:"required"`
	OriginalImageURL string `json:"originalImageUrl" binding:"required"`
	ForcedSource     string `json:"forcedSource"`
	Target           string `json:"target"`
}

// TranslateResponse is the result of translating a document
type TranslateResponse struct {
	Message       string `json:"message"`
	Source        string `json:"source"`
	Target        string `json:"target"`
	TranslatedURL string `json:"translatedUrl"`
	Count         int    `json:"count"`
}

// TranslateTextRequest is the payload for /api/translate/text
type TranslateTextRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

// ReinsertRequest is the payload for /api/reinsert
type ReinsertRequest struct {
	ProjectID         string `json:"projectId"`
	OCRJSONURL        string `json:"ocr_json_url" binding:"required"`
	TranslatedJSONURL string `json:"translated_json_url" binding:"required"`
}

// ReinsertResponse carries the synthesized boxes
type ReinsertResponse struct {
	Message string             `json:"message"`
	Boxes   []layout.LayoutBox `json:"boxes"`
}

// SignURLRequest is the payload for /api/prefix
type SignURLRequest struct {
	URL string `json:"url" binding:"required"`
}

// Settings defines the structure for server-side UI settings
type Settings struct {
	BoxColor      string `json:"box_color"`      // hex color given to every layout box
	DefaultTarget string `json:"default_target"` // target language when a request names none
}
