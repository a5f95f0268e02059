package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"overlay-gpt/layout"
	"overlay-gpt/ocr"
	"overlay-gpt/storage"
	"overlay-gpt/translate"
)

// ErrBadRequest marks errors caused by the caller's input
var ErrBadRequest = errors.New("bad request")

// keyLocks serializes read-modify-write cycles on a single stored object.
type keyLocks struct {
	locks sync.Map
}

func (k *keyLocks) lock(key string) func() {
	m, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// ProcessOCR recognises the stored image, saves the OCR document and a text
// mask next to it and returns their URLs.
func (app *App) ProcessOCR(ctx context.Context, req OCRRequest) (*OCRResponse, error) {
	filename := storage.FilenameFromURL(req.ImageURL)
	logger := log.WithFields(logrus.Fields{
		"project_id": req.ProjectID,
		"image":      filename,
	})

	img, err := app.Store.Get(ctx, storage.ImageKey(filename))
	if err != nil {
		return nil, fmt.Errorf("error loading image: %w", err)
	}

	// an image we cannot decode would leave an OCR result without a mask
	width, height, err := ocr.ImageSize(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	result, err := app.OCR.ProcessImage(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("error running OCR: %w", err)
	}

	docURL, err := app.putJSON(ctx, storage.OCRResultKey(filename), result.Document)
	if err != nil {
		return nil, err
	}

	mask, err := ocr.TextMask(width, height, result.WordPolygons())
	if err != nil {
		return nil, fmt.Errorf("error generating mask: %w", err)
	}
	maskURL, err := app.Store.Put(ctx, storage.MaskKey(filename), mask, "image/png")
	if err != nil {
		return nil, fmt.Errorf("error saving mask: %w", err)
	}

	lines, _ := layout.Assemble(result.Document)
	logger.WithField("lines", len(lines)).Info("OCR completed")
	app.record(ProcessingRecord{
		ProjectID: req.ProjectID,
		Stage:     StageOCR,
		ImageURL:  req.ImageURL,
		ResultURL: docURL,
		Detail:    layout.DetectLanguage(result.Document),
		BoxCount:  len(lines),
	})

	return &OCRResponse{
		ProjectID:    req.ProjectID,
		ImageURL:     req.ImageURL,
		OCRJSONURL:   docURL,
		MaskImageURL: maskURL,
	}, nil
}

// SelectOCR re-recognises a user selected quadrilateral and appends the
// result to the stored OCR document as a manual entry.
func (app *App) SelectOCR(ctx context.Context, req SelectOCRRequest) (*layout.ManualEntry, error) {
	if len(req.BBox) != 4 {
		return nil, fmt.Errorf("%w: bbox needs 4 vertices, got %d", ErrBadRequest, len(req.BBox))
	}
	for i, v := range req.BBox {
		if _, ok := v.Point(); !ok {
			return nil, fmt.Errorf("%w: bbox vertex %d needs x and y", ErrBadRequest, i)
		}
	}

	filename := storage.FilenameFromURL(req.ImageURL)
	img, err := app.Store.Get(ctx, storage.ImageKey(filename))
	if err != nil {
		return nil, fmt.Errorf("error loading image: %w", err)
	}

	region, err := ocr.CropRegion(img, req.BBox)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	result, err := app.RegionOCR.ProcessImage(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("error running OCR on selection: %w", err)
	}

	entry := layout.ManualEntry{
		Text: strings.TrimSpace(result.Text),
		BBox: req.BBox,
	}

	key := storage.OCRResultKey(filename)
	unlock := app.locks.lock(key)
	defer unlock()

	doc := &layout.Document{}
	data, err := app.Store.Get(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		// no automatic pass yet, start a fresh document
	case err != nil:
		return nil, fmt.Errorf("error loading OCR result: %w", err)
	default:
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("error decoding OCR result: %w", err)
		}
	}

	doc.ManualTexts = append(doc.ManualTexts, entry)
	docURL, err := app.putJSON(ctx, key, doc)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"project_id": req.ProjectID,
		"image":      filename,
		"text":       entry.Text,
	}).Info("Manual selection recognised")
	app.record(ProcessingRecord{
		ProjectID: req.ProjectID,
		Stage:     StageSelect,
		ImageURL:  req.ImageURL,
		ResultURL: docURL,
		Detail:    entry.Text,
		BoxCount:  len(doc.ManualTexts),
	})

	return &entry, nil
}

// TranslateDocument translates every assembled line and manual entry of an
// OCR document and stores the result next to the source image.
func (app *App) TranslateDocument(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	doc, err := app.loadDocument(ctx, req.OCRJSONURL)
	if err != nil {
		return nil, err
	}

	target := req.Target
	if target == "" {
		target = currentSettings().DefaultTarget
	}
	source, target := translate.ResolveLanguages(req.ForcedSource, layout.DetectLanguage(doc), target)

	lines, manual := layout.Assemble(doc)
	units := layout.TranslationUnits(lines, manual)
	if len(units) == 0 {
		return nil, fmt.Errorf("%w: no text lines found in OCR result", ErrBadRequest)
	}

	logger := log.WithFields(logrus.Fields{
		"project_id": req.ProjectID,
		"source":     source,
		"target":     target,
		"units":      len(units),
	})
	logger.Info("Translating document")

	items, err := translate.NewBatch(app.Translator, app.Concurrency).TranslateAll(ctx, units, source, target)
	if err != nil {
		return nil, fmt.Errorf("error translating document: %w", err)
	}

	key := storage.TranslatedKey(storage.FilenameFromURL(req.OriginalImageURL))
	translatedURL, err := app.putJSON(ctx, key, items)
	if err != nil {
		return nil, err
	}

	logger.WithField("translated_url", translatedURL).Info("Translation completed")
	app.record(ProcessingRecord{
		ProjectID: req.ProjectID,
		Stage:     StageTranslate,
		ImageURL:  req.OriginalImageURL,
		ResultURL: translatedURL,
		Detail:    source + "->" + target,
		BoxCount:  len(items),
	})

	return &TranslateResponse{
		Message:       "translation completed",
		Source:        source,
		Target:        target,
		TranslatedURL: translatedURL,
		Count:         len(items),
	}, nil
}

// TranslateText translates a single string. Identical languages short
// circuit and return the text unchanged.
func (app *App) TranslateText(ctx context.Context, req TranslateTextRequest) (string, bool, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", false, fmt.Errorf("%w: text is required", ErrBadRequest)
	}
	if req.TargetLang == "" {
		return "", false, fmt.Errorf("%w: target_lang is required", ErrBadRequest)
	}
	source := req.SourceLang
	if source == "" {
		source = translate.AutoDetect
	}
	if source == req.TargetLang {
		return req.Text, false, nil
	}

	translated, err := app.Translator.Translate(ctx, translate.Normalize(req.Text), source, req.TargetLang)
	if err != nil {
		return "", false, fmt.Errorf("error translating text: %w", err)
	}
	return translated, true, nil
}

// GenerateBoxes rebuilds the lines of an OCR document and pairs them with a
// stored translation to produce the layout boxes for the renderer.
func (app *App) GenerateBoxes(ctx context.Context, req ReinsertRequest) ([]layout.LayoutBox, error) {
	doc, err := app.loadDocument(ctx, req.OCRJSONURL)
	if err != nil {
		return nil, err
	}
	translated, err := app.loadTranslations(ctx, req.TranslatedJSONURL)
	if err != nil {
		return nil, err
	}

	boxes := buildBoxes(doc, translated, app.synthesizerOptions()...)

	log.WithFields(logrus.Fields{
		"project_id": req.ProjectID,
		"boxes":      len(boxes),
	}).Info("Layout boxes generated")
	app.record(ProcessingRecord{
		ProjectID: req.ProjectID,
		Stage:     StageReinsert,
		ImageURL:  req.OCRJSONURL,
		ResultURL: req.TranslatedJSONURL,
		BoxCount:  len(boxes),
	})
	return boxes, nil
}

// buildBoxes runs assembly and synthesis over a document and its translated
// items. Items are paired in index order.
func buildBoxes(doc *layout.Document, items []translate.Item, opts ...layout.Option) []layout.LayoutBox {
	sorted := make([]translate.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	lines, manual := layout.Assemble(doc)
	return layout.NewSynthesizer(opts...).Synthesize(lines, manual, translate.Texts(sorted))
}

func (app *App) synthesizerOptions() []layout.Option {
	opts := []layout.Option{layout.WithColor(currentSettings().BoxColor)}
	if app.newID != nil {
		opts = append(opts, layout.WithIDGenerator(app.newID))
	}
	return opts
}

func (app *App) loadDocument(ctx context.Context, docURL string) (*layout.Document, error) {
	data, err := app.getByURL(ctx, docURL)
	if err != nil {
		return nil, fmt.Errorf("error loading OCR result: %w", err)
	}
	var doc layout.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: OCR result is not valid JSON: %v", ErrBadRequest, err)
	}
	return &doc, nil
}

func (app *App) loadTranslations(ctx context.Context, translatedURL string) ([]translate.Item, error) {
	data, err := app.getByURL(ctx, translatedURL)
	if err != nil {
		return nil, fmt.Errorf("error loading translations: %w", err)
	}
	var items []translate.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: translations are not valid JSON: %v", ErrBadRequest, err)
	}
	return items, nil
}

// SignURL returns a time limited read URL for an object this service
// stored, for renderers that cannot read a private bucket directly.
func (app *App) SignURL(ctx context.Context, rawURL string) (string, error) {
	key, err := app.Store.KeyFromURL(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	signed, err := app.Store.PresignURL(ctx, key, storage.DefaultPresignTTL)
	if err != nil {
		return "", fmt.Errorf("error signing %s: %w", key, err)
	}
	return signed, nil
}

func (app *App) getByURL(ctx context.Context, rawURL string) ([]byte, error) {
	key, err := app.Store.KeyFromURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return app.Store.Get(ctx, key)
}

func (app *App) putJSON(ctx context.Context, key string, v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("error encoding %s: %w", key, err)
	}
	u, err := app.Store.Put(ctx, key, data, "application/json")
	if err != nil {
		return "", fmt.Errorf("error saving %s: %w", key, err)
	}
	return u, nil
}

// record writes a history row. History is best effort and never fails the
// request.
func (app *App) record(r ProcessingRecord) {
	if app.Database == nil {
		return
	}
	if err := InsertRecord(app.Database, r); err != nil {
		log.WithError(err).WithField("stage", r.Stage).Warn("Failed to record processing history")
	}
}
