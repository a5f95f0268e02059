package storage

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned by Get when no object exists under the key.
var ErrNotFound = errors.New("object not found")

// Store holds images, OCR documents, masks and translations.
type Store interface {
	// Get returns the object stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores data under key and returns the URL clients use to refer to it.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// KeyFromURL maps a URL previously returned by Put back to its key.
	KeyFromURL(rawURL string) (string, error)
	// PresignURL returns a URL that grants read access to key for ttl.
	PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// DefaultPresignTTL is how long presigned URLs stay valid.
const DefaultPresignTTL = time.Hour

const (
	imagesPrefix     = "images"
	ocrResultsPrefix = "ocr_results"
	maskPrefix       = "mask"
	translatedPrefix = "translated_json"
)

// FilenameFromURL returns the last path element of an image URL, ignoring
// any query string.
func FilenameFromURL(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(strings.SplitN(rawURL, "?", 2)[0])
}

// ImageKey is where the uploaded source image for filename lives.
func ImageKey(filename string) string {
	return path.Join(imagesPrefix, filename)
}

// OCRResultKey is where the OCR document of an image is stored.
func OCRResultKey(filename string) string {
	return path.Join(ocrResultsPrefix, filename+".json")
}

// MaskKey is where the text mask of an image is stored.
func MaskKey(filename string) string {
	return path.Join(maskPrefix, filename+"_mask.png")
}

// TranslatedKey is where the translations of an image are stored.
func TranslatedKey(filename string) string {
	base := filename
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return path.Join(translatedPrefix, base+"_translated.json")
}
