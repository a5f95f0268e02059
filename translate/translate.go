package translate

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"
)

var log = logrus.New()

// AutoDetect asks the backend to detect the source language itself.
const AutoDetect = "auto"

// Translator translates a single piece of text.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// TranslatorFunc adapts a function to the Translator interface.
type TranslatorFunc func(ctx context.Context, text, source, target string) (string, error)

func (f TranslatorFunc) Translate(ctx context.Context, text, source, target string) (string, error) {
	return f(ctx, text, source, target)
}

// ResolveLanguages picks the language pair for a document. An explicit
// source wins over the detected one, which wins over auto detection. When
// source and target coincide the target flips to English for Korean input
// and to Korean for everything else.
func ResolveLanguages(forced, detected, target string) (string, string) {
	source := forced
	if source == "" {
		source = detected
	}
	if source == "" {
		source = AutoDetect
	}
	if target == "" {
		target = "ko"
	}
	if source == target {
		if source == "ko" {
			target = "en"
		} else {
			target = "ko"
		}
	}
	return source, target
}

// Translatable reports whether text contains at least one letter or digit.
// Anything else, like "!!" or "…", is passed through unchanged.
func Translatable(text string) bool {
	return strings.IndexFunc(text, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}

// Normalize composes text to NFC. OCR engines return decomposed Hangul and
// kana for some fonts and translation backends treat those poorly.
func Normalize(text string) string {
	return norm.NFC.String(text)
}

// Config holds the translation backend configuration
type Config struct {
	// Provider type ("papago", "llm")
	Provider string

	// Papago settings
	PapagoClientID     string
	PapagoClientSecret string
	PapagoURL          string // Optional, defaults to the public endpoint

	// LLM settings
	LLM       LLMConfig
	LLMPrompt string // Optional template, defaults to DefaultPrompt

	RateLimit RateLimitConfig

	// Cache is optional; CacheTTL of zero keeps entries forever
	Cache    Cache
	CacheTTL time.Duration
}

// New creates the configured translator wrapped with rate limiting and,
// when a cache is given, caching in front of it.
func New(ctx context.Context, config Config) (Translator, error) {
	log.Info("Initializing translation provider: ", config.Provider)

	limits := config.RateLimit
	var backend Translator
	switch config.Provider {
	case "papago":
		p, err := NewPapagoTranslator(config.PapagoClientID, config.PapagoClientSecret, config.PapagoURL, limits.MaxRetries)
		if err != nil {
			return nil, err
		}
		backend = p
		// retryablehttp already retries transport errors, 429 and 5xx
		limits.MaxRetries = 0
	case "llm":
		if config.LLM.Provider == "" || config.LLM.Model == "" {
			return nil, fmt.Errorf("missing required LLM configuration")
		}
		model, err := NewLLM(ctx, config.LLM)
		if err != nil {
			return nil, fmt.Errorf("error creating LLM client: %w", err)
		}
		prompt := DefaultPrompt
		if config.LLMPrompt != "" {
			prompt = config.LLMPrompt
		}
		tmpl, err := ParsePrompt(prompt)
		if err != nil {
			return nil, fmt.Errorf("error parsing translate prompt: %w", err)
		}
		llmTranslator, err := NewLLMTranslator(model, tmpl)
		if err != nil {
			return nil, err
		}
		llmTranslator.options = config.LLM.callOptions()
		backend = llmTranslator
	default:
		return nil, fmt.Errorf("unsupported translation provider: %s", config.Provider)
	}

	var translator Translator = NewRateLimited(backend, limits)
	if config.Cache != nil {
		translator = NewCached(translator, config.Cache, config.CacheTTL)
	}
	return translator, nil
}

// SetLogLevel sets the logging level for the translate package
func SetLogLevel(level logrus.Level) {
	log.SetLevel(level)
}
