package translate

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/mistral"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"overlay-gpt/internal/constants"
)

// DefaultPrompt is the translation prompt used when no template file exists.
const DefaultPrompt = `You are translating speech balloons and captions of a comic page.
Translate the following line from {{ .Source | languageName }} to {{ .Target | languageName }}.
Keep it short enough to fit the original balloon. Preserve tone, honorifics and sound effects.
Reply with the translation only, without quotes or explanations.

{{ .Text }}`

var languageNames = map[string]string{
	"auto":  "the detected language",
	"ko":    "Korean",
	"en":    "English",
	"ja":    "Japanese",
	"zh-CN": "Simplified Chinese",
	"zh-TW": "Traditional Chinese",
	"zh":    "Chinese",
	"es":    "Spanish",
	"fr":    "French",
	"de":    "German",
	"vi":    "Vietnamese",
	"th":    "Thai",
	"id":    "Indonesian",
	"ru":    "Russian",
}

func languageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}

// ParsePrompt parses a translation prompt template. Templates get the sprig
// functions plus languageName and see .Text, .Source and .Target.
func ParsePrompt(content string) (*template.Template, error) {
	funcs := sprig.TxtFuncMap()
	funcs["languageName"] = languageName
	return template.New("translate").Funcs(funcs).Parse(content)
}

// LLMTranslator translates with a chat model and a prompt template.
type LLMTranslator struct {
	llm     llms.Model
	options []llms.CallOption
	mu      sync.RWMutex
	prompt  *template.Template
}

// NewLLMTranslator wraps model. A nil prompt uses DefaultPrompt.
func NewLLMTranslator(model llms.Model, prompt *template.Template) (*LLMTranslator, error) {
	if prompt == nil {
		var err error
		if prompt, err = ParsePrompt(DefaultPrompt); err != nil {
			return nil, err
		}
	}
	return &LLMTranslator{llm: model, prompt: prompt}, nil
}

// PromptSetter is implemented by translators driven by a prompt template.
type PromptSetter interface {
	SetPrompt(prompt *template.Template)
}

// FindPromptSetter walks a chain of wrapping translators and returns the
// first one that accepts a prompt template.
func FindPromptSetter(t Translator) (PromptSetter, bool) {
	for t != nil {
		if ps, ok := t.(PromptSetter); ok {
			return ps, true
		}
		u, ok := t.(interface{ Unwrap() Translator })
		if !ok {
			return nil, false
		}
		t = u.Unwrap()
	}
	return nil, false
}

// SetPrompt swaps the prompt template for subsequent calls.
func (t *LLMTranslator) SetPrompt(prompt *template.Template) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prompt = prompt
}

func (t *LLMTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	t.mu.RLock()
	var promptBuffer bytes.Buffer
	err := t.prompt.Execute(&promptBuffer, map[string]interface{}{
		"Text":   text,
		"Source": source,
		"Target": target,
	})
	t.mu.RUnlock()
	if err != nil {
		return "", fmt.Errorf("error executing translate template: %w", err)
	}

	prompt := promptBuffer.String()
	log.Debugf("Translate prompt: %s", prompt)

	completion, err := t.llm.GenerateContent(ctx, []llms.MessageContent{
		{
			Parts: []llms.ContentPart{
				llms.TextContent{
					Text: prompt,
				},
			},
			Role: llms.ChatMessageTypeHuman,
		},
	}, t.options...)
	if err != nil {
		return "", fmt.Errorf("error getting response from LLM: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}

	return cleanCompletion(completion.Choices[0].Content), nil
}

// cleanCompletion drops reasoning blocks and wrapping quotes.
func cleanCompletion(content string) string {
	if start := strings.Index(content, "<think>"); start != -1 {
		if end := strings.Index(content, "</think>"); end != -1 {
			content = content[:start] + content[end+len("</think>"):]
		}
	}
	content = strings.TrimSpace(content)
	if len(content) >= 2 && strings.HasPrefix(content, `"`) && strings.HasSuffix(content, `"`) {
		content = strings.TrimSpace(content[1 : len(content)-1])
	}
	return content
}

// LLMConfig selects the chat model backing an LLMTranslator.
type LLMConfig struct {
	Provider string // openai, ollama, mistral, googleai
	Model    string

	// Temperature is passed with every request when set
	Temperature *float64
	// ThinkingBudget caps Gemini reasoning tokens when set (googleai only)
	ThinkingBudget *int32
}

// callOptions returns the per request options for the configuration.
func (c LLMConfig) callOptions() []llms.CallOption {
	if c.Temperature == nil {
		return nil
	}
	return []llms.CallOption{llms.WithTemperature(*c.Temperature)}
}

// NewLLM creates the chat model for the configured provider. Credentials
// come from the provider specific environment variables.
func NewLLM(ctx context.Context, config LLMConfig) (llms.Model, error) {
	log.WithFields(logrus.Fields{
		"provider": config.Provider,
		"model":    config.Model,
	}).Info("Creating translation LLM")

	switch strings.ToLower(config.Provider) {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		baseURL := os.Getenv("OPENAI_BASE_URL")
		if apiKey == "" && baseURL == "" {
			return nil, fmt.Errorf("OpenAI API key is not set")
		}
		if apiKey == "" {
			apiKey = constants.DummyAPIKey
		}
		opts := []openai.Option{
			openai.WithModel(config.Model),
			openai.WithToken(apiKey),
		}
		if baseURL != "" {
			opts = append(opts, openai.WithBaseURL(baseURL))
		}
		return openai.New(opts...)
	case "ollama":
		host := os.Getenv("OLLAMA_HOST")
		if host == "" {
			host = constants.DefaultOllamaHost
		}
		return ollama.New(
			ollama.WithModel(config.Model),
			ollama.WithServerURL(host),
		)
	case "mistral":
		apiKey := os.Getenv("MISTRAL_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("Mistral API key is not set")
		}
		return mistral.New(
			mistral.WithModel(config.Model),
			mistral.WithAPIKey(apiKey),
		)
	case "googleai":
		return NewGeminiModel(ctx, config, os.Getenv("GOOGLEAI_API_KEY"))
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}
}
