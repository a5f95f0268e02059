package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/mistral"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"overlay-gpt/internal/constants"
	"overlay-gpt/layout"
)

const defaultVisionPrompt = "Transcribe all text in this image exactly as written, " +
	"keeping the original language and line breaks. Output only the text."

// LLMProvider implements OCR using LLM vision models. It returns text
// without geometry, so it only serves re-recognition of a user selected
// region where the position is already known.
type LLMProvider struct {
	provider string
	model    string
	llm      llms.Model
	prompt   string
}

func newLLMProvider(config Config) (*LLMProvider, error) {
	logger := log.WithFields(logrus.Fields{
		"provider": config.VisionLLMProvider,
		"model":    config.VisionLLMModel,
	})
	logger.Info("Creating new LLM OCR provider")

	var model llms.Model
	var err error

	switch strings.ToLower(config.VisionLLMProvider) {
	case "openai":
		logger.Debug("Initializing OpenAI vision model")
		model, err = createOpenAIClient(config)
	case "ollama":
		logger.Debug("Initializing Ollama vision model")
		model, err = createOllamaClient(config)
	case "mistral":
		logger.Debug("Initializing Mistral vision model")
		model, err = createMistralClient(config)
	default:
		return nil, fmt.Errorf("unsupported vision LLM provider: %s", config.VisionLLMProvider)
	}

	if err != nil {
		logger.WithError(err).Error("Failed to create vision LLM client")
		return nil, fmt.Errorf("error creating vision LLM client: %w", err)
	}

	logger.Info("Successfully initialized LLM OCR provider")
	return newLLMProviderWithModel(config, model), nil
}

func newLLMProviderWithModel(config Config, model llms.Model) *LLMProvider {
	prompt := config.VisionLLMPrompt
	if prompt == "" {
		prompt = defaultVisionPrompt
	}
	return &LLMProvider{
		provider: config.VisionLLMProvider,
		model:    config.VisionLLMModel,
		llm:      model,
		prompt:   prompt,
	}
}

func (p *LLMProvider) ProcessImage(ctx context.Context, imageContent []byte) (*Result, error) {
	mimeType, err := DetectImageType(imageContent)
	if err != nil {
		return nil, err
	}
	logger := log.WithFields(logrus.Fields{
		"provider":  p.provider,
		"model":     p.model,
		"mime_type": mimeType,
	})
	logger.Debug("Starting LLM OCR processing")

	var imagePart llms.ContentPart
	providerName := strings.ToLower(p.provider)
	if providerName == "openai" || providerName == "mistral" {
		imagePart = llms.ImageURLPart("data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(imageContent))
	} else {
		imagePart = llms.BinaryPart(mimeType, imageContent)
	}

	completion, err := p.llm.GenerateContent(ctx, []llms.MessageContent{
		{
			Parts: []llms.ContentPart{imagePart, llms.TextPart(p.prompt)},
			Role:  llms.ChatMessageTypeHuman,
		},
	})
	if err != nil {
		logger.WithError(err).Error("Failed to get response from vision model")
		return nil, fmt.Errorf("error getting response from LLM: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("vision model returned no choices")
	}

	text := cleanTranscription(completion.Choices[0].Content)
	logger.WithField("content_length", len(text)).Info("Successfully processed image")
	return &Result{
		Document: &layout.Document{Text: text},
		Text:     text,
		Metadata: map[string]string{
			"provider": p.provider,
			"model":    p.model,
		},
	}, nil
}

// createOpenAIClient creates a new OpenAI vision model client. A base URL
// without an API key targets an OpenAI-compatible server.
func createOpenAIClient(config Config) (llms.Model, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	baseURL := os.Getenv("OPENAI_BASE_URL")
	if apiKey == "" && baseURL == "" {
		return nil, fmt.Errorf("OpenAI API key is not set")
	}
	if apiKey == "" {
		apiKey = constants.DummyAPIKey
	}

	opts := []openai.Option{
		openai.WithModel(config.VisionLLMModel),
		openai.WithToken(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	return openai.New(opts...)
}

// createOllamaClient creates a new Ollama vision model client
func createOllamaClient(config Config) (llms.Model, error) {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = constants.DefaultOllamaHost
	}
	return ollama.New(
		ollama.WithModel(config.VisionLLMModel),
		ollama.WithServerURL(host),
	)
}

// createMistralClient creates a new Mistral vision model client
func createMistralClient(config Config) (llms.Model, error) {
	apiKey := os.Getenv("MISTRAL_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("Mistral API key is not set")
	}
	return mistral.New(
		mistral.WithModel(config.VisionLLMModel),
		mistral.WithAPIKey(apiKey),
	)
}

// cleanTranscription drops <think> reasoning blocks and a wrapping markdown
// code fence, which some vision models add around the transcribed text.
func cleanTranscription(content string) string {
	if start := strings.Index(content, "<think>"); start != -1 {
		if end := strings.Index(content, "</think>"); end != -1 {
			content = content[:start] + content[end+len("</think>"):]
		}
	}
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") && strings.HasSuffix(content, "```") && len(content) >= 6 {
		content = strings.TrimSuffix(content, "```")
		// drop the opening fence with its optional language tag
		if nl := strings.Index(content, "\n"); nl != -1 {
			content = content[nl+1:]
		} else {
			content = strings.TrimPrefix(content, "```")
		}
		content = strings.TrimSpace(content)
	}
	return content
}
