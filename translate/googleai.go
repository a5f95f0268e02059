package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"google.golang.org/genai"
)

// geminiInstruction is sent as the system instruction with every request,
// the line itself arrives through the prompt template.
const geminiInstruction = "You translate short lines of comic and manga dialogue. " +
	"Answer with the translated line only."

// GeminiModel adapts the Gemini API to llms.Model so an LLMTranslator can
// drive it.
type GeminiModel struct {
	client *genai.Client
	model  string
	config LLMConfig
}

// NewGeminiModel creates a Gemini client for config.Model.
func NewGeminiModel(ctx context.Context, config LLMConfig, apiKey string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLEAI_API_KEY environment variable is not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create googleai client: %w", err)
	}

	return &GeminiModel{client: client, model: config.Model, config: config}, nil
}

// generateConfig builds the request config. Temperature from the call
// options wins over the configured one.
func (m *GeminiModel) generateConfig(opts ...llms.CallOption) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(geminiInstruction, genai.RoleUser),
	}

	var callOpts llms.CallOptions
	for _, opt := range opts {
		opt(&callOpts)
	}
	switch {
	case callOpts.Temperature > 0:
		gc.Temperature = genai.Ptr(float32(callOpts.Temperature))
	case m.config.Temperature != nil:
		gc.Temperature = genai.Ptr(float32(*m.config.Temperature))
	}

	if m.config.ThinkingBudget != nil {
		gc.ThinkingConfig = &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(*m.config.ThinkingBudget),
		}
	}
	return gc
}

// GenerateContent sends the text parts of all messages as one prompt.
func (m *GeminiModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	prompt, err := promptText(messages)
	if err != nil {
		return nil, err
	}
	if m.client == nil {
		return nil, fmt.Errorf("googleai client not initialized")
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(prompt), m.generateConfig(opts...))
	if err != nil {
		return nil, fmt.Errorf("googleai GenerateContent API error: %w", err)
	}
	text := ""
	if resp != nil {
		text = resp.Text()
	}
	if text == "" {
		return nil, fmt.Errorf("googleai GenerateContent API returned no text")
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text}},
	}, nil
}

// Call implements the llms.Model interface for compatibility with langchaingo.
func (m *GeminiModel) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, opts...)
}

func promptText(messages []llms.MessageContent) (string, error) {
	var sb strings.Builder
	for _, message := range messages {
		for _, part := range message.Parts {
			text, ok := part.(llms.TextContent)
			if !ok {
				return "", fmt.Errorf("unsupported prompt part %T", part)
			}
			sb.WriteString(text.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no prompt provided")
	}
	return sb.String(), nil
}
