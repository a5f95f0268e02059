package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// TestCreateOpenAIClientWithOpenAICompatible tests that OpenAI-compatible services work without API keys
func TestCreateOpenAIClientWithOpenAICompatible(t *testing.T) {
	tests := []struct {
		name        string
		apiKey      string
		baseURL     string
		model       string
		shouldError bool
	}{
		{
			name:        "OpenAI-compatible with base URL and no API key",
			apiKey:      "",
			baseURL:     "http://localhost:1234/v1",
			model:       "test-model",
			shouldError: false,
		},
		{
			name:        "OpenAI-compatible with base URL and API key",
			apiKey:      "test-key",
			baseURL:     "http://localhost:1234/v1",
			model:       "test-model",
			shouldError: false,
		},
		{
			name:        "Standard OpenAI with API key and no base URL",
			apiKey:      "sk-test-key",
			baseURL:     "",
			model:       "test-model",
			shouldError: false,
		},
		{
			name:        "No API key and no base URL",
			apiKey:      "",
			baseURL:     "",
			model:       "test-model",
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", tt.apiKey)
			t.Setenv("OPENAI_BASE_URL", tt.baseURL)

			client, err := createOpenAIClient(Config{
				VisionLLMProvider: "openai",
				VisionLLMModel:    tt.model,
			})

			if tt.shouldError {
				assert.Error(t, err)
				assert.Nil(t, client)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, client)
			}
		})
	}
}

func TestCreateMistralClientRequiresKey(t *testing.T) {
	t.Setenv("MISTRAL_API_KEY", "")
	_, err := createMistralClient(Config{VisionLLMModel: "pixtral-12b"})
	assert.Error(t, err)
}

func TestNewLLMProviderRejectsUnknownBackend(t *testing.T) {
	_, err := newLLMProvider(Config{VisionLLMProvider: "nope", VisionLLMModel: "m"})
	assert.Error(t, err)
}

type fakeVisionModel struct {
	response string
	err      error
	messages []llms.MessageContent
}

func (m *fakeVisionModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.response}}}, nil
}

func (m *fakeVisionModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestLLMProviderProcessImage(t *testing.T) {
	model := &fakeVisionModel{response: "<think>reading</think>\n  こんにちは  \n"}
	provider := newLLMProviderWithModel(Config{VisionLLMProvider: "openai", VisionLLMModel: "gpt-4o"}, model)

	result, err := provider.ProcessImage(context.Background(), pngImage(t, 4, 4))
	require.NoError(t, err)

	assert.Equal(t, "こんにちは", result.Text)
	assert.Equal(t, "こんにちは", result.Document.Text)
	assert.Empty(t, result.Document.Pages)
	assert.Empty(t, result.WordPolygons())

	require.Len(t, model.messages, 1)
	parts := model.messages[0].Parts
	require.Len(t, parts, 2)
	imagePart, ok := parts[0].(llms.ImageURLContent)
	require.True(t, ok)
	assert.Contains(t, imagePart.URL, "data:image/png;base64,")
	assert.Equal(t, llms.TextPart(defaultVisionPrompt), parts[1])
}

func TestLLMProviderBinaryPartForOllama(t *testing.T) {
	model := &fakeVisionModel{response: "text"}
	provider := newLLMProviderWithModel(Config{VisionLLMProvider: "ollama", VisionLLMModel: "llava", VisionLLMPrompt: "read"}, model)

	_, err := provider.ProcessImage(context.Background(), pngImage(t, 2, 2))
	require.NoError(t, err)

	binary, ok := model.messages[0].Parts[0].(llms.BinaryContent)
	require.True(t, ok)
	assert.Equal(t, "image/png", binary.MIMEType)
	assert.Equal(t, llms.TextPart("read"), model.messages[0].Parts[1])
}

func TestLLMProviderErrors(t *testing.T) {
	provider := newLLMProviderWithModel(Config{VisionLLMProvider: "openai"}, &fakeVisionModel{err: errors.New("boom")})

	_, err := provider.ProcessImage(context.Background(), pngImage(t, 2, 2))
	assert.ErrorContains(t, err, "boom")

	_, err = provider.ProcessImage(context.Background(), []byte("plain text, not an image"))
	assert.ErrorContains(t, err, "unsupported file type")
}

func TestCleanTranscription(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "  안녕하세요  ", "안녕하세요"},
		{"reasoning first", "<think>speech balloon, Korean</think>\n\n뭐야?!", "뭐야?!"},
		{"reasoning inside", "あ<think>hmm</think>い", "あい"},
		{"unclosed think tag", "Content <think>Unclosed", "Content <think>Unclosed"},
		{"fenced", "```\nDON'T MOVE\n```", "DON'T MOVE"},
		{"fenced with language", "```text\n첫 줄\n둘째 줄\n```", "첫 줄\n둘째 줄"},
		{"fence on one line", "```quiet```", "quiet"},
		{"only reasoning", "<think>nothing here</think>", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, cleanTranscription(tc.input))
		})
	}
}
