package translate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// mockLLM records the prompt and replies with a fixed completion
type mockLLM struct {
	response string
	err      error
	prompt   string
	options  llms.CallOptions
}

func (m *mockLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, opt := range opts {
		opt(&m.options)
	}
	if m.err != nil {
		return nil, m.err
	}
	if len(messages) > 0 && len(messages[0].Parts) > 0 {
		if text, ok := messages[0].Parts[0].(llms.TextContent); ok {
			m.prompt = text.Text
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.response}}}, nil
}

func (m *mockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestLLMTranslatorDefaultPrompt(t *testing.T) {
	model := &mockLLM{response: "  \"Hello there\"  "}
	tr, err := NewLLMTranslator(model, nil)
	require.NoError(t, err)

	got, err := tr.Translate(context.Background(), "やあ", "ja", "en")
	require.NoError(t, err)

	assert.Equal(t, "Hello there", got)
	assert.Contains(t, model.prompt, "from Japanese to English")
	assert.Contains(t, model.prompt, "やあ")
}

func TestLLMTranslatorCustomPrompt(t *testing.T) {
	tmpl, err := ParsePrompt(`{{ .Target | upper }}|{{ .Source | languageName }}|{{ .Text | trim }}`)
	require.NoError(t, err)

	model := &mockLLM{response: "<think>hmm</think>결과"}
	tr, err := NewLLMTranslator(model, tmpl)
	require.NoError(t, err)

	got, err := tr.Translate(context.Background(), "  text ", "xx", "ko")
	require.NoError(t, err)
	assert.Equal(t, "결과", got)
	assert.Equal(t, "KO|xx|text", model.prompt)

	swapped, err := ParsePrompt(`{{ .Text }}!`)
	require.NoError(t, err)
	tr.SetPrompt(swapped)
	_, err = tr.Translate(context.Background(), "a", "en", "ko")
	require.NoError(t, err)
	assert.Equal(t, "a!", model.prompt)
}

func TestLLMTranslatorError(t *testing.T) {
	tr, err := NewLLMTranslator(&mockLLM{err: errors.New("quota")}, nil)
	require.NoError(t, err)

	_, err = tr.Translate(context.Background(), "a", "en", "ko")
	assert.ErrorContains(t, err, "quota")
}

func TestParsePromptInvalid(t *testing.T) {
	_, err := ParsePrompt(`{{ .Text `)
	assert.Error(t, err)
}

func TestNewLLMValidation(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")
	t.Setenv("MISTRAL_API_KEY", "")
	t.Setenv("GOOGLEAI_API_KEY", "")

	for _, provider := range []string{"openai", "mistral", "googleai", "unknown"} {
		t.Run(provider, func(t *testing.T) {
			_, err := NewLLM(context.Background(), LLMConfig{Provider: provider, Model: "m"})
			assert.Error(t, err)
		})
	}

	t.Setenv("OPENAI_BASE_URL", "http://localhost:1234/v1")
	model, err := NewLLM(context.Background(), LLMConfig{Provider: "openai", Model: "local"})
	require.NoError(t, err)
	assert.NotNil(t, model)
}

func TestLLMTranslatorTemperature(t *testing.T) {
	model := &mockLLM{response: "ok"}
	tr, err := NewLLMTranslator(model, nil)
	require.NoError(t, err)

	temperature := 0.3
	tr.options = LLMConfig{Temperature: &temperature}.callOptions()
	_, err = tr.Translate(context.Background(), "hi", "en", "ko")
	require.NoError(t, err)
	assert.InDelta(t, 0.3, model.options.Temperature, 1e-9)

	assert.Empty(t, LLMConfig{}.callOptions())
}

func TestGeminiModelPrompt(t *testing.T) {
	m := &GeminiModel{}
	_, err := m.GenerateContent(context.Background(), nil)
	assert.ErrorContains(t, err, "no prompt")

	_, err = m.GenerateContent(context.Background(), []llms.MessageContent{{
		Parts: []llms.ContentPart{llms.BinaryPart("image/png", []byte{1})},
	}})
	assert.ErrorContains(t, err, "unsupported prompt part")

	_, err = m.Call(context.Background(), "hi")
	assert.ErrorContains(t, err, "not initialized")
}

func TestGeminiModelGenerateConfig(t *testing.T) {
	temperature := 0.2
	budget := int32(0)
	m := &GeminiModel{config: LLMConfig{Temperature: &temperature, ThinkingBudget: &budget}}

	gc := m.generateConfig()
	require.NotNil(t, gc.SystemInstruction)
	assert.Equal(t, geminiInstruction, gc.SystemInstruction.Parts[0].Text)
	require.NotNil(t, gc.Temperature)
	assert.InDelta(t, 0.2, *gc.Temperature, 1e-6)
	require.NotNil(t, gc.ThinkingConfig)
	assert.Equal(t, int32(0), *gc.ThinkingConfig.ThinkingBudget)

	gc = m.generateConfig(llms.WithTemperature(0.7))
	assert.InDelta(t, 0.7, *gc.Temperature, 1e-6)

	gc = (&GeminiModel{}).generateConfig()
	assert.Nil(t, gc.Temperature)
	assert.Nil(t, gc.ThinkingConfig)
}

func TestNewGeminiModelNeedsKey(t *testing.T) {
	_, err := NewGeminiModel(context.Background(), LLMConfig{Model: "gemini-2.5-flash"}, "")
	assert.ErrorContains(t, err, "GOOGLEAI_API_KEY")
}

func TestFindPromptSetter(t *testing.T) {
	llmTranslator, err := NewLLMTranslator(&mockLLM{response: "x"}, nil)
	require.NoError(t, err)

	wrapped := NewCached(NewRateLimited(llmTranslator, RateLimitConfig{}), newMemoryCache(), 0)
	ps, ok := FindPromptSetter(wrapped)
	require.True(t, ok)
	assert.Same(t, llmTranslator, ps)

	_, ok = FindPromptSetter(NewRateLimited(&upper{}, RateLimitConfig{}))
	assert.False(t, ok)
	_, ok = FindPromptSetter(nil)
	assert.False(t, ok)
}
