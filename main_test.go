package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"overlay-gpt/storage"
	"overlay-gpt/translate"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "S3")
	t.Setenv("S3_BUCKET", "comics")
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("TESSERACT_LANGUAGES", "kor, jpn+eng")
	t.Setenv("TRANSLATE_CONCURRENCY", "not-a-number")
	t.Setenv("TRANSLATE_REQUESTS_PER_MINUTE", "120")
	t.Setenv("TRANSLATE_CACHE_TTL", "90m")
	t.Setenv("PUBLIC_BASE_URL", "")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("GOOGLEAI_THINKING_BUDGET", "lots")

	cfg := configFromEnv()
	assert.Equal(t, "s3", cfg.StorageBackend)
	assert.Equal(t, "comics", cfg.S3Bucket)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "http://localhost:9090/files", cfg.PublicBaseURL)
	assert.Equal(t, []string{"kor", "jpn", "eng"}, cfg.TesseractLanguages)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 120.0, cfg.RequestsPerMinute)
	assert.Equal(t, 90*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "papago", cfg.TranslateProvider)
	require.NotNil(t, cfg.LLMTemperature)
	assert.Equal(t, 0.2, *cfg.LLMTemperature)
	assert.Nil(t, cfg.ThinkingBudget)
}

func TestValidateEnvVars(t *testing.T) {
	valid := Config{
		StorageBackend:     "local",
		OCRProvider:        "google_vision",
		TranslateProvider:  "papago",
		PapagoClientID:     "id",
		PapagoClientSecret: "secret",
		Concurrency:        1,
	}
	require.NoError(t, validateEnvVars(valid))

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown storage", func(c *Config) { c.StorageBackend = "ftp" }},
		{"s3 without bucket", func(c *Config) { c.StorageBackend = "s3" }},
		{"llm page ocr", func(c *Config) { c.OCRProvider = "llm"; c.VisionLLMProvider = "openai"; c.VisionLLMModel = "gpt-4o" }},
		{"llm ocr without model", func(c *Config) { c.OCRSelectProvider = "llm"; c.VisionLLMProvider = "openai" }},
		{"papago without secret", func(c *Config) { c.PapagoClientSecret = "" }},
		{"llm translator without model", func(c *Config) { c.TranslateProvider = "llm"; c.LLMProvider = "ollama" }},
		{"unknown translator", func(c *Config) { c.TranslateProvider = "deepl" }},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, validateEnvVars(cfg))
		})
	}
}

func TestInitLogger(t *testing.T) {
	defer func() { _ = initLogger("info") }()

	require.NoError(t, initLogger("DEBUG"))
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	require.NoError(t, initLogger(""))
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())

	assert.Error(t, initLogger("verbose"))
}

func TestLoadTemplatesWritesDefault(t *testing.T) {
	tmp := t.TempDir()
	cwd, _ := os.Getwd()
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	assert.Equal(t, translate.DefaultPrompt, loadTemplates())
	saved, err := os.ReadFile(filepath.Join("prompts", "translate_prompt.tmpl"))
	require.NoError(t, err)
	assert.Equal(t, translate.DefaultPrompt, string(saved))

	custom := "{{ .Text }} -> {{ .Target }}"
	require.NoError(t, os.WriteFile(translatePromptPath(), []byte(custom), 0644))
	assert.Equal(t, custom, loadTemplates())
}

func TestLoadSettings(t *testing.T) {
	tmp := t.TempDir()
	cwd, _ := os.Getwd()
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	loadSettings()
	assert.Equal(t, defaultSettings(), currentSettings())
	_, err := os.Stat(filepath.Join(configDir, settingsFile))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(configDir, settingsFile), []byte(`{"box_color":"#123456"}`), 0644))
	loadSettings()
	assert.Equal(t, Settings{BoxColor: "#123456", DefaultTarget: "ko"}, currentSettings())

	require.NoError(t, os.WriteFile(filepath.Join(configDir, settingsFile), []byte(`{"box_color":"blue"}`), 0644))
	loadSettings()
	assert.Equal(t, defaultSettings(), currentSettings())
}

func TestCreateStore(t *testing.T) {
	store, err := createStore(t.Context(), Config{StorageBackend: "local", LocalStorageDir: t.TempDir(), PublicBaseURL: testBaseURL})
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStore{}, store)
}
