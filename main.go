package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"overlay-gpt/ocr"
	"overlay-gpt/storage"
	"overlay-gpt/translate"
)

// Global Variables and Constants
var (
	// Logger
	log = logrus.New()

	// Templates
	templateMutex sync.RWMutex
	promptsDir    = "prompts"
)

// Config holds the service configuration read from the environment
type Config struct {
	StorageBackend  string
	S3Bucket        string
	AWSRegion       string
	LocalStorageDir string
	PublicBaseURL   string

	OCRProvider        string
	OCRSelectProvider  string
	GoogleCredentials  string
	TesseractLanguages []string
	VisionLLMProvider  string
	VisionLLMModel     string

	TranslateProvider  string
	PapagoClientID     string
	PapagoClientSecret string
	PapagoURL          string
	LLMProvider        string
	LLMModel           string
	LLMTemperature     *float64
	ThinkingBudget     *int32
	RequestsPerMinute  float64
	MaxRetries         int
	Concurrency        int
	RedisURL           string
	CacheTTL           time.Duration

	ListenAddr string
	DBPath     string
	JobWorkers int
}

// App struct to hold dependencies
type App struct {
	Store       storage.Store
	OCR         ocr.Provider
	RegionOCR   ocr.Provider // re-recognition of user selected regions
	Translator  translate.Translator
	Database    *gorm.DB
	Jobs        *JobStore
	Concurrency int

	queue chan *Job
	locks keyLocks
	newID func() string
}

func main() {
	// A missing .env file is fine, the environment may already be set
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("Error loading .env file: %v", err)
	}

	if err := fang.Execute(context.Background(), RootCmd); err != nil {
		os.Exit(1)
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
		log.Warnf("Invalid %s value: %s, using default: %d", key, v, fallback)
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
		log.Warnf("Invalid %s value: %s, using default: %v", key, v, fallback)
	}
	return fallback
}

func getEnvOptionalFloat(key string) *float64 {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warnf("Invalid %s value: %s, ignoring", key, v)
		return nil
	}
	return &parsed
}

func getEnvOptionalInt32(key string) *int32 {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		log.Warnf("Invalid %s value: %s, ignoring", key, v)
		return nil
	}
	budget := int32(parsed)
	return &budget
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
		log.Warnf("Invalid %s value: %s, using default: %v", key, v, fallback)
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == '+' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// configFromEnv reads the configuration. It runs after .env is loaded.
func configFromEnv() Config {
	listenAddr := getEnv("LISTEN_ADDR", ":8080")
	return Config{
		StorageBackend:  strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
		S3Bucket:        os.Getenv("S3_BUCKET"),
		AWSRegion:       getEnv("AWS_REGION", "ap-northeast-2"),
		LocalStorageDir: getEnv("LOCAL_STORAGE_DIR", "data"),
		PublicBaseURL:   getEnv("PUBLIC_BASE_URL", "http://localhost"+listenAddr+"/files"),

		OCRProvider:        strings.ToLower(getEnv("OCR_PROVIDER", "google_vision")),
		OCRSelectProvider:  strings.ToLower(os.Getenv("OCR_SELECT_PROVIDER")),
		GoogleCredentials:  os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		TesseractLanguages: splitList(os.Getenv("TESSERACT_LANGUAGES")),
		VisionLLMProvider:  strings.ToLower(os.Getenv("VISION_LLM_PROVIDER")),
		VisionLLMModel:     os.Getenv("VISION_LLM_MODEL"),

		TranslateProvider:  strings.ToLower(getEnv("TRANSLATE_PROVIDER", "papago")),
		PapagoClientID:     os.Getenv("PAPAGO_CLIENT_ID"),
		PapagoClientSecret: os.Getenv("PAPAGO_CLIENT_SECRET"),
		PapagoURL:          os.Getenv("PAPAGO_URL"),
		LLMProvider:        strings.ToLower(os.Getenv("LLM_PROVIDER")),
		LLMModel:           os.Getenv("LLM_MODEL"),
		LLMTemperature:     getEnvOptionalFloat("LLM_TEMPERATURE"),
		ThinkingBudget:     getEnvOptionalInt32("GOOGLEAI_THINKING_BUDGET"),
		RequestsPerMinute:  getEnvFloat("TRANSLATE_REQUESTS_PER_MINUTE", 0),
		MaxRetries:         getEnvInt("TRANSLATE_MAX_RETRIES", 3),
		Concurrency:        getEnvInt("TRANSLATE_CONCURRENCY", 4),
		RedisURL:           os.Getenv("REDIS_URL"),
		CacheTTL:           getEnvDuration("TRANSLATE_CACHE_TTL", 24*time.Hour),

		ListenAddr: listenAddr,
		DBPath:     getEnv("DB_PATH", filepath.Join("db", "overlay-gpt.db")),
		JobWorkers: getEnvInt("JOB_WORKERS", 1),
	}
}

// validateEnvVars ensures all necessary environment variables are set
func validateEnvVars(cfg Config) error {
	switch cfg.StorageBackend {
	case "s3":
		if cfg.S3Bucket == "" {
			return fmt.Errorf("please set the S3_BUCKET environment variable for the s3 storage backend")
		}
	case "local":
	default:
		return fmt.Errorf("STORAGE_BACKEND must be 's3' or 'local', got %q", cfg.StorageBackend)
	}

	if cfg.OCRProvider == "llm" {
		return fmt.Errorf("OCR_PROVIDER=llm returns no text positions; use it as OCR_SELECT_PROVIDER only")
	}
	if cfg.OCRSelectProvider == "llm" {
		if cfg.VisionLLMProvider == "" || cfg.VisionLLMModel == "" {
			return fmt.Errorf("please set VISION_LLM_PROVIDER and VISION_LLM_MODEL for the llm OCR provider")
		}
	}

	switch cfg.TranslateProvider {
	case "papago":
		if cfg.PapagoClientID == "" || cfg.PapagoClientSecret == "" {
			return fmt.Errorf("please set PAPAGO_CLIENT_ID and PAPAGO_CLIENT_SECRET for the papago translator")
		}
	case "llm":
		if cfg.LLMProvider == "" || cfg.LLMModel == "" {
			return fmt.Errorf("please set LLM_PROVIDER and LLM_MODEL for the llm translator")
		}
	default:
		return fmt.Errorf("TRANSLATE_PROVIDER must be 'papago' or 'llm', got %q", cfg.TranslateProvider)
	}

	if cfg.Concurrency < 1 {
		return fmt.Errorf("TRANSLATE_CONCURRENCY must be at least 1")
	}
	return nil
}

func initLogger(level string) error {
	switch strings.ToLower(level) {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info", "":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
		return fmt.Errorf("invalid log level: '%s'", level)
	}

	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	ocr.SetLogLevel(log.GetLevel())
	translate.SetLogLevel(log.GetLevel())
	return nil
}

func translatePromptPath() string {
	return filepath.Join(promptsDir, "translate_prompt.tmpl")
}

// loadTemplates returns the translate prompt, writing the default to disk
// when none exists yet.
func loadTemplates() string {
	templateMutex.Lock()
	defer templateMutex.Unlock()

	// Ensure prompts directory exists
	if err := os.MkdirAll(promptsDir, os.ModePerm); err != nil {
		log.Fatalf("Failed to create prompts directory: %v", err)
	}

	path := translatePromptPath()
	content, err := os.ReadFile(path)
	if err != nil {
		log.Infof("Could not read %s, using default template: %v", path, err)
		content = []byte(translate.DefaultPrompt)
		if err := os.WriteFile(path, content, 0644); err != nil {
			log.Fatalf("Failed to write default translate template to disk: %v", err)
		}
	}
	if _, err := translate.ParsePrompt(string(content)); err != nil {
		log.Fatalf("Failed to parse translate template: %v", err)
	}
	return string(content)
}

func createStore(ctx context.Context, cfg Config) (storage.Store, error) {
	switch cfg.StorageBackend {
	case "s3":
		return storage.NewS3Store(ctx, cfg.S3Bucket, cfg.AWSRegion)
	default:
		return storage.NewLocalStore(cfg.LocalStorageDir, cfg.PublicBaseURL)
	}
}

func (cfg Config) ocrConfig(provider string) ocr.Config {
	return ocr.Config{
		Provider:              provider,
		GoogleCredentialsFile: cfg.GoogleCredentials,
		TesseractLanguages:    cfg.TesseractLanguages,
		VisionLLMProvider:     cfg.VisionLLMProvider,
		VisionLLMModel:        cfg.VisionLLMModel,
	}
}

// createOCR returns the page provider and the provider used for selected
// regions, which defaults to the page provider.
func createOCR(ctx context.Context, cfg Config) (ocr.Provider, ocr.Provider, error) {
	pageOCR, err := ocr.NewProvider(ctx, cfg.ocrConfig(cfg.OCRProvider))
	if err != nil {
		return nil, nil, fmt.Errorf("error creating OCR provider: %w", err)
	}
	if cfg.OCRSelectProvider == "" || cfg.OCRSelectProvider == cfg.OCRProvider {
		return pageOCR, pageOCR, nil
	}
	regionOCR, err := ocr.NewProvider(ctx, cfg.ocrConfig(cfg.OCRSelectProvider))
	if err != nil {
		return nil, nil, fmt.Errorf("error creating selection OCR provider: %w", err)
	}
	return pageOCR, regionOCR, nil
}

func createTranslator(ctx context.Context, cfg Config, prompt string, cache translate.Cache) (translate.Translator, error) {
	return translate.New(ctx, translate.Config{
		Provider:           cfg.TranslateProvider,
		PapagoClientID:     cfg.PapagoClientID,
		PapagoClientSecret: cfg.PapagoClientSecret,
		PapagoURL:          cfg.PapagoURL,
		LLM: translate.LLMConfig{
			Provider:       cfg.LLMProvider,
			Model:          cfg.LLMModel,
			Temperature:    cfg.LLMTemperature,
			ThinkingBudget: cfg.ThinkingBudget,
		},
		LLMPrompt: prompt,
		RateLimit: translate.RateLimitConfig{
			RequestsPerMinute: cfg.RequestsPerMinute,
			MaxRetries:        cfg.MaxRetries,
		},
		Cache:    cache,
		CacheTTL: cfg.CacheTTL,
	})
}

func newRouter(app *App) *gin.Engine {
	// Create a Gin router with default middleware (logger and recovery)
	router := gin.Default()

	router.GET("/healthcheck", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	// API routes
	api := router.Group("/api")
	{
		api.POST("/ocr/auto", app.ocrAutoHandler)
		api.POST("/ocr/select", app.ocrSelectHandler)
		api.POST("/ocr/download-json", app.downloadOCRJSONHandler)
		api.POST("/ocr/lines", app.ocrLinesHandler)

		api.POST("/translate", app.translateHandler)
		api.POST("/translate/text", app.translateTextHandler)

		api.POST("/jobs/translate", app.submitTranslateJobHandler)
		api.GET("/jobs/:job_id", app.getJobStatusHandler)
		api.DELETE("/jobs/:job_id", app.cancelJobHandler)
		api.GET("/jobs", app.getAllJobsHandler)

		api.POST("/reinsert", app.reinsertHandler)
		api.GET("/history", app.historyHandler)
		api.POST("/prefix", app.signURLHandler)

		api.GET("/prompts", getPromptsHandler)
		api.POST("/prompts", app.updatePromptsHandler)
		api.GET("/settings", getSettingsHandler)
		api.POST("/settings", updateSettingsHandler)
	}

	// Serve stored objects when they live on local disk
	if local, ok := app.Store.(*storage.LocalStore); ok {
		router.Static("/files", local.Root())
	}

	return router
}

// runServer wires the collaborators and serves the HTTP API until ctx ends
func runServer(ctx context.Context) error {
	cfg := configFromEnv()
	if err := validateEnvVars(cfg); err != nil {
		return err
	}

	loadSettings()
	prompt := loadTemplates()

	store, err := createStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("error creating storage: %w", err)
	}

	pageOCR, regionOCR, err := createOCR(ctx, cfg)
	if err != nil {
		return err
	}
	if closer, ok := pageOCR.(io.Closer); ok {
		defer closer.Close()
	}
	if closer, ok := regionOCR.(io.Closer); ok && regionOCR != pageOCR {
		defer closer.Close()
	}

	var cache translate.Cache
	if cfg.RedisURL != "" {
		redisCache, err := translate.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("error connecting to redis: %w", err)
		}
		defer redisCache.Close()
		cache = redisCache
	}

	translator, err := createTranslator(ctx, cfg, prompt, cache)
	if err != nil {
		return fmt.Errorf("error creating translator: %w", err)
	}

	app := &App{
		Store:       store,
		OCR:         pageOCR,
		RegionOCR:   regionOCR,
		Translator:  translator,
		Database:    InitializeDB(cfg.DBPath),
		Jobs:        jobStore,
		Concurrency: cfg.Concurrency,
		queue:       jobQueue,
	}

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	startWorkerPool(workerCtx, app, app.Jobs, app.queue, cfg.JobWorkers)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: newRouter(app),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("Server shutdown failed: %v", err)
		}
	}()

	log.Infof("Server started on %s", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to run server: %w", err)
	}
	return nil
}
