package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	// Server
	ServerPort      int   `envconfig:"SERVER_PORT" default:"8081"`
	MaxUploadSizeMB int64 `envconfig:"MAX_UPLOAD_SIZE_MB" default:"50"`

	// External capabilities
	MistralAPIKey  string `envconfig:"MISTRAL_API_KEY"`
	MistralBaseURL string `envconfig:"MISTRAL_BASE_URL" default:"https://api.mistral.ai"`
	OCRModel       string `envconfig:"OCR_MODEL" default:"mistral-ocr-latest"`
	GeminiAPIKey   string `envconfig:"GEMINI_API_KEY"`
	GeminiModel    string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	// Rate limiting (requests per minute, keyed by capability kind)
	OCRRatePerMinute      int `envconfig:"OCR_RATE_PER_MINUTE" default:"10"`
	OCRBurst              int `envconfig:"OCR_BURST" default:"2"`
	LanguageRatePerMinute int `envconfig:"LANGUAGE_RATE_PER_MINUTE" default:"15"`
	LanguageBurst         int `envconfig:"LANGUAGE_BURST" default:"3"`
	AcquireTimeoutSeconds int `envconfig:"ACQUIRE_TIMEOUT_SECONDS" default:"90"`

	// Pipeline
	CallTimeoutSeconds int `envconfig:"CALL_TIMEOUT_SECONDS" default:"120"`
	MaxStageRetries    int `envconfig:"MAX_STAGE_RETRIES" default:"3"`

	// Chat
	ChatContextTokens int    `envconfig:"CHAT_CONTEXT_TOKENS" default:"6000"`
	ChatLogPath       string `envconfig:"CHAT_LOG_PATH" default:"data/logs/chat.log"`

	// Durable job store (optional; in-memory when disabled)
	EnablePostgres bool   `envconfig:"ENABLE_POSTGRES" default:"false"`
	DBHost         string `envconfig:"DB_HOST" default:"postgres"`
	DBPort         int    `envconfig:"DB_PORT" default:"5432"`
	DBUser         string `envconfig:"DB_USER" default:"pdfinsight"`
	DBPass         string `envconfig:"DB_PASS" default:"password"`
	DBName         string `envconfig:"DB_NAME" default:"pdfinsight"`
	MigrationPath  string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Job status events (optional; no-op when disabled)
	EnableEvents bool   `envconfig:"ENABLE_EVENTS" default:"false"`
	NSQDHost     string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP     string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Try loading .env from current dir and repo root
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.OCRRatePerMinute <= 0 {
		return fmt.Errorf("%w: OCR_RATE_PER_MINUTE must be positive", ErrMissingRequired)
	}
	if c.LanguageRatePerMinute <= 0 {
		return fmt.Errorf("%w: LANGUAGE_RATE_PER_MINUTE must be positive", ErrMissingRequired)
	}
	if c.MaxStageRetries < 0 {
		return fmt.Errorf("%w: MAX_STAGE_RETRIES must not be negative", ErrMissingRequired)
	}
	if c.EnablePostgres {
		if c.DBHost == "" {
			return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
		}
		if c.DBUser == "" {
			return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
		}
		if c.DBName == "" {
			return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
		}
	}
	return nil
}
