package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"pdfinsight/internal/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, 8081, cfg.ServerPort)
	assert.Equal(t, 15, cfg.LanguageRatePerMinute)
	assert.Equal(t, "mistral-ocr-latest", cfg.OCRModel)
	assert.False(t, cfg.EnablePostgres)
	assert.False(t, cfg.EnableEvents)
}

func TestLoadConfig(t *testing.T) {
	// Set env var directly to test envconfig logic
	os.Setenv("OCR_RATE_PER_MINUTE", "7")
	defer os.Unsetenv("OCR_RATE_PER_MINUTE")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, 7, cfg.OCRRatePerMinute)
}

func TestLoadConfig_FromEnvFile(t *testing.T) {
	// Create a temp .env file
	content := []byte("GEMINI_MODEL=from-file")
	err := os.WriteFile(".env", content, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(".env")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, "from-file", cfg.GeminiModel)
}

func TestLoadConfig_Toggles(t *testing.T) {
	os.Setenv("ENABLE_POSTGRES", "true")
	os.Setenv("ENABLE_EVENTS", "true")
	os.Setenv("MAX_STAGE_RETRIES", "5")
	defer os.Unsetenv("ENABLE_POSTGRES")
	defer os.Unsetenv("ENABLE_EVENTS")
	defer os.Unsetenv("MAX_STAGE_RETRIES")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.True(t, cfg.EnablePostgres)
	assert.True(t, cfg.EnableEvents)
	assert.Equal(t, 5, cfg.MaxStageRetries)
}

func TestValidate(t *testing.T) {
	t.Run("RejectsZeroRate", func(t *testing.T) {
		cfg := &config.Config{OCRRatePerMinute: 0, LanguageRatePerMinute: 15}
		assert.ErrorIs(t, cfg.Validate(), config.ErrMissingRequired)
	})

	t.Run("RejectsNegativeRetries", func(t *testing.T) {
		cfg := &config.Config{OCRRatePerMinute: 10, LanguageRatePerMinute: 15, MaxStageRetries: -1}
		assert.ErrorIs(t, cfg.Validate(), config.ErrMissingRequired)
	})

	t.Run("RequiresDBFieldsWhenPostgresEnabled", func(t *testing.T) {
		cfg := &config.Config{
			OCRRatePerMinute:      10,
			LanguageRatePerMinute: 15,
			EnablePostgres:        true,
			DBHost:                "",
		}
		assert.ErrorIs(t, cfg.Validate(), config.ErrMissingRequired)
	})

	t.Run("Valid", func(t *testing.T) {
		cfg := &config.Config{OCRRatePerMinute: 10, LanguageRatePerMinute: 15}
		assert.NoError(t, cfg.Validate())
	})
}
