package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"pdfinsight/features/job"
	"pdfinsight/internal/adapter/mistral"
	"pdfinsight/internal/config"
)

type stubOCRClient struct{}

func (stubOCRClient) Process(ctx context.Context, filename string, document []byte) (*mistral.OCRResponse, error) {
	return nil, errors.New("not wired in this test")
}

type stubGenerator struct{}

func (stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "stub reply", nil
}

func testConfig() *config.Config {
	return &config.Config{
		ServerPort:            8081,
		MaxUploadSizeMB:       1,
		OCRRatePerMinute:      60,
		OCRBurst:              5,
		LanguageRatePerMinute: 60,
		LanguageBurst:         5,
		AcquireTimeoutSeconds: 1,
		CallTimeoutSeconds:    1,
		ChatContextTokens:     1000,
		ChatLogPath:           "", // falls back to stdout
	}
}

func TestNew(t *testing.T) {
	a, err := New(testConfig(), job.NewMemoryStore(), stubOCRClient{}, stubGenerator{}, nil)
	assert.NoError(t, err)
	assert.NotNil(t, a)
	assert.NotNil(t, a.Handler)
	assert.NotNil(t, a.JobManager)

	// Verify Route (Integration-ish)
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	a.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestNew_Routes(t *testing.T) {
	a, err := New(testConfig(), job.NewMemoryStore(), stubOCRClient{}, stubGenerator{}, nil)
	assert.NoError(t, err)

	t.Run("StatsEmptyStore", func(t *testing.T) {
		w := httptest.NewRecorder()
		a.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/stats", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"total":0`)
	})

	t.Run("UnknownJob", func(t *testing.T) {
		w := httptest.NewRecorder()
		a.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/jobs/missing", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "NOT_FOUND")
	})

	t.Run("ChatOnUnknownJob", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/jobs/missing/chat",
			strings.NewReader(`{"role": "user", "content": "hi"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		a.Handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "JOB_NOT_COMPLETED")
	})

	t.Run("CORSHeadersPresent", func(t *testing.T) {
		w := httptest.NewRecorder()
		a.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/stats", nil))
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}
