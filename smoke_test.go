package main

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pdfinsight/features/job"
	"pdfinsight/internal/adapter/mistral"
	"pdfinsight/internal/app"
	"pdfinsight/internal/config"
)

type smokeGenerator struct{}

func (smokeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("no language capability in smoke test")
}

func TestSmoke_Startup(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping smoke test in short mode")
	}

	cfg := &config.Config{
		ServerPort:            18099,
		MaxUploadSizeMB:       1,
		OCRRatePerMinute:      60,
		OCRBurst:              5,
		LanguageRatePerMinute: 60,
		LanguageBurst:         5,
		AcquireTimeoutSeconds: 1,
		CallTimeoutSeconds:    1,
		ChatContextTokens:     1000,
	}

	a, err := app.New(cfg, job.NewMemoryStore(), mistral.NewClient("", "mistral-ocr-latest"), smokeGenerator{}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if runErr := a.Run(ctx); runErr != nil {
			t.Logf("app run exited: %v", runErr)
		}
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://localhost:18099/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 100*time.Millisecond)
}
