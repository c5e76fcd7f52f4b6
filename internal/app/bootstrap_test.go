package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"pdfinsight/internal/app"
	"pdfinsight/internal/config"
)

func TestBootstrap_DefaultsToMemoryStore(t *testing.T) {
	cfg := &config.Config{
		EnablePostgres: false,
		EnableEvents:   false,
	}

	deps, err := app.Bootstrap(context.Background(), cfg)
	assert.NoError(t, err)
	assert.NotNil(t, deps)
	assert.NotNil(t, deps.Store)
	assert.Nil(t, deps.DB)
	assert.Nil(t, deps.NSQProducer)

	deps.Close()
}

func TestBootstrap_UnreachableDatabase(t *testing.T) {
	cfg := &config.Config{
		EnablePostgres:             true,
		DBHost:                     "invalid-host-that-does-not-resolve",
		DBPort:                     5432,
		DBUser:                     "test",
		DBPass:                     "test",
		DBName:                     "test",
		BootstrapRetryAttempts:     1,
		BootstrapRetryDelaySeconds: 0,
	}

	deps, err := app.Bootstrap(context.Background(), cfg)
	assert.Error(t, err)
	assert.Nil(t, deps)
}
