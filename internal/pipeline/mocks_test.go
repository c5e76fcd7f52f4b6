package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"pdfinsight/internal/adapter/mistral"
	"pdfinsight/internal/ratelimit"
)

// --- Mocks ---

type MockOCRClient struct {
	mock.Mock
}

func (m *MockOCRClient) Process(ctx context.Context, filename string, document []byte) (*mistral.OCRResponse, error) {
	args := m.Called(ctx, filename, document)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mistral.OCRResponse), args.Error(1)
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) Acquire(ctx context.Context, kind ratelimit.Kind) error {
	args := m.Called(ctx, kind)
	return args.Error(0)
}

// openLimiter always grants immediately.
type openLimiter struct{}

func (openLimiter) Acquire(ctx context.Context, kind ratelimit.Kind) error { return nil }
