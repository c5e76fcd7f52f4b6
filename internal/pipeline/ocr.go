package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"pdfinsight/internal/adapter/mistral"
	"pdfinsight/internal/ratelimit"
)

// OCRStage converts a PDF's bytes into ordered per-page text via the OCR
// capability. Failure is fatal for the job: there is no partial-page success.
type OCRStage struct {
	client      OCRClient
	limiter     Limiter
	maxRetries  int
	callTimeout time.Duration
}

func NewOCRStage(client OCRClient, limiter Limiter, maxRetries int, callTimeout time.Duration) *OCRStage {
	return &OCRStage{
		client:      client,
		limiter:     limiter,
		maxRetries:  maxRetries,
		callTimeout: callTimeout,
	}
}

// Run validates the document locally, then runs OCR through the rate
// limiter. Page numbers are 1-based; FixedText starts equal to the raw text.
func (s *OCRStage) Run(ctx context.Context, filename string, document []byte) ([]PageText, error) {
	if len(document) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrExtractionFailed)
	}

	// Reject corrupt or non-PDF input before spending quota on the capability.
	pageCount, err := api.PageCount(bytes.NewReader(document), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid pdf: %v", ErrExtractionFailed, err)
	}
	slog.InfoContext(ctx, "starting ocr", "filename", filename, "pages", pageCount, "bytes", len(document))

	var resp *mistral.OCRResponse
	err = callThrough(ctx, s.limiter, ratelimit.KindOCR, s.maxRetries, s.callTimeout, func(callCtx context.Context) error {
		var callErr error
		resp, callErr = s.client.Process(callCtx, filename, document)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	if resp == nil || len(resp.Pages) == 0 {
		return nil, fmt.Errorf("%w: capability returned no pages", ErrExtractionFailed)
	}

	pages := make([]PageText, 0, len(resp.Pages))
	for i, p := range resp.Pages {
		page := PageText{
			Page:      i + 1,
			Text:      p.Markdown,
			FixedText: p.Markdown,
			Tables:    p.Tables,
		}
		for _, img := range p.Images {
			page.Images = append(page.Images, PageImage{
				ID:      img.ID,
				Caption: img.Caption,
				Base64:  img.Base64,
			})
		}
		pages = append(pages, page)
	}

	slog.InfoContext(ctx, "ocr completed", "pages", len(pages))
	return pages, nil
}
