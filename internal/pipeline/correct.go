package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"pdfinsight/internal/ratelimit"
	"pdfinsight/internal/text"
)

const correctionPrompt = `The following text was produced by OCR and may contain recognition errors: ` +
	`broken mathematical notation, hyphen-ation artifacts across line breaks, misread characters. ` +
	`Repair these errors while preserving the content and meaning exactly. ` +
	`Do not summarize, reorder, or add anything. Return only the repaired text.

Page text:
%s`

// CorrectionStage repairs OCR text page by page via the language capability.
// Policy: a failed correction fails the whole job. Raw text is never
// silently served as corrected text.
type CorrectionStage struct {
	gen         Generator
	limiter     Limiter
	maxRetries  int
	callTimeout time.Duration
}

func NewCorrectionStage(gen Generator, limiter Limiter, maxRetries int, callTimeout time.Duration) *CorrectionStage {
	return &CorrectionStage{
		gen:         gen,
		limiter:     limiter,
		maxRetries:  maxRetries,
		callTimeout: callTimeout,
	}
}

// Run corrects each page independently. Pages with no text keep their raw
// (empty) FixedText. The returned slice is sorted by page number.
func (s *CorrectionStage) Run(ctx context.Context, pages []PageText) ([]PageText, error) {
	corrected := make([]PageText, len(pages))
	copy(corrected, pages)

	for i := range corrected {
		if strings.TrimSpace(corrected[i].Text) == "" {
			continue
		}

		prompt := fmt.Sprintf(correctionPrompt, corrected[i].Text)

		var reply string
		err := callThrough(ctx, s.limiter, ratelimit.KindLanguage, s.maxRetries, s.callTimeout, func(callCtx context.Context) error {
			var callErr error
			reply, callErr = s.gen.Generate(callCtx, prompt)
			return callErr
		})
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrCorrectionFailed, corrected[i].Page, err)
		}

		fixed := text.StripFence(reply)
		if fixed == "" {
			return nil, fmt.Errorf("%w: page %d: empty correction", ErrCorrectionFailed, corrected[i].Page)
		}
		corrected[i].FixedText = fixed
		slog.InfoContext(ctx, "page corrected", "page", corrected[i].Page)
	}

	sort.Slice(corrected, func(a, b int) bool { return corrected[a].Page < corrected[b].Page })
	return corrected, nil
}
