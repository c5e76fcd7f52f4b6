package pipeline

import "errors"

// Stage errors. Each is fatal to the owning job once local retries are
// exhausted; the job manager records them as the job's failure reason.
var (
	ErrExtractionFailed = errors.New("extraction failed")
	ErrCorrectionFailed = errors.New("correction failed")
	ErrChunkingFailed   = errors.New("chunking failed")
)
