package pipeline

import (
	"context"

	"pdfinsight/internal/adapter/mistral"
	"pdfinsight/internal/ratelimit"
)

// PageText is the per-page output of the OCR stage. Text is the raw OCR
// output; FixedText starts equal to Text and is replaced by the correction
// stage. Tables and images ride along as auxiliary extraction results.
type PageText struct {
	Page      int         `json:"page"`
	Text      string      `json:"text"`
	FixedText string      `json:"fixed_text"`
	Tables    []string    `json:"tables,omitempty"`
	Images    []PageImage `json:"images,omitempty"`
}

type PageImage struct {
	ID      string `json:"id,omitempty"`
	Caption string `json:"caption,omitempty"`
	Base64  string `json:"image_data,omitempty"`
}

// ChunkType is the closed set of semantic unit categories.
type ChunkType string

const (
	ChunkTypeHeading   ChunkType = "heading"
	ChunkTypeParagraph ChunkType = "paragraph"
	ChunkTypeList      ChunkType = "list"
	ChunkTypeTable     ChunkType = "table"
	ChunkTypeOther     ChunkType = "other"
)

// Chunk is one semantically delimited unit of the document. Immutable once
// produced; Page references the PageText it was derived from.
type Chunk struct {
	Content string    `json:"content"`
	Type    ChunkType `json:"type"`
	Meaning string    `json:"meaning"`
	Summary string    `json:"summary"`
	Page    int       `json:"page"`
}

// Result is the complete output of a finished pipeline run. Chunks keep
// their insertion order from chunking; Pages are sorted by page number.
type Result struct {
	Chunks      []Chunk    `json:"chunks"`
	TotalChunks int        `json:"total_chunks"`
	Pages       []PageText `json:"pages"`
}

type OCRClient interface {
	Process(ctx context.Context, filename string, document []byte) (*mistral.OCRResponse, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Limiter interface {
	Acquire(ctx context.Context, kind ratelimit.Kind) error
}
