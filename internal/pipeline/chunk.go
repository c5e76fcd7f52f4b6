package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"pdfinsight/internal/ratelimit"
	"pdfinsight/internal/text"
)

const chunkingPrompt = `Analyze the following page content and divide it into distinct sections. ` +
	`Treat each section as a logically self-contained unit of information - this could be a header with its related text, a group of paragraphs, a list, etc. ` +
	`For each section, provide the following keys:
  - 'content': The full text content of the section.
  - 'type': The type or category of the section (one of: heading, paragraph, list, table, other).
  - 'meaning': A description of what the section represents (e.g., 'Education details', 'Work experience', 'Project summary', etc.).
  - 'summary': A brief summary highlighting the key points of the section.
Return a JSON object with a key 'chunks' mapping to an array of these objects, ensuring each distinct section is returned as a separate chunk.

Page content: %s`

// chunkReplySchema validates the shape of the model's JSON reply before it
// is trusted. A reply that parses but violates the schema is treated the
// same as an unparsable one.
var chunkReplySchema = jsonschema.MustCompileString("chunk_reply.json", `{
	"type": "object",
	"required": ["chunks"],
	"properties": {
		"chunks": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["content", "type"],
				"properties": {
					"content": {"type": "string"},
					"type":    {"type": "string"},
					"meaning": {"type": "string"},
					"summary": {"type": "string"}
				}
			}
		}
	}
}`)

// ChunkingStage splits corrected page text into typed semantic chunks via
// the language capability. Input is split deterministically by page, one
// invocation per page, and results are concatenated in page order - pages
// are never dropped. Any capability error or unparsable output is fatal.
type ChunkingStage struct {
	gen         Generator
	limiter     Limiter
	maxRetries  int
	callTimeout time.Duration
}

func NewChunkingStage(gen Generator, limiter Limiter, maxRetries int, callTimeout time.Duration) *ChunkingStage {
	return &ChunkingStage{
		gen:         gen,
		limiter:     limiter,
		maxRetries:  maxRetries,
		callTimeout: callTimeout,
	}
}

func (s *ChunkingStage) Run(ctx context.Context, pages []PageText) ([]Chunk, error) {
	var chunks []Chunk

	for _, page := range pages {
		content := page.FixedText
		if strings.TrimSpace(content) == "" {
			content = page.Text
		}

		if strings.TrimSpace(content) != "" {
			pageChunks, err := s.chunkPage(ctx, page.Page, content)
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, pageChunks...)
		}

		// Tables and images extracted by OCR become auxiliary chunks after
		// the page's semantic chunks.
		for _, table := range page.Tables {
			chunks = append(chunks, Chunk{
				Content: table,
				Type:    ChunkTypeTable,
				Meaning: "Table data extracted from the page.",
				Summary: "Table representation.",
				Page:    page.Page,
			})
		}
		for _, img := range page.Images {
			chunks = append(chunks, Chunk{
				Content: img.Caption,
				Type:    ChunkTypeOther,
				Meaning: "Visual content on the page.",
				Summary: "Extracted image.",
				Page:    page.Page,
			})
		}
	}

	slog.InfoContext(ctx, "chunking completed", "total_chunks", len(chunks))
	return chunks, nil
}

func (s *ChunkingStage) chunkPage(ctx context.Context, pageNumber int, content string) ([]Chunk, error) {
	prompt := fmt.Sprintf(chunkingPrompt, content)

	var reply string
	err := callThrough(ctx, s.limiter, ratelimit.KindLanguage, s.maxRetries, s.callTimeout, func(callCtx context.Context) error {
		var callErr error
		reply, callErr = s.gen.Generate(callCtx, prompt)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %v", ErrChunkingFailed, pageNumber, err)
	}

	var generic interface{}
	if err := text.ExtractJSON(reply, &generic); err != nil {
		return nil, fmt.Errorf("%w: page %d: %v", ErrChunkingFailed, pageNumber, err)
	}
	if err := chunkReplySchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("%w: page %d: reply violates schema: %v", ErrChunkingFailed, pageNumber, err)
	}

	// Schema is satisfied; round-trip into the typed shape.
	raw, _ := json.Marshal(generic)
	var parsed struct {
		Chunks []struct {
			Content string `json:"content"`
			Type    string `json:"type"`
			Meaning string `json:"meaning"`
			Summary string `json:"summary"`
		} `json:"chunks"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: page %d: %v", ErrChunkingFailed, pageNumber, err)
	}

	chunks := make([]Chunk, 0, len(parsed.Chunks))
	for _, c := range parsed.Chunks {
		chunks = append(chunks, Chunk{
			Content: c.Content,
			Type:    normalizeChunkType(c.Type),
			Meaning: c.Meaning,
			Summary: c.Summary,
			Page:    pageNumber,
		})
	}

	slog.InfoContext(ctx, "page chunked", "page", pageNumber, "chunks", len(chunks))
	return chunks, nil
}

func normalizeChunkType(t string) ChunkType {
	switch ChunkType(strings.ToLower(strings.TrimSpace(t))) {
	case ChunkTypeHeading:
		return ChunkTypeHeading
	case ChunkTypeParagraph:
		return ChunkTypeParagraph
	case ChunkTypeList:
		return ChunkTypeList
	case ChunkTypeTable:
		return ChunkTypeTable
	default:
		return ChunkTypeOther
	}
}
