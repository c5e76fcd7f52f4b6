package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pdfinsight/features/job"
	"pdfinsight/internal/middleware"
	"pdfinsight/internal/ratelimit"
	"pdfinsight/internal/text"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

var (
	ErrJobNotCompleted = errors.New("job not completed")
	ErrChatFailed      = errors.New("chat failed")
	ErrInvalidMessage  = errors.New("invalid chat message")
)

const chatPrompt = `You are answering questions about a document. Use only the document context below to ground your answer. If the context does not contain the information needed, say so.

Document context:
%s

Question: %s`

type JobReader interface {
	GetStatus(ctx context.Context, id string) (*job.Job, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Limiter interface {
	Acquire(ctx context.Context, kind ratelimit.Kind) error
}

// Service builds a bounded document context from a completed job's result
// and asks the language capability for the next assistant turn. Only the
// newest user message is sent; the document context anchors every answer.
// No chat state is held here - history persistence is the caller's concern.
type Service struct {
	jobs          JobReader
	gen           Generator
	limiter       Limiter
	contextTokens int
	callTimeout   time.Duration
	logger        *ChatLogger
}

func NewService(jobs JobReader, gen Generator, limiter Limiter, contextTokens int, callTimeout time.Duration, logger *ChatLogger) *Service {
	return &Service{
		jobs:          jobs,
		gen:           gen,
		limiter:       limiter,
		contextTokens: contextTokens,
		callTimeout:   callTimeout,
		logger:        logger,
	}
}

// Reply produces one assistant message for the given job. Fails with
// ErrJobNotCompleted when the job is unknown or not yet completed; a failed
// capability call surfaces as ErrChatFailed and leaves the job untouched.
func (s *Service) Reply(ctx context.Context, jobID string, latest Message) (Message, error) {
	start := time.Now()

	if latest.Role != RoleUser {
		return Message{}, fmt.Errorf("%w: role must be %q", ErrInvalidMessage, RoleUser)
	}
	if strings.TrimSpace(latest.Content) == "" {
		return Message{}, fmt.Errorf("%w: empty content", ErrInvalidMessage)
	}

	j, err := s.jobs.GetStatus(ctx, jobID)
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			return Message{}, fmt.Errorf("%w: %s", ErrJobNotCompleted, jobID)
		}
		return Message{}, err
	}
	if j.Status != job.StatusCompleted {
		return Message{}, fmt.Errorf("%w: job %s is %s", ErrJobNotCompleted, jobID, j.Status)
	}

	docContext := s.buildContext(j)
	prompt := fmt.Sprintf(chatPrompt, docContext, latest.Content)

	if err := s.limiter.Acquire(ctx, ratelimit.KindLanguage); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrChatFailed, err)
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if s.callTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}

	reply, err := s.gen.Generate(callCtx, prompt)
	if err != nil {
		slog.ErrorContext(ctx, "chat generation failed", "job_id", jobID, "error", err)
		return Message{}, fmt.Errorf("%w: %v", ErrChatFailed, err)
	}
	if strings.TrimSpace(reply) == "" {
		return Message{}, fmt.Errorf("%w: empty reply", ErrChatFailed)
	}

	if s.logger != nil {
		s.logger.Log(ChatLogEntry{
			JobID:         jobID,
			Question:      latest.Content,
			ReplyLength:   len(reply),
			Duration:      time.Since(start),
			CorrelationID: middleware.GetCorrelationID(ctx),
		})
	}

	return Message{Role: RoleAssistant, Content: reply}, nil
}

// buildContext assembles the grounding text: corrected page text in page
// order, then chunk meaning/summary lines. Truncation is deterministic -
// earlier pages and chunks always survive first.
func (s *Service) buildContext(j *job.Job) string {
	var sections []string

	for _, page := range j.Result.Pages {
		body := page.FixedText
		if strings.TrimSpace(body) == "" {
			body = page.Text
		}
		if strings.TrimSpace(body) == "" {
			continue
		}
		sections = append(sections, fmt.Sprintf("Page %d:\n%s", page.Page, body))
	}

	for _, c := range j.Result.Chunks {
		if c.Summary == "" && c.Meaning == "" {
			continue
		}
		sections = append(sections, fmt.Sprintf("Section (%s, page %d): %s %s", c.Type, c.Page, c.Meaning, c.Summary))
	}

	return text.TruncateSections(sections, s.contextTokens)
}
