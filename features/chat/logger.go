package chat

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type ChatLogEntry struct {
	Timestamp     time.Time     `json:"timestamp"`
	JobID         string        `json:"job_id"`
	Question      string        `json:"question"`
	ReplyLength   int           `json:"reply_length"`
	Duration      time.Duration `json:"duration_ns"`
	LatencyMs     int64         `json:"latency_ms"`
	CorrelationID string        `json:"correlation_id"`
}

type ChatLogger struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewChatLogger(w io.Writer) *ChatLogger {
	return &ChatLogger{writer: w}
}

func NewFileChatLogger(path string) (*ChatLogger, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}

	cleanPath := filepath.Clean(path)
	f, err := os.OpenFile(cleanPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, f)
	return NewChatLogger(mw), nil
}

func (l *ChatLogger) Log(entry ChatLogEntry) {
	entry.Timestamp = time.Now()
	entry.LatencyMs = entry.Duration.Milliseconds()

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := json.NewEncoder(l.writer).Encode(entry); err != nil {
		slog.Error("failed to write chat log entry", "error", err)
	}
}
