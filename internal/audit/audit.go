package audit

import (
	"time"

	"github.com/google/uuid"

	"healthomics/internal/logging"
)

type Event struct {
	ID        string
	Timestamp time.Time
	Tool      string
	Toolset   string
	Resources []string
	Outcome   string
	ErrorCode string
	Error     string
	Duration  time.Duration
}

// Logger records one entry per tool invocation on the process logger.
type Logger struct {
	log logging.Logger
}

func NewLogger(log logging.Logger) *Logger {
	if log == nil {
		log = logging.Discard()
	}
	return &Logger{log: log.With("component", "audit")}
}

func (l *Logger) Log(event Event) {
	if l == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	keyvals := []any{
		"id", event.ID,
		"ts", event.Timestamp.Format(time.RFC3339Nano),
		"tool", event.Tool,
		"toolset", event.Toolset,
		"outcome", event.Outcome,
		"durationMs", event.Duration.Milliseconds(),
	}
	if len(event.Resources) > 0 {
		keyvals = append(keyvals, "resources", event.Resources)
	}
	if event.Error != "" {
		keyvals = append(keyvals, "errorCode", event.ErrorCode, "error", event.Error)
		l.log.Warn("tool call", keyvals...)
		return
	}
	l.log.Info("tool call", keyvals...)
}
