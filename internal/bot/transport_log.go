package bot

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// LogTransport writes outgoing messages to the log instead of a chat
// platform. It stands in wherever a concrete messaging adapter is not wired,
// including the reminder sweep in development.
type LogTransport struct {
	logger *slog.Logger
	nextID atomic.Int64
}

func NewLogTransport(logger *slog.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) SendMessage(_ context.Context, chatID int64, text string, kb *Keyboard) (int, error) {
	id := int(t.nextID.Add(1))
	buttons := 0
	if kb != nil {
		for _, row := range kb.Rows {
			buttons += len(row)
		}
	}
	t.logger.Info("outgoing message",
		"chat_id", chatID,
		"message_id", id,
		"text", text,
		"buttons", buttons)
	return id, nil
}

func (t *LogTransport) DeleteMessages(_ context.Context, chatID int64, messageIDs []int) error {
	t.logger.Info("delete messages", "chat_id", chatID, "count", len(messageIDs))
	return nil
}
