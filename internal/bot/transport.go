package bot

import "context"

// Transport delivers rendered updates to the chat surface. The wire protocol
// behind it is out of scope here; implementations adapt to a concrete
// messaging platform.
type Transport interface {
	// SendMessage posts text with an optional keyboard and returns the
	// transport message id, used later for cleanup.
	SendMessage(ctx context.Context, chatID int64, text string, kb *Keyboard) (int, error)
	// DeleteMessages removes previously sent messages. Missing ids are not
	// an error.
	DeleteMessages(ctx context.Context, chatID int64, messageIDs []int) error
}
