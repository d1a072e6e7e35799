package bot

import (
	"context"
	"log/slog"
	"sync"
)

const chatQueueSize = 16

type task struct {
	chatID   int64
	username string
	action   Action
}

// Dispatcher serializes actions per chat: each chat gets its own queue and
// worker goroutine, so a chat's actions are handled strictly in arrival
// order while different chats proceed concurrently.
type Dispatcher struct {
	ctrl      *Controller
	sessions  *SessionStore
	transport Transport
	logger    *slog.Logger

	mu     sync.Mutex
	queues map[int64]chan task
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewDispatcher(ctrl *Controller, sessions *SessionStore, transport Transport, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		ctrl:      ctrl,
		sessions:  sessions,
		transport: transport,
		logger:    logger,
		queues:    make(map[int64]chan task),
		done:      make(chan struct{}),
	}
}

// Dispatch enqueues an action for its chat's worker, starting the worker on
// first contact. It blocks only when the chat's queue is full.
func (d *Dispatcher) Dispatch(ctx context.Context, chatID int64, username string, action Action) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	q, ok := d.queues[chatID]
	if !ok {
		q = make(chan task, chatQueueSize)
		d.queues[chatID] = q
		d.wg.Add(1)
		go d.worker(ctx, q)
	}
	d.mu.Unlock()

	// The queues are never closed, so a sender parked on a full queue
	// unblocks through the done channel instead of panicking when Close
	// runs underneath it.
	select {
	case q <- task{chatID: chatID, username: username, action: action}:
	case <-d.done:
	case <-ctx.Done():
	}
}

// Close stops accepting new actions, waits for the workers to finish what
// is already queued, and releases any sender parked on a full queue.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.done)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker(ctx context.Context, q chan task) {
	defer d.wg.Done()
	for {
		select {
		case t := <-q:
			d.handle(ctx, t)
		case <-d.done:
			// Drain what was accepted before shutdown, then exit.
			for {
				select {
				case t := <-q:
					d.handle(ctx, t)
				default:
					return
				}
			}
		}
	}
}

// handle runs one action with panic isolation: a crash in one chat's handler
// must not take down the other chats.
func (d *Dispatcher) handle(ctx context.Context, t task) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("bot handler panicked",
				"chat_id", t.chatID,
				"action", string(t.action),
				"panic", r)
		}
	}()

	update := d.ctrl.OnAction(ctx, t.chatID, t.username, t.action)
	if update.Text == "" && update.Keyboard == nil {
		return
	}
	msgID, err := d.transport.SendMessage(ctx, t.chatID, update.Text, update.Keyboard)
	if err != nil {
		d.logger.Warn("send failed", "chat_id", t.chatID, "error", err)
		return
	}

	// A flow that lands back in the main menu is over: sweep the
	// intermediate messages it accumulated.
	if update.TargetState == StateMainMenu {
		if ids := d.sessions.TakePendingMessages(t.chatID); len(ids) > 0 {
			if err := d.transport.DeleteMessages(ctx, t.chatID, ids); err != nil {
				d.logger.Warn("cleanup failed", "chat_id", t.chatID, "error", err)
			}
		}
		return
	}
	d.sessions.AppendPendingMessage(t.chatID, msgID)
}
