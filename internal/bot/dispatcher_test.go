package bot

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
)

func TestDispatcherSerializesPerChat(t *testing.T) {
	api := newFakeAPI()
	c, sessions := newTestController(api)
	transport := &recordingTransport{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := NewDispatcher(c, sessions, transport, logger)

	ctx := context.Background()
	actions := []Action{
		ActionStart,
		ActionUseful,
		ActionOption,
		Action("Бег"),
		Action("Бегать по утрам"),
		Action("14"),
	}
	for _, a := range actions {
		d.Dispatch(ctx, testChat, "alice", a)
	}
	d.Close()

	// Arrival order preserved: the form flow only completes if no action
	// overtook another.
	if len(api.created) != 1 {
		t.Fatalf("created habits = %d, want 1", len(api.created))
	}
	if api.created[0].Name != "Бег" || api.created[0].TargetDays != 14 {
		t.Fatalf("unexpected habit: %+v", api.created[0])
	}
	s, _ := sessions.Snapshot(testChat, "alice")
	if s.State != StateMainMenu {
		t.Fatalf("final state = %q, want main_menu", s.State)
	}
	if len(transport.sends) != len(actions) {
		t.Fatalf("sends = %d, want %d", len(transport.sends), len(actions))
	}
	// Finishing the form sweeps the four intermediate prompts.
	if len(transport.deleted) != 1 || len(transport.deleted[0]) != 4 {
		t.Fatalf("deleted batches = %+v, want one batch of 4", transport.deleted)
	}
	if len(s.PendingMessageIDs) != 0 {
		t.Fatalf("pending ids left over: %v", s.PendingMessageIDs)
	}
}

func TestDispatcherIndependentChats(t *testing.T) {
	api := newFakeAPI()
	c, sessions := newTestController(api)
	transport := &recordingTransport{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := NewDispatcher(c, sessions, transport, logger)

	ctx := context.Background()
	for chat := int64(1); chat <= 4; chat++ {
		d.Dispatch(ctx, chat, "alice", ActionStart)
		d.Dispatch(ctx, chat, "alice", ActionUseful)
	}
	d.Close()

	for chat := int64(1); chat <= 4; chat++ {
		s, _ := sessions.Snapshot(chat, "alice")
		if s.State != StateUsefulHabitMenu {
			t.Fatalf("chat %d state = %q, want useful_habit_menu", chat, s.State)
		}
	}
}

// gatedTransport blocks every send until the gate channel is closed, keeping
// the chat's worker busy so the queue behind it fills up.
type gatedTransport struct {
	recordingTransport
	gate chan struct{}
}

func (t *gatedTransport) SendMessage(ctx context.Context, chatID int64, text string, kb *Keyboard) (int, error) {
	<-t.gate
	return t.recordingTransport.SendMessage(ctx, chatID, text, kb)
}

func TestCloseReleasesParkedSenders(t *testing.T) {
	api := newFakeAPI()
	c, sessions := newTestController(api)
	transport := &gatedTransport{gate: make(chan struct{})}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := NewDispatcher(c, sessions, transport, logger)
	ctx := context.Background()

	// The first action occupies the worker inside the blocked transport;
	// the rest overfill the queue so the extra senders park.
	d.Dispatch(ctx, testChat, "alice", ActionStart)
	var wg sync.WaitGroup
	for i := 0; i < chatQueueSize+8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Dispatch panicked during Close: %v", r)
				}
			}()
			d.Dispatch(ctx, testChat, "alice", ActionUseful)
		}()
	}

	closed := make(chan struct{})
	go func() {
		d.Close()
		close(closed)
	}()

	// Parked senders must return once Close runs, while the worker is
	// still stuck in the transport.
	wg.Wait()
	close(transport.gate)
	<-closed

	d.Dispatch(ctx, testChat, "alice", ActionStart)
}

func TestDispatcherIgnoresAfterClose(t *testing.T) {
	api := newFakeAPI()
	c, sessions := newTestController(api)
	transport := &recordingTransport{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := NewDispatcher(c, sessions, transport, logger)
	d.Close()

	d.Dispatch(context.Background(), testChat, "alice", ActionStart)
	if len(transport.sends) != 0 {
		t.Fatalf("dispatch after close sent %d messages", len(transport.sends))
	}
}
