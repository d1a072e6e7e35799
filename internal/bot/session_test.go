package bot

import "testing"

func TestSnapshotCreatesSession(t *testing.T) {
	store := NewSessionStore()
	s, gen := store.Snapshot(1, "alice")
	if s.ChatID != 1 || s.Username != "alice" || s.State != StateNone {
		t.Fatalf("unexpected fresh session: %+v", s)
	}
	if gen != 0 {
		t.Fatalf("fresh generation = %d, want 0", gen)
	}
}

func TestCommitRoundTrip(t *testing.T) {
	store := NewSessionStore()
	s, gen := store.Snapshot(1, "alice")
	s.State = StateUsefulHabitMenu
	s.Form.Name = "Бег"
	if !store.Commit(1, s, gen) {
		t.Fatal("commit with matching generation must succeed")
	}
	got, _ := store.Snapshot(1, "alice")
	if got.State != StateUsefulHabitMenu || got.Form.Name != "Бег" {
		t.Fatalf("committed session not visible: %+v", got)
	}
}

func TestResetInvalidatesOutstandingSnapshot(t *testing.T) {
	store := NewSessionStore()
	s, gen := store.Snapshot(1, "alice")
	s.State = StateWaitingForDays

	store.Reset(1)
	if store.Commit(1, s, gen) {
		t.Fatal("commit against a reset session must fail")
	}
	got, _ := store.Snapshot(1, "alice")
	if got.State != StateMainMenu {
		t.Fatalf("state after reset = %q, want main_menu", got.State)
	}
}

func TestResetKeepsCredentials(t *testing.T) {
	store := NewSessionStore()
	s, gen := store.Snapshot(1, "alice")
	s.AccessToken = "tok"
	s.RefreshToken = "ref"
	s.State = StateWaitingForDays
	s.Form.Name = "Бег"
	if !store.Commit(1, s, gen) {
		t.Fatal("commit failed")
	}

	store.Reset(1)
	got, _ := store.Snapshot(1, "alice")
	if got.AccessToken != "tok" || got.RefreshToken != "ref" {
		t.Fatalf("credentials lost on reset: %+v", got)
	}
	if got.Form != (HabitForm{}) || got.State != StateMainMenu {
		t.Fatalf("flow state survived reset: %+v", got)
	}
}

func TestClearDropsSession(t *testing.T) {
	store := NewSessionStore()
	s, gen := store.Snapshot(1, "alice")
	s.AccessToken = "tok"
	if !store.Commit(1, s, gen) {
		t.Fatal("commit failed")
	}

	store.Clear(1)
	got, _ := store.Snapshot(1, "alice")
	if got.AccessToken != "" {
		t.Fatalf("cleared session kept token: %+v", got)
	}
}

func TestSnapshotsAreIsolated(t *testing.T) {
	store := NewSessionStore()
	s, gen := store.Snapshot(1, "alice")
	s.PendingMessageIDs = append(s.PendingMessageIDs, 10)
	if !store.Commit(1, s, gen) {
		t.Fatal("commit failed")
	}

	a, _ := store.Snapshot(1, "alice")
	a.PendingMessageIDs[0] = 99

	b, _ := store.Snapshot(1, "alice")
	if b.PendingMessageIDs[0] != 10 {
		t.Fatalf("snapshot mutation leaked into store: %+v", b.PendingMessageIDs)
	}
}
