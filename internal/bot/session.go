package bot

import "sync"

// HabitForm accumulates the habit-creation fields across the three input
// states. It only reaches storage at the terminal step.
type HabitForm struct {
	Name        string
	Description string
	TargetDays  int
}

// Session is the per-chat transient conversation record. It is never
// persisted: losing it just restarts the flow on the next contact.
type Session struct {
	ChatID   int64
	Username string
	State    State

	Form        HabitForm
	EditHabitID uint
	EditField   Action

	// PendingMessageIDs are transport message ids queued for cleanup when
	// the current flow finishes.
	PendingMessageIDs []int

	AccessToken  string
	RefreshToken string
}

// SessionStore keeps sessions per chat. Mutations go through a
// snapshot/commit cycle: a handler works on a copy, and the copy is committed
// only if the session generation has not moved, so a cancel issued while a
// collaborator call is in flight wins over the call's late result.
type SessionStore struct {
	mu          sync.Mutex
	sessions    map[int64]*Session
	generations map[int64]uint64
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions:    make(map[int64]*Session),
		generations: make(map[int64]uint64),
	}
}

// Snapshot returns a copy of the chat's session (creating one if absent) and
// the generation the copy was taken at.
func (st *SessionStore) Snapshot(chatID int64, username string) (Session, uint64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[chatID]
	if !ok {
		s = &Session{ChatID: chatID, Username: username}
		st.sessions[chatID] = s
	}
	if s.Username == "" {
		s.Username = username
	}
	cp := *s
	cp.PendingMessageIDs = append([]int(nil), s.PendingMessageIDs...)
	return cp, st.generations[chatID]
}

// Commit stores the mutated copy if the generation still matches. It reports
// whether the commit took effect.
func (st *SessionStore) Commit(chatID int64, s Session, generation uint64) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.generations[chatID] != generation {
		return false
	}
	cp := s
	st.sessions[chatID] = &cp
	return true
}

// AppendPendingMessage records a transport message id for later cleanup.
// Bookkeeping only: it does not bump the generation.
func (st *SessionStore) AppendPendingMessage(chatID int64, messageID int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[chatID]; ok {
		s.PendingMessageIDs = append(s.PendingMessageIDs, messageID)
	}
}

// TakePendingMessages returns and clears the chat's queued message ids.
func (st *SessionStore) TakePendingMessages(chatID int64) []int {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[chatID]
	if !ok {
		return nil
	}
	ids := s.PendingMessageIDs
	s.PendingMessageIDs = nil
	return ids
}

// Reset discards the chat's flow state while keeping its credentials, and
// bumps the generation so any in-flight snapshot can no longer commit.
func (st *SessionStore) Reset(chatID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[chatID]; ok {
		s.State = StateMainMenu
		s.Form = HabitForm{}
		s.EditHabitID = 0
		s.EditField = ""
		s.PendingMessageIDs = nil
	}
	st.generations[chatID]++
}

// Clear drops the chat's session entirely and bumps the generation so any
// in-flight snapshot of it can no longer commit.
func (st *SessionStore) Clear(chatID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, chatID)
	st.generations[chatID]++
}
