// Package storage holds conversation state: the in-memory per-identity
// history the agent feeds to the LLM, and a SQLite transcript archive for
// operators.
package storage

import (
	"sync"
	"time"

	"supportagent/model"
)

// ConversationStore keeps one bounded, append-only message history per
// identity. Appends for different identities never block each other; appends
// for the same identity are serialized. Histories live for the process
// lifetime and are never persisted (the transcript archive is separate).
type ConversationStore struct {
	mu            sync.Mutex // guards the conversations map only
	conversations map[string]*conversation
	maxHistory    int
}

type conversation struct {
	mu           sync.Mutex
	messages     []model.Message
	lastActivity time.Time
}

// NewConversationStore creates a store that retains at most maxHistory
// messages per identity. A maxHistory of 0 or less means unbounded.
func NewConversationStore(maxHistory int) *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string]*conversation),
		maxHistory:    maxHistory,
	}
}

func (s *ConversationStore) get(identity model.Identity) *conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := identity.Key()
	conv, ok := s.conversations[key]
	if !ok {
		conv = &conversation{}
		s.conversations[key] = conv
	}
	return conv
}

// Append adds a message to the end of the identity's history, creating the
// conversation on first use. When the history exceeds the retention cap the
// oldest non-system entries are dropped first.
func (s *ConversationStore) Append(identity model.Identity, msg model.Message) {
	conv := s.get(identity)

	conv.mu.Lock()
	defer conv.mu.Unlock()

	conv.messages = append(conv.messages, msg)
	conv.lastActivity = msg.Timestamp
	if conv.lastActivity.IsZero() {
		conv.lastActivity = time.Now()
	}

	if s.maxHistory > 0 && len(conv.messages) > s.maxHistory {
		conv.messages = trimOldest(conv.messages, s.maxHistory)
	}
}

// trimOldest drops the oldest non-system messages until the history fits the
// cap. System messages are preserved regardless of age.
func trimOldest(messages []model.Message, cap int) []model.Message {
	excess := len(messages) - cap

	kept := make([]model.Message, 0, cap)
	for _, msg := range messages {
		if excess > 0 && msg.Role != "system" {
			excess--
			continue
		}
		kept = append(kept, msg)
	}
	return kept
}

// History returns a snapshot copy of the identity's history. The returned
// slice is owned by the caller; concurrent appends never mutate it.
func (s *ConversationStore) History(identity model.Identity) []model.Message {
	conv := s.get(identity)

	conv.mu.Lock()
	defer conv.mu.Unlock()

	snapshot := make([]model.Message, len(conv.messages))
	copy(snapshot, conv.messages)
	return snapshot
}

// Len returns the number of messages currently retained for the identity.
func (s *ConversationStore) Len(identity model.Identity) int {
	conv := s.get(identity)

	conv.mu.Lock()
	defer conv.mu.Unlock()
	return len(conv.messages)
}

// Clear empties the identity's history.
func (s *ConversationStore) Clear(identity model.Identity) {
	conv := s.get(identity)

	conv.mu.Lock()
	defer conv.mu.Unlock()
	conv.messages = nil
	conv.lastActivity = time.Time{}
}

// ResetIfExpired clears the identity's history when the last activity is
// older than the given timeout. Returns true if the history was cleared.
// A timeout of 0 or less disables expiry.
func (s *ConversationStore) ResetIfExpired(identity model.Identity, timeout time.Duration) bool {
	if timeout <= 0 {
		return false
	}

	conv := s.get(identity)

	conv.mu.Lock()
	defer conv.mu.Unlock()

	if conv.lastActivity.IsZero() || len(conv.messages) == 0 {
		return false
	}
	if time.Since(conv.lastActivity) <= timeout {
		return false
	}

	conv.messages = nil
	conv.lastActivity = time.Time{}
	return true
}
