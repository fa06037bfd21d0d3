package storage

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"supportagent/model"
)

func identity(userID string) model.Identity {
	return model.Identity{Channel: "whatsapp", UserID: userID}
}

func TestAppendAndHistory(t *testing.T) {
	store := NewConversationStore(10)
	alice := identity("alice")

	store.Append(alice, model.NewUserMessage("hello"))
	store.Append(alice, model.NewAssistantMessage("hi"))

	history := store.History(alice)
	if len(history) != 2 {
		t.Fatalf("history length: got %d, want 2", len(history))
	}
	if history[0].Content != "hello" || history[1].Content != "hi" {
		t.Errorf("history order wrong: %q, %q", history[0].Content, history[1].Content)
	}
}

func TestRetentionCapDropsOldestFirst(t *testing.T) {
	store := NewConversationStore(3)
	alice := identity("alice")

	for i := 1; i <= 5; i++ {
		store.Append(alice, model.NewUserMessage(fmt.Sprintf("msg %d", i)))
	}

	history := store.History(alice)
	if len(history) != 3 {
		t.Fatalf("history length: got %d, want 3", len(history))
	}
	for i, want := range []string{"msg 3", "msg 4", "msg 5"} {
		if history[i].Content != want {
			t.Errorf("history[%d]: got %q, want %q", i, history[i].Content, want)
		}
	}
}

func TestRetentionCapKeepsSystemMessages(t *testing.T) {
	store := NewConversationStore(3)
	alice := identity("alice")

	store.Append(alice, model.Message{Role: "system", Content: "rules"})
	for i := 1; i <= 4; i++ {
		store.Append(alice, model.NewUserMessage(fmt.Sprintf("msg %d", i)))
	}

	history := store.History(alice)
	if len(history) != 3 {
		t.Fatalf("history length: got %d, want 3", len(history))
	}
	if history[0].Role != "system" {
		t.Errorf("system message was trimmed, history[0] role: %q", history[0].Role)
	}
	if history[2].Content != "msg 4" {
		t.Errorf("newest message missing, got %q", history[2].Content)
	}
}

func TestHistoryReturnsSnapshot(t *testing.T) {
	store := NewConversationStore(10)
	alice := identity("alice")

	store.Append(alice, model.NewUserMessage("first"))
	snapshot := store.History(alice)

	store.Append(alice, model.NewUserMessage("second"))

	if len(snapshot) != 1 {
		t.Errorf("snapshot grew after a concurrent append: %d entries", len(snapshot))
	}

	snapshot[0].Content = "mutated"
	if store.History(alice)[0].Content != "first" {
		t.Error("mutating the snapshot leaked into the store")
	}
}

func TestIdentitiesAreIndependent(t *testing.T) {
	store := NewConversationStore(10)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := identity(fmt.Sprintf("user-%d", i))
			for j := 0; j < 20; j++ {
				store.Append(id, model.NewUserMessage(fmt.Sprintf("msg %d", j)))
				store.History(id)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		id := identity(fmt.Sprintf("user-%d", i))
		if n := store.Len(id); n != 10 {
			t.Errorf("%s: got %d messages, want 10 (cap)", id, n)
		}
	}
}

func TestClear(t *testing.T) {
	store := NewConversationStore(10)
	alice := identity("alice")

	store.Append(alice, model.NewUserMessage("hello"))
	store.Clear(alice)

	if n := store.Len(alice); n != 0 {
		t.Errorf("length after Clear: got %d, want 0", n)
	}
}

func TestResetIfExpired(t *testing.T) {
	store := NewConversationStore(10)
	alice := identity("alice")

	msg := model.NewUserMessage("hello")
	msg.Timestamp = time.Now().Add(-2 * time.Hour)
	store.Append(alice, msg)

	tests := []struct {
		name    string
		timeout time.Duration
		want    bool
	}{
		{"expired", time.Hour, true},
		{"disabled", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Re-seed for the second case after the first cleared it.
			if store.Len(alice) == 0 {
				old := model.NewUserMessage("hello again")
				old.Timestamp = time.Now().Add(-2 * time.Hour)
				store.Append(alice, old)
			}

			got := store.ResetIfExpired(alice, tt.timeout)
			if got != tt.want {
				t.Errorf("ResetIfExpired: got %v, want %v", got, tt.want)
			}
			if tt.want && store.Len(alice) != 0 {
				t.Error("history not cleared after expiry")
			}
		})
	}
}

func TestResetIfExpiredFreshConversation(t *testing.T) {
	store := NewConversationStore(10)
	alice := identity("alice")

	store.Append(alice, model.NewUserMessage("hello"))

	if store.ResetIfExpired(alice, time.Hour) {
		t.Error("fresh conversation should not reset")
	}
	if store.Len(alice) != 1 {
		t.Error("fresh conversation was cleared")
	}
}
