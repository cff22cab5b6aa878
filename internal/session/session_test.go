package session

import (
	"sync"
	"testing"
)

func TestManagerDefaultsToMenu(t *testing.T) {
	m := NewManager()
	if m.State(1) != StateMenu {
		t.Fatalf("state = %s, want menu", m.State(1))
	}
	if m.InProgress(1) {
		t.Fatal("fresh user must not be in progress")
	}
}

func TestManagerTransitions(t *testing.T) {
	m := NewManager()
	m.SetState(5, StateTopUpAmount)
	if !m.InProgress(5) {
		t.Fatal("expected in-progress")
	}
	if m.State(7) != StateMenu {
		t.Fatal("states must be isolated per user")
	}
	m.Reset(5)
	if m.State(5) != StateMenu {
		t.Fatalf("state = %s after reset", m.State(5))
	}
}

func TestManagerDraftLifecycle(t *testing.T) {
	m := NewManager()
	m.StageDraft(9, Draft{Kind: DraftText, Text: "hello"})
	if m.State(9) != StateBroadcastConfirm {
		t.Fatalf("state = %s, want broadcast_confirm", m.State(9))
	}

	draft, ok := m.TakeDraft(9)
	if !ok {
		t.Fatal("expected staged draft")
	}
	if draft.Text != "hello" || draft.Kind != DraftText {
		t.Fatalf("unexpected draft: %+v", draft)
	}
	if m.State(9) != StateMenu {
		t.Fatal("take must return user to menu")
	}

	// A second take (stale button press) yields nothing.
	if _, ok := m.TakeDraft(9); ok {
		t.Fatal("draft must be single-use")
	}
}

func TestManagerDraftClearedOnStateChange(t *testing.T) {
	m := NewManager()
	m.StageDraft(3, Draft{Kind: DraftPhoto, MediaRef: "file-1", Text: "cap"})
	m.SetState(3, StateMenu)
	if _, ok := m.TakeDraft(3); ok {
		t.Fatal("leaving confirm state must drop the draft")
	}
}

func TestManagerDoSerializesPerUser(t *testing.T) {
	m := NewManager()
	const rounds = 200
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < rounds; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Do(42, func(s *Session) error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()
	if counter != rounds {
		t.Fatalf("counter = %d, want %d", counter, rounds)
	}
}
