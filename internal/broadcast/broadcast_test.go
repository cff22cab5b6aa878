package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeMessenger struct {
	mu     sync.Mutex
	texts  map[int64]int
	photos map[int64]int
	fail   map[int64]error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		texts:  make(map[int64]int),
		photos: make(map[int64]int),
		fail:   make(map[int64]error),
	}
}

func (f *fakeMessenger) SendText(_ context.Context, userID int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[userID]; err != nil {
		return err
	}
	f.texts[userID]++
	return nil
}

func (f *fakeMessenger) SendPhoto(_ context.Context, userID int64, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[userID]; err != nil {
		return err
	}
	f.photos[userID]++
	return nil
}

func TestRunDeliversToEveryRecipientOnce(t *testing.T) {
	m := newFakeMessenger()
	d := New(m, time.Millisecond)

	job := Job{
		Payload:    Payload{Kind: KindText, Text: "hi"},
		Recipients: []int64{1, 2, 3, 4},
	}
	summary := d.Run(context.Background(), job)

	if summary.Attempted != 4 || summary.Succeeded != 4 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	for _, id := range job.Recipients {
		if m.texts[id] != 1 {
			t.Fatalf("user %d received %d messages, want 1", id, m.texts[id])
		}
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	m := newFakeMessenger()
	m.fail[2] = errors.New("blocked by user")
	m.fail[4] = errors.New("chat not found")
	d := New(m, time.Millisecond)

	summary := d.Run(context.Background(), Job{
		Payload:    Payload{Kind: KindText, Text: "hi"},
		Recipients: []int64{1, 2, 3, 4, 5},
	})

	if summary.Attempted != 5 {
		t.Fatalf("attempted = %d, want 5", summary.Attempted)
	}
	if summary.Succeeded != 3 || summary.Failed != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Err == nil {
		t.Fatal("expected aggregated error")
	}
	for _, id := range []int64{1, 3, 5} {
		if m.texts[id] != 1 {
			t.Fatalf("user %d received %d messages, want 1", id, m.texts[id])
		}
	}
}

func TestRunPhotoPayload(t *testing.T) {
	m := newFakeMessenger()
	d := New(m, time.Millisecond)

	summary := d.Run(context.Background(), Job{
		Payload:    Payload{Kind: KindPhoto, MediaRef: "file-1", Text: "caption"},
		Recipients: []int64{7},
	})

	if summary.Succeeded != 1 || m.photos[7] != 1 || m.texts[7] != 0 {
		t.Fatalf("photo not delivered: %+v texts=%v photos=%v", summary, m.texts, m.photos)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	m := newFakeMessenger()
	d := New(m, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	recipients := make([]int64, 100)
	for i := range recipients {
		recipients[i] = int64(i + 1)
	}

	done := make(chan Summary, 1)
	go func() {
		done <- d.Run(ctx, Job{Payload: Payload{Kind: KindText, Text: "x"}, Recipients: recipients})
	}()
	time.Sleep(120 * time.Millisecond)
	cancel()

	select {
	case summary := <-done:
		if summary.Attempted >= len(recipients) {
			t.Fatalf("run did not stop early: %+v", summary)
		}
		if summary.Err == nil {
			t.Fatal("expected cancellation in aggregated error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
