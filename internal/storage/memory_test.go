package storage

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCreateUserIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(Settings{})

	if err := store.CreateUser(ctx, 10, "alice", 0, 25); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.SetBalance(ctx, 10, 90); err != nil {
		t.Fatalf("set balance: %v", err)
	}
	if err := store.CreateUser(ctx, 10, "impostor", 77, 25); err != nil {
		t.Fatalf("re-create: %v", err)
	}

	u, err := store.GetUser(ctx, 10)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.Balance != 90 || u.ReferrerID != 0 || u.DisplayName != "alice" {
		t.Fatalf("re-create overwrote record: %+v", u)
	}
}

func TestMemoryTopByBalanceStableTies(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(Settings{})
	for _, id := range []int64{1, 2, 3} {
		if err := store.CreateUser(ctx, id, "u", 0, 50); err != nil {
			t.Fatalf("create %d: %v", id, err)
		}
	}

	top, err := store.TopByBalance(ctx, 2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 || top[0].ID != 1 || top[1].ID != 2 {
		t.Fatalf("expected registration-order tie-break, got %+v", top)
	}
}

func TestMemoryTopByReferrals(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(Settings{})
	if err := store.CreateUser(ctx, 1, "a", 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateUser(ctx, 2, "b", 0, 0); err != nil {
		t.Fatal(err)
	}
	for _, pair := range []struct{ id, ref int64 }{{3, 1}, {4, 1}, {5, 2}} {
		if err := store.CreateUser(ctx, pair.id, "r", pair.ref, 0); err != nil {
			t.Fatal(err)
		}
	}

	ranks, err := store.TopByReferrals(ctx, 5)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(ranks) != 2 {
		t.Fatalf("expected 2 ranks, got %+v", ranks)
	}
	if ranks[0].UserID != 1 || ranks[0].Count != 2 {
		t.Fatalf("unexpected leader: %+v", ranks[0])
	}
	if ranks[1].UserID != 2 || ranks[1].Count != 1 {
		t.Fatalf("unexpected runner-up: %+v", ranks[1])
	}
}

func TestMemoryTopByReferralsTiesByRegistrationOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(Settings{})

	// Referrer 500 registers before referrer 3; ids must not decide ties.
	if err := store.CreateUser(ctx, 500, "early", 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateUser(ctx, 3, "late", 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateUser(ctx, 10, "r1", 500, 0); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateUser(ctx, 11, "r2", 3, 0); err != nil {
		t.Fatal(err)
	}

	ranks, err := store.TopByReferrals(ctx, 2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(ranks) != 2 {
		t.Fatalf("expected 2 ranks, got %+v", ranks)
	}
	if ranks[0].UserID != 500 || ranks[1].UserID != 3 {
		t.Fatalf("tie must break by registration order: got leader %d, want 500 (%+v)",
			ranks[0].UserID, ranks)
	}
}

func TestMemoryListUsersSince(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(Settings{})

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return base.AddDate(0, 0, -10) })
	if err := store.CreateUser(ctx, 1, "old", 0, 0); err != nil {
		t.Fatal(err)
	}
	store.SetClock(func() time.Time { return base.Add(-2 * time.Hour) })
	if err := store.CreateUser(ctx, 2, "fresh", 0, 0); err != nil {
		t.Fatal(err)
	}
	store.SetClock(func() time.Time { return base })

	recent, err := store.ListUsersSince(ctx, 7)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != 2 {
		t.Fatalf("expected only the fresh user, got %+v", recent)
	}
}

func TestMemoryUpdateSetting(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(Settings{PaymentAccount: "old", VideoPrice: 1})

	if err := store.UpdateSetting(ctx, SettingPaymentAccount, "79990001122"); err != nil {
		t.Fatalf("account: %v", err)
	}
	if err := store.UpdateSetting(ctx, SettingVideoPrice, "150"); err != nil {
		t.Fatalf("video: %v", err)
	}
	if err := store.UpdateSetting(ctx, "nope", "1"); err == nil {
		t.Fatal("expected error for unknown setting")
	}

	s, err := store.GetSettings(ctx)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if s.PaymentAccount != "79990001122" || s.VideoPrice != 150 {
		t.Fatalf("settings not applied: %+v", s)
	}
}

func TestMemoryFiles(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(Settings{})

	id1, err := store.AddFile(ctx, "ph-1", FileKindPhoto, 7)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := store.AddFile(ctx, "vd-1", FileKindVideo, 7); err != nil {
		t.Fatalf("add: %v", err)
	}

	photos, err := store.ListFiles(ctx, FileKindPhoto)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(photos) != 1 || photos[0].MediaRef != "ph-1" {
		t.Fatalf("unexpected photos: %+v", photos)
	}

	if err := store.DeleteFile(ctx, id1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.DeleteFile(ctx, id1); err == nil {
		t.Fatal("expected not-found on double delete")
	}
}
