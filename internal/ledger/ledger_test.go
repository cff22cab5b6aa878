package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/m3rciful/refbot/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.Memory) {
	t.Helper()
	store := storage.NewMemory(storage.Settings{
		InitialBalance: 25,
		ReferralBonus:  15,
	})
	return New(store), store
}

func TestRegisterSeedsInitialBalance(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	res, err := svc.Register(ctx, RegisterParams{ID: 100, DisplayName: "alice"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !res.Created {
		t.Fatal("expected creation")
	}
	if res.Balance != 25 {
		t.Fatalf("balance = %d, want 25", res.Balance)
	}
	if res.ReferrerID != 0 || res.Bonus != 0 {
		t.Fatalf("no bonus expected, got %+v", res)
	}
}

func TestRegisterCreditsReferrerExactlyOnce(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.Register(ctx, RegisterParams{ID: 1, DisplayName: "ref"}); err != nil {
		t.Fatalf("register referrer: %v", err)
	}

	res, err := svc.Register(ctx, RegisterParams{ID: 2, DisplayName: "new", ReferrerID: 1})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.ReferrerID != 1 || res.Bonus != 15 {
		t.Fatalf("expected bonus to 1, got %+v", res)
	}
	balance, err := svc.Balance(ctx, 1)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 40 {
		t.Fatalf("referrer balance = %d, want 40", balance)
	}

	// Re-registration of the same identity never pays the bonus again.
	res, err = svc.Register(ctx, RegisterParams{ID: 2, DisplayName: "new", ReferrerID: 1})
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if res.Created || res.Bonus != 0 {
		t.Fatalf("duplicate registration must be inert, got %+v", res)
	}
	balance, _ = svc.Balance(ctx, 1)
	if balance != 40 {
		t.Fatalf("referrer balance after duplicate = %d, want 40", balance)
	}
}

func TestRegisterDropsSelfAndUnknownReferrer(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	res, err := svc.Register(ctx, RegisterParams{ID: 7, DisplayName: "self", ReferrerID: 7})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.ReferrerID != 0 {
		t.Fatalf("self-referral must be dropped, got %+v", res)
	}
	u, _ := store.GetUser(ctx, 7)
	if u.ReferrerID != 0 {
		t.Fatalf("persisted referrer = %d, want 0", u.ReferrerID)
	}

	res, err = svc.Register(ctx, RegisterParams{ID: 8, DisplayName: "orphan", ReferrerID: 999})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.ReferrerID != 0 {
		t.Fatalf("unknown referrer must be dropped, got %+v", res)
	}
}

func TestAdjustBalanceUnknownUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.AdjustBalance(ctx, 404, 10); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestAdjustBalanceSignedDelta(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	if _, err := svc.Register(ctx, RegisterParams{ID: 1, DisplayName: "a"}); err != nil {
		t.Fatal(err)
	}

	next, err := svc.AdjustBalance(ctx, 1, 100)
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if next != 125 {
		t.Fatalf("balance = %d, want 125", next)
	}
	next, err = svc.AdjustBalance(ctx, 1, -200)
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if next != -75 {
		t.Fatalf("balance = %d, want -75", next)
	}
}

func TestBulkAdjustBalance(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	for id := int64(1); id <= 3; id++ {
		if _, err := svc.Register(ctx, RegisterParams{ID: id, DisplayName: "u"}); err != nil {
			t.Fatal(err)
		}
	}

	var seen []int64
	res, err := svc.BulkAdjustBalance(ctx, 5, func(u storage.User, balance int64) {
		seen = append(seen, u.ID)
		if balance != 30 {
			t.Errorf("user %d balance = %d, want 30", u.ID, balance)
		}
	})
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if res.Attempted != 3 || res.Adjusted != 3 || res.Err != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(seen) != 3 {
		t.Fatalf("callback count = %d, want 3", len(seen))
	}
}

// flakyStore fails balance writes for one identity.
type flakyStore struct {
	*storage.Memory
	failID int64
}

func (f *flakyStore) SetBalance(ctx context.Context, id, balance int64) error {
	if id == f.failID {
		return errors.New("write refused")
	}
	return f.Memory.SetBalance(ctx, id, balance)
}

func TestBulkAdjustBalanceSurvivesOneFailure(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{
		Memory: storage.NewMemory(storage.Settings{InitialBalance: 25}),
		failID: 2,
	}
	svc := New(store)
	for id := int64(1); id <= 3; id++ {
		if _, err := svc.Register(ctx, RegisterParams{ID: id, DisplayName: "u"}); err != nil {
			t.Fatal(err)
		}
	}

	res, err := svc.BulkAdjustBalance(ctx, 5, nil)
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if res.Attempted != 3 || res.Adjusted != 2 {
		t.Fatalf("attempted/adjusted = %d/%d, want 3/2", res.Attempted, res.Adjusted)
	}
	if res.Err == nil {
		t.Fatal("expected recorded failure")
	}

	for id, want := range map[int64]int64{1: 30, 2: 25, 3: 30} {
		balance, err := svc.Balance(ctx, id)
		if err != nil {
			t.Fatalf("balance %d: %v", id, err)
		}
		if balance != want {
			t.Fatalf("user %d balance = %d, want %d", id, balance, want)
		}
	}
}

func TestTopByBalanceRanking(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	for id := int64(1); id <= 4; id++ {
		if _, err := svc.Register(ctx, RegisterParams{ID: id, DisplayName: "u"}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.AdjustBalance(ctx, 3, 100); err != nil {
		t.Fatal(err)
	}

	top, err := svc.TopByBalance(ctx, 3)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("len = %d, want 3", len(top))
	}
	if top[0].ID != 3 {
		t.Fatalf("leader = %d, want 3", top[0].ID)
	}
	// Remaining users tie on balance; registration order decides.
	if top[1].ID != 1 || top[2].ID != 2 {
		t.Fatalf("tie-break wrong: %d, %d", top[1].ID, top[2].ID)
	}
}
