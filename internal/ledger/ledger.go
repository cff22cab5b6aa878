package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/m3rciful/refbot/core/logger"
	"github.com/m3rciful/refbot/internal/storage"
)

// ErrUserNotFound marks operations against an identity with no record.
var ErrUserNotFound = errors.New("ledger: user not found")

// Service owns every balance mutation. Reads may hit the store directly;
// writes go through here so each identity's read-modify-write is serialized.
type Service struct {
	store storage.Store

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func New(store storage.Store) *Service {
	return &Service{
		store: store,
		locks: make(map[int64]*sync.Mutex),
	}
}

// userLock returns the mutex dedicated to one identity, creating it lazily.
// Locks are never evicted; the map grows with the user base, which is small
// relative to the records already held by the store.
func (s *Service) userLock(id int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// RegisterParams describes one registration attempt.
type RegisterParams struct {
	ID          int64
	DisplayName string
	ReferrerID  int64
}

// RegisterResult reports what the attempt actually did.
type RegisterResult struct {
	Created bool
	// ReferrerID is non-zero only when a referral bonus was credited.
	ReferrerID int64
	Bonus      int64
	Balance    int64
}

// Register creates the identity if it is new, seeding the configured initial
// balance. A referrer equal to the identity itself or pointing to an unknown
// user is dropped rather than rejected; when the referrer is valid the bonus
// is credited to it exactly once, coupled to the creation.
func (s *Service) Register(ctx context.Context, p RegisterParams) (RegisterResult, error) {
	lock := s.userLock(p.ID)
	lock.Lock()
	defer lock.Unlock()

	exists, err := s.store.UserExists(ctx, p.ID)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("register: %w", err)
	}
	if exists {
		// Re-registration keeps the display name fresh and touches nothing else.
		if err := s.store.UpdateDisplayName(ctx, p.ID, p.DisplayName); err != nil {
			return RegisterResult{}, fmt.Errorf("register: %w", err)
		}
		balance, err := s.store.GetBalance(ctx, p.ID)
		if err != nil {
			return RegisterResult{}, fmt.Errorf("register: %w", err)
		}
		return RegisterResult{Balance: balance}, nil
	}

	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("register: %w", err)
	}

	referrerID := p.ReferrerID
	if referrerID == p.ID {
		referrerID = 0
	}
	if referrerID != 0 {
		known, err := s.store.UserExists(ctx, referrerID)
		if err != nil {
			return RegisterResult{}, fmt.Errorf("register: %w", err)
		}
		if !known {
			referrerID = 0
		}
	}

	if err := s.store.CreateUser(ctx, p.ID, p.DisplayName, referrerID, settings.InitialBalance); err != nil {
		return RegisterResult{}, fmt.Errorf("register: %w", err)
	}

	result := RegisterResult{Created: true, Balance: settings.InitialBalance}
	if referrerID != 0 && settings.ReferralBonus > 0 {
		if err := s.creditBonus(ctx, referrerID, settings.ReferralBonus); err != nil {
			// The new user is already persisted; surface the bonus failure
			// without undoing the registration.
			logger.LogEvent(ctx, logger.SVCLedger, slog.LevelError, "referral.bonus_failed",
				slog.Int64("user_id", p.ID),
				slog.Int64("referrer_id", referrerID),
				slog.String("err", err.Error()))
			return result, nil
		}
		result.ReferrerID = referrerID
		result.Bonus = settings.ReferralBonus
	}

	logger.LogEvent(ctx, logger.SVCLedger, slog.LevelInfo, "user.registered",
		slog.Int64("user_id", p.ID),
		slog.Int64("referrer_id", referrerID),
		slog.Int64("balance", settings.InitialBalance))
	return result, nil
}

func (s *Service) creditBonus(ctx context.Context, referrerID, bonus int64) error {
	lock := s.userLock(referrerID)
	lock.Lock()
	defer lock.Unlock()

	balance, err := s.store.GetBalance(ctx, referrerID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	return s.store.SetBalance(ctx, referrerID, balance+bonus)
}

// AdjustBalance applies a signed delta to one identity and returns the new
// balance. Unknown identities yield ErrUserNotFound.
func (s *Service) AdjustBalance(ctx context.Context, id, delta int64) (int64, error) {
	lock := s.userLock(id)
	lock.Lock()
	defer lock.Unlock()

	balance, err := s.store.GetBalance(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("adjust balance: %w", err)
	}
	next := balance + delta
	if err := s.store.SetBalance(ctx, id, next); err != nil {
		return 0, fmt.Errorf("adjust balance: %w", err)
	}
	logger.LogEvent(ctx, logger.SVCLedger, slog.LevelInfo, "balance.adjusted",
		slog.Int64("user_id", id),
		slog.Int64("amount", delta),
		slog.Int64("balance", next))
	return next, nil
}

// BulkResult summarizes a fleet-wide adjustment.
type BulkResult struct {
	Attempted int
	Adjusted  int
	Err       error
}

// BulkAdjustBalance applies the delta to every known user. A failure on one
// user is recorded and the sweep continues; onApplied, when set, fires after
// each successful adjustment with the updated record.
func (s *Service) BulkAdjustBalance(ctx context.Context, delta int64, onApplied func(user storage.User, balance int64)) (BulkResult, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return BulkResult{}, fmt.Errorf("bulk adjust: %w", err)
	}

	result := BulkResult{Attempted: len(users)}
	var errs *multierror.Error
	for _, user := range users {
		balance, err := s.AdjustBalance(ctx, user.ID, delta)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("user %d: %w", user.ID, err))
			continue
		}
		result.Adjusted++
		if onApplied != nil {
			onApplied(user, balance)
		}
	}
	result.Err = errs.ErrorOrNil()

	logger.LogEvent(ctx, logger.SVCLedger, slog.LevelInfo, "balance.bulk_adjusted",
		slog.Int64("amount", delta),
		slog.Int("attempted", result.Attempted),
		slog.Int("succeeded", result.Adjusted))
	return result, nil
}

// Balance reads the current balance for one identity.
func (s *Service) Balance(ctx context.Context, id int64) (int64, error) {
	balance, err := s.store.GetBalance(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, ErrUserNotFound
	}
	return balance, err
}

// TopByBalance returns up to n users ranked by balance, registration order
// breaking ties.
func (s *Service) TopByBalance(ctx context.Context, n int) ([]storage.User, error) {
	return s.store.TopByBalance(ctx, n)
}

// TopByReferrals returns up to n referrers ranked by referral count.
func (s *Service) TopByReferrals(ctx context.Context, n int) ([]storage.ReferralRank, error) {
	return s.store.TopByReferrals(ctx, n)
}
