package storage

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Memory is a Store kept entirely in process memory. It backs tests and
// preserves insertion order so leaderboard tie-breaks are deterministic.
type Memory struct {
	mu       sync.Mutex
	users    map[int64]*User
	order    []int64
	settings Settings
	files    map[int64]*File
	fileSeq  int64
	now      func() time.Time
}

// NewMemory returns an empty store seeded with the given settings.
func NewMemory(settings Settings) *Memory {
	return &Memory{
		users:    make(map[int64]*User),
		settings: settings,
		files:    make(map[int64]*File),
		now:      time.Now,
	}
}

// SetClock overrides the registration timestamp source.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) UserExists(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[id]
	return ok, nil
}

func (m *Memory) GetUser(_ context.Context, id int64) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return *u, nil
}

func (m *Memory) CreateUser(_ context.Context, id int64, displayName string, referrerID, initialBalance int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; ok {
		return nil
	}
	m.users[id] = &User{
		ID:           id,
		DisplayName:  displayName,
		RegisteredAt: m.now(),
		Balance:      initialBalance,
		ReferrerID:   referrerID,
	}
	m.order = append(m.order, id)
	return nil
}

func (m *Memory) GetBalance(_ context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, ErrNotFound
	}
	return u.Balance, nil
}

func (m *Memory) SetBalance(_ context.Context, id, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Balance = value
	return nil
}

func (m *Memory) UpdateDisplayName(_ context.Context, id int64, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.DisplayName = displayName
	}
	return nil
}

func (m *Memory) ListUsers(_ context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]User, 0, len(m.order))
	for _, id := range m.order {
		users = append(users, *m.users[id])
	}
	return users, nil
}

func (m *Memory) ListUsersSince(_ context.Context, days int) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().AddDate(0, 0, -days)
	var users []User
	for _, id := range m.order {
		if u := m.users[id]; !u.RegisteredAt.Before(cutoff) {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (m *Memory) CountReferrals(_ context.Context, id int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, u := range m.users {
		if u.ReferrerID == id {
			count++
		}
	}
	return count, nil
}

func (m *Memory) TopByBalance(_ context.Context, n int) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]User, 0, len(m.order))
	for _, id := range m.order {
		users = append(users, *m.users[id])
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].Balance > users[j].Balance
	})
	if len(users) > n {
		users = users[:n]
	}
	return users, nil
}

func (m *Memory) TopByReferrals(_ context.Context, n int) ([]ReferralRank, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[int64]int)
	for _, u := range m.users {
		if u.ReferrerID != 0 {
			counts[u.ReferrerID]++
		}
	}
	// Walk registration order so count ties resolve first-registered first,
	// matching TopByBalance.
	ranks := make([]ReferralRank, 0, len(counts))
	for _, id := range m.order {
		if count, ok := counts[id]; ok {
			ranks = append(ranks, ReferralRank{UserID: id, Count: count})
		}
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].Count > ranks[j].Count
	})
	if len(ranks) > n {
		ranks = ranks[:n]
	}
	return ranks, nil
}

func (m *Memory) GetSettings(_ context.Context) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings, nil
}

func (m *Memory) UpdateSetting(_ context.Context, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if name == SettingPaymentAccount {
		m.settings.PaymentAccount = value
		return nil
	}
	amount, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("update setting %s: %w", name, err)
	}
	switch name {
	case SettingVideoPrice:
		m.settings.VideoPrice = amount
	case SettingPhotoPrice:
		m.settings.PhotoPrice = amount
	case SettingInitialBalance:
		m.settings.InitialBalance = amount
	case SettingReferralBonus:
		m.settings.ReferralBonus = amount
	default:
		return fmt.Errorf("update setting: unknown name %q", name)
	}
	return nil
}

// AddFile records a media reference and returns its id.
func (m *Memory) AddFile(_ context.Context, mediaRef string, kind FileKind, uploaderID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fileSeq++
	m.files[m.fileSeq] = &File{ID: m.fileSeq, MediaRef: mediaRef, Kind: kind, UploaderID: uploaderID}
	return m.fileSeq, nil
}

func (m *Memory) ListFiles(_ context.Context, kind FileKind) ([]File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.files))
	for id := range m.files {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var files []File
	for _, id := range ids {
		if f := m.files[id]; kind == "" || f.Kind == kind {
			files = append(files, *f)
		}
	}
	return files, nil
}

func (m *Memory) DeleteFile(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[id]; !ok {
		return ErrNotFound
	}
	delete(m.files, id)
	return nil
}
