package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Postgres implements Store on top of a sqlx connection pool.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an already-connected pool.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) UserExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := p.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("user exists %d: %w", id, err)
	}
	return exists, nil
}

func (p *Postgres) GetUser(ctx context.Context, id int64) (User, error) {
	var u User
	err := p.db.GetContext(ctx, &u,
		`SELECT id, display_name, registered_at, balance, referrer_id FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

func (p *Postgres) CreateUser(ctx context.Context, id int64, displayName string, referrerID, initialBalance int64) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO users (id, display_name, balance, referrer_id)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		id, displayName, initialBalance, referrerID)
	if err != nil {
		return fmt.Errorf("create user %d: %w", id, err)
	}
	return nil
}

func (p *Postgres) GetBalance(ctx context.Context, id int64) (int64, error) {
	var balance int64
	err := p.db.GetContext(ctx, &balance, `SELECT balance FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get balance %d: %w", id, err)
	}
	return balance, nil
}

func (p *Postgres) SetBalance(ctx context.Context, id, value int64) error {
	res, err := p.db.ExecContext(ctx, `UPDATE users SET balance = $2 WHERE id = $1`, id, value)
	if err != nil {
		return fmt.Errorf("set balance %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) UpdateDisplayName(ctx context.Context, id int64, displayName string) error {
	_, err := p.db.ExecContext(ctx, `UPDATE users SET display_name = $2 WHERE id = $1`, id, displayName)
	if err != nil {
		return fmt.Errorf("update display name %d: %w", id, err)
	}
	return nil
}

func (p *Postgres) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	err := p.db.SelectContext(ctx, &users,
		`SELECT id, display_name, registered_at, balance, referrer_id FROM users ORDER BY registered_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (p *Postgres) ListUsersSince(ctx context.Context, days int) ([]User, error) {
	var users []User
	err := p.db.SelectContext(ctx, &users,
		`SELECT id, display_name, registered_at, balance, referrer_id FROM users
		 WHERE registered_at >= NOW() - make_interval(days => $1)
		 ORDER BY registered_at, id`, days)
	if err != nil {
		return nil, fmt.Errorf("list users since %dd: %w", days, err)
	}
	return users, nil
}

func (p *Postgres) CountReferrals(ctx context.Context, id int64) (int, error) {
	var count int
	err := p.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE referrer_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("count referrals %d: %w", id, err)
	}
	return count, nil
}

func (p *Postgres) TopByBalance(ctx context.Context, n int) ([]User, error) {
	var users []User
	err := p.db.SelectContext(ctx, &users,
		`SELECT id, display_name, registered_at, balance, referrer_id FROM users
		 ORDER BY balance DESC, registered_at, id
		 LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("top by balance: %w", err)
	}
	return users, nil
}

func (p *Postgres) TopByReferrals(ctx context.Context, n int) ([]ReferralRank, error) {
	var ranks []ReferralRank
	err := p.db.SelectContext(ctx, &ranks,
		`SELECT u.id AS referrer_id, COUNT(r.id) AS cnt
		 FROM users u
		 JOIN users r ON r.referrer_id = u.id
		 GROUP BY u.id, u.registered_at
		 ORDER BY cnt DESC, u.registered_at, u.id
		 LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("top by referrals: %w", err)
	}
	return ranks, nil
}

func (p *Postgres) GetSettings(ctx context.Context) (Settings, error) {
	var s Settings
	err := p.db.GetContext(ctx, &s,
		`SELECT payment_account, video_price, photo_price, initial_balance, referral_bonus
		 FROM settings WHERE id = 1`)
	if err != nil {
		return Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return s, nil
}

// settingColumns whitelists the columns UpdateSetting may touch; the column
// name is interpolated into the statement, so it must never come from input.
var settingColumns = map[string]string{
	SettingPaymentAccount: "payment_account",
	SettingVideoPrice:     "video_price",
	SettingPhotoPrice:     "photo_price",
	SettingInitialBalance: "initial_balance",
	SettingReferralBonus:  "referral_bonus",
}

func (p *Postgres) UpdateSetting(ctx context.Context, name, value string) error {
	column, ok := settingColumns[name]
	if !ok {
		return fmt.Errorf("update setting: unknown name %q", name)
	}
	query := fmt.Sprintf(`UPDATE settings SET %s = $1 WHERE id = 1`, column)
	if _, err := p.db.ExecContext(ctx, query, value); err != nil {
		return fmt.Errorf("update setting %s: %w", name, err)
	}
	return nil
}

func (p *Postgres) AddFile(ctx context.Context, mediaRef string, kind FileKind, uploaderID int64) (int64, error) {
	var id int64
	err := p.db.GetContext(ctx, &id,
		`INSERT INTO files (media_ref, kind, uploader_id) VALUES ($1, $2, $3) RETURNING id`,
		mediaRef, kind, uploaderID)
	if err != nil {
		return 0, fmt.Errorf("add file: %w", err)
	}
	return id, nil
}

func (p *Postgres) ListFiles(ctx context.Context, kind FileKind) ([]File, error) {
	var (
		files []File
		err   error
	)
	if kind == "" {
		err = p.db.SelectContext(ctx, &files,
			`SELECT id, media_ref, kind, uploader_id FROM files ORDER BY id`)
	} else {
		err = p.db.SelectContext(ctx, &files,
			`SELECT id, media_ref, kind, uploader_id FROM files WHERE kind = $1 ORDER BY id`, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

func (p *Postgres) DeleteFile(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete file %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
