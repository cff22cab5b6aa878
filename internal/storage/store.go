package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("storage: not found")

// User is a registered participant record. ReferrerID is set exactly once at
// creation and never updated afterwards; zero means "no referrer".
type User struct {
	ID           int64     `db:"id"`
	DisplayName  string    `db:"display_name"`
	RegisteredAt time.Time `db:"registered_at"`
	Balance      int64     `db:"balance"`
	ReferrerID   int64     `db:"referrer_id"`
}

// Settings is the process-wide singleton configuration row. Numeric fields
// are non-negative; PaymentAccount may be any provider-specific string.
type Settings struct {
	PaymentAccount string `db:"payment_account"`
	VideoPrice     int64  `db:"video_price"`
	PhotoPrice     int64  `db:"photo_price"`
	InitialBalance int64  `db:"initial_balance"`
	ReferralBonus  int64  `db:"referral_bonus"`
}

// Setting names accepted by UpdateSetting, matching the admin command surface.
const (
	SettingPaymentAccount = "qiwi"
	SettingVideoPrice     = "video"
	SettingPhotoPrice     = "photo"
	SettingInitialBalance = "stbal"
	SettingReferralBonus  = "bonus"
)

// FileKind distinguishes stored media records.
type FileKind string

const (
	FileKindPhoto FileKind = "photo"
	FileKindVideo FileKind = "video"
)

// File is an uploaded media record referenced by admin commands.
type File struct {
	ID         int64    `db:"id"`
	MediaRef   string   `db:"media_ref"`
	Kind       FileKind `db:"kind"`
	UploaderID int64    `db:"uploader_id"`
}

// ReferralRank is one row of the referral leaderboard.
type ReferralRank struct {
	UserID int64 `db:"referrer_id"`
	Count  int   `db:"cnt"`
}

// Store is the durable capability consumed by the ledger and handlers.
// Implementations must be safe for concurrent use.
type Store interface {
	UserExists(ctx context.Context, id int64) (bool, error)
	GetUser(ctx context.Context, id int64) (User, error)
	// CreateUser inserts a new user; it is a silent no-op when the id already
	// exists so that duplicate registrations never reset balance or referrer.
	CreateUser(ctx context.Context, id int64, displayName string, referrerID, initialBalance int64) error
	GetBalance(ctx context.Context, id int64) (int64, error)
	SetBalance(ctx context.Context, id, value int64) error
	UpdateDisplayName(ctx context.Context, id int64, displayName string) error

	ListUsers(ctx context.Context) ([]User, error)
	ListUsersSince(ctx context.Context, days int) ([]User, error)
	CountReferrals(ctx context.Context, id int64) (int, error)
	TopByBalance(ctx context.Context, n int) ([]User, error)
	TopByReferrals(ctx context.Context, n int) ([]ReferralRank, error)

	GetSettings(ctx context.Context) (Settings, error)
	UpdateSetting(ctx context.Context, name, value string) error

	AddFile(ctx context.Context, mediaRef string, kind FileKind, uploaderID int64) (int64, error)
	ListFiles(ctx context.Context, kind FileKind) ([]File, error)
	DeleteFile(ctx context.Context, id int64) error
}
