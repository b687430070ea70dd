package store

import (
	"context"
	"errors"
	"time"

	"github.com/aegisauth/aegis/internal/auth/domain"
)

var (
	ErrNotFound = errors.New("store: not found")
	// ErrConflict reports a uniqueness violation (email or provider id).
	// Callers racing on first-login creation retry on it.
	ErrConflict = errors.New("store: conflict")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. The core treats every read-then-write against a
// record as one logical transaction; multi-step mutations go through WithTx,
// single-row conditional mutations are expressed as check-and-set updates on
// the Users repository so concurrent writers cannot both win.
type Store interface {
	Users() Users

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing on nil and
	// rolling back on error. Preferred over Tx for most callers.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It exposes the same repositories plus
// commit/rollback control.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users is the single repository of this service. Lookups return
// ErrNotFound; Create returns ErrConflict on a uniqueness violation.
type Users interface {
	GetByID(ctx context.Context, id string) (domain.User, error)

	// GetByEmail expects a pre-normalized email (domain.NormalizeEmail).
	GetByEmail(ctx context.Context, email string) (domain.User, error)

	// GetByProviderID resolves a federated identity to its record.
	GetByProviderID(ctx context.Context, p domain.Provider, providerID string) (domain.User, error)

	// GetByResetTokenHash finds the record holding an outstanding reset
	// token fingerprint, regardless of expiry.
	GetByResetTokenHash(ctx context.Context, hash string) (domain.User, error)

	// CreateUser inserts a new record (id is provided by the app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// SetProviderID links a federated identity into an existing record.
	// Fails with ErrConflict if another record already holds the value.
	SetProviderID(ctx context.Context, userID string, p domain.Provider, providerID string) error

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// SetTwoFASecret stores a candidate TOTP secret without enabling the
	// second factor.
	SetTwoFASecret(ctx context.Context, userID string, secret string) error

	// EnableTwoFA stamps the enabled-at timestamp; a no-op if already set.
	EnableTwoFA(ctx context.Context, userID string) error

	// SetRefreshTokenHash unconditionally installs a new refresh-token
	// fingerprint (login, federated login, 2FA completion).
	SetRefreshTokenHash(ctx context.Context, userID string, hash string) error

	// RotateRefreshTokenHash is the check-and-set at the heart of
	// rotate-on-use: the update only applies while the stored fingerprint
	// still equals oldHash. ErrNotFound means the token was already
	// rotated past (or never issued) and the refresh must fail.
	RotateRefreshTokenHash(ctx context.Context, userID string, oldHash, newHash string) error

	// SetResetToken installs a reset fingerprint + expiry, superseding any
	// outstanding pair.
	SetResetToken(ctx context.Context, userID string, hash string, expiresAt time.Time) error

	// ConsumeResetToken redeems a reset token in a single conditional
	// write: the row must hold the fingerprint with an expiry after now.
	// It sets the new password hash, clears the reset pair and drops the
	// stored refresh fingerprint so stolen sessions die with the old
	// password. ErrNotFound covers wrong, expired and already-used tokens
	// alike.
	ConsumeResetToken(ctx context.Context, hash string, newPasswordHash string, now time.Time) (domain.User, error)
}
