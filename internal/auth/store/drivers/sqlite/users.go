package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aegisauth/aegis/internal/auth/domain"
	"github.com/aegisauth/aegis/internal/auth/store"
)

const userColumns = `id, email, name, password_hash, google_id, github_id,
	twofa_enabled, twofa_secret, refresh_token_hash,
	reset_token_hash, reset_expires_at, created_at, updated_at`

type usersRepo struct {
	db queryer
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) GetByProviderID(ctx context.Context, p domain.Provider, providerID string) (domain.User, error) {
	col, err := providerColumn(p)
	if err != nil {
		return domain.User{}, err
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+col+` = ?`, providerID)
	return scanUser(row)
}

func (r *usersRepo) GetByResetTokenHash(ctx context.Context, hash string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE reset_token_hash = ?`, hash)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (
			id, email, name, password_hash, google_id, github_id,
			twofa_enabled, twofa_secret, refresh_token_hash,
			reset_token_hash, reset_expires_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash,
		mapOptionalString(u.GoogleID), mapOptionalString(u.GitHubID),
		mapOptionalTime(u.TwoFAEnabled), mapOptionalString(u.TwoFASecret),
		mapOptionalString(u.RefreshTokenHash),
		mapOptionalString(u.ResetTokenHash), mapOptionalTime(u.ResetExpiresAt),
		now, now,
	)
	return mapConflict(err)
}

func (r *usersRepo) SetProviderID(ctx context.Context, userID string, p domain.Provider, providerID string) error {
	col, err := providerColumn(p)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET `+col+` = ?, updated_at = ? WHERE id = ?`,
		providerID, time.Now().UTC(), userID)
	if err != nil {
		return mapConflict(err)
	}
	return requireRow(res)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) SetTwoFASecret(ctx context.Context, userID string, secret string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET twofa_secret = ?, updated_at = ? WHERE id = ?`,
		secret, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) EnableTwoFA(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET twofa_enabled = COALESCE(twofa_enabled, ?), updated_at = ? WHERE id = ?`,
		now, now, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) SetRefreshTokenHash(ctx context.Context, userID string, hash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token_hash = ?, updated_at = ? WHERE id = ?`,
		hash, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// RotateRefreshTokenHash only applies while the stored fingerprint still
// equals oldHash, so of two concurrent refresh calls presenting the same
// token exactly one can win.
func (r *usersRepo) RotateRefreshTokenHash(ctx context.Context, userID string, oldHash, newHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token_hash = ?, updated_at = ?
		 WHERE id = ? AND refresh_token_hash = ?`,
		newHash, time.Now().UTC(), userID, oldHash)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) SetResetToken(ctx context.Context, userID string, hash string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET reset_token_hash = ?, reset_expires_at = ?, updated_at = ? WHERE id = ?`,
		hash, expiresAt.UTC(), time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ConsumeResetToken redeems in one conditional write; the same statement
// that installs the new password hash clears the reset pair and the stored
// refresh fingerprint. A concurrent redeem with the same token loses on the
// WHERE clause and reports not-found.
func (r *usersRepo) ConsumeResetToken(ctx context.Context, hash string, newPasswordHash string, now time.Time) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE users SET
			password_hash = ?,
			reset_token_hash = NULL,
			reset_expires_at = NULL,
			refresh_token_hash = NULL,
			updated_at = ?
		 WHERE reset_token_hash = ? AND reset_expires_at > ?
		 RETURNING `+userColumns,
		newPasswordHash, now.UTC(), hash, now.UTC())
	return scanUser(row)
}

func providerColumn(p domain.Provider) (string, error) {
	switch p {
	case domain.ProviderGoogle:
		return "google_id", nil
	case domain.ProviderGitHub:
		return "github_id", nil
	default:
		return "", store.ErrNotFound
	}
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u                         domain.User
		googleID, githubID        sql.NullString
		twofaSecret, refreshHash  sql.NullString
		resetHash                 sql.NullString
		twofaEnabled, resetExpiry sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash,
		&googleID, &githubID,
		&twofaEnabled, &twofaSecret, &refreshHash,
		&resetHash, &resetExpiry,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.GoogleID = mapNullStringPtr(googleID)
	u.GitHubID = mapNullStringPtr(githubID)
	u.TwoFAEnabled = mapNullTimePtr(twofaEnabled)
	u.TwoFASecret = mapNullStringPtr(twofaSecret)
	u.RefreshTokenHash = mapNullStringPtr(refreshHash)
	u.ResetTokenHash = mapNullStringPtr(resetHash)
	u.ResetExpiresAt = mapNullTimePtr(resetExpiry)
	return u, nil
}
