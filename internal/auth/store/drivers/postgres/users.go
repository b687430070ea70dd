package postgres

import (
	"context"
	"time"

	"github.com/aegisauth/aegis/internal/auth/domain"
	"github.com/aegisauth/aegis/internal/auth/store"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, name, password_hash, google_id, github_id,
	twofa_enabled, twofa_secret, refresh_token_hash,
	reset_token_hash, reset_expires_at, created_at, updated_at`

type usersRepo struct {
	db querier
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *usersRepo) GetByProviderID(ctx context.Context, p domain.Provider, providerID string) (domain.User, error) {
	col, err := providerColumn(p)
	if err != nil {
		return domain.User{}, err
	}
	return scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+col+` = $1`, providerID))
}

func (r *usersRepo) GetByResetTokenHash(ctx context.Context, hash string) (domain.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE reset_token_hash = $1`, hash))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (
			id, email, name, password_hash, google_id, github_id,
			twofa_enabled, twofa_secret, refresh_token_hash,
			reset_token_hash, reset_expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		u.ID, u.Email, u.Name, u.PasswordHash,
		u.GoogleID, u.GitHubID,
		u.TwoFAEnabled, u.TwoFASecret, u.RefreshTokenHash,
		u.ResetTokenHash, u.ResetExpiresAt,
		now, now,
	)
	return mapConflict(err)
}

func (r *usersRepo) SetProviderID(ctx context.Context, userID string, p domain.Provider, providerID string) error {
	col, err := providerColumn(p)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET `+col+` = $1, updated_at = $2 WHERE id = $3`,
		providerID, time.Now().UTC(), userID)
	if err != nil {
		return mapConflict(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	return r.exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		newHash, time.Now().UTC(), userID)
}

func (r *usersRepo) SetTwoFASecret(ctx context.Context, userID string, secret string) error {
	return r.exec(ctx,
		`UPDATE users SET twofa_secret = $1, updated_at = $2 WHERE id = $3`,
		secret, time.Now().UTC(), userID)
}

func (r *usersRepo) EnableTwoFA(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	return r.exec(ctx,
		`UPDATE users SET twofa_enabled = COALESCE(twofa_enabled, $1), updated_at = $2 WHERE id = $3`,
		now, now, userID)
}

func (r *usersRepo) SetRefreshTokenHash(ctx context.Context, userID string, hash string) error {
	return r.exec(ctx,
		`UPDATE users SET refresh_token_hash = $1, updated_at = $2 WHERE id = $3`,
		hash, time.Now().UTC(), userID)
}

func (r *usersRepo) RotateRefreshTokenHash(ctx context.Context, userID string, oldHash, newHash string) error {
	return r.exec(ctx,
		`UPDATE users SET refresh_token_hash = $1, updated_at = $2
		 WHERE id = $3 AND refresh_token_hash = $4`,
		newHash, time.Now().UTC(), userID, oldHash)
}

func (r *usersRepo) SetResetToken(ctx context.Context, userID string, hash string, expiresAt time.Time) error {
	return r.exec(ctx,
		`UPDATE users SET reset_token_hash = $1, reset_expires_at = $2, updated_at = $3 WHERE id = $4`,
		hash, expiresAt.UTC(), time.Now().UTC(), userID)
}

func (r *usersRepo) ConsumeResetToken(ctx context.Context, hash string, newPasswordHash string, now time.Time) (domain.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		`UPDATE users SET
			password_hash = $1,
			reset_token_hash = NULL,
			reset_expires_at = NULL,
			refresh_token_hash = NULL,
			updated_at = $2
		 WHERE reset_token_hash = $3 AND reset_expires_at > $4
		 RETURNING `+userColumns,
		newPasswordHash, now.UTC(), hash, now.UTC()))
}

func (r *usersRepo) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
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

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash,
		&u.GoogleID, &u.GitHubID,
		&u.TwoFAEnabled, &u.TwoFASecret, &u.RefreshTokenHash,
		&u.ResetTokenHash, &u.ResetExpiresAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}
