package repository

import (
	"context"
	"database/sql"
	"errors"

	"feira-smart/internal/domain"
)

var (
	ErrRefreshTokenNotFound = domain.NewError(domain.ErrUnauthenticated, "refresh token not found")
	ErrRefreshTokenRevoked  = domain.NewError(domain.ErrUnauthenticated, "refresh token has been revoked")
)

// RefreshTokenRepository stores the long-lived tokens behind session renewal
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	Revoke(ctx context.Context, token string) error
}

type refreshTokenRepository struct {
	conn
}

// NewRefreshTokenRepository creates a new instance of RefreshTokenRepository
func NewRefreshTokenRepository(db *sql.DB, opts ...Option) RefreshTokenRepository {
	return &refreshTokenRepository{conn: newConn(db, opts)}
}

const refreshTokenColumns = `id, user_id, token, expires_at, created_at, revoked`

func scanRefreshToken(row scanner) (*domain.RefreshToken, error) {
	t := &domain.RefreshToken{}
	if err := row.Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt, &t.CreatedAt, &t.Revoked); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (`+refreshTokenColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		token.ID, token.UserID, token.Token, token.ExpiresAt, token.CreatedAt, token.Revoked,
	)
	if err != nil {
		if isForeignKeyViolation(err, "refresh_tokens_user_id_fkey") {
			return ErrUserNotFound
		}
		return wrap("failed to create refresh token", err)
	}
	return nil
}

// FindByToken returns a live token. Revoked tokens are reported as such so
// callers can tell a replay from a typo.
func (r *refreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	found, err := scanRefreshToken(r.db.QueryRowContext(ctx,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE token = $1`, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, wrap("failed to find refresh token", err)
	}

	if found.Revoked {
		return nil, ErrRefreshTokenRevoked
	}
	return found, nil
}

// Revoke retires a live token. Unknown or already revoked tokens report
// ErrRefreshTokenNotFound.
func (r *refreshTokenRepository) Revoke(ctx context.Context, token string) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	result, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1 AND NOT revoked`, token)
	if err != nil {
		return wrap("failed to revoke refresh token", err)
	}
	return requireAffected(result, ErrRefreshTokenNotFound)
}
