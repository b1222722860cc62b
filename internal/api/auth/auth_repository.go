package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nepabhay/account-service/internal/api/account"
	"github.com/nepabhay/account-service/internal/types"
)

// Ensure implementation satisfies the interface
var _ AuthRepo = (*PostgresAuthRepo)(nil)

// AuthRepo persists refresh-token sessions. Account records themselves are
// owned by the account repository; this layer only tracks token state.
type AuthRepo interface {
	StoreRefreshToken(ctx context.Context, accountID uuid.UUID, token string, expiresAt time.Time) error
	GetAccountIDByRefreshToken(ctx context.Context, token string) (uuid.UUID, error)
	RevokeRefreshToken(ctx context.Context, token string) error
	RevokeAllRefreshTokens(ctx context.Context, accountID uuid.UUID) error
}

type PostgresAuthRepo struct {
	logger *slog.Logger
	pgpool account.PGXPool
}

func NewPostgresAuthRepo(pgpool account.PGXPool, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresAuthRepo) StoreRefreshToken(ctx context.Context, accountID uuid.UUID, token string, expiresAt time.Time) error {
	_, err := r.pgpool.Exec(ctx,
		`INSERT INTO refresh_tokens (account_id, token, expires_at) VALUES ($1, $2, $3)`,
		accountID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("database error storing refresh token: %w", err)
	}
	return nil
}

// GetAccountIDByRefreshToken resolves a live token to its account. Expired and
// revoked tokens resolve to nothing.
func (r *PostgresAuthRepo) GetAccountIDByRefreshToken(ctx context.Context, token string) (uuid.UUID, error) {
	var accountID uuid.UUID
	err := r.pgpool.QueryRow(ctx, `
        SELECT account_id FROM refresh_tokens
        WHERE token = $1 AND revoked_at IS NULL AND expires_at > now()`, token).
		Scan(&accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("refresh token invalid or expired: %w", types.ErrUnauthenticated)
		}
		return uuid.Nil, fmt.Errorf("database error looking up refresh token: %w", err)
	}
	return accountID, nil
}

func (r *PostgresAuthRepo) RevokeRefreshToken(ctx context.Context, token string) error {
	tag, err := r.pgpool.Exec(ctx,
		`UPDATE refresh_tokens SET revoked_at = now() WHERE token = $1 AND revoked_at IS NULL`, token)
	if err != nil {
		return fmt.Errorf("database error revoking refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("refresh token not found: %w", types.ErrUnauthenticated)
	}
	return nil
}

// RevokeAllRefreshTokens ends every session for the account. Called on
// password change and when a refresh attempt finds the account blocked or
// pending deletion.
func (r *PostgresAuthRepo) RevokeAllRefreshTokens(ctx context.Context, accountID uuid.UUID) error {
	_, err := r.pgpool.Exec(ctx,
		`UPDATE refresh_tokens SET revoked_at = now() WHERE account_id = $1 AND revoked_at IS NULL`,
		accountID)
	if err != nil {
		return fmt.Errorf("database error revoking sessions: %w", err)
	}
	return nil
}
