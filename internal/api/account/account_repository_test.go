package account

import (
	"context"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nepabhay/account-service/internal/types"
)

var accountColumnNames = []string{
	"id", "username", "email", "password_hash", "role", "is_active", "deactivated_at",
	"is_blocked", "blocked_at", "blocked_by", "block_reason",
	"deletion_requested_at", "deletion_reason", "email_verified_at", "last_login_at",
	"created_at", "updated_at",
}

func accountRow(a *types.Account) *pgxmock.Rows {
	return pgxmock.NewRows(accountColumnNames).AddRow(
		a.ID, a.Username, a.Email, a.PasswordHash, a.Role, a.IsActive, a.DeactivatedAt,
		a.IsBlocked, a.BlockedAt, a.BlockedBy, a.BlockReason,
		a.DeletionRequestedAt, a.DeletionReason, a.EmailVerifiedAt, a.LastLoginAt,
		a.CreatedAt, a.UpdatedAt,
	)
}

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresAccountRepo) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return mockPool, NewPostgresAccountRepo(mockPool, slog.Default())
}

func TestGetAccountByID(t *testing.T) {
	mockPool, repo := newMockRepo(t)
	acct := verifiedAccount()

	mockPool.ExpectQuery(`(?s)SELECT .+ FROM accounts WHERE id = \$1`).
		WithArgs(acct.ID).
		WillReturnRows(accountRow(acct))

	got, err := repo.GetAccountByID(context.Background(), acct.ID)

	assert.NoError(t, err)
	assert.Equal(t, acct.ID, got.ID)
	assert.Equal(t, acct.Email, got.Email)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetAccountByID_NotFound(t *testing.T) {
	mockPool, repo := newMockRepo(t)
	id := uuid.New()

	mockPool.ExpectQuery(`(?s)SELECT .+ FROM accounts WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetAccountByID(context.Background(), id)

	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestReactivate_RefusedWhenBlocked(t *testing.T) {
	mockPool, repo := newMockRepo(t)
	acct := verifiedAccount()
	acct.IsBlocked = true

	// Conditional update matches no rows for a blocked account.
	mockPool.ExpectQuery(`UPDATE accounts\s+SET is_active = TRUE`).
		WithArgs(pgxmock.AnyArg(), acct.ID).
		WillReturnError(pgx.ErrNoRows)
	// The follow-up read explains which precondition failed.
	mockPool.ExpectQuery(`(?s)SELECT .+ FROM accounts WHERE id = \$1`).
		WithArgs(acct.ID).
		WillReturnRows(accountRow(acct))

	_, err := repo.Reactivate(context.Background(), acct.ID)

	assert.ErrorIs(t, err, types.ErrAccountBlocked)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestReactivate_RefusedWhenDeletionPending(t *testing.T) {
	mockPool, repo := newMockRepo(t)
	acct := verifiedAccount()
	now := time.Now()
	acct.DeletionRequestedAt = &now

	mockPool.ExpectQuery(`UPDATE accounts\s+SET is_active = TRUE`).
		WithArgs(pgxmock.AnyArg(), acct.ID).
		WillReturnError(pgx.ErrNoRows)
	mockPool.ExpectQuery(`(?s)SELECT .+ FROM accounts WHERE id = \$1`).
		WithArgs(acct.ID).
		WillReturnRows(accountRow(acct))

	_, err := repo.Reactivate(context.Background(), acct.ID)

	assert.ErrorIs(t, err, types.ErrDeletionPending)
}

func TestDelete_AlreadyGoneIsSuccess(t *testing.T) {
	mockPool, repo := newMockRepo(t)
	id := uuid.New()

	mockPool.ExpectBegin()
	mockPool.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WithArgs(adminFloorLockKey).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mockPool.ExpectQuery(`SELECT role FROM accounts WHERE id = \$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)
	mockPool.ExpectRollback()

	deleted, err := repo.Delete(context.Background(), id)

	assert.NoError(t, err, "deleting an absent row must be idempotent")
	assert.False(t, deleted, "an absent row is not counted as a deletion")
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestDelete_RemovesRow(t *testing.T) {
	mockPool, repo := newMockRepo(t)
	id := uuid.New()

	mockPool.ExpectBegin()
	mockPool.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WithArgs(adminFloorLockKey).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mockPool.ExpectQuery(`SELECT role FROM accounts WHERE id = \$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow(types.RoleReader))
	mockPool.ExpectExec(`DELETE FROM accounts WHERE id = \$1`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mockPool.ExpectCommit()
	mockPool.ExpectRollback()

	deleted, err := repo.Delete(context.Background(), id)

	assert.NoError(t, err)
	assert.True(t, deleted)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestDelete_LastAdminRefused(t *testing.T) {
	mockPool, repo := newMockRepo(t)
	id := uuid.New()

	mockPool.ExpectBegin()
	mockPool.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WithArgs(adminFloorLockKey).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mockPool.ExpectQuery(`SELECT role FROM accounts WHERE id = \$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow(types.RoleAdmin))
	mockPool.ExpectQuery(`SELECT COUNT\(\*\) FROM accounts`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mockPool.ExpectRollback()

	_, err := repo.Delete(context.Background(), id)

	assert.ErrorIs(t, err, types.ErrLastAdmin)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestBlock_AdminRefusedAtRowLock(t *testing.T) {
	mockPool, repo := newMockRepo(t)
	id := uuid.New()
	adminID := uuid.New()

	mockPool.ExpectBegin()
	mockPool.ExpectQuery(`SELECT role FROM accounts WHERE id = \$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow(types.RoleAdmin))
	mockPool.ExpectRollback()

	_, err := repo.Block(context.Background(), id, adminID, "abuse")

	assert.ErrorIs(t, err, types.ErrCannotBlockAdmin)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCancelDeletion_NoPendingRequest(t *testing.T) {
	mockPool, repo := newMockRepo(t)
	acct := verifiedAccount()

	mockPool.ExpectQuery(`UPDATE accounts\s+SET deletion_requested_at = NULL`).
		WithArgs(pgxmock.AnyArg(), acct.ID).
		WillReturnError(pgx.ErrNoRows)
	mockPool.ExpectQuery(`(?s)SELECT .+ FROM accounts WHERE id = \$1`).
		WithArgs(acct.ID).
		WillReturnRows(accountRow(acct))

	_, err := repo.CancelDeletion(context.Background(), acct.ID)

	assert.ErrorIs(t, err, types.ErrNoDeletionPending)
}

func TestRequestDeletion_SecondRequestKeepsGracePeriod(t *testing.T) {
	mockPool, repo := newMockRepo(t)
	acct := verifiedAccount()
	requestedAt := time.Now().Add(-10 * 24 * time.Hour)
	acct.DeletionRequestedAt = &requestedAt

	mockPool.ExpectBegin()
	mockPool.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WithArgs(adminFloorLockKey).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mockPool.ExpectQuery(`SELECT role, deletion_requested_at FROM accounts WHERE id = \$1 FOR UPDATE`).
		WithArgs(acct.ID).
		WillReturnRows(pgxmock.NewRows([]string{"role", "deletion_requested_at"}).
			AddRow(acct.Role, acct.DeletionRequestedAt))
	mockPool.ExpectQuery(`(?s)SELECT .+ FROM accounts WHERE id = \$1`).
		WithArgs(acct.ID).
		WillReturnRows(accountRow(acct))
	mockPool.ExpectRollback()

	got, err := repo.RequestDeletion(context.Background(), acct.ID, nil)

	assert.NoError(t, err)
	assert.Equal(t, requestedAt.Unix(), got.DeletionRequestedAt.Unix(),
		"repeat requests must not restart the grace period")
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestListAccounts_AppliesQuery(t *testing.T) {
	mockPool, repo := newMockRepo(t)
	acct := verifiedAccount()
	cutoff := time.Now().Add(-30 * 24 * time.Hour)

	mockPool.ExpectQuery(`(?s)SELECT .+ FROM accounts WHERE deletion_requested_at IS NOT NULL AND deletion_requested_at <= \$1 ORDER BY created_at ASC LIMIT \$2`).
		WithArgs(cutoff, 50).
		WillReturnRows(accountRow(acct))

	accounts, err := repo.ListAccounts(context.Background(),
		NewAccountQuery().ByDeletionCutoff(cutoff).Limit(50))

	assert.NoError(t, err)
	assert.Len(t, accounts, 1)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
