package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/nepabhay/account-service/internal/types"
)

// Ensure implementation satisfies the interface
var _ AccountRepo = (*PostgresAccountRepo)(nil)

// PGXPool is the subset of pgxpool.Pool the repository needs; it lets tests
// substitute a pgxmock pool.
type PGXPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepo is the persistence contract for account records. The lifecycle
// mutations enforce their state preconditions inside the UPDATE itself
// (conditional update) or inside a transaction (admin-floor checks), so a
// read-check-write race cannot produce an invalid state.
type AccountRepo interface {
	CreateAccount(ctx context.Context, params types.CreateAccountParams) (*types.Account, error)
	GetAccountByID(ctx context.Context, id uuid.UUID) (*types.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*types.Account, error)
	GetAccountByProvider(ctx context.Context, provider, providerUserID string) (*types.Account, error)
	LinkProvider(ctx context.Context, accountID uuid.UUID, provider, providerUserID string) error
	ListAccounts(ctx context.Context, q AccountQuery) ([]types.Account, error)

	Deactivate(ctx context.Context, id uuid.UUID) (*types.Account, error)
	Reactivate(ctx context.Context, id uuid.UUID) (*types.Account, error)
	RequestDeletion(ctx context.Context, id uuid.UUID, reason *string) (*types.Account, error)
	CancelDeletion(ctx context.Context, id uuid.UUID) (*types.Account, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	Block(ctx context.Context, id, adminID uuid.UUID, reason string) (*types.Account, error)
	Unblock(ctx context.Context, id uuid.UUID) (*types.Account, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*types.Account, error)

	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
	UpdatePassword(ctx context.Context, id uuid.UUID, newHashedPassword string) error
}

type PostgresAccountRepo struct {
	logger *slog.Logger
	pgpool PGXPool
}

func NewPostgresAccountRepo(pgpool PGXPool, logger *slog.Logger) *PostgresAccountRepo {
	return &PostgresAccountRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const accountColumns = `id, username, email, password_hash, role, is_active, deactivated_at,
       is_blocked, blocked_at, blocked_by, block_reason,
       deletion_requested_at, deletion_reason, email_verified_at, last_login_at,
       created_at, updated_at`

// adminFloorLockKey serializes every transaction that could reduce the number
// of usable administrators. Two concurrent deletions can otherwise both count
// "2 admins" and both proceed.
const adminFloorLockKey = int64(874029144)

func scanAccount(row pgx.Row) (*types.Account, error) {
	var a types.Account
	err := row.Scan(
		&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.Role, &a.IsActive, &a.DeactivatedAt,
		&a.IsBlocked, &a.BlockedAt, &a.BlockedBy, &a.BlockReason,
		&a.DeletionRequestedAt, &a.DeletionReason, &a.EmailVerifiedAt, &a.LastLoginAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *PostgresAccountRepo) CreateAccount(ctx context.Context, params types.CreateAccountParams) (*types.Account, error) {
	l := r.logger.With(slog.String("method", "CreateAccount"), slog.String("email", params.Email))

	role := params.Role
	if role == "" {
		role = types.RoleReader
	}

	var verifiedAt *time.Time
	if params.EmailVerified {
		now := time.Now()
		verifiedAt = &now
	}

	query := `
        INSERT INTO accounts (username, email, password_hash, role, email_verified_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING ` + accountColumns

	acct, err := scanAccount(r.pgpool.QueryRow(ctx, query,
		params.Username, params.Email, params.PasswordHash, string(role), verifiedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("username or email already taken: %w", types.ErrConflict)
		}
		l.ErrorContext(ctx, "Failed to insert account", slog.Any("error", err))
		return nil, fmt.Errorf("database error creating account: %w", err)
	}

	l.InfoContext(ctx, "Account created", slog.String("accountID", acct.ID.String()))
	return acct, nil
}

func (r *PostgresAccountRepo) GetAccountByID(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	acct, err := scanAccount(r.pgpool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account not found: %w", types.ErrNotFound)
		}
		return nil, fmt.Errorf("database error fetching account: %w", err)
	}
	return acct, nil
}

func (r *PostgresAccountRepo) GetAccountByEmail(ctx context.Context, email string) (*types.Account, error) {
	acct, err := scanAccount(r.pgpool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account not found: %w", types.ErrNotFound)
		}
		return nil, fmt.Errorf("database error fetching account: %w", err)
	}
	return acct, nil
}

func (r *PostgresAccountRepo) GetAccountByProvider(ctx context.Context, provider, providerUserID string) (*types.Account, error) {
	query := `
        SELECT ` + accountColumns + `
        FROM accounts a
        JOIN account_providers p ON p.account_id = a.id
        WHERE p.provider = $1 AND p.provider_user_id = $2`

	acct, err := scanAccount(r.pgpool.QueryRow(ctx, query, provider, providerUserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account not found: %w", types.ErrNotFound)
		}
		return nil, fmt.Errorf("database error fetching account by provider: %w", err)
	}
	return acct, nil
}

func (r *PostgresAccountRepo) LinkProvider(ctx context.Context, accountID uuid.UUID, provider, providerUserID string) error {
	_, err := r.pgpool.Exec(ctx,
		`INSERT INTO account_providers (account_id, provider, provider_user_id) VALUES ($1, $2, $3)`,
		accountID, provider, providerUserID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("provider identity already linked: %w", types.ErrConflict)
		}
		return fmt.Errorf("database error linking provider: %w", err)
	}
	return nil
}

func (r *PostgresAccountRepo) ListAccounts(ctx context.Context, q AccountQuery) ([]types.Account, error) {
	where, args := q.Build()
	rows, err := r.pgpool.Query(ctx, `SELECT `+accountColumns+` FROM accounts`+where, args...)
	if err != nil {
		return nil, fmt.Errorf("database error listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []types.Account
	for rows.Next() {
		var a types.Account
		err := rows.Scan(
			&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.Role, &a.IsActive, &a.DeactivatedAt,
			&a.IsBlocked, &a.BlockedAt, &a.BlockedBy, &a.BlockReason,
			&a.DeletionRequestedAt, &a.DeletionReason, &a.EmailVerifiedAt, &a.LastLoginAt,
			&a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("database error scanning account row: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Deactivate marks the account inactive at the owner's request.
func (r *PostgresAccountRepo) Deactivate(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	ctx, span := otel.Tracer("AccountRepo").Start(ctx, "Deactivate", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "accounts"),
	))
	defer span.End()

	now := time.Now()
	query := `
        UPDATE accounts
        SET is_active = FALSE, deactivated_at = $1, updated_at = $1
        WHERE id = $2
        RETURNING ` + accountColumns

	acct, err := scanAccount(r.pgpool.QueryRow(ctx, query, now, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Account not found")
			return nil, fmt.Errorf("account not found: %w", types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return nil, fmt.Errorf("database error deactivating account: %w", err)
	}

	span.SetStatus(codes.Ok, "Account deactivated")
	return acct, nil
}

// Reactivate restores an account deactivated by its owner. The blocked and
// deletion-pending preconditions live in the WHERE clause so the check and
// the write are one atomic statement.
func (r *PostgresAccountRepo) Reactivate(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	ctx, span := otel.Tracer("AccountRepo").Start(ctx, "Reactivate", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "accounts"),
	))
	defer span.End()

	now := time.Now()
	query := `
        UPDATE accounts
        SET is_active = TRUE, deactivated_at = NULL, updated_at = $1
        WHERE id = $2 AND is_blocked = FALSE AND deletion_requested_at IS NULL
        RETURNING ` + accountColumns

	acct, err := scanAccount(r.pgpool.QueryRow(ctx, query, now, id))
	if err == nil {
		span.SetStatus(codes.Ok, "Account reactivated")
		return acct, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return nil, fmt.Errorf("database error reactivating account: %w", err)
	}

	// Zero rows: find out which precondition failed so the caller gets a
	// specific refusal rather than a generic one.
	current, getErr := r.GetAccountByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if current.IsBlocked {
		return nil, fmt.Errorf("cannot reactivate: %w", types.ErrAccountBlocked)
	}
	if current.DeletionRequestedAt != nil {
		return nil, fmt.Errorf("cannot reactivate: %w", types.ErrDeletionPending)
	}
	return nil, fmt.Errorf("database error reactivating account: %w", err)
}

// activeAdminCountExcluding counts administrators still usable if the given
// account were removed: active, unblocked, and not mid-deletion.
func activeAdminCountExcluding(ctx context.Context, tx pgx.Tx, exclude uuid.UUID) (int, error) {
	var count int
	err := tx.QueryRow(ctx, `
        SELECT COUNT(*) FROM accounts
        WHERE role = 'admin' AND is_active = TRUE AND is_blocked = FALSE
          AND deletion_requested_at IS NULL AND id <> $1`, exclude).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("database error counting admins: %w", err)
	}
	return count, nil
}

// RequestDeletion opens the deletion grace period. If the target is the last
// usable administrator the request is rejected; the admin count runs inside
// the same serialized transaction as the write.
func (r *PostgresAccountRepo) RequestDeletion(ctx context.Context, id uuid.UUID, reason *string) (*types.Account, error) {
	ctx, span := otel.Tracer("AccountRepo").Start(ctx, "RequestDeletion", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "accounts"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "RequestDeletion"), slog.String("accountID", id.String()))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, adminFloorLockKey); err != nil {
		return nil, fmt.Errorf("database error acquiring admin-floor lock: %w", err)
	}

	var role types.Role
	var pending *time.Time
	err = tx.QueryRow(ctx,
		`SELECT role, deletion_requested_at FROM accounts WHERE id = $1 FOR UPDATE`, id).
		Scan(&role, &pending)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account not found: %w", types.ErrNotFound)
		}
		return nil, fmt.Errorf("database error reading account: %w", err)
	}

	if pending != nil {
		// A second request doesn't restart the grace period.
		l.InfoContext(ctx, "Deletion already requested, leaving grace period unchanged")
		return r.GetAccountByID(ctx, id)
	}

	if role == types.RoleAdmin {
		remaining, err := activeAdminCountExcluding(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if remaining == 0 {
			span.SetStatus(codes.Error, "Last admin")
			return nil, fmt.Errorf("cannot request deletion: %w", types.ErrLastAdmin)
		}
	}

	now := time.Now()
	acct, err := scanAccount(tx.QueryRow(ctx, `
        UPDATE accounts
        SET deletion_requested_at = $1, deletion_reason = $2, is_active = FALSE, updated_at = $1
        WHERE id = $3
        RETURNING `+accountColumns, now, reason, id))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error requesting deletion: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("database error committing deletion request: %w", err)
	}

	l.InfoContext(ctx, "Deletion requested", slog.Time("requested_at", now))
	span.SetStatus(codes.Ok, "Deletion requested")
	return acct, nil
}

func (r *PostgresAccountRepo) CancelDeletion(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	now := time.Now()
	query := `
        UPDATE accounts
        SET deletion_requested_at = NULL, deletion_reason = NULL, updated_at = $1
        WHERE id = $2 AND deletion_requested_at IS NOT NULL
        RETURNING ` + accountColumns

	acct, err := scanAccount(r.pgpool.QueryRow(ctx, query, now, id))
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("database error cancelling deletion: %w", err)
	}

	if _, getErr := r.GetAccountByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("cannot cancel deletion: %w", types.ErrNoDeletionPending)
}

// Delete permanently removes the account row. Dependent rows go with it via
// ON DELETE CASCADE. Deleting a row that is already gone is not an error so
// overlapping sweep runs stay idempotent; the returned bool reports whether
// this call removed the row, so callers never count the same account twice.
func (r *PostgresAccountRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, span := otel.Tracer("AccountRepo").Start(ctx, "Delete", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "accounts"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Delete"), slog.String("accountID", id.String()))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("database error beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, adminFloorLockKey); err != nil {
		return false, fmt.Errorf("database error acquiring admin-floor lock: %w", err)
	}

	var role types.Role
	err = tx.QueryRow(ctx, `SELECT role FROM accounts WHERE id = $1 FOR UPDATE`, id).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			l.InfoContext(ctx, "Account already deleted")
			span.SetStatus(codes.Ok, "Already deleted")
			return false, nil
		}
		return false, fmt.Errorf("database error reading account: %w", err)
	}

	if role == types.RoleAdmin {
		remaining, err := activeAdminCountExcluding(ctx, tx, id)
		if err != nil {
			return false, err
		}
		if remaining == 0 {
			span.SetStatus(codes.Error, "Last admin")
			return false, fmt.Errorf("cannot delete account: %w", types.ErrLastAdmin)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id); err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("database error deleting account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("database error committing delete: %w", err)
	}

	l.InfoContext(ctx, "Account permanently deleted")
	span.SetStatus(codes.Ok, "Account deleted")
	return true, nil
}

// Block imposes an administrator lock on the account. The role check happens
// on a row locked FOR UPDATE so a concurrent promotion cannot slip a block
// onto an admin.
func (r *PostgresAccountRepo) Block(ctx context.Context, id, adminID uuid.UUID, reason string) (*types.Account, error) {
	ctx, span := otel.Tracer("AccountRepo").Start(ctx, "Block", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "accounts"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Block"),
		slog.String("accountID", id.String()), slog.String("adminID", adminID.String()))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var role types.Role
	err = tx.QueryRow(ctx, `SELECT role FROM accounts WHERE id = $1 FOR UPDATE`, id).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account not found: %w", types.ErrNotFound)
		}
		return nil, fmt.Errorf("database error reading account: %w", err)
	}

	if role == types.RoleAdmin {
		span.SetStatus(codes.Error, "Cannot block admin")
		return nil, fmt.Errorf("cannot block: %w", types.ErrCannotBlockAdmin)
	}

	now := time.Now()
	acct, err := scanAccount(tx.QueryRow(ctx, `
        UPDATE accounts
        SET is_blocked = TRUE, blocked_at = $1, blocked_by = $2, block_reason = $3, updated_at = $1
        WHERE id = $4
        RETURNING `+accountColumns, now, adminID, reason, id))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error blocking account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("database error committing block: %w", err)
	}

	l.InfoContext(ctx, "Account blocked", slog.String("reason", reason))
	span.SetStatus(codes.Ok, "Account blocked")
	return acct, nil
}

// Unblock lifts an administrator lock. All block fields clear together and
// the account is explicitly reactivated.
func (r *PostgresAccountRepo) Unblock(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	now := time.Now()
	query := `
        UPDATE accounts
        SET is_blocked = FALSE, blocked_at = NULL, blocked_by = NULL, block_reason = NULL,
            is_active = TRUE, deactivated_at = NULL, updated_at = $1
        WHERE id = $2 AND is_blocked = TRUE
        RETURNING ` + accountColumns

	acct, err := scanAccount(r.pgpool.QueryRow(ctx, query, now, id))
	if err == nil {
		r.logger.InfoContext(ctx, "Account unblocked", slog.String("accountID", id.String()))
		return acct, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("database error unblocking account: %w", err)
	}

	if _, getErr := r.GetAccountByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("cannot unblock: %w", types.ErrNotBlocked)
}

// SetActive is the administrator toggle for another user's active flag.
// Deactivating an administrator re-checks the admin floor inside the
// transaction.
func (r *PostgresAccountRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) (*types.Account, error) {
	ctx, span := otel.Tracer("AccountRepo").Start(ctx, "SetActive", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "accounts"),
		attribute.Bool("account.active", active),
	))
	defer span.End()

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if !active {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, adminFloorLockKey); err != nil {
			return nil, fmt.Errorf("database error acquiring admin-floor lock: %w", err)
		}
	}

	var role types.Role
	err = tx.QueryRow(ctx, `SELECT role FROM accounts WHERE id = $1 FOR UPDATE`, id).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account not found: %w", types.ErrNotFound)
		}
		return nil, fmt.Errorf("database error reading account: %w", err)
	}

	if !active && role == types.RoleAdmin {
		remaining, err := activeAdminCountExcluding(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if remaining == 0 {
			span.SetStatus(codes.Error, "Last admin")
			return nil, fmt.Errorf("cannot deactivate account: %w", types.ErrLastAdmin)
		}
	}

	now := time.Now()
	acct, err := scanAccount(tx.QueryRow(ctx, `
        UPDATE accounts
        SET is_active = $1, updated_at = $2
        WHERE id = $3
        RETURNING `+accountColumns, active, now, id))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error updating active flag: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("database error committing active flag: %w", err)
	}

	span.SetStatus(codes.Ok, "Active flag updated")
	return acct, nil
}

func (r *PostgresAccountRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	tag, err := r.pgpool.Exec(ctx,
		`UPDATE accounts SET last_login_at = $1, updated_at = $1 WHERE id = $2`, now, id)
	if err != nil {
		return fmt.Errorf("database error updating last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %w", types.ErrNotFound)
	}
	return nil
}

func (r *PostgresAccountRepo) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	tag, err := r.pgpool.Exec(ctx, `
        UPDATE accounts SET email_verified_at = $1, updated_at = $1
        WHERE id = $2 AND email_verified_at IS NULL`, now, id)
	if err != nil {
		return fmt.Errorf("database error marking email as verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already verified or missing; only the latter is an error.
		var exists bool
		if err := r.pgpool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("database error checking account existence: %w", err)
		}
		if !exists {
			return fmt.Errorf("account not found: %w", types.ErrNotFound)
		}
	}
	return nil
}

func (r *PostgresAccountRepo) UpdatePassword(ctx context.Context, id uuid.UUID, newHashedPassword string) error {
	tag, err := r.pgpool.Exec(ctx,
		`UPDATE accounts SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		newHashedPassword, time.Now(), id)
	if err != nil {
		return fmt.Errorf("database error updating password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %w", types.ErrNotFound)
	}
	return nil
}
