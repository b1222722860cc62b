package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/nepabhay/account-service/app/observability/metrics"
	"github.com/nepabhay/account-service/internal/api/notify"
	"github.com/nepabhay/account-service/internal/types"
)

// Ensure implementation satisfies the interface
var _ AccountService = (*AccountServiceImpl)(nil)

// AccountService is the only code allowed to mutate lifecycle flags. Every
// operation validates its invariants, persists the new state atomically, and
// notifies the owner asynchronously after the state is committed.
type AccountService interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*types.Account, error)
	ListAccounts(ctx context.Context, q AccountQuery) ([]types.Account, error)

	// Check classifies a login attempt by email before any credential
	// verification. Unknown identifiers classify as allowed so callers
	// cannot probe which emails exist.
	Check(ctx context.Context, email string) types.LoginDecision

	Deactivate(ctx context.Context, id uuid.UUID) (*types.Account, error)
	Reactivate(ctx context.Context, id uuid.UUID) (*types.Account, error)
	RequestDeletion(ctx context.Context, id uuid.UUID, reason *string) (*types.Account, error)
	CancelDeletion(ctx context.Context, id uuid.UUID) (*types.Account, error)
	DeleteImmediately(ctx context.Context, id uuid.UUID) (bool, error)
	Block(ctx context.Context, targetID, adminID uuid.UUID, reason string) (*types.Account, error)
	Unblock(ctx context.Context, id uuid.UUID) (*types.Account, error)
	SetActiveByAdmin(ctx context.Context, id uuid.UUID, active bool) (*types.Account, error)
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
}

type AccountServiceImpl struct {
	logger               *slog.Logger
	repo                 AccountRepo
	notifier             notify.Notifier
	gracePeriod          time.Duration
	requireVerifiedEmail bool
}

func NewAccountService(repo AccountRepo, notifier notify.Notifier, gracePeriod time.Duration, requireVerifiedEmail bool, logger *slog.Logger) *AccountServiceImpl {
	return &AccountServiceImpl{
		logger:               logger,
		repo:                 repo,
		notifier:             notifier,
		gracePeriod:          gracePeriod,
		requireVerifiedEmail: requireVerifiedEmail,
	}
}

func (s *AccountServiceImpl) GetAccount(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	acct, err := s.repo.GetAccountByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error fetching account: %w", err)
	}
	return acct, nil
}

func (s *AccountServiceImpl) ListAccounts(ctx context.Context, q AccountQuery) ([]types.Account, error) {
	accounts, err := s.repo.ListAccounts(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("error listing accounts: %w", err)
	}
	return accounts, nil
}

func (s *AccountServiceImpl) Check(ctx context.Context, email string) types.LoginDecision {
	acct, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		// Store errors classify as allowed; credential verification fails
		// on its own against an unreadable store.
		s.logger.ErrorContext(ctx, "Failed to read account for classification", slog.Any("error", err))
	}

	decision := Classify(acct, s.requireVerifiedEmail)

	metrics.Get().LoginChecksTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", string(decision.Status))))
	return decision
}

func (s *AccountServiceImpl) Deactivate(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	l := s.logger.With(slog.String("method", "Deactivate"), slog.String("accountID", id.String()))

	acct, err := s.repo.Deactivate(ctx, id)
	if err != nil {
		l.ErrorContext(ctx, "Failed to deactivate account", slog.Any("error", err))
		return nil, fmt.Errorf("error deactivating account: %w", err)
	}

	l.InfoContext(ctx, "Account deactivated")
	s.recordTransition(ctx, "deactivate")
	notify.Dispatch(s.notifier, s.logger, acct, notify.Notification{Event: notify.EventDeactivated})
	return acct, nil
}

func (s *AccountServiceImpl) Reactivate(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	l := s.logger.With(slog.String("method", "Reactivate"), slog.String("accountID", id.String()))

	acct, err := s.repo.Reactivate(ctx, id)
	if err != nil {
		l.WarnContext(ctx, "Reactivation refused", slog.Any("error", err))
		return nil, fmt.Errorf("error reactivating account: %w", err)
	}

	l.InfoContext(ctx, "Account reactivated")
	s.recordTransition(ctx, "reactivate")
	notify.Dispatch(s.notifier, s.logger, acct, notify.Notification{Event: notify.EventReactivated})
	return acct, nil
}

func (s *AccountServiceImpl) RequestDeletion(ctx context.Context, id uuid.UUID, reason *string) (*types.Account, error) {
	ctx, span := otel.Tracer("AccountService").Start(ctx, "RequestDeletion", trace.WithAttributes(
		attribute.String("account.id", id.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "RequestDeletion"), slog.String("accountID", id.String()))

	acct, err := s.repo.RequestDeletion(ctx, id, reason)
	if err != nil {
		l.WarnContext(ctx, "Deletion request refused", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Deletion request refused")
		return nil, fmt.Errorf("error requesting deletion: %w", err)
	}

	purgeDate := time.Now().Add(s.gracePeriod)
	if acct.DeletionRequestedAt != nil {
		purgeDate = acct.DeletionRequestedAt.Add(s.gracePeriod)
	}

	l.InfoContext(ctx, "Deletion requested", slog.Time("purge_date", purgeDate))
	span.SetStatus(codes.Ok, "Deletion requested")
	s.recordTransition(ctx, "request_deletion")
	notify.Dispatch(s.notifier, s.logger, acct, notify.Notification{
		Event:     notify.EventDeletionScheduled,
		PurgeDate: purgeDate,
	})
	return acct, nil
}

func (s *AccountServiceImpl) CancelDeletion(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	l := s.logger.With(slog.String("method", "CancelDeletion"), slog.String("accountID", id.String()))

	acct, err := s.repo.CancelDeletion(ctx, id)
	if err != nil {
		l.WarnContext(ctx, "Deletion cancellation refused", slog.Any("error", err))
		return nil, fmt.Errorf("error cancelling deletion: %w", err)
	}

	l.InfoContext(ctx, "Deletion request cancelled")
	s.recordTransition(ctx, "cancel_deletion")
	notify.Dispatch(s.notifier, s.logger, acct, notify.Notification{Event: notify.EventDeletionCancelled})
	return acct, nil
}

// DeleteImmediately hard-deletes the record, bypassing the grace period. Used
// by the explicit "confirm permanent delete" flows and by the retention sweep
// once the grace period has elapsed. The returned bool reports whether this
// call removed the row; false with a nil error means it was already gone.
func (s *AccountServiceImpl) DeleteImmediately(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, span := otel.Tracer("AccountService").Start(ctx, "DeleteImmediately", trace.WithAttributes(
		attribute.String("account.id", id.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "DeleteImmediately"), slog.String("accountID", id.String()))

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		l.WarnContext(ctx, "Permanent deletion refused", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Deletion refused")
		return false, fmt.Errorf("error deleting account: %w", err)
	}
	if !deleted {
		span.SetStatus(codes.Ok, "Already deleted")
		return false, nil
	}

	l.InfoContext(ctx, "Account permanently deleted")
	span.SetStatus(codes.Ok, "Account deleted")
	s.recordTransition(ctx, "delete")
	return true, nil
}

func (s *AccountServiceImpl) Block(ctx context.Context, targetID, adminID uuid.UUID, reason string) (*types.Account, error) {
	l := s.logger.With(slog.String("method", "Block"),
		slog.String("accountID", targetID.String()), slog.String("adminID", adminID.String()))

	if reason == "" {
		return nil, types.NewValidationError(map[string]string{"reason": "a block reason is required"})
	}
	if targetID == adminID {
		l.WarnContext(ctx, "Administrator attempted to block own account")
		return nil, fmt.Errorf("error blocking account: %w", types.ErrCannotSelfBlock)
	}

	acct, err := s.repo.Block(ctx, targetID, adminID, reason)
	if err != nil {
		l.WarnContext(ctx, "Block refused", slog.Any("error", err))
		return nil, fmt.Errorf("error blocking account: %w", err)
	}

	l.InfoContext(ctx, "Account blocked", slog.String("reason", reason))
	s.recordTransition(ctx, "block")
	notify.Dispatch(s.notifier, s.logger, acct, notify.Notification{Event: notify.EventBlocked, Reason: reason})
	return acct, nil
}

func (s *AccountServiceImpl) Unblock(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	l := s.logger.With(slog.String("method", "Unblock"), slog.String("accountID", id.String()))

	acct, err := s.repo.Unblock(ctx, id)
	if err != nil {
		l.WarnContext(ctx, "Unblock refused", slog.Any("error", err))
		return nil, fmt.Errorf("error unblocking account: %w", err)
	}

	l.InfoContext(ctx, "Account unblocked")
	s.recordTransition(ctx, "unblock")
	notify.Dispatch(s.notifier, s.logger, acct, notify.Notification{Event: notify.EventUnblocked})
	return acct, nil
}

func (s *AccountServiceImpl) SetActiveByAdmin(ctx context.Context, id uuid.UUID, active bool) (*types.Account, error) {
	l := s.logger.With(slog.String("method", "SetActiveByAdmin"),
		slog.String("accountID", id.String()), slog.Bool("active", active))

	acct, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		l.WarnContext(ctx, "Admin active toggle refused", slog.Any("error", err))
		return nil, fmt.Errorf("error toggling account: %w", err)
	}

	l.InfoContext(ctx, "Account active flag changed by admin")
	if active {
		s.recordTransition(ctx, "admin_activate")
		notify.Dispatch(s.notifier, s.logger, acct, notify.Notification{Event: notify.EventReactivated})
	} else {
		s.recordTransition(ctx, "admin_deactivate")
		notify.Dispatch(s.notifier, s.logger, acct, notify.Notification{Event: notify.EventDeactivated})
	}
	return acct, nil
}

// MarkEmailVerified confirms the account's email address. Verifying an
// already-verified account is a no-op.
func (s *AccountServiceImpl) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.MarkEmailVerified(ctx, id); err != nil {
		return fmt.Errorf("error marking email as verified: %w", err)
	}
	s.logger.InfoContext(ctx, "Email marked as verified", slog.String("accountID", id.String()))
	return nil
}

func (s *AccountServiceImpl) recordTransition(ctx context.Context, name string) {
	metrics.Get().LifecycleTransitionsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("transition", name)))
}
