package sweep

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/nepabhay/account-service/app/observability/metrics"
	"github.com/nepabhay/account-service/internal/api/account"
	"github.com/nepabhay/account-service/internal/types"
)

// Ensure implementation satisfies the interface
var _ SweepService = (*SweepServiceImpl)(nil)

// SweepService purges accounts whose deletion grace period has elapsed. Runs
// are idempotent: an account purged by an earlier or overlapping run counts
// as skipped, never as a second deletion or a failure.
type SweepService interface {
	RunSweep(ctx context.Context) (*types.SweepReport, error)
}

type SweepServiceImpl struct {
	logger         *slog.Logger
	accountService account.AccountService
	gracePeriod    time.Duration
	batchLimit     int
	concurrency    int
}

func NewSweepService(accountService account.AccountService, gracePeriod time.Duration, batchLimit, concurrency int, logger *slog.Logger) *SweepServiceImpl {
	if batchLimit <= 0 {
		batchLimit = 500
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &SweepServiceImpl{
		logger:         logger,
		accountService: accountService,
		gracePeriod:    gracePeriod,
		batchLimit:     batchLimit,
		concurrency:    concurrency,
	}
}

// RunSweep purges every account whose deletion was requested at or before
// now minus the grace period, up to the batch limit. One failed account does
// not stop the rest of the batch; the failure lands in the report and the
// account is retried on the next run.
func (s *SweepServiceImpl) RunSweep(ctx context.Context) (*types.SweepReport, error) {
	cutoff := time.Now().Add(-s.gracePeriod)

	ctx, span := otel.Tracer("SweepService").Start(ctx, "RunSweep")
	span.SetAttributes(
		attribute.String("sweep.cutoff", cutoff.Format(time.RFC3339)),
		attribute.Int("sweep.batch_limit", s.batchLimit),
	)
	defer span.End()

	l := s.logger.With(slog.String("method", "RunSweep"), slog.Time("cutoff", cutoff))
	start := time.Now()
	metrics.Get().SweepRunsTotal.Add(ctx, 1)

	// Fetch one extra row to detect whether the batch limit cut the scan
	// short.
	expired, err := s.accountService.ListAccounts(ctx,
		account.NewAccountQuery().ByDeletionCutoff(cutoff).Limit(s.batchLimit+1))
	if err != nil {
		l.ErrorContext(ctx, "Failed to list expired accounts", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Listing expired accounts failed")
		return nil, err
	}

	truncated := len(expired) > s.batchLimit
	if truncated {
		expired = expired[:s.batchLimit]
	}

	report := &types.SweepReport{
		Cutoff:    cutoff,
		Scanned:   len(expired),
		Truncated: truncated,
	}

	if len(expired) == 0 {
		report.Duration = time.Since(start)
		l.InfoContext(ctx, "Sweep found nothing to purge")
		span.SetStatus(codes.Ok, "Nothing to purge")
		return report, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, acct := range expired {
		g.Go(func() error {
			deleted, err := s.accountService.DeleteImmediately(gctx, acct.ID)
			if err != nil {
				l.WarnContext(gctx, "Sweep failed to purge account",
					slog.String("accountID", acct.ID.String()), slog.Any("error", err))
				mu.Lock()
				report.Failed = append(report.Failed, types.SweepFailure{
					AccountID: acct.ID,
					Error:     err.Error(),
				})
				mu.Unlock()
				// Per-account failures are tolerated; only context
				// cancellation should stop the batch.
				return nil
			}
			mu.Lock()
			// An account an overlapping run purged first is skipped, not
			// deleted, so two runs never report the same deletion.
			if deleted {
				report.Deleted++
			} else {
				report.Skipped++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
	}

	report.Duration = time.Since(start)

	metrics.Get().SweepDeletedTotal.Add(ctx, int64(report.Deleted))
	metrics.Get().SweepFailedTotal.Add(ctx, int64(len(report.Failed)))
	metrics.Get().SweepDurationSeconds.Record(ctx, report.Duration.Seconds())

	l.InfoContext(ctx, "Sweep completed",
		slog.Int("scanned", report.Scanned),
		slog.Int("deleted", report.Deleted),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", len(report.Failed)),
		slog.Bool("truncated", report.Truncated),
		slog.Duration("duration", report.Duration))
	span.SetAttributes(
		attribute.Int("sweep.deleted", report.Deleted),
		attribute.Int("sweep.failed", len(report.Failed)),
	)
	span.SetStatus(codes.Ok, "Sweep completed")
	return report, nil
}
