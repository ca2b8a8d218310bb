package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenk/backoff"
	"github.com/dmitrijs2005/skillhub/internal/dbx"
	"github.com/dmitrijs2005/skillhub/internal/logging"
	"github.com/dmitrijs2005/skillhub/internal/server/config"
	"github.com/dmitrijs2005/skillhub/internal/server/models"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/repomanager"
)

// sweepLimit bounds how many pending evictions one Sweep re-enqueues.
const sweepLimit = 500

// Worker drains a Queue, purging each task with exponential backoff.
type Worker struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	queue       *Queue
	logger        logging.Logger
	maxElapsed    time.Duration
	sweepInterval time.Duration
	newBackOff    func() backoff.BackOff
}

func NewWorker(db *sql.DB, m repomanager.RepositoryManager, q *Queue, cfg *config.Config, logger logging.Logger) *Worker {
	w := &Worker{
		db:          db,
		repomanager: m,
		queue:       q,
		logger:        logger.With("module", "cleanup"),
		maxElapsed:    cfg.CleanupMaxElapsed,
		sweepInterval: cfg.CleanupSweepInterval,
	}
	w.newBackOff = w.exponential
	return w
}

func (w *Worker) exponential() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = w.maxElapsed
	return b
}

// Run processes tasks until ctx is cancelled. A task that still fails after
// the retry window is logged and dropped; the next Sweep finds it again.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-w.queue.tasks():
			w.process(ctx, t)
			w.queue.done(t.PackageID)
		}
	}
}

// RunSweeper sweeps once immediately and then every sweep interval until ctx
// is cancelled. A non-positive interval sweeps only once.
func (w *Worker) RunSweeper(ctx context.Context) error {
	w.sweepOnce(ctx)
	if w.sweepInterval <= 0 {
		return nil
	}

	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.sweepOnce(ctx)
		}
	}
}

func (w *Worker) sweepOnce(ctx context.Context) {
	n, err := w.Sweep(ctx)
	if err != nil {
		w.logger.Warn(ctx, "cleanup sweep failed", "error", err)
		return
	}
	if n > 0 {
		w.logger.Info(ctx, "cleanup sweep enqueued evictions", "count", n)
	}
}

func (w *Worker) process(ctx context.Context, t Task) {
	attempt := 0
	op := func() error {
		attempt++
		err := w.Purge(ctx, t)
		if err != nil {
			w.logger.Warn(ctx, "purge attempt failed", "package_id", t.PackageID, "attempt", attempt, "error", err)
		}
		return err
	}

	if err := backoff.Retry(op, backoff.WithContext(w.newBackOff(), ctx)); err != nil {
		w.logger.Error(ctx, "purge abandoned", "package_id", t.PackageID, "slug", t.Slug, "error", err)
		return
	}
	w.logger.Info(ctx, "evicted package purged", "package_id", t.PackageID, "slug", t.Slug)
}

// Purge deletes every dependent row of the evicted package and records a
// package.purge audit entry, all in one transaction.
func (w *Worker) Purge(ctx context.Context, t Task) error {
	return dbx.WithTx(ctx, w.db, dbx.Serializable, func(ctx context.Context, tx dbx.DBTX) error {
		versions, err := w.repomanager.Versions(tx).DeleteByPackage(ctx, t.PackageID)
		if err != nil {
			return fmt.Errorf("error deleting versions: %w", err)
		}
		fingerprints, err := w.repomanager.Fingerprints(tx).DeleteByPackage(ctx, t.PackageID)
		if err != nil {
			return fmt.Errorf("error deleting fingerprints: %w", err)
		}
		projections, err := w.repomanager.Projections(tx).DeleteByPackage(ctx, t.PackageID)
		if err != nil {
			return fmt.Errorf("error deleting projections: %w", err)
		}

		_, err = w.repomanager.AuditLogs(tx).Append(ctx, &models.AuditLog{
			ActorUserID: t.ActorUserID,
			Action:      models.AuditPackagePurge,
			TargetType:  models.TargetPackage,
			TargetID:    t.PackageID,
			Metadata: models.AuditMetadata{
				"slug":         t.Slug,
				"versions":     versions,
				"fingerprints": fingerprints,
				"projections":  projections,
			},
		})
		if err != nil {
			return fmt.Errorf("error writing audit log: %w", err)
		}
		return nil
	})
}

// Sweep re-enqueues evictions that never got a purge entry, e.g. because
// the process stopped before the worker reached them. It returns the number
// of tasks enqueued.
func (w *Worker) Sweep(ctx context.Context) (int, error) {
	pending, err := w.repomanager.AuditLogs(w.db).PendingEvictions(ctx, sweepLimit)
	if err != nil {
		return 0, fmt.Errorf("error listing pending evictions: %w", err)
	}

	n := 0
	for _, e := range pending {
		slug, _ := e.Metadata["slug"].(string)
		if !w.queue.Enqueue(Task{PackageID: e.TargetID, Slug: slug, ActorUserID: e.ActorUserID}) {
			w.logger.Warn(ctx, "cleanup queue full, sweep stopped", "enqueued", n, "pending", len(pending))
			break
		}
		n++
	}
	return n, nil
}
