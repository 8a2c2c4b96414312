// Package worker copies the live upstream table into the snapshot store on a
// schedule and announces each new snapshot over AMQP.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adspend/internal/amqp"
	"adspend/internal/core"
	"adspend/internal/dashboard"
	applog "adspend/internal/log"
	"adspend/internal/metrics"
	"adspend/internal/source"
)

// SnapshotStore persists fetched tables.
type SnapshotStore interface {
	Save(ctx context.Context, src string, records []core.RawRecord, fetchedAt time.Time) (int64, error)
	Prune(ctx context.Context, keep int) (int64, error)
}

// Publisher announces stored snapshots.
type Publisher interface {
	PublishSnapshotUpdated(ctx context.Context, msg *amqp.SnapshotUpdatedMessage) error
}

// ErrSkipped is returned by RunOnce when the upstream answered with something
// that is not a table; the previous snapshot stays current.
var ErrSkipped = errors.New("snapshot skipped")

// SyncWorker handles synchronization of the upstream table into SQLite
type SyncWorker struct {
	upstream  source.RowSource
	store     SnapshotStore
	publisher Publisher
	keep      int
	metrics   *metrics.Metrics
	logger    *applog.Logger
	now       func() time.Time
}

// NewSyncWorker wires a worker. publisher and m may be nil.
func NewSyncWorker(upstream source.RowSource, store SnapshotStore, publisher Publisher, keep int, m *metrics.Metrics, logger *applog.Logger) *SyncWorker {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	if keep < 1 {
		keep = 1
	}
	return &SyncWorker{
		upstream:  upstream,
		store:     store,
		publisher: publisher,
		keep:      keep,
		metrics:   m,
		logger:    logger.WithComponent(applog.ComponentWorker),
		now:       time.Now,
	}
}

// RunOnce fetches the upstream, stores a snapshot, prunes old ones and
// publishes a notification. It returns the new snapshot id.
func (w *SyncWorker) RunOnce(ctx context.Context) (int64, error) {
	name := source.NameOf(w.upstream)
	fetchedAt := w.now()

	records, err := w.upstream.FetchRows(ctx)
	if core.IsMalformed(err) {
		w.metrics.ObserveSnapshot(metrics.ResultMalformed)
		w.logger.WarnContext(ctx, "Malformed upstream response, keeping previous snapshot",
			applog.FieldSource, name,
			applog.FieldError, err,
			"error_type", applog.ErrorTypeMalformed)
		return 0, fmt.Errorf("%w: %v", ErrSkipped, err)
	}
	if err != nil {
		w.metrics.ObserveSnapshot(metrics.ResultError)
		return 0, fmt.Errorf("fetch upstream %s: %w", name, err)
	}

	id, err := w.store.Save(ctx, name, records, fetchedAt)
	if err != nil {
		w.metrics.ObserveSnapshot(metrics.ResultError)
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	w.metrics.ObserveSnapshot(metrics.ResultOK)

	w.logger.InfoContext(ctx, "Stored snapshot",
		applog.FieldSnapshotID, id,
		applog.FieldSource, name,
		applog.FieldRows, len(records),
		applog.FieldOperation, applog.OpSnapshot)

	if pruned, err := w.store.Prune(ctx, w.keep); err != nil {
		w.logger.ErrorContext(ctx, "Failed to prune snapshots",
			applog.FieldError, err,
			"error_type", applog.ErrorTypeDatabase)
	} else if pruned > 0 {
		w.logger.DebugContext(ctx, "Pruned snapshots", "removed", pruned, "keep", w.keep)
	}

	if w.publisher != nil {
		msg := amqp.NewSnapshotUpdatedMessage(id, name, len(records), fetchedAt)
		if err := w.publisher.PublishSnapshotUpdated(ctx, msg); err != nil {
			// The snapshot is stored; the dashboard picks it up on its next refresh.
			w.logger.ErrorContext(ctx, "Failed to publish snapshot message",
				applog.FieldSnapshotID, id,
				applog.FieldError, err,
				applog.FieldOperation, applog.OpPublish)
		}
	}

	return id, nil
}

// Run performs a sync at startup and then every interval until ctx ends.
// Failed cycles are logged and retried on the next tick.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	w.logger.InfoContext(ctx, "Starting snapshot worker",
		applog.FieldSource, source.NameOf(w.upstream),
		"interval", interval.String(),
		"keep", w.keep)

	w.cycle(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Snapshot worker stopped", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			w.cycle(ctx)
		}
	}
}

func (w *SyncWorker) cycle(ctx context.Context) {
	if _, err := w.RunOnce(ctx); err != nil && !errors.Is(err, ErrSkipped) && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "Snapshot sync failed",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpSnapshot)
	}
}

// Refresher is the dashboard side of a snapshot notification.
type Refresher interface {
	Refresh(ctx context.Context) (dashboard.State, error)
}

// RefreshOnSnapshot returns an AMQP handler that reloads the dashboard when
// the worker announces a snapshot. A failed reload is returned so the
// message is requeued.
func RefreshOnSnapshot(r Refresher, logger *applog.Logger) amqp.SnapshotHandler {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentAMQP)
	return func(ctx context.Context, msg *amqp.SnapshotUpdatedMessage) error {
		st, err := r.Refresh(ctx)
		if err != nil {
			return fmt.Errorf("refresh after snapshot %d: %w", msg.SnapshotID, err)
		}
		logger.InfoContext(ctx, "Dashboard reloaded from snapshot",
			applog.FieldSnapshotID, msg.SnapshotID,
			applog.FieldRows, st.Rows,
			applog.FieldGeneration, st.Generation,
			applog.FieldOperation, applog.OpConsume)
		return nil
	}
}
