package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"transcodetracker/internal/event"
	"transcodetracker/internal/metrics"
	"transcodetracker/internal/store"
)

// Reconcile reacts to job state change notifications from the
// transcoding service and applies terminal status updates to the record
// the job belongs to, resolved through the jobId index.
type Reconcile struct {
	store     store.Store
	logger    *slog.Logger
	collector *metrics.Collector
	now       func() time.Time
}

// NewReconcile wires the reconciliation handler.
func NewReconcile(st store.Store, logger *slog.Logger, collector *metrics.Collector) *Reconcile {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconcile{store: st, logger: logger, collector: collector, now: time.Now}
}

// normalizeStatus maps the vendor status vocabulary onto the internal
// taxonomy. Only terminal transitions are persisted; everything else
// (SUBMITTED, PROGRESSING, CANCELED, unrecognized values) is ignored.
func normalizeStatus(vendor string) (store.Status, bool) {
	switch vendor {
	case "COMPLETE":
		return store.StatusComplete, true
	case "ERROR":
		return store.StatusError, true
	default:
		return "", false
	}
}

// Handle processes one notification. The error is non-nil exactly when
// the result outcome is Retry.
func (h *Reconcile) Handle(ctx context.Context, e events.CloudWatchEvent) (Result, error) {
	started := time.Now()

	change, err := event.ParseJobStateChange(e)
	if err != nil {
		// Redelivering a malformed event cannot help, so it is dropped
		// instead of retried.
		h.logger.Warn("dropping malformed job state change", "error", err)
		h.record(metrics.OpReconcile, Drop, started)
		return Result{Outcome: Drop}, nil
	}

	status, terminal := normalizeStatus(change.Status)
	if !terminal {
		h.logger.Info("ignoring non-terminal status", "job_id", change.JobID, "status", change.Status)
		h.record(metrics.OpReconcile, Ignored, started)
		return Result{Outcome: Ignored, JobID: change.JobID}, nil
	}

	recs, err := h.store.QueryByJobID(ctx, change.JobID)
	if err != nil {
		h.record(metrics.OpReconcile, Retry, started)
		return Result{Outcome: Retry, JobID: change.JobID}, fmt.Errorf("query jobId %s: %w", change.JobID, err)
	}
	if len(recs) == 0 {
		// Legitimately possible when the index has not caught up with a
		// very recent ingestion write; the substrate's redelivery of
		// failed invocations is the only mitigation, so this event is
		// dropped here, not retried.
		h.logger.Warn("no record found for job", "job_id", change.JobID)
		h.record(metrics.OpReconcile, Drop, started)
		return Result{Outcome: Drop, JobID: change.JobID}, nil
	}
	if len(recs) > 1 {
		h.logger.Warn("multiple records match job, using first", "job_id", change.JobID, "matches", len(recs))
	}

	objectID := recs[0].ObjectID
	if objectID == "" {
		h.logger.Warn("record for job missing objectId", "job_id", change.JobID)
		h.record(metrics.OpReconcile, Drop, started)
		return Result{Outcome: Drop, JobID: change.JobID}, nil
	}

	if err := h.store.UpdateStatus(ctx, objectID, status, h.now()); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			h.logger.Warn("record vanished before update", "object_id", objectID, "job_id", change.JobID)
			h.record(metrics.OpReconcile, Drop, started)
			return Result{Outcome: Drop, ObjectID: objectID, JobID: change.JobID}, nil
		case errors.Is(err, store.ErrTerminalConflict):
			h.logger.Warn("record already terminal with different status",
				"object_id", objectID, "job_id", change.JobID, "status", status)
			h.record(metrics.OpReconcile, Drop, started)
			return Result{Outcome: Drop, ObjectID: objectID, JobID: change.JobID}, nil
		default:
			h.record(metrics.OpReconcile, Retry, started)
			return Result{Outcome: Retry, ObjectID: objectID, JobID: change.JobID}, fmt.Errorf("update %s: %w", objectID, err)
		}
	}

	h.logger.Info("job status updated", "object_id", objectID, "job_id", change.JobID, "status", status)
	h.record(metrics.OpReconcile, Success, started)
	return Result{Outcome: Success, ObjectID: objectID, JobID: change.JobID}, nil
}

func (h *Reconcile) record(op string, outcome Outcome, started time.Time) {
	if h.collector != nil {
		h.collector.Record(op, outcome.String(), time.Since(started))
	}
}
