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
	"transcodetracker/internal/transcoder"
)

// Ingest reacts to "object created" notifications: it submits one
// transcode job for each eligible object and writes the initial
// processing record. Redelivery of the same notification is absorbed by
// the store's create-only write, so at most one record survives per
// object.
type Ingest struct {
	store      store.Store
	submitter  transcoder.Submitter
	profile    transcoder.Profile
	destBucket string
	logger     *slog.Logger
	collector  *metrics.Collector
	now        func() time.Time
}

// NewIngest wires the ingestion handler. Dependencies are created once
// per process and reused across invocations.
func NewIngest(st store.Store, sub transcoder.Submitter, profile transcoder.Profile, destBucket string, logger *slog.Logger, collector *metrics.Collector) *Ingest {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingest{
		store:      st,
		submitter:  sub,
		profile:    profile,
		destBucket: destBucket,
		logger:     logger,
		collector:  collector,
		now:        time.Now,
	}
}

// Handle processes one notification. The error is non-nil exactly when
// the result outcome is Retry; the entrypoint fails the invocation in
// that case so the substrate redelivers.
func (h *Ingest) Handle(ctx context.Context, e events.CloudWatchEvent) (Result, error) {
	started := time.Now()

	obj, err := event.ParseObjectCreated(e)
	if err != nil {
		// A malformed "object created" event fails the invocation so
		// the substrate retries and eventually dead-letters it.
		h.record(metrics.OpIngest, Retry, started)
		return Result{Outcome: Retry}, fmt.Errorf("parse event: %w", err)
	}

	if !h.profile.Matches(obj.Key) {
		h.logger.Info("ignoring object without supported extension", "bucket", obj.Bucket, "key", obj.Key)
		h.record(metrics.OpIngest, Ignored, started)
		return Result{Outcome: Ignored, ObjectID: obj.Key}, nil
	}

	jobID, err := h.submitter.Submit(ctx, transcoder.JobSpec{
		InputURI:       fmt.Sprintf("s3://%s/%s", obj.Bucket, obj.Key),
		DestinationURI: fmt.Sprintf("s3://%s/%s", h.destBucket, h.profile.DestinationPrefix),
	})
	if err != nil {
		// No record is written; the redelivered notification restarts
		// the whole submission.
		h.record(metrics.OpIngest, Retry, started)
		return Result{Outcome: Retry, ObjectID: obj.Key}, fmt.Errorf("submit job for %s: %w", obj.Key, err)
	}

	rec := store.JobRecord{
		ObjectID:  obj.Key,
		JobID:     jobID,
		Status:    store.StatusProcessing,
		UpdatedAt: store.FormatTime(h.now()),
	}
	if err := h.store.Put(ctx, rec); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Duplicate delivery. The first record stays authoritative;
			// the job submitted above becomes an orphan whose status
			// events will miss the index lookup and be dropped.
			h.logger.Warn("duplicate object created delivery", "object_id", obj.Key, "orphan_job_id", jobID)
			h.record(metrics.OpIngest, Ignored, started)
			return Result{Outcome: Ignored, ObjectID: obj.Key, JobID: jobID}, nil
		}
		h.record(metrics.OpIngest, Retry, started)
		return Result{Outcome: Retry, ObjectID: obj.Key, JobID: jobID}, fmt.Errorf("write record for %s: %w", obj.Key, err)
	}

	h.logger.Info("job submitted", "object_id", obj.Key, "job_id", jobID)
	h.record(metrics.OpIngest, Success, started)
	return Result{Outcome: Success, ObjectID: obj.Key, JobID: jobID}, nil
}

func (h *Ingest) record(op string, outcome Outcome, started time.Time) {
	if h.collector != nil {
		h.collector.Record(op, outcome.String(), time.Since(started))
	}
}
