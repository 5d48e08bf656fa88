package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"transcodetracker/internal/store"
	"transcodetracker/internal/transcoder"
)

// memStore implements store.Store with the same conditional-write
// semantics as the DynamoDB implementation, plus error injection.
type memStore struct {
	recs map[string]store.JobRecord

	putErr    error
	queryErr  error
	updateErr error

	// queryLag hides all records from QueryByJobID, simulating a GSI
	// that has not caught up with a recent write.
	queryLag bool

	// queryOverride, when non-nil, is returned verbatim by QueryByJobID.
	queryOverride []store.JobRecord

	putCalls    int
	queryCalls  int
	updateCalls int
}

var _ store.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{recs: make(map[string]store.JobRecord)}
}

func (m *memStore) Put(ctx context.Context, rec store.JobRecord) error {
	m.putCalls++
	if m.putErr != nil {
		return m.putErr
	}
	if _, ok := m.recs[rec.ObjectID]; ok {
		return fmt.Errorf("put %s: %w", rec.ObjectID, store.ErrAlreadyExists)
	}
	m.recs[rec.ObjectID] = rec
	return nil
}

func (m *memStore) GetByObjectID(ctx context.Context, objectID string) (store.JobRecord, error) {
	rec, ok := m.recs[objectID]
	if !ok {
		return store.JobRecord{}, fmt.Errorf("get %s: %w", objectID, store.ErrNotFound)
	}
	return rec, nil
}

func (m *memStore) QueryByJobID(ctx context.Context, jobID string) ([]store.JobRecord, error) {
	m.queryCalls++
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if m.queryOverride != nil {
		return m.queryOverride, nil
	}
	if m.queryLag {
		return nil, nil
	}
	var out []store.JobRecord
	for _, rec := range m.recs {
		if rec.JobID == jobID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memStore) UpdateStatus(ctx context.Context, objectID string, status store.Status, at time.Time) error {
	m.updateCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	rec, ok := m.recs[objectID]
	if !ok {
		return fmt.Errorf("update %s: %w", objectID, store.ErrNotFound)
	}
	if rec.Status != store.StatusProcessing && rec.Status != status {
		return fmt.Errorf("update %s: %w", objectID, store.ErrTerminalConflict)
	}
	rec.Status = status
	rec.UpdatedAt = store.FormatTime(at)
	m.recs[objectID] = rec
	return nil
}

// fakeSubmitter records job specs and returns a canned job id.
type fakeSubmitter struct {
	jobID string
	err   error
	specs []transcoder.JobSpec
}

var _ transcoder.Submitter = (*fakeSubmitter)(nil)

func (f *fakeSubmitter) Submit(ctx context.Context, spec transcoder.JobSpec) (string, error) {
	f.specs = append(f.specs, spec)
	if f.err != nil {
		return "", f.err
	}
	return f.jobID, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func objectCreatedEvent(t *testing.T, bucket, key string) events.CloudWatchEvent {
	t.Helper()
	detail, err := json.Marshal(map[string]any{
		"bucket": map[string]any{"name": bucket},
		"object": map[string]any{"key": key},
	})
	if err != nil {
		t.Fatalf("marshal detail: %v", err)
	}
	return events.CloudWatchEvent{
		Source:     "aws.s3",
		DetailType: "Object Created",
		Detail:     detail,
	}
}

func jobStateChangeEvent(t *testing.T, jobID, status string) events.CloudWatchEvent {
	t.Helper()
	detail, err := json.Marshal(map[string]any{
		"jobId":  jobID,
		"status": status,
	})
	if err != nil {
		t.Fatalf("marshal detail: %v", err)
	}
	return events.CloudWatchEvent{
		Source:     "aws.mediaconvert",
		DetailType: "MediaConvert Job State Change",
		Detail:     detail,
	}
}
