// Package event parses and validates the inbound EventBridge
// notifications the tracker reacts to. Anything that does not match a
// known variant is rejected at this boundary so the handlers only ever
// see well-formed input.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

const (
	// S3Source and S3DetailType identify the "object created"
	// notification variant.
	S3Source     = "aws.s3"
	S3DetailType = "Object Created"

	// MediaConvertSource and MediaConvertDetailType identify the job
	// state change variant.
	MediaConvertSource     = "aws.mediaconvert"
	MediaConvertDetailType = "MediaConvert Job State Change"
)

// ErrUnexpectedEvent marks an envelope whose source or detail-type does
// not match the expected variant.
var ErrUnexpectedEvent = errors.New("unexpected event")

// ObjectCreated is a validated "new source object" notification.
type ObjectCreated struct {
	Bucket string
	Key    string
}

// JobStateChange is a validated "transcoding job state changed"
// notification. Status carries the vendor's vocabulary untouched;
// normalization happens in the reconciliation handler.
type JobStateChange struct {
	JobID  string
	Status string
}

type objectCreatedDetail struct {
	Bucket struct {
		Name string `json:"name"`
	} `json:"bucket"`
	Object struct {
		Key string `json:"key"`
	} `json:"object"`
}

type jobStateChangeDetail struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// ParseObjectCreated validates an EventBridge envelope as an S3 object
// created notification. Keys may arrive percent-encoded with spaces as
// "+"; a key that fails decoding is kept raw rather than failing the
// event.
func ParseObjectCreated(e events.CloudWatchEvent) (ObjectCreated, error) {
	if e.Source != S3Source || !strings.Contains(e.DetailType, S3DetailType) {
		return ObjectCreated{}, fmt.Errorf("%w: source=%q detail-type=%q", ErrUnexpectedEvent, e.Source, e.DetailType)
	}

	var detail objectCreatedDetail
	if err := json.Unmarshal(e.Detail, &detail); err != nil {
		return ObjectCreated{}, fmt.Errorf("decode object created detail: %w", err)
	}
	if detail.Bucket.Name == "" || detail.Object.Key == "" {
		return ObjectCreated{}, errors.New("missing bucket or key in event")
	}

	key := detail.Object.Key
	if decoded, err := url.QueryUnescape(key); err == nil {
		key = decoded
	}

	return ObjectCreated{Bucket: detail.Bucket.Name, Key: key}, nil
}

// ParseJobStateChange extracts jobId and status from a transcoding
// service notification. Only those two fields are inspected; the rest of
// the detail payload is ignored.
func ParseJobStateChange(e events.CloudWatchEvent) (JobStateChange, error) {
	var detail jobStateChangeDetail
	if err := json.Unmarshal(e.Detail, &detail); err != nil {
		return JobStateChange{}, fmt.Errorf("decode job state change detail: %w", err)
	}
	if detail.JobID == "" || detail.Status == "" {
		return JobStateChange{}, errors.New("missing jobId or status in event")
	}
	return JobStateChange{JobID: detail.JobID, Status: detail.Status}, nil
}
