// Package store persists transcode job records in DynamoDB.
package store

import "time"

// Status is the internal lifecycle state of a transcode job record.
// These are the exact string values stored in the table, so changing
// them is a data migration.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// IsTerminal reports whether no further transition is expected.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusError
}

// JobRecord is a single item in the transcode jobs table: one per source
// object, keyed by the object's storage key. The jobId attribute is
// served by an eventually-consistent GSI for reverse lookup.
type JobRecord struct {
	ObjectID  string `dynamodbav:"objectId"`
	JobID     string `dynamodbav:"jobId"`
	Status    Status `dynamodbav:"status"`
	UpdatedAt string `dynamodbav:"updatedAt"`
}

// FormatTime renders a timestamp the way updatedAt is stored.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
