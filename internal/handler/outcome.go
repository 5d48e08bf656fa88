// Package handler implements the two stateless event handlers that make
// up the job-state tracker: ingestion of newly created source objects
// and reconciliation of job state change notifications. The handlers
// never talk to each other; they synchronize only through the store.
package handler

// Outcome tags how an invocation ended, making the redelivery decision a
// first-class return value instead of incidental error control flow. The
// entrypoint translates Retry into a failed invocation so the delivery
// substrate redelivers; every other outcome completes the invocation.
type Outcome int

const (
	// Success means the handler performed its side effects.
	Success Outcome = iota

	// Ignored means the event was valid but not applicable (wrong
	// extension, non-terminal status, duplicate delivery); no side
	// effects, not an error.
	Ignored

	// Drop means the event is unusable and redelivery cannot help;
	// it is logged and discarded.
	Drop

	// Retry means a dependency failed transiently and the substrate
	// should redeliver the event.
	Retry
)

// MarshalText renders the outcome tag, so a serialized Result reads as
// "success" rather than an enum ordinal.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Ignored:
		return "ignored"
	case Drop:
		return "drop"
	case Retry:
		return "retry"
	default:
		return "unknown"
	}
}

// Result is the structured outcome of one invocation, returned for
// observability; nothing downstream consumes it.
type Result struct {
	Outcome  Outcome `json:"outcome"`
	ObjectID string  `json:"objectId,omitempty"`
	JobID    string  `json:"jobId,omitempty"`
}
