package request

// Status is the admission result of a submission.
type Status string

const (
	// Accepted means the match started immediately.
	Accepted Status = "accepted"
	// Queued means the request was deferred to the overflow queue.
	Queued Status = "queued"
	// Failed means the request could neither start nor be queued.
	Failed Status = "failed"
)

// Submission is returned to the submitter.
type Submission struct {
	Status Status
	Reason string
}
