package notification

import "fmt"

// Destinations understood by the client-facing relay.
const (
	DestinationStatus = "/queue/status"
	DestinationResult = "/queue/result"
)

// StatusQueued is sent to the status destination when a request lands in the overflow queue.
const StatusQueued = "queued"

// Message is a user-addressed notification.
type Message struct {
	User        string
	Destination string
	Payload     string
}

// Progress builds a "<pct>%" status message.
func Progress(user string, percent int) Message {
	return Message{User: user, Destination: DestinationStatus, Payload: fmt.Sprintf("%d%%", percent)}
}

// Queued builds the status message for a deferred request.
func Queued(user string) Message {
	return Message{User: user, Destination: DestinationStatus, Payload: StatusQueued}
}

// Result builds the completion message carrying the document id.
func Result(user, docID string) Message {
	return Message{User: user, Destination: DestinationResult, Payload: docID}
}

// Percent returns processed*100/total using integer division. Returns 100 for total <= 0.
func Percent(processed, total int) int {
	if total <= 0 {
		return 100
	}
	return processed * 100 / total
}

// ErrorPayload is delivered on the result destination when a submission fails.
type ErrorPayload struct {
	Message   string
	ErrorCode int
}
