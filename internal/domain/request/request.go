package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/docmatch/internal/domain"
)

// Insider is the reserved client id for internal/offline submissions. It suppresses all notifications.
const Insider = "insider"

// Request is a document submitted for matching.
type Request struct {
	ClientID string
	DocID    string
	Lines    []string
}

// FromBody builds a Request, splitting body on newlines.
func FromBody(clientID, docID, body string) (Request, error) {
	if clientID == "" {
		return Request{}, fmt.Errorf("client id is required: %w", domain.ErrInvalidRequest)
	}
	if docID == "" {
		return Request{}, fmt.Errorf("doc id is required: %w", domain.ErrInvalidRequest)
	}
	return Request{
		ClientID: clientID,
		DocID:    docID,
		Lines:    strings.Split(body, "\n"),
	}, nil
}

// IsInsider reports whether notifications must be suppressed for this request.
func (r Request) IsInsider() bool {
	return r.ClientID == Insider
}

// Body joins Lines back into the submitted text.
func (r Request) Body() string {
	return strings.Join(r.Lines, "\n")
}
