package dispatch

import (
	"context"

	"github.com/kailas-cloud/docmatch/internal/domain/match"
	"github.com/kailas-cloud/docmatch/internal/domain/notification"
	"github.com/kailas-cloud/docmatch/internal/domain/request"
)

// Matcher runs one document match.
type Matcher interface {
	MatchDocument(ctx context.Context, req request.Request) (match.Outcome, error)
}

// Queue is the durable overflow FIFO.
type Queue interface {
	Push(ctx context.Context, req request.Request) error
	Pop(ctx context.Context) (request.Request, bool, error)
	Len(ctx context.Context) (int64, error)
}

// Notifier delivers best-effort user notifications.
type Notifier interface {
	Send(ctx context.Context, msg notification.Message)
}
