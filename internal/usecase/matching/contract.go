package matching

import (
	"context"

	"github.com/kailas-cloud/docmatch/internal/domain"
	"github.com/kailas-cloud/docmatch/internal/domain/match"
	"github.com/kailas-cloud/docmatch/internal/domain/notification"
	"github.com/kailas-cloud/docmatch/internal/domain/template"
)

// TemplateSource provides the read-only snapshot of cached templates.
type TemplateSource interface {
	Templates() []*template.Cached
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// OutcomeRepository persists match outcomes.
type OutcomeRepository interface {
	Save(ctx context.Context, o match.Outcome) error
}

// Notifier delivers best-effort user notifications.
type Notifier interface {
	Send(ctx context.Context, msg notification.Message)
}
