package templatecache

import (
	"context"

	"github.com/kailas-cloud/docmatch/internal/domain"
	"github.com/kailas-cloud/docmatch/internal/domain/template"
)

// Loader provides raw templates (field text per template id).
type Loader interface {
	Load(ctx context.Context) ([]template.Template, error)
}

// Repository persists cached templates as numbered entries plus a count manifest.
type Repository interface {
	Manifest(ctx context.Context) (count int, ok bool, err error)
	SetManifest(ctx context.Context, count int) error
	Load(ctx context.Context, i int) (*template.Cached, error)
	Save(ctx context.Context, i int, c *template.Cached) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
