package outcome

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/docmatch/internal/db"
	"github.com/kailas-cloud/docmatch/internal/domain"
	"github.com/kailas-cloud/docmatch/internal/domain/match"
)

// Key prefixes of the detail artifacts. The wrapper itself is stored under the bare document id.
const (
	matchesPrefix = "bestJsonNode:"
	statsPrefix   = "matchStatsNode:"
)

// store is the consumer interface for outcome persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repo persists match outcomes.
type Repo struct {
	store store
}

// New creates an outcome repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Save writes the matches, the stats and finally the wrapper, overwriting earlier runs.
func (r *Repo) Save(ctx context.Context, o match.Outcome) error {
	if o.DocID == "" {
		return fmt.Errorf("doc id is required: %w", domain.ErrInvalidRequest)
	}

	items := []struct {
		key string
		v   any
	}{
		{matchesPrefix + o.DocID, matchesFromOutcome(o)},
		{statsPrefix + o.DocID, statsFromOutcome(o)},
		{o.DocID, wrapperFromOutcome(o)},
	}

	for _, it := range items {
		data, err := json.Marshal(it.v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", it.key, err)
		}
		if err := r.store.Set(ctx, it.key, data); err != nil {
			return fmt.Errorf("save %s: %w: %w", it.key, domain.ErrStoreUnavailable, err)
		}
	}
	return nil
}

// Get returns the stored wrapper JSON for docID.
func (r *Repo) Get(ctx context.Context, docID string) (json.RawMessage, error) {
	return r.get(ctx, docID)
}

// GetMatches returns the stored matches-by-template JSON for docID.
func (r *Repo) GetMatches(ctx context.Context, docID string) (json.RawMessage, error) {
	return r.get(ctx, matchesPrefix+docID)
}

// GetStats returns the stored stats JSON for docID.
func (r *Repo) GetStats(ctx context.Context, docID string) (json.RawMessage, error) {
	return r.get(ctx, statsPrefix+docID)
}

func (r *Repo) get(ctx context.Context, key string) (json.RawMessage, error) {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("%s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w: %w", key, domain.ErrStoreUnavailable, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s: %w", key, domain.ErrMalformedPayload)
	}
	return json.RawMessage(data), nil
}
