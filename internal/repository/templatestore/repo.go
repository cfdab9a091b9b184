package templatestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/docmatch/internal/db"
	"github.com/kailas-cloud/docmatch/internal/domain"
	"github.com/kailas-cloud/docmatch/internal/domain/template"
)

// Defaults for the persisted key layout.
const (
	DefaultKeyPrefix   = "Templates-"
	DefaultManifestKey = "Templates-count"
)

// store is the consumer interface for the template store (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repo persists cached templates under "<prefix>0", "<prefix>1", ... plus a count manifest.
type Repo struct {
	store       store
	prefix      string
	manifestKey string
}

// New creates a template repository with the default key layout.
func New(s store) *Repo {
	return &Repo{store: s, prefix: DefaultKeyPrefix, manifestKey: DefaultManifestKey}
}

// WithKeys overrides the entry prefix and manifest key.
func (r *Repo) WithKeys(prefix, manifestKey string) *Repo {
	if prefix != "" {
		r.prefix = prefix
	}
	if manifestKey != "" {
		r.manifestKey = manifestKey
	}
	return r
}

// Key returns the store key of entry i.
func (r *Repo) Key(i int) string {
	return r.prefix + strconv.Itoa(i)
}

// Manifest returns the number of persisted entries. ok is false when no manifest was written.
func (r *Repo) Manifest(ctx context.Context) (count int, ok bool, err error) {
	data, err := r.store.Get(ctx, r.manifestKey)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get manifest: %w: %w", domain.ErrStoreUnavailable, err)
	}
	n, err := strconv.Atoi(string(bytes.TrimSpace(data)))
	if err != nil || n < 0 {
		return 0, false, fmt.Errorf("manifest %q: %w", data, domain.ErrMalformedPayload)
	}
	return n, true, nil
}

// SetManifest records the number of persisted entries.
func (r *Repo) SetManifest(ctx context.Context, count int) error {
	if err := r.store.Set(ctx, r.manifestKey, []byte(strconv.Itoa(count))); err != nil {
		return fmt.Errorf("set manifest: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Load reads entry i. Returns domain.ErrNotFound for a missing, blank or null entry.
func (r *Repo) Load(ctx context.Context, i int) (*template.Cached, error) {
	key := r.Key(i)
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("%s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w: %w", key, domain.ErrStoreUnavailable, err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%s is blank: %w", key, domain.ErrNotFound)
	}

	c, err := decodeEntry(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return c, nil
}

// Save writes entry i.
func (r *Repo) Save(ctx context.Context, i int, c *template.Cached) error {
	data, err := encodeEntry(c)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, r.Key(i), data); err != nil {
		return fmt.Errorf("set %s: %w: %w", r.Key(i), domain.ErrStoreUnavailable, err)
	}
	return nil
}
