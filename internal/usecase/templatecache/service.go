// Package templatecache owns the per-template fragment embeddings used by the matcher.
package templatecache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/docmatch/internal/domain"
	"github.com/kailas-cloud/docmatch/internal/domain/template"
)

// DefaultBuildConcurrency bounds parallel template builds during a cold start.
const DefaultBuildConcurrency = 4

// Service builds, persists and serves cached templates.
// After Initialize the snapshot is read-only; Build may append new templates.
type Service struct {
	loader      Loader
	repo        Repository
	embedder    Embedder
	concurrency int
	logger      *zap.Logger

	mu       sync.RWMutex
	byID     map[string]*template.Cached
	snapshot []*template.Cached

	persistMu sync.Mutex
	next      int

	ready atomic.Bool
}

// New creates a template cache service.
func New(loader Loader, repo Repository, embedder Embedder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		loader:      loader,
		repo:        repo,
		embedder:    embedder,
		concurrency: DefaultBuildConcurrency,
		logger:      logger,
		byID:        make(map[string]*template.Cached),
	}
}

// WithConcurrency overrides the number of templates embedded in parallel on a cold start.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// Initialize restores the cache from the store or builds it from the loader.
// It holds persistMu throughout so no entry index is handed out before the manifest is known.
func (s *Service) Initialize(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	start := time.Now()

	count, ok, err := s.repo.Manifest(ctx)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	if ok && count > 0 {
		if err := s.loadManifest(ctx, count); err != nil {
			return err
		}
		s.markReady("manifest", start)
		return nil
	}

	n, err := s.loadLegacy(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		if err := s.repo.SetManifest(ctx, n); err != nil {
			return fmt.Errorf("write manifest: %w", err)
		}
		s.markReady("legacy scan", start)
		return nil
	}

	if err := s.buildAll(ctx); err != nil {
		return err
	}
	s.markReady("build", start)
	return nil
}

// Templates returns the cached templates sorted by id. The slice must not be modified.
func (s *Service) Templates() []*template.Cached {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Ready reports whether Initialize completed.
func (s *Service) Ready() bool {
	return s.ready.Load()
}

// Build embeds and persists t unless a template with the same id is already cached.
// Returns the cached template and whether it was built by this call.
// Until Initialize completes it fails with domain.ErrTemplatesNotReady.
func (s *Service) Build(ctx context.Context, t template.Template) (*template.Cached, bool, error) {
	if !s.Ready() {
		return nil, false, fmt.Errorf("build template %s: %w", t.ID, domain.ErrTemplatesNotReady)
	}
	if c, ok := s.get(t.ID); ok {
		return c, false, nil
	}

	c, err := s.embed(ctx, t)
	if err != nil {
		return nil, false, err
	}

	added, err := s.persist(ctx, c)
	if err != nil {
		return nil, false, err
	}
	if !added {
		existing, _ := s.get(t.ID)
		return existing, false, nil
	}

	s.logger.Info("Template built",
		zap.String("template", c.ID()),
		zap.Int("fragments", c.FragmentCount()),
	)
	return c, true, nil
}

func (s *Service) loadManifest(ctx context.Context, count int) error {
	for i := range count {
		c, err := s.repo.Load(ctx, i)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return &domain.ManifestGapError{Index: i, Count: count}
			}
			return fmt.Errorf("load template entry %d: %w", i, err)
		}
		s.add(c)
	}
	s.next = count
	return nil
}

// loadLegacy reads entries written before the manifest existed, stopping at the first missing one.
func (s *Service) loadLegacy(ctx context.Context) (int, error) {
	i := 0
	for {
		c, err := s.repo.Load(ctx, i)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				break
			}
			return 0, fmt.Errorf("load template entry %d: %w", i, err)
		}
		s.add(c)
		i++
	}
	s.next = i
	return i, nil
}

func (s *Service) buildAll(ctx context.Context) error {
	templates, err := s.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].ID < templates[j].ID })

	ctx, usage := domain.NewContextWithUsage(ctx)
	built := make([]*template.Cached, len(templates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, t := range templates {
		g.Go(func() error {
			c, err := s.embed(gctx, t)
			if err != nil {
				return err
			}
			built[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, c := range built {
		if _, err := s.persistLocked(ctx, c); err != nil {
			return err
		}
	}

	s.logger.Info("Template embeddings built",
		zap.Int("templates", len(built)),
		zap.Int64("embedding_calls", usage.Calls()),
		zap.Int64("embedding_tokens", usage.Tokens()),
	)
	return nil
}

// embed splits every field into fragments and embeds them. Nothing is persisted here.
func (s *Service) embed(ctx context.Context, t template.Template) (*template.Cached, error) {
	if t.ID == "" {
		return nil, fmt.Errorf("template id is required: %w", domain.ErrInvalidRequest)
	}

	fragments := make(map[string][]string, len(t.Fields))
	embeddings := make(map[string][][]float32, len(t.Fields))

	for _, key := range t.Keys() {
		frags := template.SplitFragments(t.Fields[key])
		if len(frags) == 0 {
			continue
		}
		res, err := domain.BatchEmbed(ctx, s.embedder, frags)
		if err != nil {
			return nil, fmt.Errorf("embed template %s field %s: %w", t.ID, key, err)
		}
		fragments[key] = frags
		embeddings[key] = res.Embeddings
	}

	c, err := template.NewCached(t.ID, t.Fields, fragments, embeddings)
	if err != nil {
		return nil, fmt.Errorf("cache template %s: %w", t.ID, err)
	}
	return c, nil
}

// persist stores c under the next free entry and bumps the manifest.
// Returns false without writing when c's id is already cached.
func (s *Service) persist(ctx context.Context, c *template.Cached) (bool, error) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	return s.persistLocked(ctx, c)
}

// persistLocked is persist for callers already holding persistMu.
func (s *Service) persistLocked(ctx context.Context, c *template.Cached) (bool, error) {
	if _, ok := s.get(c.ID()); ok {
		return false, nil
	}

	idx := s.next
	if err := s.repo.Save(ctx, idx, c); err != nil {
		return false, fmt.Errorf("save template %s: %w", c.ID(), err)
	}
	if err := s.repo.SetManifest(ctx, idx+1); err != nil {
		return false, fmt.Errorf("write manifest: %w", err)
	}
	s.next = idx + 1
	s.add(c)
	return true, nil
}

func (s *Service) get(id string) (*template.Cached, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	return c, ok
}

// add inserts c and republishes a sorted snapshot. Readers keep their old slice.
func (s *Service) add(c *template.Cached) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[c.ID()]; ok {
		return
	}
	s.byID[c.ID()] = c

	snap := make([]*template.Cached, 0, len(s.snapshot)+1)
	snap = append(snap, s.snapshot...)
	snap = append(snap, c)
	sort.Slice(snap, func(i, j int) bool { return snap[i].ID() < snap[j].ID() })
	s.snapshot = snap
}

func (s *Service) markReady(source string, start time.Time) {
	s.ready.Store(true)
	s.logger.Info("Template cache ready",
		zap.String("source", source),
		zap.Int("templates", len(s.Templates())),
		zap.Duration("duration", time.Since(start)),
	)
}
