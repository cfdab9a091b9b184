package docmatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docmatch/internal/db"
	dbRedis "github.com/kailas-cloud/docmatch/internal/db/redis"
	dbValkey "github.com/kailas-cloud/docmatch/internal/db/valkey"
	"github.com/kailas-cloud/docmatch/internal/domain/match"
	"github.com/kailas-cloud/docmatch/internal/domain/request"
	"github.com/kailas-cloud/docmatch/internal/domain/template"
	"github.com/kailas-cloud/docmatch/internal/repository/notifier"
	"github.com/kailas-cloud/docmatch/internal/repository/outcome"
	"github.com/kailas-cloud/docmatch/internal/repository/templatefile"
	"github.com/kailas-cloud/docmatch/internal/repository/templatestore"
	healthuc "github.com/kailas-cloud/docmatch/internal/usecase/health"
	"github.com/kailas-cloud/docmatch/internal/usecase/matching"
	"github.com/kailas-cloud/docmatch/internal/usecase/templatecache"
)

const defaultReadinessTimeout = 10 * time.Second

// Внутренние интерфейсы для подмены в тестах.
type matchUseCase interface {
	MatchDocument(ctx context.Context, req request.Request) (match.Outcome, error)
}

type templateUseCase interface {
	Templates() []*template.Cached
	Build(ctx context.Context, t template.Template) (*template.Cached, bool, error)
}

// Client is the docmatch SDK entry point.
type Client struct {
	store     db.Store
	matcher   matchUseCase
	templates templateUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client, connects to the database and initializes the template cache.
// The provided context bounds the readiness check and the template build.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("docmatch: database address required (use WithValkey or WithRedis)")
	}
	if cfg.embedder == nil {
		return nil, errors.New("docmatch: embedder required (use WithEmbedder)")
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("docmatch: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}

	c, err := wireClient(ctx, store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey":
		s, err := dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("docmatch: create valkey store: %w", err)
		}
		return s, nil
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("docmatch: create redis store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("docmatch: unknown driver %q", cfg.driver)
	}
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	logger := zap.NewNop()
	emb := adaptEmbedder(cfg.embedder)

	repo := templatestore.New(store)
	if cfg.keyPrefix != "" && cfg.manifestKey != "" {
		repo = repo.WithKeys(cfg.keyPrefix, cfg.manifestKey)
	}

	var loader templatecache.Loader = staticLoader(cfg.templates)
	if cfg.templatesDir != "" {
		loader = templatefile.New(cfg.templatesDir, logger)
	}

	templates := templatecache.New(loader, repo, emb, logger)
	if cfg.buildConcurrency > 0 {
		templates = templates.WithConcurrency(cfg.buildConcurrency)
	}

	start := time.Now()
	err := templates.Initialize(ctx)
	obs.observe("initialize", start, err)
	if err != nil {
		return nil, fmt.Errorf("docmatch: initialize templates: %w", err)
	}

	engine := matching.New(templates, emb, outcome.New(store), notifier.New(store, logger), logger)
	if cfg.threshold > 0 {
		engine = engine.WithThreshold(cfg.threshold)
	}

	return &Client{
		store:     store,
		matcher:   engine,
		templates: templates,
		healthSvc: healthuc.New(store, nil).WithTemplates(templates),
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Match runs the document body against every cached template and persists the outcome.
// Lines are split on newlines. A Result with Found == false means no template matched.
func (c *Client) Match(ctx context.Context, docID, body string) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("match", start, err) }()

	req, err := request.FromBody(request.Insider, docID, body)
	if err != nil {
		return Result{}, fmt.Errorf("match %s: %w", docID, err)
	}

	o, err := c.matcher.MatchDocument(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("match %s: %w", docID, err)
	}
	return resultFromOutcome(o), nil
}

// AddTemplate embeds and persists a new template. It returns false if the id was already cached.
func (c *Client) AddTemplate(ctx context.Context, t Template) (created bool, err error) {
	start := time.Now()
	defer func() { c.obs.observe("add_template", start, err) }()

	_, created, err = c.templates.Build(ctx, template.Template{ID: t.ID, Fields: t.Fields})
	if err != nil {
		return false, fmt.Errorf("add template %s: %w", t.ID, err)
	}
	return created, nil
}

// Templates lists the ids of the cached templates in order.
func (c *Client) Templates() []string {
	cached := c.templates.Templates()
	ids := make([]string, len(cached))
	for i, t := range cached {
		ids[i] = t.ID()
	}
	return ids
}

// staticLoader serves templates supplied through WithTemplates.
type staticLoader []Template

func (l staticLoader) Load(_ context.Context) ([]template.Template, error) {
	out := make([]template.Template, len(l))
	for i, t := range l {
		out[i] = template.Template{ID: t.ID, Fields: t.Fields}
	}
	return out, nil
}
