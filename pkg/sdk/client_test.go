package docmatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"

	dbRedis "github.com/kailas-cloud/docmatch/internal/db/redis"
	"github.com/kailas-cloud/docmatch/internal/domain"
)

// --- Mocks ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchCalls int
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	m.batchCalls++
	out := BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, t := range texts {
		r, err := m.fn(ctx, t)
		if err != nil {
			return BatchEmbeddingResult{}, err
		}
		out.Embeddings[i] = r.Embedding
	}
	return out, nil
}

// tableEmbedder maps known texts to fixed vectors; everything else is orthogonal to them.
func tableEmbedder(vectors map[string][]float32) *mockEmbedder {
	var mu sync.Mutex
	return &mockEmbedder{fn: func(_ context.Context, text string) (EmbeddingResult, error) {
		mu.Lock()
		defer mu.Unlock()
		if v, ok := vectors[text]; ok {
			return EmbeddingResult{Embedding: v, TotalTokens: 1}, nil
		}
		return EmbeddingResult{Embedding: []float32{0, 0, 0, 1}, TotalTokens: 1}, nil
	}}
}

var orderVectors = map[string][]float32{
	"Наказ про відрядження": {1, 0, 0, 0},
	"Підписано директором":  {0, 1, 0, 0},
	"Рахунок на оплату":     {0, 0, 1, 0},
}

var orderTemplate = Template{
	ID: "order.json",
	Fields: map[string]string{
		"title":     "Наказ про відрядження",
		"signature": "Підписано директором",
	},
}

func newTestClient(t *testing.T, opts ...Option) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := dbRedis.NewStoreFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))

	cfg := &clientConfig{embedder: tableEmbedder(orderVectors)}
	for _, o := range opts {
		o.apply(cfg)
	}
	obs, err := newObserver(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c, err := wireClient(context.Background(), store, cfg, obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(c.Close)
	return c, mr
}

// --- Tests ---

func TestNew_NoAddress(t *testing.T) {
	_, err := New(context.Background())
	if err == nil {
		t.Fatal("expected error when no address provided")
	}
}

func TestNew_NoEmbedder(t *testing.T) {
	_, err := New(context.Background(), WithRedis("localhost:6379", ""))
	if err == nil {
		t.Fatal("expected error when no embedder provided")
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "unknown", addrs: []string{"localhost:1234"}}
	if _, err := createStore(cfg); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}

	WithValkey("localhost:6379", "secret").apply(cfg)
	if cfg.driver != "valkey" || cfg.addrs[0] != "localhost:6379" || cfg.password != "secret" {
		t.Errorf("unexpected valkey config: %+v", cfg)
	}

	WithRedis("localhost:6380", "pass").apply(cfg)
	if cfg.driver != "redis" {
		t.Errorf("driver = %q, want redis", cfg.driver)
	}

	WithThreshold(0.9).apply(cfg)
	WithBuildConcurrency(8).apply(cfg)
	WithTemplatesDir("templates/model").apply(cfg)
	WithTemplateKeys("T-", "T-count").apply(cfg)
	WithTemplates(orderTemplate).apply(cfg)
	if cfg.threshold != 0.9 || cfg.buildConcurrency != 8 {
		t.Errorf("threshold/concurrency = (%v, %d)", cfg.threshold, cfg.buildConcurrency)
	}
	if cfg.templatesDir != "templates/model" || cfg.keyPrefix != "T-" || cfg.manifestKey != "T-count" {
		t.Errorf("template options not applied: %+v", cfg)
	}
	if len(cfg.templates) != 1 {
		t.Errorf("templates = %d, want 1", len(cfg.templates))
	}

	logger := slog.Default()
	WithLogger(logger).apply(cfg)
	if cfg.logger != logger {
		t.Error("expected logger to be set")
	}

	reg := prometheus.NewRegistry()
	WithPrometheus(reg).apply(cfg)
	if cfg.metricsReg != reg {
		t.Error("expected registerer to be set")
	}
}

func TestEmbedderAdapter_Error(t *testing.T) {
	e := adaptEmbedder(&mockEmbedder{fn: func(context.Context, string) (EmbeddingResult, error) {
		return EmbeddingResult{}, errors.New("provider down")
	}})
	if _, err := e.Embed(context.Background(), "hello"); err == nil {
		t.Fatal("expected error from adapter")
	}
}

func TestAdaptEmbedder_Batch(t *testing.T) {
	inner := &mockBatchEmbedder{mockEmbedder: *tableEmbedder(orderVectors)}

	be, ok := adaptEmbedder(inner).(domain.BatchEmbedder)
	if !ok {
		t.Fatal("expected adapter to forward BatchEmbed")
	}
	res, err := be.BatchEmbed(context.Background(), []string{"Наказ про відрядження", "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 2 || inner.batchCalls != 1 {
		t.Errorf("embeddings = %d, batch calls = %d", len(res.Embeddings), inner.batchCalls)
	}
}

func TestMatch_Found(t *testing.T) {
	c, _ := newTestClient(t, WithTemplates(orderTemplate))

	res, err := c.Match(context.Background(), "doc-1", "Наказ про відрядження\nщось інше\nПідписано директором")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Found {
		t.Fatal("expected a match")
	}
	if res.TemplateID != "order.json" {
		t.Errorf("template = %q, want order.json", res.TemplateID)
	}
	if res.Fields["title"] != "Наказ про відрядження" {
		t.Errorf("title = %q", res.Fields["title"])
	}
	if res.Fields["signature"] != "Підписано директором" {
		t.Errorf("signature = %q", res.Fields["signature"])
	}
	if len(res.Matches) != 2 {
		t.Errorf("matches = %d, want 2", len(res.Matches))
	}
	if len(res.Stats) != 1 || res.Stats[0].Lines != 2 {
		t.Errorf("stats = %+v", res.Stats)
	}
}

func TestMatch_PersistsOutcome(t *testing.T) {
	c, mr := newTestClient(t, WithTemplates(orderTemplate))

	if _, err := c.Match(context.Background(), "doc-2", "Підписано директором"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, key := range []string{"doc-2", "bestJsonNode:doc-2", "matchStatsNode:doc-2"} {
		if !mr.Exists(key) {
			t.Errorf("expected key %q to be persisted", key)
		}
	}
}

func TestMatch_NotFound(t *testing.T) {
	c, _ := newTestClient(t, WithTemplates(orderTemplate))

	res, err := c.Match(context.Background(), "doc-3", "Рахунок на оплату")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Found {
		t.Errorf("expected no match, got %q", res.TemplateID)
	}
}

func TestMatch_InvalidDocID(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.Match(context.Background(), "", "x")
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestAddTemplate(t *testing.T) {
	c, mr := newTestClient(t, WithTemplates(orderTemplate))

	invoice := Template{ID: "invoice.json", Fields: map[string]string{"title": "Рахунок на оплату"}}
	created, err := c.AddTemplate(context.Background(), invoice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected template to be created")
	}

	created, err = c.AddTemplate(context.Background(), invoice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("second add must be a no-op")
	}

	ids := c.Templates()
	if len(ids) != 2 || ids[0] != "invoice.json" || ids[1] != "order.json" {
		t.Errorf("templates = %v", ids)
	}
	if got, _ := mr.Get("Templates-count"); got != "2" {
		t.Errorf("manifest = %q, want 2", got)
	}

	res, err := c.Match(context.Background(), "doc-4", "Рахунок на оплату")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TemplateID != "invoice.json" {
		t.Errorf("template = %q, want invoice.json", res.TemplateID)
	}
}

func TestHealth(t *testing.T) {
	c, _ := newTestClient(t, WithTemplates(orderTemplate))

	h := c.Health(context.Background())
	if h.Status != "ok" {
		t.Errorf("status = %q, want ok (checks %v)", h.Status, h.Checks)
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestObserver_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, _ := newTestClient(t, WithTemplates(orderTemplate))
	c.obs = obs

	if _, err := c.Match(context.Background(), "doc-5", "Наказ про відрядження"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("match", "ok")); got != 1 {
		t.Errorf("match ok = %v, want 1", got)
	}

	// Second observer on the same registry reuses the collectors.
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
