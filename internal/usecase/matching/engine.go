// Package matching scores a document against every cached template and persists the best match.
package matching

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docmatch/internal/domain"
	"github.com/kailas-cloud/docmatch/internal/domain/match"
	"github.com/kailas-cloud/docmatch/internal/domain/notification"
	"github.com/kailas-cloud/docmatch/internal/domain/request"
	"github.com/kailas-cloud/docmatch/internal/domain/similarity"
	"github.com/kailas-cloud/docmatch/internal/domain/template"
	"github.com/kailas-cloud/docmatch/internal/logger"
	"github.com/kailas-cloud/docmatch/internal/metrics"
)

// Engine matches documents against cached templates.
type Engine struct {
	templates TemplateSource
	embedder  Embedder
	outcomes  OutcomeRepository
	notifier  Notifier
	threshold float64
	logger    *zap.Logger
}

// New creates a matching engine with the default threshold.
func New(
	templates TemplateSource, embedder Embedder,
	outcomes OutcomeRepository, notifier Notifier, logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		templates: templates,
		embedder:  embedder,
		outcomes:  outcomes,
		notifier:  notifier,
		threshold: match.DefaultThreshold,
		logger:    logger,
	}
}

// WithThreshold overrides the acceptance threshold.
func (e *Engine) WithThreshold(th float64) *Engine {
	if th > 0 {
		e.threshold = th
	}
	return e
}

// MatchDocument scores req against every template, persists the outcome and notifies the sender.
// Nothing is persisted when scoring fails.
func (e *Engine) MatchDocument(ctx context.Context, req request.Request) (match.Outcome, error) {
	start := time.Now()
	log := logger.FromContextOr(ctx, e.logger.With(
		zap.String("doc_id", req.DocID),
		zap.String("client_id", req.ClientID),
	))
	ctx, usage := domain.NewContextWithUsage(ctx)

	outcome, err := e.score(ctx, req)
	if err != nil {
		metrics.MatchDocumentsTotal.WithLabelValues("error").Inc()
		log.Error("Document match failed", zap.Error(err))
		return match.Outcome{}, err
	}

	if err := e.outcomes.Save(ctx, outcome); err != nil {
		metrics.MatchDocumentsTotal.WithLabelValues("error").Inc()
		log.Error("Failed to persist match outcome", zap.Error(err))
		return match.Outcome{}, fmt.Errorf("persist outcome: %w", err)
	}

	if !req.IsInsider() {
		e.notifier.Send(ctx, notification.Result(req.ClientID, req.DocID))
	}

	status := "not_found"
	if outcome.Found() {
		status = "found"
	}
	metrics.MatchDocumentsTotal.WithLabelValues(status).Inc()
	metrics.MatchDuration.Observe(time.Since(start).Seconds())

	log.Info("Document matched",
		zap.String("template", outcome.TemplateID),
		zap.String("status", status),
		zap.Int("lines", len(req.Lines)),
		zap.Int64("embedding_calls", usage.Calls()),
		zap.Int64("embedding_tokens", usage.Tokens()),
		zap.Duration("duration", time.Since(start)),
	)
	return outcome, nil
}

func (e *Engine) score(ctx context.Context, req request.Request) (match.Outcome, error) {
	snapshot := e.templates.Templates()
	sel := match.NewSelection()
	if len(snapshot) == 0 {
		return sel.Outcome(req.DocID), nil
	}

	lines := cleanLines(req.Lines)
	vectors, err := e.embedLines(ctx, lines)
	if err != nil {
		return match.Outcome{}, err
	}

	lastPct := -1
	for i, c := range snapshot {
		if err := ctx.Err(); err != nil {
			return match.Outcome{}, fmt.Errorf("match %s: %w", req.DocID, err)
		}

		pass := match.NewPass(c.ID(), c.Field(template.TitleField), e.threshold)
		for _, line := range lines {
			if r, ok := bestFragment(c, line, vectors[line]); ok {
				pass.Offer(r)
			}
		}

		if pct := notification.Percent(i+1, len(snapshot)); pct != lastPct && !req.IsInsider() {
			e.notifier.Send(ctx, notification.Progress(req.ClientID, pct))
			lastPct = pct
		}

		sel.Consider(pass)
	}

	return sel.Outcome(req.DocID), nil
}

// embedLines embeds every distinct line once.
func (e *Engine) embedLines(ctx context.Context, lines []string) (map[string][]float32, error) {
	distinct := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		distinct = append(distinct, l)
	}

	vectors := make(map[string][]float32, len(distinct))
	if len(distinct) == 0 {
		return vectors, nil
	}

	res, err := domain.BatchEmbed(ctx, e.embedder, distinct)
	if err != nil {
		return nil, fmt.Errorf("embed lines: %w", err)
	}
	for i, l := range distinct {
		vectors[l] = res.Embeddings[i]
	}
	return vectors, nil
}

// bestFragment returns the single best (field, fragment) of c for line.
// Fields are scanned in sorted order and only a strictly higher score replaces the best.
func bestFragment(c *template.Cached, line string, vec []float32) (match.Result, bool) {
	var best match.Result
	found := false

	for _, key := range c.Keys() {
		embs := c.Embeddings(key)
		for i, frag := range c.Fragments(key) {
			s := similarity.Cosine(vec, embs[i])
			if !found || s > best.Score {
				best = match.Result{
					DocumentLine:     line,
					TemplateKey:      key,
					TemplateFragment: frag,
					Score:            s,
				}
				found = true
			}
		}
	}

	if found {
		best.Indicators = similarity.Indicators(best.DocumentLine, best.TemplateFragment)
	}
	return best, found
}

// cleanLines collapses whitespace, trims and drops empty lines. Order is kept.
func cleanLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if cleaned := strings.Join(strings.Fields(l), " "); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}
