// Package match holds the per-document scoring state: accepted line matches per template,
// best-template selection and the final outcome with its title fallback.
package match

import (
	"strings"

	"github.com/kailas-cloud/docmatch/internal/domain/template"
)

// NotTitle is the sentinel title used when the best template's title cannot be confirmed.
const NotTitle = "not_title"

// DefaultThreshold is the minimum similarity (exclusive) for a line to claim a field.
const DefaultThreshold = 0.75

// Result is one accepted pairing of a document line with a template fragment.
type Result struct {
	DocumentLine     string
	TemplateKey      string
	TemplateFragment string
	Score            float64
	Indicators       []string
}

// Meta records a template at the moment it became the best candidate.
type Meta struct {
	TemplateID string
	TotalScore float64
	MatchCount int
}

// Pass accumulates the accepted matches of one template against one document.
// A field is claimed by the first line whose best fragment lies in it.
type Pass struct {
	templateID    string
	templateTitle string
	threshold     float64
	accepted      map[string]string
	results       []Result
	total         float64
}

// NewPass starts scoring a template. templateTitle is the template's literal title field.
func NewPass(templateID, templateTitle string, threshold float64) *Pass {
	return &Pass{
		templateID:    templateID,
		templateTitle: templateTitle,
		threshold:     threshold,
		accepted:      make(map[string]string),
	}
}

// Offer accepts r iff its score exceeds the threshold and its field is not yet claimed.
func (p *Pass) Offer(r Result) bool {
	if r.Score <= p.threshold {
		return false
	}
	if _, claimed := p.accepted[r.TemplateKey]; claimed {
		return false
	}
	p.accepted[r.TemplateKey] = r.DocumentLine
	p.results = append(p.results, r)
	p.total += r.Score
	return true
}

// TemplateID returns the scored template id.
func (p *Pass) TemplateID() string { return p.templateID }

// Total returns the sum of accepted scores.
func (p *Pass) Total() float64 { return p.total }

// Results returns accepted matches in acceptance order.
func (p *Pass) Results() []Result { return p.results }

// Accepted returns the field -> line map.
func (p *Pass) Accepted() map[string]string { return p.accepted }

// Selection tracks the best template across passes for one document.
type Selection struct {
	best    *Pass
	highest float64
	stats   []Meta
	matches map[string][]Result
}

// NewSelection creates an empty selection. The first pass always becomes the best.
func NewSelection() *Selection {
	return &Selection{
		highest: -1,
		matches: make(map[string][]Result),
	}
}

// Consider makes p the best when its total strictly exceeds the current best.
// Ties keep the earlier template.
func (s *Selection) Consider(p *Pass) bool {
	if p.total <= s.highest {
		return false
	}
	s.highest = p.total
	s.best = p
	s.stats = append(s.stats, Meta{
		TemplateID: p.templateID,
		TotalScore: p.total,
		MatchCount: len(p.accepted),
	})
	s.matches[p.templateID] = p.results
	return true
}

// Outcome builds the final outcome for docID.
func (s *Selection) Outcome(docID string) Outcome {
	out := Outcome{
		DocID:             docID,
		MatchesByTemplate: s.matches,
		Stats:             s.stats,
	}
	if s.best == nil || len(s.best.accepted) == 0 {
		return out
	}

	doc := make(map[string]string, len(s.best.accepted)+1)
	for k, v := range s.best.accepted {
		doc[k] = v
	}
	resolveTitle(doc, s.best.templateTitle)

	out.TemplateID = s.best.templateID
	out.Document = doc
	return out
}

// Outcome is the persisted result of matching one document.
type Outcome struct {
	DocID             string
	TemplateID        string
	Document          map[string]string
	MatchesByTemplate map[string][]Result
	Stats             []Meta
}

// Found reports whether a best template with at least one accepted line exists.
func (o Outcome) Found() bool {
	return o.TemplateID != ""
}

// resolveTitle fills the title field when no line claimed it. The template's own title is used
// only if some accepted line contains it; otherwise the sentinel is used.
func resolveTitle(doc map[string]string, templateTitle string) {
	if strings.TrimSpace(doc[template.TitleField]) != "" {
		return
	}

	expected := templateTitle
	if strings.TrimSpace(expected) == "" {
		expected = NotTitle
	}

	for _, line := range doc {
		if strings.Contains(line, expected) {
			doc[template.TitleField] = expected
			return
		}
	}
	doc[template.TitleField] = NotTitle
}
