package docmatch

import "github.com/kailas-cloud/docmatch/internal/domain/match"

// NotTitle is the title value used when the best template's title was not found in the document.
const NotTitle = match.NotTitle

// Template is a raw template: field key to field text.
type Template struct {
	ID     string
	Fields map[string]string
}

// LineMatch is one accepted document line.
type LineMatch struct {
	Line       string
	Field      string
	Fragment   string
	Score      float64
	Indicators []string
}

// TemplateScore is the aggregate score of a template that became best during the match.
type TemplateScore struct {
	TemplateID string
	Score      float64
	Lines      int
}

// Result is the outcome of a match.
type Result struct {
	DocID      string
	Found      bool
	TemplateID string
	Fields     map[string]string
	Matches    []LineMatch
	Stats      []TemplateScore
}

func resultFromOutcome(o match.Outcome) Result {
	res := Result{
		DocID:      o.DocID,
		Found:      o.Found(),
		TemplateID: o.TemplateID,
		Fields:     o.Document,
	}
	for _, m := range o.MatchesByTemplate[o.TemplateID] {
		res.Matches = append(res.Matches, LineMatch{
			Line:       m.DocumentLine,
			Field:      m.TemplateKey,
			Fragment:   m.TemplateFragment,
			Score:      m.Score,
			Indicators: m.Indicators,
		})
	}
	for _, s := range o.Stats {
		res.Stats = append(res.Stats, TemplateScore{
			TemplateID: s.TemplateID,
			Score:      s.TotalScore,
			Lines:      s.MatchCount,
		})
	}
	return res
}
