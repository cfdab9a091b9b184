package outcome

import (
	"sort"

	"github.com/kailas-cloud/docmatch/internal/domain/match"
)

const (
	wrapperVersion = 1
	statusNotFound = "not found"
)

// wrapperDTO is stored under the document id.
// Found: {v, doc, template, document}. Not found: {v, status}.
type wrapperDTO struct {
	V        int               `json:"v"`
	Status   string            `json:"status,omitempty"`
	Doc      string            `json:"doc,omitempty"`
	Template string            `json:"template,omitempty"`
	Document map[string]string `json:"document,omitempty"`
}

type resultDTO struct {
	DocumentLine     string   `json:"documentLine"`
	TemplateKey      string   `json:"templateKey"`
	TemplateFragment string   `json:"templateFragment"`
	SimilarityScore  float64  `json:"similarityScore"`
	Indicators       []string `json:"indicators"`
}

type metaDTO struct {
	TemplateName string  `json:"templateName"`
	Score        float64 `json:"score"`
	LineCount    int     `json:"lineCount"`
}

func wrapperFromOutcome(o match.Outcome) wrapperDTO {
	if !o.Found() {
		return wrapperDTO{V: wrapperVersion, Status: statusNotFound}
	}
	return wrapperDTO{
		V:        wrapperVersion,
		Doc:      o.DocID,
		Template: o.TemplateID,
		Document: o.Document,
	}
}

func matchesFromOutcome(o match.Outcome) map[string][]resultDTO {
	out := make(map[string][]resultDTO, len(o.MatchesByTemplate))
	for id, results := range o.MatchesByTemplate {
		dtos := make([]resultDTO, len(results))
		for i, r := range results {
			ind := append([]string{}, r.Indicators...)
			sort.Strings(ind)
			dtos[i] = resultDTO{
				DocumentLine:     r.DocumentLine,
				TemplateKey:      r.TemplateKey,
				TemplateFragment: r.TemplateFragment,
				SimilarityScore:  r.Score,
				Indicators:       ind,
			}
		}
		out[id] = dtos
	}
	return out
}

func statsFromOutcome(o match.Outcome) []metaDTO {
	out := make([]metaDTO, len(o.Stats))
	for i, m := range o.Stats {
		out[i] = metaDTO{TemplateName: m.TemplateID, Score: m.TotalScore, LineCount: m.MatchCount}
	}
	return out
}
