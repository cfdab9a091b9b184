package chi

import "github.com/kailas-cloud/docmatch/internal/domain/template"

// MatchRequest is the body of POST /api/match/async.
type MatchRequest struct {
	ClientID string `json:"clientId"`
	Doc      string `json:"doc"`
	Body     string `json:"body"`
}

// MatchResponse acknowledges an admitted submission.
type MatchResponse struct {
	Status string `json:"status"`
	Doc    string `json:"doc"`
}

// QueueResponse describes dispatcher load.
type QueueResponse struct {
	Length   int64 `json:"length"`
	Running  int   `json:"running"`
	Capacity int   `json:"capacity"`
}

// StoreValueResponse is a raw store entry.
type StoreValueResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// StoreDeleteResponse reports whether a key existed.
type StoreDeleteResponse struct {
	Key     string `json:"key"`
	Deleted bool   `json:"deleted"`
}

// TemplateRequest is the body of POST /api/templates.
type TemplateRequest struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
}

// TemplateResponse summarizes a cached template.
type TemplateResponse struct {
	ID        string         `json:"id"`
	Fields    []string       `json:"fields"`
	Fragments map[string]int `json:"fragments"`
	Built     *bool          `json:"built,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version"`
}

func templateToResponse(c *template.Cached) TemplateResponse {
	frags := make(map[string]int, len(c.Keys()))
	for _, k := range c.Keys() {
		frags[k] = len(c.Fragments(k))
	}
	return TemplateResponse{
		ID:        c.ID(),
		Fields:    c.Keys(),
		Fragments: frags,
	}
}
