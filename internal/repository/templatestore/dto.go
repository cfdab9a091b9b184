package templatestore

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/docmatch/internal/domain"
	"github.com/kailas-cloud/docmatch/internal/domain/template"
)

const entryVersion = 1

// entryDTO is the stored form of a cached template.
type entryDTO struct {
	V          int                    `json:"v"`
	ID         string                 `json:"id"`
	Fields     map[string]string      `json:"fields"`
	Fragments  map[string][]string    `json:"fragments"`
	Embeddings map[string][][]float32 `json:"embeddings"`
}

func encodeEntry(c *template.Cached) ([]byte, error) {
	dto := entryDTO{
		V:          entryVersion,
		ID:         c.ID(),
		Fields:     c.Fields(),
		Fragments:  make(map[string][]string, len(c.Keys())),
		Embeddings: make(map[string][][]float32, len(c.Keys())),
	}
	for _, k := range c.Keys() {
		dto.Fragments[k] = c.Fragments(k)
		dto.Embeddings[k] = c.Embeddings(k)
	}
	data, err := json.Marshal(dto)
	if err != nil {
		return nil, fmt.Errorf("marshal template %s: %w", c.ID(), err)
	}
	return data, nil
}

func decodeEntry(data []byte) (*template.Cached, error) {
	var dto entryDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("unmarshal template: %v: %w", err, domain.ErrMalformedPayload)
	}
	if dto.V != entryVersion {
		return nil, fmt.Errorf("unsupported template entry version %d: %w", dto.V, domain.ErrMalformedPayload)
	}
	c, err := template.NewCached(dto.ID, dto.Fields, dto.Fragments, dto.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrMalformedPayload)
	}
	return c, nil
}
