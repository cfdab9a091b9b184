package template

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// TitleField is the field key the matcher synthesizes when no line claimed it.
const TitleField = "title"

var fragmentSep = regexp.MustCompile(`[.!?\n]`)

// Template is a raw template: field key -> field text. Immutable once loaded.
type Template struct {
	ID     string
	Fields map[string]string
}

// Keys returns the field keys in sorted order.
func (t Template) Keys() []string {
	return sortedKeys(t.Fields)
}

// SplitFragments splits field text into sentence-level fragments on '.', '!', '?' and newline.
// Fragments are whitespace-trimmed; empty ones are discarded.
func SplitFragments(text string) []string {
	parts := fragmentSep.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Cached is a template with per-fragment embeddings (immutable value object).
// Fragments and embeddings are parallel per field key.
type Cached struct {
	id         string
	fields     map[string]string
	fragments  map[string][]string
	embeddings map[string][][]float32
	keys       []string
}

// NewCached validates and creates a Cached template.
// fields carries the raw text so the outcome builder can read the template's own title.
func NewCached(
	id string,
	fields map[string]string,
	fragments map[string][]string,
	embeddings map[string][][]float32,
) (*Cached, error) {
	if id == "" {
		return nil, fmt.Errorf("template id is required")
	}
	for k, frags := range fragments {
		if len(frags) != len(embeddings[k]) {
			return nil, fmt.Errorf("template %s field %s: %d fragments but %d embeddings",
				id, k, len(frags), len(embeddings[k]))
		}
	}
	for k := range embeddings {
		if _, ok := fragments[k]; !ok {
			return nil, fmt.Errorf("template %s field %s: embeddings without fragments", id, k)
		}
	}
	if fields == nil {
		fields = map[string]string{}
	}
	return &Cached{
		id:         id,
		fields:     fields,
		fragments:  fragments,
		embeddings: embeddings,
		keys:       sortedKeys(fragments),
	}, nil
}

// ID returns the template id.
func (c *Cached) ID() string { return c.id }

// Keys returns field keys in sorted order.
func (c *Cached) Keys() []string { return c.keys }

// Fragments returns the fragments of a field.
func (c *Cached) Fragments(key string) []string { return c.fragments[key] }

// Embeddings returns the fragment vectors of a field (parallel to Fragments).
func (c *Cached) Embeddings(key string) [][]float32 { return c.embeddings[key] }

// Field returns the raw text of a field.
func (c *Cached) Field(key string) string { return c.fields[key] }

// Fields returns the raw field map.
func (c *Cached) Fields() map[string]string { return c.fields }

// FragmentCount returns the total number of fragments across all fields.
func (c *Cached) FragmentCount() int {
	n := 0
	for _, f := range c.fragments {
		n += len(f)
	}
	return n
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
