package templatefile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docmatch/internal/domain/template"
)

// Loader reads raw templates from a directory of *.json files ({"field": "text", ...}).
// The template id is the file name.
type Loader struct {
	dir    string
	logger *zap.Logger
}

// New creates a Loader for dir.
func New(dir string, logger *zap.Logger) *Loader {
	return &Loader{dir: dir, logger: logger}
}

// Load returns all templates sorted by id.
func (l *Loader) Load(ctx context.Context) ([]template.Template, error) {
	paths, err := filepath.Glob(filepath.Join(l.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("glob templates: %w", err)
	}
	sort.Strings(paths)

	out := make([]template.Template, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("load templates: %w", err)
		}
		t, err := readTemplate(p)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	l.logger.Info("Templates loaded", zap.String("dir", l.dir), zap.Int("count", len(out)))
	return out, nil
}

func readTemplate(path string) (template.Template, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return template.Template{}, fmt.Errorf("read template %s: %w", path, err)
	}
	var fields map[string]string
	if err := json.Unmarshal(data, &fields); err != nil {
		return template.Template{}, fmt.Errorf("parse template %s: %w", path, err)
	}
	return template.Template{ID: filepath.Base(path), Fields: fields}, nil
}
