package docmatch

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "valkey" or "redis"
	addrs    []string
	password string

	embedder Embedder

	templatesDir     string
	templates        []Template
	keyPrefix        string
	manifestKey      string
	threshold        float64
	buildConcurrency int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithEmbedder sets the text embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithTemplatesDir loads templates from *.json files in dir on a cold start.
func WithTemplatesDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.templatesDir = dir
	})
}

// WithTemplates supplies templates directly instead of reading a directory.
func WithTemplates(ts ...Template) Option {
	return optionFunc(func(c *clientConfig) {
		c.templates = append(c.templates, ts...)
	})
}

// WithTemplateKeys overrides the store keys of the template cache.
// Defaults: "Templates-" entries and the "Templates-count" manifest.
func WithTemplateKeys(prefix, manifestKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
		c.manifestKey = manifestKey
	})
}

// WithThreshold sets the similarity a line must exceed to be accepted.
// Default: 0.75.
func WithThreshold(th float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.threshold = th
	})
}

// WithBuildConcurrency limits parallel template embedding on a cold start.
func WithBuildConcurrency(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.buildConcurrency = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
