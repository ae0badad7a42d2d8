package analyzer

import (
	"context"
	"fmt"
	"runtime"

	"github.com/go-playground/validator/v10"
	"github.com/viant/afs"
	"github.com/viant/tracegraph/inspector/document"
	"github.com/viant/tracegraph/inspector/repository"
	"gopkg.in/yaml.v3"
)

// Config controls a lineage analysis run
type Config struct {
	Root         string   `yaml:"root" validate:"required"`
	Include      []string `yaml:"include,omitempty"`
	Exclude      []string `yaml:"exclude,omitempty"`
	Concurrency  int      `yaml:"concurrency" validate:"gte=0,lte=256"`
	MaxFileSize  int64    `yaml:"maxFileSize" validate:"gte=0"`
	SnippetLimit int      `yaml:"snippetLimit" validate:"gte=0"`
}

// DefaultConfig returns a config scanning root with every supported extension
func DefaultConfig(root string) *Config {
	return &Config{
		Root:         root,
		Include:      append([]string{}, repository.DefaultIncludes...),
		Exclude:      append([]string{}, repository.DefaultExcludes...),
		Concurrency:  runtime.NumCPU(),
		SnippetLimit: document.DefaultConfig().SnippetLimit,
	}
}

// Validate checks config constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Init fills defaults for unset values
func (c *Config) Init() {
	if c.Concurrency == 0 {
		c.Concurrency = runtime.NumCPU()
	}
	if len(c.Include) == 0 {
		c.Include = append([]string{}, repository.DefaultIncludes...)
	}
	if c.Exclude == nil {
		c.Exclude = append([]string{}, repository.DefaultExcludes...)
	}
}

// DocumentConfig returns inspector settings derived from the config
func (c *Config) DocumentConfig() *document.Config {
	result := document.DefaultConfig()
	result.SnippetLimit = c.SnippetLimit
	return result
}

// LoadConfig loads a YAML config from any afs supported URL
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	cfg := &Config{SnippetLimit: document.DefaultConfig().SnippetLimit}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %v: %w", URL, err)
	}
	cfg.Init()
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
