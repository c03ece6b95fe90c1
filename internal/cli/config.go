package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sysa/internal/catalog"
)

// RunConfig is the YAML form of the run command's settings. Relative paths
// are resolved against the config file's directory.
//
//	inventory: inventory.yaml
//	schema: extra.cue
//	project_prefix: phoenix
//	app_prefix: /phoenix/
//	max_rounds: 50
//	concurrency: 8
//	invocation_timeout: 30s
//	cycle_detection: true
//	trace_db: runs.db
type RunConfig struct {
	Inventory         string `yaml:"inventory"`
	Schema            string `yaml:"schema,omitempty"`
	ProjectPrefix     string `yaml:"project_prefix,omitempty"`
	AppPrefix         string `yaml:"app_prefix,omitempty"`
	MaxRounds         int    `yaml:"max_rounds,omitempty"`
	Concurrency       *int   `yaml:"concurrency,omitempty"`
	InvocationTimeout string `yaml:"invocation_timeout,omitempty"`
	CycleDetection    *bool  `yaml:"cycle_detection,omitempty"`
	TraceDB           string `yaml:"trace_db,omitempty"`
	RunID             string `yaml:"run_id,omitempty"`
}

// LoadRunConfig reads a RunConfig file. Unknown fields are rejected.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg RunConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for _, p := range []*string{&cfg.Inventory, &cfg.Schema, &cfg.TraceDB} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *RunConfig) validate() error {
	if c.MaxRounds < 0 {
		return fmt.Errorf("max_rounds must be non-negative")
	}
	if c.Concurrency != nil && *c.Concurrency < 0 {
		return fmt.Errorf("concurrency must be non-negative")
	}
	if _, err := c.timeout(); err != nil {
		return err
	}
	return nil
}

func (c *RunConfig) timeout() (time.Duration, error) {
	if c.InvocationTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.InvocationTimeout)
	if err != nil {
		return 0, fmt.Errorf("invocation_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invocation_timeout must be non-negative")
	}
	return d, nil
}

func (c *RunConfig) catalogOptions() catalog.Options {
	opts := catalog.DefaultOptions()
	if c.ProjectPrefix != "" {
		opts.ProjectPrefix = c.ProjectPrefix
	}
	if c.AppPrefix != "" {
		opts.AppPrefix = c.AppPrefix
	}
	return opts
}
