// Package inventory serves reference lookups from a static YAML fixture:
// GitLab projects with their files, and Marathon applications with their
// running instances.
//
// It stands in for live systems in tests, examples and offline runs.
package inventory

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a referenced project or application is not
// in the inventory.
var ErrNotFound = errors.New("not found in inventory")

// Inventory is the parsed fixture.
type Inventory struct {
	GitLab   GitLab   `yaml:"gitlab"`
	Marathon Marathon `yaml:"marathon"`
}

// GitLab lists source-control projects.
type GitLab struct {
	Projects []Project `yaml:"projects"`
}

// Project is one GitLab project. Files maps absolute paths to content.
type Project struct {
	Path        string            `yaml:"path"`
	Description string            `yaml:"description"`
	Files       map[string]string `yaml:"files"`
}

// Marathon lists deployed applications.
type Marathon struct {
	Apps []App `yaml:"apps"`
}

// App is one Marathon application with its instances as host:port.
type App struct {
	ID        string   `yaml:"id"`
	Instances []string `yaml:"instances"`
}

// Load reads and parses a fixture file.
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory: %w", err)
	}
	inv, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return inv, nil
}

// Parse decodes a fixture. Unknown fields, empty identifiers and duplicate
// projects or apps are rejected.
func Parse(data []byte) (*Inventory, error) {
	var inv Inventory
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&inv); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse inventory: %w", err)
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Validate checks identifiers: project paths and app ids must be non-empty
// and unique.
func (inv *Inventory) Validate() error {
	paths := make(map[string]bool, len(inv.GitLab.Projects))
	for i, p := range inv.GitLab.Projects {
		if p.Path == "" {
			return fmt.Errorf("gitlab.projects[%d]: path is required", i)
		}
		if paths[p.Path] {
			return fmt.Errorf("gitlab.projects[%d]: duplicate path %q", i, p.Path)
		}
		paths[p.Path] = true
	}
	ids := make(map[string]bool, len(inv.Marathon.Apps))
	for i, a := range inv.Marathon.Apps {
		if a.ID == "" {
			return fmt.Errorf("marathon.apps[%d]: id is required", i)
		}
		if ids[a.ID] {
			return fmt.Errorf("marathon.apps[%d]: duplicate id %q", i, a.ID)
		}
		ids[a.ID] = true
	}
	return nil
}

func (inv *Inventory) project(path string) (*Project, bool) {
	for i := range inv.GitLab.Projects {
		if inv.GitLab.Projects[i].Path == path {
			return &inv.GitLab.Projects[i], true
		}
	}
	return nil, false
}

func (inv *Inventory) app(id string) (*App, bool) {
	for i := range inv.Marathon.Apps {
		if inv.Marathon.Apps[i].ID == id {
			return &inv.Marathon.Apps[i], true
		}
	}
	return nil, false
}
