package inventory

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/sysa/internal/ir"
	"github.com/roach88/sysa/internal/ref"
)

// Configuration keys served by Factory.
const (
	KeyGitLab   = "gitlab"
	KeyMarathon = "marathon"
)

// Lookup data fields.
const (
	fieldProject = "project"
	fieldApp     = "app"
)

// Factory implements ref.Factory over an Inventory.
//
// For KeyGitLab, data {"project": path} yields a ref.SourceTree for that
// project and empty data yields a ref.ProjectSearcher. For KeyMarathon,
// data {"app": id} yields a ref.InstanceLister and empty data a
// ref.ApplicationSearcher.
type Factory struct {
	inv *Inventory
}

// NewFactory returns a factory serving inv.
func NewFactory(inv *Inventory) *Factory {
	return &Factory{inv: inv}
}

// Register binds both configuration keys in reg to f.
func (f *Factory) Register(reg *ref.Registry) error {
	for _, key := range []string{KeyGitLab, KeyMarathon} {
		if err := reg.Register(key, f); err != nil {
			return err
		}
	}
	return nil
}

// Get implements ref.Factory.
func (f *Factory) Get(ctx context.Context, key string, data ir.IRObject) (ref.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch key {
	case KeyGitLab:
		path, ok := data.String(fieldProject)
		if !ok {
			return gitLab{inv: f.inv}, nil
		}
		p, ok := f.inv.project(path)
		if !ok {
			return nil, fmt.Errorf("project %q: %w", path, ErrNotFound)
		}
		return sourceTree{project: p}, nil
	case KeyMarathon:
		id, ok := data.String(fieldApp)
		if !ok {
			return marathon{inv: f.inv}, nil
		}
		a, ok := f.inv.app(id)
		if !ok {
			return nil, fmt.Errorf("app %q: %w", id, ErrNotFound)
		}
		return deployment{app: a}, nil
	default:
		return nil, fmt.Errorf("inventory serves %q and %q, not %q: %w", KeyGitLab, KeyMarathon, key, ref.ErrUnknownKey)
	}
}

// SourceCode returns a reference to a project's source tree.
func SourceCode(path string) ref.Reference {
	return ref.New(KeyGitLab, ir.P(fieldProject, ir.Str(path)))
}

// Deployment returns a reference to an application's deployment.
func Deployment(id string) ref.Reference {
	return ref.New(KeyMarathon, ir.P(fieldApp, ir.Str(id)))
}

type gitLab struct{ inv *Inventory }

func (g gitLab) SearchProjects(ctx context.Context, match func(string) bool) ([]ref.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []ref.Project
	for _, p := range g.inv.GitLab.Projects {
		if match == nil || match(p.Path) {
			out = append(out, ref.Project{
				Path:        p.Path,
				Description: p.Description,
				SourceCode:  SourceCode(p.Path),
			})
		}
	}
	return out, nil
}

type sourceTree struct{ project *Project }

func (s sourceTree) Tree(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(s.project.Files))
	for p := range s.project.Files {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths, nil
}

func (s sourceTree) Text(ctx context.Context, path string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	text, ok := s.project.Files[path]
	return text, ok, nil
}

type marathon struct{ inv *Inventory }

func (m marathon) SearchApplications(ctx context.Context, match func(string) bool) ([]ref.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []ref.Application
	for _, a := range m.inv.Marathon.Apps {
		if match == nil || match(a.ID) {
			out = append(out, ref.Application{ID: a.ID, Deployment: Deployment(a.ID)})
		}
	}
	return out, nil
}

type deployment struct{ app *App }

func (d deployment) Instances(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(d.app.Instances), nil
}
