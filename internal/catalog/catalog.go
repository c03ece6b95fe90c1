// Package catalog is the example rule set: it builds a service catalog from
// GitLab projects and Marathon deployments.
//
// Rules, in registration order:
//
//	GitLab                          once: a component per matching project
//	Marathon                        once: a component per matching app
//	Basic info from GitLab          for gitLabProject: team and description
//	README from source code         for sourceCode: readme
//	Grafana links from README.md    for readme: one link per Grafana URL
//	Instances from deployment       for every deployment: type and instances
package catalog

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/sysa/internal/ctxlog"
	"github.com/roach88/sysa/internal/engine"
	"github.com/roach88/sysa/internal/fact"
	"github.com/roach88/sysa/internal/ir"
	"github.com/roach88/sysa/internal/model"
	"github.com/roach88/sysa/internal/ref"
	"github.com/roach88/sysa/internal/rule"
	"github.com/roach88/sysa/internal/schema"
)

// Slots this rule set adds to the base schema.
const (
	SlotReadme        = "readme"
	SlotGitLabProject = "gitLabProject"
	SlotInstances     = "instances"
)

// Rule names.
const (
	RuleGitLab    = "GitLab"
	RuleMarathon  = "Marathon"
	RuleBasicInfo = "Basic info from GitLab"
	RuleReadme    = "README from source code"
	RuleGrafana   = "Grafana links from README.md"
	RuleInstances = "Instances from deployment"
)

// LabelGrafana labels links found by the Grafana rule.
const LabelGrafana = "grafana"

// TypeService is the component type set for anything with a running
// deployment.
const TypeService = "service"

// ReadmePath is the file the README rule reads.
const ReadmePath = "/README.md"

// Options configures Register.
type Options struct {
	// GitLabKey and MarathonKey are the reference configuration keys the
	// discovery rules search through.
	GitLabKey   string
	MarathonKey string
	// ProjectPrefix selects GitLab projects by path prefix.
	ProjectPrefix string
	// AppPrefix selects Marathon apps by id prefix.
	AppPrefix string
}

// DefaultOptions returns the options used by the example configuration.
func DefaultOptions() Options {
	return Options{
		GitLabKey:     "gitlab",
		MarathonKey:   "marathon",
		ProjectPrefix: "phoenix",
		AppPrefix:     "/phoenix/",
	}
}

// Schema returns the base schema extended with this rule set's slots.
func Schema() *schema.Schema {
	return new(schema.Builder).
		Merge(schema.Base()).
		Single(SlotReadme, ir.KindString).
		Single(SlotGitLabProject, ir.KindObject).
		Multi(SlotInstances, ir.KindString).
		MustBuild()
}

// Register adds the rule set to e. e must have been built over Schema() or
// a superset of it.
func Register(e *engine.Engine, opts Options) error {
	refs := e.Refs()
	steps := []func() error{
		func() error { return e.Once(RuleGitLab, discoverProjects(refs, opts)) },
		func() error { return e.Once(RuleMarathon, discoverApps(refs, opts)) },
		func() error { return e.For(SlotGitLabProject, RuleBasicInfo, basicInfo) },
		func() error { return e.For(schema.SlotSourceCode, RuleReadme, readme(refs)) },
		func() error { return e.For(SlotReadme, RuleGrafana, grafanaLinks) },
		func() error { return e.ForEvery(schema.SlotDeployment, RuleInstances, instances(refs)) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("register catalog: %w", err)
		}
	}
	return nil
}

// ComponentID maps a Marathon app id onto the id space of GitLab project
// paths, so a project and its deployment describe one component.
func ComponentID(appID string) string {
	return strings.TrimPrefix(appID, "/")
}

func discoverProjects(refs *ref.Registry, opts Options) rule.OnceFunc {
	return func(ctx context.Context, _ []model.Model) (fact.Set, error) {
		src, err := refs.Get(ctx, opts.GitLabKey, nil)
		if err != nil {
			return nil, err
		}
		searcher, ok := src.(ref.ProjectSearcher)
		if !ok {
			return nil, fmt.Errorf("%s: %T: %w", opts.GitLabKey, src, ref.ErrCapability)
		}
		projects, err := searcher.SearchProjects(ctx, func(path string) bool {
			return strings.HasPrefix(path, opts.ProjectPrefix)
		})
		if err != nil {
			return nil, fmt.Errorf("search projects: %w", err)
		}
		ctxlog.FromContext(ctx).Debug("projects found", "count", len(projects), "prefix", opts.ProjectPrefix)

		out := make(fact.List, 0, len(projects))
		for _, p := range projects {
			out = append(out, fact.CreateComponent(p.Path,
				fact.Set(SlotGitLabProject, ir.Obj(
					ir.P("path", ir.Str(p.Path)),
					ir.P("description", ir.Str(p.Description)),
				)),
				fact.Set(schema.SlotSourceCode, p.SourceCode.ToIR()),
			))
		}
		return out, nil
	}
}

func discoverApps(refs *ref.Registry, opts Options) rule.OnceFunc {
	return func(ctx context.Context, _ []model.Model) (fact.Set, error) {
		src, err := refs.Get(ctx, opts.MarathonKey, nil)
		if err != nil {
			return nil, err
		}
		searcher, ok := src.(ref.ApplicationSearcher)
		if !ok {
			return nil, fmt.Errorf("%s: %T: %w", opts.MarathonKey, src, ref.ErrCapability)
		}
		apps, err := searcher.SearchApplications(ctx, func(id string) bool {
			return strings.HasPrefix(id, opts.AppPrefix)
		})
		if err != nil {
			return nil, fmt.Errorf("search applications: %w", err)
		}
		ctxlog.FromContext(ctx).Debug("applications found", "count", len(apps), "prefix", opts.AppPrefix)

		out := make(fact.List, 0, len(apps))
		for _, a := range apps {
			out = append(out, fact.CreateComponent(ComponentID(a.ID),
				fact.Add(schema.SlotDeployment, a.Deployment.ToIR()),
			))
		}
		return out, nil
	}
}

func basicInfo(_ context.Context, v ir.IRValue, m model.Model) (fact.Set, error) {
	gp, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("gitLabProject is %T, want object", v)
	}
	path, _ := gp.String("path")
	team, _, _ := strings.Cut(path, "/")
	if team == "" {
		return nil, fmt.Errorf("project path %q has no namespace", path)
	}
	muts := []fact.Mutation{fact.Set(schema.SlotTeam, ir.Str(team))}
	if desc, _ := gp.String("description"); desc != "" {
		muts = append(muts, fact.Set(schema.SlotDescription, ir.Str(desc)))
	}
	return fact.Component(m.ID(), muts...), nil
}

func readme(refs *ref.Registry) rule.ValueFunc {
	return func(ctx context.Context, v ir.IRValue, m model.Model) (fact.Set, error) {
		tree, err := ref.Resolve[ref.SourceTree](ctx, refs, v)
		if err != nil {
			return nil, err
		}
		text, ok, err := tree.Text(ctx, ReadmePath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", ReadmePath, err)
		}
		if !ok {
			ctxlog.FromContext(ctx).Debug("no readme", "path", ReadmePath)
			return nil, nil
		}
		return fact.Component(m.ID(), fact.Set(SlotReadme, ir.Str(text))), nil
	}
}

var grafanaURL = regexp.MustCompile(`https?://[^\s/]*grafana[^\s)>\]"']*`)

// GrafanaLinks returns the distinct Grafana URLs in text, in order of first
// appearance.
func GrafanaLinks(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, u := range grafanaURL.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:")
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}

func grafanaLinks(_ context.Context, v ir.IRValue, m model.Model) (fact.Set, error) {
	text, ok := v.(ir.IRString)
	if !ok {
		return nil, fmt.Errorf("readme is %T, want string", v)
	}
	urls := GrafanaLinks(string(text))
	muts := make([]fact.Mutation, 0, len(urls))
	for _, u := range urls {
		link := ir.Obj(ir.P("title", ir.Str("Grafana")), ir.P("value", ir.Str(u)))
		muts = append(muts, fact.Add(schema.SlotLinks, link, fact.Labelled(LabelGrafana)))
	}
	return fact.Component(m.ID(), muts...), nil
}

func instances(refs *ref.Registry) rule.ValueFunc {
	return func(ctx context.Context, v ir.IRValue, m model.Model) (fact.Set, error) {
		lister, err := ref.Resolve[ref.InstanceLister](ctx, refs, v)
		if err != nil {
			return nil, err
		}
		hosts, err := lister.Instances(ctx)
		if err != nil {
			return nil, fmt.Errorf("list instances: %w", err)
		}
		muts := []fact.Mutation{fact.Set(schema.SlotType, ir.Str(TypeService))}
		for _, h := range hosts {
			muts = append(muts, fact.Add(SlotInstances, ir.Str(h)))
		}
		return fact.Component(m.ID(), muts...), nil
	}
}
