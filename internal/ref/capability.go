package ref

import "context"

// Project is a source-control project as seen by a search. SourceCode
// resolves to the project's SourceTree.
type Project struct {
	Path        string
	Description string
	SourceCode  Reference
}

// ProjectSearcher lists projects whose path matches.
type ProjectSearcher interface {
	SearchProjects(ctx context.Context, match func(path string) bool) ([]Project, error)
}

// SourceTree reads files of one project.
type SourceTree interface {
	// Tree lists file paths in sorted order.
	Tree(ctx context.Context) ([]string, error)
	// Text returns a file's content; ok is false when the file does not exist.
	Text(ctx context.Context, path string) (text string, ok bool, err error)
}

// Application is a deployed application. Deployment resolves to its
// InstanceLister.
type Application struct {
	ID         string
	Deployment Reference
}

// ApplicationSearcher lists deployed applications whose id matches.
type ApplicationSearcher interface {
	SearchApplications(ctx context.Context, match func(id string) bool) ([]Application, error)
}

// InstanceLister lists the running instances of one deployment as
// host:port strings.
type InstanceLister interface {
	Instances(ctx context.Context) ([]string, error)
}
