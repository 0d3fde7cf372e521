package validator

import (
	"github.com/corey/treesync/internal/domain/paths"
	"github.com/corey/treesync/internal/ports"
)

// NameResolver turns absolute paths into project-relative names.
type NameResolver struct {
	lookup ports.ProjectLookup
	cmp    paths.Comparer
}

// NewNameResolver returns a resolver. A nil comparer selects the platform default.
func NewNameResolver(lookup ports.ProjectLookup, cmp paths.Comparer) *NameResolver {
	if cmp == nil {
		cmp = paths.SystemComparer()
	}
	return &NameResolver{lookup: lookup, cmp: cmp}
}

// Resolve returns the project file name for path. ok is false when no project
// owns path or path is the project root itself. Project state may change
// between filtering and resolution, so callers must handle the absent case.
func (r *NameResolver) Resolve(path string) (name ProjectFileName, ok bool) {
	project, found := r.lookup.GetProject(path)
	if !found || project == nil {
		return ProjectFileName{}, false
	}
	suffix, under := paths.SplitPrefix(path, project.RootPath, r.cmp)
	if !under || suffix == "" {
		return ProjectFileName{}, false
	}
	return ProjectFileName{
		ProjectRoot:  project.RootPath,
		RelativePath: paths.NewRelativePath(paths.Split(suffix)...),
	}, true
}

// ProjectPath returns the root of the project containing path.
func ProjectPath(lookup ports.ProjectLookup, path string) (string, bool) {
	project, ok := lookup.GetProject(path)
	if !ok || project == nil {
		return "", false
	}
	return project.RootPath, true
}

// IsFileSearchable reports whether name passes its project's searchable-files
// filter. Unknown projects are never searchable.
func IsFileSearchable(lookup ports.ProjectLookup, name ProjectFileName) bool {
	project, ok := lookup.GetProjectFromRootPath(name.ProjectRoot)
	if !ok || project == nil {
		return false
	}
	return project.IsSearchable(name.RelativePath)
}
