package validator

import (
	"log/slog"

	"github.com/corey/treesync/internal/domain/paths"
	"github.com/corey/treesync/internal/ports"
)

// ExclusionFilter decides whether a changed path lies outside the indexed
// surface of its owning project. It holds no mutable state and is safe for
// concurrent use.
type ExclusionFilter struct {
	lookup ports.ProjectLookup
	probe  ports.FileProbe
	cmp    paths.Comparer
	logger *slog.Logger
}

// NewExclusionFilter builds a filter. A nil comparer selects the platform default.
func NewExclusionFilter(lookup ports.ProjectLookup, probe ports.FileProbe, cmp paths.Comparer, logger *slog.Logger) *ExclusionFilter {
	if cmp == nil {
		cmp = paths.SystemComparer()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExclusionFilter{lookup: lookup, probe: probe, cmp: cmp, logger: logger}
}

// IsExcluded reports whether change should be dropped from its batch.
func (f *ExclusionFilter) IsExcluded(change ports.PathChangeEntry) bool {
	_, excluded := f.evaluate(change)
	return excluded
}

// evaluate returns the owning project root alongside the decision so the
// classifier can tag surviving entries without a second lookup.
func (f *ExclusionFilter) evaluate(change ports.PathChangeEntry) (root string, excluded bool) {
	project, ok := f.lookup.GetProject(change.Path)
	if !ok || project == nil {
		return "", true
	}
	root = project.RootPath

	suffix, under := paths.SplitPrefix(change.Path, root, f.cmp)
	if !under {
		// The lookup claimed ownership of a path outside its root.
		f.logger.Debug("path not under project root", "path", change.Path, "root", root)
		return root, true
	}
	if suffix == "" {
		return root, false
	}

	names := paths.Split(suffix)
	var prefix paths.RelativePath
	for i, name := range names {
		prefix = prefix.Child(name)
		if i < len(names)-1 {
			if !project.IncludesDirectory(prefix) {
				return root, true
			}
			continue
		}
		if f.leafExcluded(project, change, prefix) {
			return root, true
		}
	}
	return root, false
}

// leafExcluded applies the file or directory rule to the last component.
// Anything that cannot be classified is kept.
func (f *ExclusionFilter) leafExcluded(project *ports.Project, change ports.PathChangeEntry, rel paths.RelativePath) bool {
	if change.Kind == ports.ChangeDeleted {
		return false
	}
	kind, err := f.probe.Probe(change.Path)
	if err != nil {
		f.logger.Debug("probe failed, keeping change", "path", change.Path, "error", err)
		return false
	}
	switch kind {
	case ports.EntryFile:
		return !project.IncludesFile(rel)
	case ports.EntryDirectory:
		return !project.IncludesDirectory(rel)
	default:
		return false
	}
}
