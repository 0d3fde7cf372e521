package discovery

import (
	"fmt"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/corey/treesync/internal/adapters/pathrules"
	"github.com/corey/treesync/internal/domain/paths"
	"github.com/corey/treesync/internal/ports"
)

// ProjectFile is the YAML form of a project definition file:
//
//	directories:
//	  exclude: [build, out, .git]
//	files:
//	  include: ["*.cc", "*.h", "*.py"]
//	searchable:
//	  exclude: ["*.min.js"]
//
// A missing section includes everything.
type ProjectFile struct {
	Directories pathrules.Rules `yaml:"directories"`
	Files       pathrules.Rules `yaml:"files"`
	Searchable  pathrules.Rules `yaml:"searchable"`
}

// DefaultProjectFile applies to roots registered without a project file.
var DefaultProjectFile = ProjectFile{
	Directories: pathrules.Rules{Exclude: []string{".git", ".hg", ".svn", "node_modules", ".treesync"}},
}

// ParseProjectFile decodes a project definition. An empty document is valid.
func ParseProjectFile(data []byte) (ProjectFile, error) {
	var pf ProjectFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return ProjectFile{}, fmt.Errorf("parse project file: %w", err)
	}
	return pf, nil
}

// Build compiles the rules into a project rooted at root.
func (pf ProjectFile) Build(root string) (*ports.Project, error) {
	dirs, err := pathrules.Compile(pf.Directories)
	if err != nil {
		return nil, fmt.Errorf("directories: %w", err)
	}
	files, err := pathrules.Compile(pf.Files)
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	searchable, err := pathrules.Compile(pf.Searchable)
	if err != nil {
		return nil, fmt.Errorf("searchable: %w", err)
	}
	return &ports.Project{
		RootPath:              filepath.Clean(root),
		DirectoryFilter:       dirs,
		FileFilter:            projectFilesIncluded{files},
		SearchableFilesFilter: searchable,
	}, nil
}

// projectFilesIncluded keeps project definition files, at any depth, visible
// to the validator whatever the file rules say.
type projectFilesIncluded struct {
	ports.PathFilter
}

func (f projectFilesIncluded) Include(rel paths.RelativePath) bool {
	if name := rel.Name(); name == ports.ProjectFileName || name == ports.ProjectFileNameObsolete {
		return true
	}
	return f.PathFilter.Include(rel)
}

// includeAllProject is what a root with an unreadable project file gets.
func includeAllProject(root string) *ports.Project {
	return &ports.Project{
		RootPath:              filepath.Clean(root),
		DirectoryFilter:       pathrules.IncludeAll,
		FileFilter:            pathrules.IncludeAll,
		SearchableFilesFilter: pathrules.IncludeAll,
	}
}
