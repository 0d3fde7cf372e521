package ports

import "github.com/corey/treesync/internal/domain/paths"

// Project definition file names. A directory containing either file is the
// root of a project. The obsolete spelling is still honored for old trees.
const (
	ProjectFileName         = "project.treesync"
	ProjectFileNameObsolete = "treesync-project.txt"
)

// PathFilter decides whether a project-relative path participates in the
// indexed surface. The rule language behind it is owned by the adapter.
type PathFilter interface {
	Include(path paths.RelativePath) bool
}

// Project is a root directory plus its inclusion rules. Consumers treat it as
// read-only; lookups may hand out the same *Project to concurrent callers.
// A nil filter includes everything.
type Project struct {
	RootPath              string
	DirectoryFilter       PathFilter
	FileFilter            PathFilter
	SearchableFilesFilter PathFilter
}

// IncludesDirectory applies DirectoryFilter to rel.
func (p *Project) IncludesDirectory(rel paths.RelativePath) bool {
	return includes(p.DirectoryFilter, rel)
}

// IncludesFile applies FileFilter to rel.
func (p *Project) IncludesFile(rel paths.RelativePath) bool {
	return includes(p.FileFilter, rel)
}

// IsSearchable applies SearchableFilesFilter to rel.
func (p *Project) IsSearchable(rel paths.RelativePath) bool {
	return includes(p.SearchableFilesFilter, rel)
}

func includes(f PathFilter, rel paths.RelativePath) bool {
	return f == nil || f.Include(rel)
}

// ProjectLookup maps paths to their owning project.
type ProjectLookup interface {
	// GetProject returns the project containing path (or rooted at it).
	// ok is false when path lies outside every known project.
	GetProject(path string) (project *Project, ok bool)

	// GetProjectFromRootPath returns the project whose root is exactly root.
	GetProjectFromRootPath(root string) (project *Project, ok bool)
}

// EntryKind is what a probe found at a path.
type EntryKind int

const (
	// EntryUnknown means the probe could not tell: the entry is gone, access
	// was denied, or it is neither a regular file nor a directory.
	EntryUnknown EntryKind = iota
	EntryFile
	EntryDirectory
)

func (k EntryKind) String() string {
	switch k {
	case EntryFile:
		return "file"
	case EntryDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// FileProbe inspects the live file system.
type FileProbe interface {
	// Probe reports the kind of entry at path. A non-nil error always comes
	// with EntryUnknown.
	Probe(path string) (EntryKind, error)
}
