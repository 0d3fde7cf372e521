// Package osfs implements ports.FileProbe against the local file system.
package osfs

import (
	"os"

	"github.com/corey/treesync/internal/ports"
)

// Probe stats paths with os.Stat, so symlinks report their target's kind.
type Probe struct{}

// NewProbe returns a probe for the local file system.
func NewProbe() *Probe {
	return &Probe{}
}

// Probe implements ports.FileProbe. Missing entries, permission errors and
// dangling symlinks all come back as EntryUnknown with the stat error.
func (Probe) Probe(path string) (ports.EntryKind, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ports.EntryUnknown, err
	}
	switch {
	case info.Mode().IsRegular():
		return ports.EntryFile, nil
	case info.IsDir():
		return ports.EntryDirectory, nil
	default:
		return ports.EntryUnknown, nil
	}
}
