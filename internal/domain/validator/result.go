package validator

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/corey/treesync/internal/domain/paths"
	"github.com/corey/treesync/internal/ports"
)

// ResultKind names the update strategy a Result asks for.
type ResultKind string

const (
	KindNoChanges             ResultKind = "no_changes"
	KindUnknownChanges        ResultKind = "unknown_changes"
	KindFileModificationsOnly ResultKind = "file_modifications_only"
	KindVariousFileChanges    ResultKind = "various_file_changes"
)

// Result is the outcome of validating one batch. It is a closed set: the only
// implementations are NoChanges, UnknownChanges, FileModificationsOnly and
// VariousFileChanges. Consumers switch on the concrete type.
type Result interface {
	Kind() ResultKind
	sealed()
}

// NoChanges means nothing survived filtering.
type NoChanges struct{}

// UnknownChanges means a project definition file changed. Filter rules may no
// longer hold, so the snapshot must reload the project configuration and rescan.
type UnknownChanges struct{}

// FileModificationsOnly means every surviving change is a content edit.
// Files may be empty when no modified path could be resolved to a project
// name; that is still a content-only batch, not NoChanges.
type FileModificationsOnly struct {
	Files []ProjectFileName
}

// VariousFileChanges means at least one creation or deletion survived
// filtering. Changes holds every surviving entry in input order.
type VariousFileChanges struct {
	Changes []ProjectChange
}

func (NoChanges) Kind() ResultKind             { return KindNoChanges }
func (UnknownChanges) Kind() ResultKind        { return KindUnknownChanges }
func (FileModificationsOnly) Kind() ResultKind { return KindFileModificationsOnly }
func (VariousFileChanges) Kind() ResultKind    { return KindVariousFileChanges }

func (NoChanges) sealed()             {}
func (UnknownChanges) sealed()        {}
func (FileModificationsOnly) sealed() {}
func (VariousFileChanges) sealed()    {}

// ProjectChange is a surviving entry tagged with the root of the project that
// owned it at filter time.
type ProjectChange struct {
	Entry       ports.PathChangeEntry `json:"entry"`
	ProjectRoot string                `json:"project_root"`
}

// ProjectFileName identifies a file uniquely across all projects.
type ProjectFileName struct {
	ProjectRoot  string             `json:"project_root"`
	RelativePath paths.RelativePath `json:"relative_path"`
}

func (n ProjectFileName) String() string {
	return fmt.Sprintf("(%s, %q)", n.ProjectRoot, n.RelativePath.String())
}

// FullPath rebuilds the absolute path in platform form.
func (n ProjectFileName) FullPath() string {
	return filepath.Join(append([]string{n.ProjectRoot}, n.RelativePath.Components()...)...)
}

// resultJSON is the wire form shared by the socket protocol and the journal.
type resultJSON struct {
	Kind    ResultKind        `json:"kind"`
	Files   []ProjectFileName `json:"files,omitempty"`
	Changes []ProjectChange   `json:"changes,omitempty"`
}

// MarshalResult encodes any Result as {"kind": ..., ...}.
func MarshalResult(r Result) ([]byte, error) {
	out := resultJSON{Kind: r.Kind()}
	switch v := r.(type) {
	case FileModificationsOnly:
		out.Files = v.Files
	case VariousFileChanges:
		out.Changes = v.Changes
	}
	return json.Marshal(out)
}

// UnmarshalResult decodes the output of MarshalResult.
func UnmarshalResult(data []byte) (Result, error) {
	var in resultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	switch in.Kind {
	case KindNoChanges:
		return NoChanges{}, nil
	case KindUnknownChanges:
		return UnknownChanges{}, nil
	case KindFileModificationsOnly:
		files := in.Files
		if files == nil {
			files = []ProjectFileName{}
		}
		return FileModificationsOnly{Files: files}, nil
	case KindVariousFileChanges:
		if len(in.Changes) == 0 {
			return nil, fmt.Errorf("decode result: %s without changes", in.Kind)
		}
		return VariousFileChanges{Changes: in.Changes}, nil
	default:
		return nil, fmt.Errorf("decode result: unknown kind %q", in.Kind)
	}
}

// ChangedPaths lists the absolute paths a result refers to, for logging and
// the journal. NoChanges and UnknownChanges return nil.
func ChangedPaths(r Result) []string {
	switch v := r.(type) {
	case FileModificationsOnly:
		out := make([]string, 0, len(v.Files))
		for _, f := range v.Files {
			out = append(out, f.FullPath())
		}
		return out
	case VariousFileChanges:
		out := make([]string, 0, len(v.Changes))
		for _, c := range v.Changes {
			out = append(out, c.Entry.Path)
		}
		return out
	default:
		return nil
	}
}
