package paths

import (
	"path/filepath"
	"runtime"
	"strings"
)

// Comparer is the path comparison policy. Implementations decide whether two
// names refer to the same file system entry.
type Comparer interface {
	Equal(a, b string) bool
	HasPrefix(s, prefix string) bool
}

type caseSensitive struct{}

func (caseSensitive) Equal(a, b string) bool          { return a == b }
func (caseSensitive) HasPrefix(s, prefix string) bool { return strings.HasPrefix(s, prefix) }

type caseInsensitive struct{}

func (caseInsensitive) Equal(a, b string) bool { return strings.EqualFold(a, b) }
func (caseInsensitive) HasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

var (
	// CaseSensitive compares names byte for byte (Linux and most Unix file systems).
	CaseSensitive Comparer = caseSensitive{}
	// CaseInsensitive compares names with Unicode case folding (Windows, default macOS).
	CaseInsensitive Comparer = caseInsensitive{}
)

// SystemComparer returns the policy matching the host platform's default file system.
func SystemComparer() Comparer {
	switch runtime.GOOS {
	case "windows", "darwin":
		return CaseInsensitive
	default:
		return CaseSensitive
	}
}

// SplitPrefix returns the part of path below root. Both are cleaned first.
// ok is false when path is not root and not nested under it; a path equal
// to root returns ("", true). The prefix must end on a component boundary,
// so "/src/foobar" is not under "/src/foo".
func SplitPrefix(path, root string, cmp Comparer) (suffix string, ok bool) {
	path = filepath.Clean(path)
	root = filepath.Clean(root)

	if cmp.Equal(path, root) {
		return "", true
	}
	if !cmp.HasPrefix(path, root) {
		return "", false
	}

	rest := path[len(root):]
	sep := string(filepath.Separator)
	switch {
	case strings.HasSuffix(root, sep):
		// root is a volume root such as "/" or `C:\`
		return rest, rest != ""
	case strings.HasPrefix(rest, sep):
		return rest[len(sep):], true
	default:
		return "", false
	}
}

// Split breaks a relative suffix into its components, dropping empty ones.
func Split(suffix string) []string {
	raw := strings.Split(suffix, string(filepath.Separator))
	out := raw[:0]
	for _, c := range raw {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
