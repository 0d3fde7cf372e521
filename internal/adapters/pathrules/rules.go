// Package pathrules implements ports.PathFilter with gitignore-like glob rules
// matched by github.com/bmatcuk/doublestar.
//
// Pattern forms:
//
//	*.cc          no slash: matched against the last path component
//	src/**/*.h    contains a slash: matched against the whole relative path
//	/out          leading slash: anchored to the project root
//	build/        trailing slash is ignored (filters are already split by kind)
//
// A path is included when Include is empty or any Include pattern matches,
// and no Exclude pattern matches.
package pathrules

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar"

	"github.com/corey/treesync/internal/domain/paths"
)

// Rules is the serialized form of a filter, as found in project files.
type Rules struct {
	Include []string `yaml:"include,omitempty" json:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// IsZero reports whether the rules have no patterns at all.
func (r Rules) IsZero() bool {
	return len(r.Include) == 0 && len(r.Exclude) == 0
}

type pattern struct {
	glob      string
	wholePath bool
}

func (p pattern) match(rel paths.RelativePath) bool {
	subject := rel.Name()
	if p.wholePath {
		subject = rel.String()
	}
	ok, err := doublestar.Match(p.glob, subject)
	return err == nil && ok
}

// Filter is a compiled rule set. It is immutable and safe for concurrent use.
type Filter struct {
	include []pattern
	exclude []pattern
}

// IncludeAll accepts every path.
var IncludeAll = &Filter{}

// Compile validates and compiles rules.
func Compile(r Rules) (*Filter, error) {
	inc, err := compileAll(r.Include)
	if err != nil {
		return nil, fmt.Errorf("include: %w", err)
	}
	exc, err := compileAll(r.Exclude)
	if err != nil {
		return nil, fmt.Errorf("exclude: %w", err)
	}
	return &Filter{include: inc, exclude: exc}, nil
}

func compileAll(globs []string) ([]pattern, error) {
	out := make([]pattern, 0, len(globs))
	for _, g := range globs {
		p, err := compile(g)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func compile(raw string) (pattern, error) {
	g := strings.TrimSpace(raw)
	g = strings.TrimSuffix(g, "/")

	anchored := strings.HasPrefix(g, "/")
	g = strings.TrimPrefix(g, "/")
	if g == "" {
		return pattern{}, fmt.Errorf("empty pattern %q", raw)
	}
	// doublestar reports malformed classes lazily; probe once so they fail here.
	if _, err := doublestar.Match(g, g); err != nil {
		return pattern{}, fmt.Errorf("pattern %q: %w", raw, err)
	}
	return pattern{glob: g, wholePath: anchored || strings.Contains(g, "/")}, nil
}

// Include implements ports.PathFilter.
func (f *Filter) Include(rel paths.RelativePath) bool {
	if len(f.include) > 0 && !anyMatch(f.include, rel) {
		return false
	}
	return !anyMatch(f.exclude, rel)
}

func anyMatch(ps []pattern, rel paths.RelativePath) bool {
	for _, p := range ps {
		if p.match(rel) {
			return true
		}
	}
	return false
}
