package app

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/corey/treesync/internal/adapters/discovery"
	"github.com/corey/treesync/internal/adapters/osfs"
	"github.com/corey/treesync/internal/domain/validator"
	"github.com/corey/treesync/internal/ports"
)

// Engine is the validation core without any daemon services: project
// discovery, the file probe and the validator. The CLI uses it directly
// when no daemon is running.
type Engine struct {
	Discovery *discovery.Discovery
	Validator *validator.Validator

	roots  []string
	logger *slog.Logger
}

// NewEngine builds the validation core for cfg. ProjectRoot and ExtraRoots
// are registered as projects even without a project file.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.ProjectRoot == "" {
		return nil, fmt.Errorf("project root required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	disc, err := discovery.New(discovery.Options{Logger: logger})
	if err != nil {
		return nil, err
	}
	var roots []string
	for _, r := range append([]string{cfg.ProjectRoot}, cfg.ExtraRoots...) {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("resolve root %s: %w", r, err)
		}
		if err := disc.AddRoot(abs); err != nil {
			return nil, err
		}
		roots = append(roots, abs)
	}

	v := validator.New(disc, osfs.NewProbe(), validator.Options{
		Comparer: cfg.Comparer(),
		Logger:   logger,
		Workers:  cfg.Workers,
	})
	return &Engine{Discovery: disc, Validator: v, roots: roots, logger: logger}, nil
}

// Roots returns the registered roots, primary first.
func (e *Engine) Roots() []string {
	return append([]string(nil), e.roots...)
}

// PathInfo describes how the validator sees one path.
type PathInfo struct {
	Path         string `json:"path"`
	ProjectRoot  string `json:"project_root,omitempty"`
	RelativePath string `json:"relative_path,omitempty"`
	Excluded     bool   `json:"excluded"`
	Searchable   bool   `json:"searchable"`
}

// Describe reports the owning project of path, its project-relative name,
// whether a modification of it would be filtered out, and whether it is
// searchable.
func (e *Engine) Describe(path string) PathInfo {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	info := PathInfo{Path: abs}
	if root, ok := validator.ProjectPath(e.Discovery, abs); ok {
		info.ProjectRoot = root
	}
	info.Excluded = e.Validator.Filter().IsExcluded(ports.PathChangeEntry{Path: abs, Kind: ports.ChangeChanged})
	if name, ok := e.Validator.Resolver().Resolve(abs); ok {
		info.RelativePath = name.RelativePath.String()
		info.Searchable = validator.IsFileSearchable(e.Discovery, name)
	}
	return info
}
