// Package validator turns a batch of raw file system notifications into the
// cheapest update strategy that keeps a project snapshot correct.
//
// Classification order (first match wins):
//  1. drop every entry the exclusion filter rejects
//  2. nothing left                          → NoChanges
//  3. a project definition file changed    → UnknownChanges
//  4. only content modifications remain    → FileModificationsOnly
//  5. otherwise                             → VariousFileChanges
//
// The package never fails a batch. Missing projects, unreadable entries and
// unresolvable names are folded into conservative decisions instead.
package validator

import (
	"log/slog"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/corey/treesync/internal/domain/paths"
	"github.com/corey/treesync/internal/ports"
)

// DefaultParallelThreshold is the batch size at which filtering fans out.
const DefaultParallelThreshold = 256

// sampleSize caps how many surviving entries are logged per batch.
const sampleSize = 5

// Options configures a Validator. The zero value is usable.
type Options struct {
	// Comparer is the path comparison policy. Nil selects paths.SystemComparer.
	Comparer paths.Comparer
	// Logger receives per-batch diagnostics. Nil selects slog.Default.
	Logger *slog.Logger
	// Workers bounds concurrent filtering. Zero selects GOMAXPROCS; 1 disables fan-out.
	Workers int
	// ParallelThreshold is the minimum batch size filtered concurrently.
	// Zero selects DefaultParallelThreshold.
	ParallelThreshold int
}

// Validator classifies batches of path changes. It is stateless beyond its
// configuration and may be shared across goroutines.
type Validator struct {
	filter    *ExclusionFilter
	resolver  *NameResolver
	cmp       paths.Comparer
	logger    *slog.Logger
	workers   int
	threshold int
}

// New wires a Validator to its collaborators.
func New(lookup ports.ProjectLookup, probe ports.FileProbe, opts Options) *Validator {
	cmp := opts.Comparer
	if cmp == nil {
		cmp = paths.SystemComparer()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	threshold := opts.ParallelThreshold
	if threshold <= 0 {
		threshold = DefaultParallelThreshold
	}
	return &Validator{
		filter:    NewExclusionFilter(lookup, probe, cmp, logger),
		resolver:  NewNameResolver(lookup, cmp),
		cmp:       cmp,
		logger:    logger,
		workers:   workers,
		threshold: threshold,
	}
}

// Filter exposes the exclusion filter used by this validator.
func (v *Validator) Filter() *ExclusionFilter { return v.filter }

// Resolver exposes the name resolver used by this validator.
func (v *Validator) Resolver() *NameResolver { return v.resolver }

// Stats counts the entries behind one classification.
type Stats struct {
	Received int // entries in the batch
	Kept     int // entries surviving the exclusion filter
}

// ProcessChanges classifies one batch. It always returns exactly one Result.
func (v *Validator) ProcessChanges(changes []ports.PathChangeEntry) Result {
	r, _ := v.Classify(changes)
	return r
}

// Classify is ProcessChanges that also reports how many entries survived filtering.
func (v *Validator) Classify(changes []ports.PathChangeEntry) (Result, Stats) {
	filtered := v.filterChanges(changes)
	v.logger.Info("processed path change batch",
		"kept", len(filtered), "received", len(changes))
	return v.classify(filtered), Stats{Received: len(changes), Kept: len(filtered)}
}

func (v *Validator) classify(filtered []ProjectChange) Result {
	for i, c := range filtered {
		if i == sampleSize {
			break
		}
		v.logger.Info("path changed", "path", c.Entry.Path, "kind", c.Entry.Kind)
	}

	if len(filtered) == 0 {
		v.logger.Info("all changes have been filtered out")
		return NoChanges{}
	}

	for _, c := range filtered {
		if v.isProjectFileChange(c.Entry) {
			v.logger.Info("project file changed", "path", c.Entry.Path)
			return UnknownChanges{}
		}
	}

	if allModifications(filtered) {
		v.logger.Info("all file change events are file modifications")
		files := make([]ProjectFileName, 0, len(filtered))
		for _, c := range filtered {
			if name, ok := v.resolver.Resolve(c.Entry.Path); ok {
				files = append(files, name)
			}
		}
		return FileModificationsOnly{Files: files}
	}

	v.logger.Info("some file change events are create or delete events")
	return VariousFileChanges{Changes: filtered}
}

// filterChanges keeps the non-excluded entries in input order.
func (v *Validator) filterChanges(changes []ports.PathChangeEntry) []ProjectChange {
	roots := make([]string, len(changes))
	excluded := make([]bool, len(changes))

	if len(changes) >= v.threshold && v.workers > 1 {
		var g errgroup.Group
		g.SetLimit(v.workers)
		for i := range changes {
			g.Go(func() error {
				roots[i], excluded[i] = v.filter.evaluate(changes[i])
				return nil
			})
		}
		_ = g.Wait() // workers never fail
	} else {
		for i := range changes {
			roots[i], excluded[i] = v.filter.evaluate(changes[i])
		}
	}

	kept := make([]ProjectChange, 0, len(changes))
	for i, c := range changes {
		if !excluded[i] {
			kept = append(kept, ProjectChange{Entry: c, ProjectRoot: roots[i]})
		}
	}
	return kept
}

func (v *Validator) isProjectFileChange(change ports.PathChangeEntry) bool {
	name := filepath.Base(change.Path)
	return v.cmp.Equal(name, ports.ProjectFileNameObsolete) ||
		v.cmp.Equal(name, ports.ProjectFileName)
}

func allModifications(changes []ProjectChange) bool {
	for _, c := range changes {
		if c.Entry.Kind != ports.ChangeChanged {
			return false
		}
	}
	return true
}
