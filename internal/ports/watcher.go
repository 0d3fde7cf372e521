package ports

// Watcher monitors one or more project trees and delivers debounced batches
// of raw change entries. The adapter drops its own noise (editor swap files,
// VCS metadata) before delivery; project filter rules are applied later by
// the validator, not here.
type Watcher interface {
	// Watch starts monitoring root recursively. onBatch receives each batch in
	// arrival order; it is called from a single goroutine per Watcher, so
	// batches never overlap. Returns an error if root cannot be watched.
	Watch(root string, onBatch func([]PathChangeEntry)) error

	// Stop ends monitoring and releases all resources. After Stop returns,
	// no further onBatch calls will fire. Safe to call multiple times.
	Stop() error
}
