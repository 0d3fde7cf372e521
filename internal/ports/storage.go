// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces, never on concrete implementations.
package ports

// Journal persists the outcome of every validated batch so the CLI and the
// dashboard can show what the daemon decided and why.
// The backing store (bbolt) is root-scoped: each project root gets its own
// namespace. Concurrent reads are safe; writes are serialized by the adapter.
type Journal interface {
	// Append records one entry under root. The adapter assigns Seq.
	Append(root string, entry *JournalEntry) error

	// Recent returns up to limit entries for root, newest first.
	// Returns nil, nil for a root with no history.
	Recent(root string, limit int) ([]*JournalEntry, error)

	// DeleteProject removes all history for root.
	// Idempotent: deleting a nonexistent root is not an error.
	DeleteProject(root string) error
}

// JournalEntry is one classified batch.
type JournalEntry struct {
	Seq      uint64   `json:"seq"`
	ID       string   `json:"id"`       // batch id (uuid)
	Time     int64    `json:"time"`     // unix millis
	Result   string   `json:"result"`   // validator.ResultKind name
	Received int      `json:"received"` // entries in the raw batch
	Filtered int      `json:"filtered"` // entries surviving the exclusion filter
	Paths    []string `json:"paths,omitempty"`
}
