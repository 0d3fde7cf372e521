// Package bbolt implements the ports.Journal interface using bbolt (embedded B+ tree).
// Each project root gets its own top-level bucket. Entries are keyed by the
// bucket's big-endian sequence number, so a cursor walks them in append order.
// Writes are transactional: a crash mid-write cannot corrupt previously
// committed history.
package bbolt

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/corey/treesync/internal/ports"
)

// DefaultMaxEntries bounds the history kept per project.
const DefaultMaxEntries = 500

// ErrNotFound is returned when a project has no recorded history.
var ErrNotFound = errors.New("no journal entries")

// Store implements ports.Journal backed by bbolt.
type Store struct {
	db         *bolt.DB
	maxEntries int
}

// NewStore opens (or creates) a bbolt database at the given path.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db, maxEntries: DefaultMaxEntries}, nil
}

// SetMaxEntries changes the per-project cap. Values <= 0 restore the default.
// Existing history is trimmed on the next Append.
func (s *Store) SetMaxEntries(n int) {
	if n <= 0 {
		n = DefaultMaxEntries
	}
	s.maxEntries = n
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append records entry under root, assigning Seq (and ID and Time when unset).
func (s *Store) Append(root string, entry *ports.JournalEntry) error {
	if entry == nil {
		return fmt.Errorf("nil journal entry")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Time == 0 {
		entry.Time = time.Now().UnixMilli()
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(root))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		entry.Seq = seq
		data, err := encodeEntry(entry)
		if err != nil {
			return err
		}
		if err := b.Put(seqKey(seq), data); err != nil {
			return err
		}
		return trim(b, seq, s.maxEntries)
	})
}

// trim deletes entries older than the newest max, given the newest seq.
func trim(b *bolt.Bucket, newest uint64, max int) error {
	if newest <= uint64(max) {
		return nil
	}
	cutoff := newest - uint64(max)
	c := b.Cursor()
	for k, _ := c.First(); k != nil && decodeSeq(k) <= cutoff; k, _ = c.First() {
		if err := c.Delete(); err != nil {
			return err
		}
	}
	return nil
}

// Recent returns up to limit entries for root, newest first.
// Returns nil, nil for a root with no history. limit <= 0 means all.
func (s *Store) Recent(root string, limit int) ([]*ports.JournalEntry, error) {
	var out []*ports.JournalEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(root))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(out) >= limit {
				break
			}
			// decodeEntry copies out of v, which is only valid within tx.
			e, err := decodeEntry(v)
			if err != nil {
				return fmt.Errorf("entry %d: %w", decodeSeq(k), err)
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Latest returns the newest entry for root, or ErrNotFound.
func (s *Store) Latest(root string) (*ports.JournalEntry, error) {
	entries, err := s.Recent(root, 1)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return entries[0], nil
}

// DeleteProject removes all history for root.
// Idempotent: deleting a nonexistent root is not an error.
func (s *Store) DeleteProject(root string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(root)); errors.Is(err, bolt.ErrBucketNotFound) {
			return nil // idempotent
		} else {
			return err
		}
	})
}
