// Key and value encoding for journal buckets.
//
// Keys are the bucket sequence as 8 big-endian bytes so byte order equals
// numeric order. Values are JSON-encoded ports.JournalEntry.
package bbolt

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/corey/treesync/internal/ports"
)

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

func decodeSeq(k []byte) uint64 {
	if len(k) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(k)
}

func encodeEntry(e *ports.JournalEntry) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal journal entry: %w", err)
	}
	return data, nil
}

// decodeEntry does not retain v.
func decodeEntry(v []byte) (*ports.JournalEntry, error) {
	var e ports.JournalEntry
	if err := json.Unmarshal(v, &e); err != nil {
		return nil, fmt.Errorf("unmarshal journal entry: %w", err)
	}
	return &e, nil
}
