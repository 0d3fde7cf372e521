package fsnotify

import "github.com/corey/treesync/internal/ports"

// batch accumulates changes between flushes. Each path appears once, at the
// position of its first event, carrying the merged kind of all its events.
type batch struct {
	index map[string]int
	list  []ports.PathChangeEntry
}

func newBatch() *batch {
	return &batch{index: make(map[string]int)}
}

func (b *batch) len() int { return len(b.list) }

func (b *batch) add(path string, kind ports.ChangeKind) {
	i, ok := b.index[path]
	if !ok {
		b.index[path] = len(b.list)
		b.list = append(b.list, ports.PathChangeEntry{Path: path, Kind: kind})
		return
	}
	b.list[i].Kind = merge(b.list[i].Kind, kind)
}

func (b *batch) entries() []ports.PathChangeEntry {
	return b.list
}

// merge folds a later event into an earlier one for the same path.
func merge(prev, next ports.ChangeKind) ports.ChangeKind {
	switch {
	case prev == ports.ChangeCreated && next == ports.ChangeChanged:
		// Still new to anyone who has not seen it yet.
		return ports.ChangeCreated
	case prev == ports.ChangeDeleted && next == ports.ChangeCreated:
		// Atomic save: write to temp, rename over the original.
		return ports.ChangeChanged
	default:
		return next
	}
}
