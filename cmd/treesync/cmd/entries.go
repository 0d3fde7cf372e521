package cmd

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/corey/treesync/internal/ports"
)

// parseEntry reads one change argument: either PATH, which takes the default
// kind, or KIND:PATH. A prefix that is not a known kind is part of the path,
// so drive letters survive.
func parseEntry(arg string, def ports.ChangeKind) (ports.PathChangeEntry, error) {
	arg = strings.TrimSpace(arg)
	kind := def
	path := arg
	if i := strings.IndexByte(arg, ':'); i > 0 {
		if k, err := ports.ParseChangeKind(strings.ToLower(arg[:i])); err == nil {
			kind = k
			path = arg[i+1:]
		}
	}
	if path == "" {
		return ports.PathChangeEntry{}, fmt.Errorf("empty path in %q", arg)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return ports.PathChangeEntry{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	return ports.PathChangeEntry{Path: abs, Kind: kind}, nil
}

// parseEntries parses args, or r line by line when args is empty or "-".
// Blank lines and lines starting with # are skipped.
func parseEntries(args []string, r io.Reader, def ports.ChangeKind) ([]ports.PathChangeEntry, error) {
	lines := args
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		lines = nil
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			lines = append(lines, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read changes: %w", err)
		}
	}

	entries := make([]ports.PathChangeEntry, 0, len(lines))
	for _, l := range lines {
		e, err := parseEntry(l, def)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
