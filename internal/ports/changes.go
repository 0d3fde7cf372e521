package ports

import "fmt"

// ChangeKind is the nature of a single raw file system notification.
type ChangeKind int

const (
	// ChangeCreated means a file or directory appeared.
	ChangeCreated ChangeKind = iota + 1
	// ChangeDeleted means a file or directory disappeared (or was renamed away).
	ChangeDeleted
	// ChangeChanged means the content of an existing entry was modified.
	ChangeChanged
)

// Valid reports whether k is one of the defined kinds. The zero value is not.
func (k ChangeKind) Valid() bool {
	return k >= ChangeCreated && k <= ChangeChanged
}

func (k ChangeKind) String() string {
	switch k {
	case ChangeCreated:
		return "created"
	case ChangeDeleted:
		return "deleted"
	case ChangeChanged:
		return "changed"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// ParseChangeKind is the inverse of ChangeKind.String.
func ParseChangeKind(s string) (ChangeKind, error) {
	switch s {
	case "created", "create":
		return ChangeCreated, nil
	case "deleted", "delete":
		return ChangeDeleted, nil
	case "changed", "change", "modified":
		return ChangeChanged, nil
	default:
		return 0, fmt.Errorf("unknown change kind %q", s)
	}
}

// MarshalText encodes the kind by name.
func (k ChangeKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid change kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *ChangeKind) UnmarshalText(b []byte) error {
	v, err := ParseChangeKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// PathChangeEntry is one raw notification: an absolute path and what happened to it.
type PathChangeEntry struct {
	Path string     `json:"path"`
	Kind ChangeKind `json:"kind"`
}

func (e PathChangeEntry) String() string {
	return fmt.Sprintf("%s %s", e.Kind, e.Path)
}
