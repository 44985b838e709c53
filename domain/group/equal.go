package group

import (
	"bytes"

	"github.com/samber/lo"
)

// Comparison selects which fields take part in snapshot equality.
type Comparison int

const (
	// Material answers "is this the same conversation": identity, members,
	// name and avatar. Administrators and the write policy are ignored.
	Material Comparison = iota
	// Strict also compares administrators and the write policy.
	Strict
)

func (c Comparison) String() string {
	switch c {
	case Material:
		return "material"
	case Strict:
		return "strict"
	default:
		return "unknown"
	}
}

// Equal reports material equality, used to drop redundant update events.
func Equal(a, b State) bool {
	return a.id == b.id &&
		sameSet(a.memberIDs, b.memberIDs) &&
		sameName(a.name, b.name) &&
		sameAvatar(a.avatar, b.avatar)
}

// StrictEqual reports equality of every field. Member and admin order are ignored.
func StrictEqual(a, b State) bool {
	return Equal(a, b) &&
		sameSet(a.adminIDs, b.adminIDs) &&
		a.canOnlyWriteAdmin == b.canOnlyWriteAdmin
}

func Compare(a, b State, mode Comparison) bool {
	if mode == Strict {
		return StrictEqual(a, b)
	}
	return Equal(a, b)
}

func (s State) Equal(other State) bool {
	return Equal(s, other)
}

// sameSet relies on identifiers being unique inside each slice.
func sameSet(a, b []string) bool {
	return len(a) == len(b) && lo.Every(a, b)
}

func sameName(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameAvatar(a, b []byte) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return bytes.Equal(a, b)
}
