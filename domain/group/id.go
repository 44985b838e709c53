package group

import (
	"fmt"

	"group-lab/errors"

	"github.com/google/uuid"
)

// GroupIDLength is the size in bytes of every group identity.
const GroupIDLength = 16

// ID identifies a group for its whole lifetime. It is assigned once at creation.
type ID [GroupIDLength]byte

// NewID draws a fresh random identity.
func NewID() ID {
	return ID(uuid.New())
}

// ParseID copies raw bytes into an ID. The input must be exactly GroupIDLength bytes.
func ParseID(b []byte) (ID, error) {
	if len(b) != GroupIDLength {
		return ID{}, fmt.Errorf("%w: expected %d bytes, got %d", errors.ErrInvalidGroupID, GroupIDLength, len(b))
	}
	var id ID
	copy(id[:], b)
	return id, nil
}

// ParseIDString accepts the canonical form produced by String,
// as well as the 32 hex characters form without dashes.
func ParseIDString(s string) (ID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("%w: %v", errors.ErrInvalidGroupID, err)
	}
	return ID(parsed), nil
}

func (id ID) IsZero() bool {
	return id == ID{}
}

func (id ID) Bytes() []byte {
	return id[:]
}

func (id ID) String() string {
	return uuid.UUID(id).String()
}
