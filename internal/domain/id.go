package domain

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mkrupp/micropost/internal/util/encoding"
)

// IDLength is the length of an encoded ID: 128 bits in base32.
const IDLength = 26

// ErrInvalidID is returned when an identifier is not a well formed ID.
var ErrInvalidID = NewError(ErrInvalidInput, "invalid id")

// ID is an opaque, time ordered identifier: a UUIDv7 encoded in lowercase
// Crockford Base32.
type ID string

// NewID generates a fresh ID.
func NewID() ID {
	id := uuid.Must(uuid.NewV7())

	return ID(encoding.EncodeCrockfordB32LC(id[:]))
}

// ParseID validates and normalizes an identifier taken from user input.
func ParseID(s string) (ID, error) {
	s = encoding.NormalizeCrockfordB32LC(s)
	if len(s) != IDLength {
		return "", ErrInvalidID
	}

	if _, err := encoding.DecodeCrockfordB32LC(s); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidID, err)
	}

	return ID(s), nil
}

// String returns the string representation of the ID.
func (id ID) String() string {
	return string(id)
}
