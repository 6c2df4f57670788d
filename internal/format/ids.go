package format

import "github.com/google/uuid"

// IDGenerator produces the unique part of tree node ids.
type IDGenerator interface {
	Generate() string
}

// UUIDv7IDs generates time-sortable UUIDv7 ids.
//
// Thread-safety: UUIDv7IDs is stateless and safe for concurrent use.
type UUIDv7IDs struct{}

// Generate returns a new hyphenated UUIDv7. If the random source fails it
// falls back to a random (v4) UUID.
func (UUIDv7IDs) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
