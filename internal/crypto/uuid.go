package crypto

import (
	"github.com/google/uuid"
)

// NewUUIDv7 generates a time-ordered UUID v7 for user records.
func NewUUIDv7() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// ParseUserID parses a user id header value, reporting false on garbage.
func ParseUserID(s string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
