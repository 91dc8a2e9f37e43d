package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a presentation owner. TokenHash never leaves the server.
type User struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	TwitterHandle string    `json:"twitter_handle,omitempty"`
	TokenHash     string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}
