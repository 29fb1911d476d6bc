package core

import "github.com/google/uuid"

// NewIdentifier returns a random identifier for scene objects that do not
// carry a name of their own.
func NewIdentifier() uuid.UUID {
	return uuid.New()
}
