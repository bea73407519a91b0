package store

import "github.com/google/uuid"

// NewCheckpointID returns a time-ordered checkpoint id. Ids created later sort
// after earlier ones, so ordering by id descending lists the newest first.
func NewCheckpointID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
