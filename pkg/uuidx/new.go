package uuidx

import "github.com/google/uuid"

// New returns a freshly generated version 7 UUID. V7 identifiers sort by
// creation time, which keeps identifiers assigned by the same process in
// roughly chronological order.
// It panics when the underlying generator fails.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString returns a freshly generated version 7 UUID in its canonical
// string form.
func NewString() string {
	return New().String()
}
