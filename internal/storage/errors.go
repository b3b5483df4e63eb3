package storage

import "errors"

// ErrNotInitialized is returned by write paths invoked before Initialize
// has established the schema. Read paths never return it — they degrade to
// empty results instead.
var ErrNotInitialized = errors.New("storage: store not initialized")

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("storage: not found")
