package repository

import "errors"

// ErrNotFound is returned when a requested record does not exist within the
// caller's tenant scope. Services translate it into the domain not-found
// taxonomy.
var ErrNotFound = errors.New("record not found")

// ErrVersionConflict is returned when an optimistic-concurrency update
// matched no row because the version moved underneath the caller.
var ErrVersionConflict = errors.New("version conflict")
