package repository

import "errors"

// ErrNotFound indicates an entity was not located. Row operations scoped by
// owner return it both for absent and non-owned records.
var ErrNotFound = errors.New("repository: not found")

// ErrConflict indicates a uniqueness violation, e.g. a duplicate email.
var ErrConflict = errors.New("repository: conflict")
