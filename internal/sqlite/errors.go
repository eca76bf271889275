package sqlite

import "errors"

// ErrNotFound indicates the requested row does not exist. Callers match it
// with errors.Is and translate it into their own domain errors.
var ErrNotFound = errors.New("not found")
