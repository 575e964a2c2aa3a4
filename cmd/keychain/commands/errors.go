package commands

import "errors"

// ErrNotFound is returned by 'exists --quiet' for a missing item. main
// exits with status 1 without printing it.
var ErrNotFound = errors.New("item not found")
