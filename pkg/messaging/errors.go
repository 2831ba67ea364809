package messaging

import "errors"

// ErrBackendNotFound is returned for keys that are unknown or not visible.
// Both cases produce the same error so clients cannot probe hidden backends.
var ErrBackendNotFound = errors.New("messaging backend not found")
