package heap

import "github.com/pkg/errors"

// ErrOutOfMemory is the error returned from Allocate, Resize, or Init when the
// memory provider cannot extend the managed region
var ErrOutOfMemory error = errors.New("out of memory")
