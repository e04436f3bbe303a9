package exam

import "errors"

// Error classes surfaced by loading, normalizing and persisting exam data.
// Callers match them with errors.Is; the wrapped message carries the detail.
var (
	ErrFileNotFound    = errors.New("file not found")
	ErrDecode          = errors.New("malformed input")
	ErrSchema          = errors.New("missing expected field")
	ErrTypeConversion  = errors.New("invalid value")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrWrite           = errors.New("write failed")
	ErrPrecondition    = errors.New("precondition violated")
)
