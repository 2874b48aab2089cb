package internalerr

import "errors"

// Sentinel errors for common cases
var (
	// ErrTagMismatch means a closing tag did not match the innermost open tag.
	// Always fatal for the file being parsed, never for the batch.
	ErrTagMismatch = errors.New("non-matching tags")

	// ErrNoBody means a file did not contain exactly one body element.
	ErrNoBody = errors.New("no single body element")

	// ErrBadIdentifier means a numeric identifier field could not be parsed.
	ErrBadIdentifier = errors.New("malformed identifier")

	ErrInvalidConfig = errors.New("invalid configuration")
)
