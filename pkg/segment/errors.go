package segment

import "errors"

// Predefined errors for the segment package.
var (
	// ErrMalformedExpression indicates the segment JSON could not be parsed
	// into an expression tree.
	ErrMalformedExpression = errors.New("malformed segment expression")
)
