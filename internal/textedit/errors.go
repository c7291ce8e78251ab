// Package textedit implements character-indexed editing of paragraphs:
// locating the run that owns an offset, splitting runs and revision
// wrappers at arbitrary offsets, and the insert/remove/replace operations
// built on those primitives. Offsets are rune offsets over the paragraph's
// markup-level text (tracked deletions included).
package textedit

import "errors"

var (
	// ErrIndexOutOfRange reports an offset or count outside the bounds of
	// the current content. Always detected before any mutation.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrArgumentInvalid reports an empty or malformed required argument,
	// such as an empty search pattern.
	ErrArgumentInvalid = errors.New("invalid argument")

	// ErrInvariant reports an internal consistency failure, such as a split
	// that did not conserve length. It indicates a defect, not a
	// recoverable condition.
	ErrInvariant = errors.New("invariant violation")
)
