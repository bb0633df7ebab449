// Package apperr defines the error taxonomy shared by every jotter component.
//
// Only ErrRootNotFound and ErrMalformedConfig are fatal. The remaining
// sentinels classify recoverable problems that are reported and skipped.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")

	ErrRootNotFound         = errors.New("jotter root not found")
	ErrMalformedConfig      = errors.New("malformed jotter config")
	ErrMalformedMetadata    = errors.New("malformed metadata")
	ErrDuplicateCitekey     = errors.New("duplicate citekey")
	ErrUnresolvedCitekey    = errors.New("unresolved citekey")
	ErrUnknownCitationKey   = errors.New("unknown citation key")
	ErrMalformedKeywordList = errors.New("malformed keyword list")
	ErrReadFailed           = errors.New("read failed")
)

// Fatal reports whether err must abort the whole operation.
func Fatal(err error) bool {
	return errors.Is(err, ErrRootNotFound) || errors.Is(err, ErrMalformedConfig)
}
