package models

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the lifecycle and calculator code. Handlers map
// them to HTTP status codes with errors.Is; the core never decides how an
// error is displayed.
var (
	ErrQuotaExceeded  = errors.New("free tier calculation limit reached")
	ErrForbidden      = errors.New("caller is not the owner or an administrator")
	ErrNotFound       = errors.New("not found")
	ErrTransientStore = errors.New("store temporarily unavailable")
)

// ValidationError marks malformed or out-of-range numeric input, e.g. a
// negative length or a boom angle at or beyond the practical ceiling.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
