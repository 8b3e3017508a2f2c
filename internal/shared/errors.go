package shared

import (
	"errors"

	"github.com/odyssey-erp/erp-console/internal/erpapi"
)

var (
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// DefaultErrorMessage is shown when nothing more specific is known.
const DefaultErrorMessage = "Error"

// UserError is a local failure whose text is safe to show as is.
type UserError struct {
	msg string
}

// NewUserError builds a UserError.
func NewUserError(msg string) *UserError {
	return &UserError{msg: msg}
}

func (e *UserError) Error() string { return e.msg }

// UserSafeMessage reduces err to a single line for a flash or inline error.
// Local user errors win, then the remote API detail, then DefaultErrorMessage.
func UserSafeMessage(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.msg
	}
	return erpapi.ExtractMessage(err, DefaultErrorMessage)
}
