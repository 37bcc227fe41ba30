package alist

import (
	"errors"
	"fmt"
)

// ErrCredentialUnavailable means no credential source (override token or
// configured password) could yield anything to log in with. No network
// call is made in this case.
var ErrCredentialUnavailable = errors.New("alist: no credential configured (set alist.password or alist.token)")

// AuthError is a login or authorization rejection from the alist server,
// carrying the server-provided code and message.
type AuthError struct {
	Code    int
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("alist: auth rejected (code %d): %s", e.Code, e.Message)
}

// APIError is a non-auth failure code returned in the alist response body.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("alist: api error (code %d): %s", e.Code, e.Message)
}

// isAuthCode reports whether an alist body code means the token was
// rejected and a refresh should be attempted.
func isAuthCode(code int) bool {
	return code == 401 || code == 403
}
