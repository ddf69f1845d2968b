package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Outcomes visible to callers
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrSessionRejected      = errors.New("session rejected")

	// Login failure reasons (internal only)
	ErrLockedOut          = errors.New("too many failed login attempts")
	ErrInvalidCredentials = errors.New("invalid username or password")

	// Validation failure reasons (internal only)
	ErrTokenMalformed    = errors.New("token malformed")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenBadSignature = errors.New("token signature invalid")
	ErrSessionNotFound   = errors.New("session not found")
	ErrIPMismatch        = errors.New("client ip does not match session")
)

// reasonCodes maps internal failure reasons to the codes written to logs and audit records
var reasonCodes = map[error]string{
	ErrLockedOut:          "locked_out",
	ErrInvalidCredentials: "invalid_credentials",
	ErrTokenMalformed:     "token_malformed",
	ErrTokenExpired:       "token_expired",
	ErrTokenBadSignature:  "token_bad_signature",
	ErrSessionNotFound:    "session_not_found",
	ErrIPMismatch:         "ip_mismatch",
}

// AuthError pairs a caller-visible outcome with the internal reason behind it.
// Error() only ever returns the outcome text, so the reason cannot leak into
// responses by accident; errors.Is still matches both.
type AuthError struct {
	Outcome error
	Reason  error
}

// NewLoginFailure builds an ErrAuthenticationFailed error carrying reason
func NewLoginFailure(reason error) *AuthError {
	return &AuthError{Outcome: ErrAuthenticationFailed, Reason: reason}
}

// NewRejection builds an ErrSessionRejected error carrying reason
func NewRejection(reason error) *AuthError {
	return &AuthError{Outcome: ErrSessionRejected, Reason: reason}
}

func (e *AuthError) Error() string {
	return e.Outcome.Error()
}

func (e *AuthError) Unwrap() []error {
	return []error{e.Outcome, e.Reason}
}

// FailureReason returns the internal reason code for err, for logging only.
func FailureReason(err error) string {
	if err == nil {
		return ""
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		for reason, code := range reasonCodes {
			if errors.Is(authErr.Reason, reason) {
				return code
			}
		}
		return "unknown"
	}

	for reason, code := range reasonCodes {
		if errors.Is(err, reason) {
			return code
		}
	}
	return "internal"
}
