package ninjaauth

import (
	"errors"
	"net/http"
)

// Error codes returned to callers. They drive the next UI state, so they are
// part of the public contract.
const (
	ErrCodeInvalidCredentials           = "invalid_credentials"
	ErrCodeDuplicateIdentity            = "duplicate_identity"
	ErrCodeUnauthenticated              = "unauthenticated"
	ErrCodeInvalidOrExpiredToken        = "invalid_or_expired_token"
	ErrCodeIdentityMismatch             = "identity_mismatch"
	ErrCodePasswordConfirmationMismatch = "password_confirmation_mismatch"
	ErrCodeTokenIssuanceFailed          = "token_issuance_failed"
	ErrCodeStoreUnavailable             = "store_unavailable"
	ErrCodeMailDeliveryFailed           = "mail_delivery_failed"
	ErrCodeMissingField                 = "missing_field"
	ErrCodeInvalidEmail                 = "invalid_email"
	ErrCodeWeakPassword                 = "weak_password"
	ErrCodeInvalidProfile               = "invalid_profile"
)

// AuthError is a caller-visible failure. Two AuthErrors match under
// errors.Is when their codes are equal, so handlers can attach a field or a
// friendlier message without breaking comparisons against the sentinels.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Field   string `json:"field,omitempty"`
}

func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidCredentials           = NewAuthError(ErrCodeInvalidCredentials, "Invalid email or password", "")
	ErrDuplicateIdentity            = NewAuthError(ErrCodeDuplicateIdentity, "Email is already registered", "email")
	ErrUnauthenticated              = NewAuthError(ErrCodeUnauthenticated, "Login required", "")
	ErrInvalidOrExpiredToken        = NewAuthError(ErrCodeInvalidOrExpiredToken, "Invalid or expired token", "token")
	ErrIdentityMismatch             = NewAuthError(ErrCodeIdentityMismatch, "Token does not belong to this account", "email")
	ErrPasswordConfirmationMismatch = NewAuthError(ErrCodePasswordConfirmationMismatch, "Passwords do not match", "confirm_password")
	ErrTokenIssuanceFailed          = NewAuthError(ErrCodeTokenIssuanceFailed, "Could not issue recovery token", "")
	ErrStoreUnavailable             = NewAuthError(ErrCodeStoreUnavailable, "Service temporarily unavailable", "")
	ErrMailDeliveryFailed           = NewAuthError(ErrCodeMailDeliveryFailed, "Mail delivery failed", "")
	ErrInvalidProfile               = NewAuthError(ErrCodeInvalidProfile, "Identity provider did not return an email", "email")
)

// ErrUserNotFound is returned by stores when no user matches. The core never
// passes it to callers as is.
var ErrUserNotFound = errors.New("user not found")

// StatusCode maps an error to the HTTP status the handlers respond with.
func StatusCode(err error) int {
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		return http.StatusInternalServerError
	}
	switch authErr.Code {
	case ErrCodeInvalidCredentials, ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case ErrCodeDuplicateIdentity:
		return http.StatusConflict
	case ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeTokenIssuanceFailed, ErrCodeMailDeliveryFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
