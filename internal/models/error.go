package models

// APIError is the body of every non-OAuth error response
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

const (
	ErrUnauthorized     = "UNAUTHORIZED"
	ErrForbidden        = "FORBIDDEN"
	ErrNotFound         = "NOT_FOUND"
	ErrConflict         = "CONFLICT"
	ErrInternalServer   = "INTERNAL_SERVER_ERROR"
	ErrValidationFailed = "VALIDATION_FAILED"
	ErrTooManyRequests  = "TOO_MANY_REQUESTS"

	// RFC 6749 codes, kept lowercase
	ErrInvalidRequest = "invalid_request"
	ErrInvalidGrant   = "invalid_grant"
	ErrInvalidToken   = "invalid_token"
)

// NewAPIError builds an APIError; details holds per-field messages for validation failures
func NewAPIError(code, message string, details ...map[string]interface{}) APIError {
	err := APIError{Code: code, Message: message}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// OAuth2Error is the RFC 6749 error body used by the token middleware
type OAuth2Error struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func NewOAuth2Error(code, description string) OAuth2Error {
	return OAuth2Error{Error: code, ErrorDescription: description}
}
