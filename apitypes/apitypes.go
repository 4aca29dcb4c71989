// Package apitypes holds the JSON wire types shared between the hashfleet
// server and its clients.
package apitypes

// Error codes carried in ErrorResponseDTO.Code. The status-code class remains
// the authoritative taxonomy signal; codes exist so clients can branch on the
// failure reason without matching message text.
const (
	ErrorCodeAuthRequired       = "auth_required"   // no session cookie presented at all
	ErrorCodeSessionExpired     = "session_expired" // a cookie was presented but the session is invalid or expired
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeValidation         = "validation"
	ErrorCodeForbidden          = "forbidden"
)

// ErrorResponseDTO is the body of every structured error the server emits.
type ErrorResponseDTO struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
