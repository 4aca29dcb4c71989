package client

// The error taxonomy mirrors the server's status-code classes: 400-class
// failures are ValidationError, 401/403-class are AuthError, anything that
// never produced a structured response is TransportError, and the rest is
// UnknownError. The status class, not the message text, is the authoritative
// signal; AuthError additionally carries the server's error code so callers
// can branch on the failure reason without string matching.

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

type AuthError struct {
	Message string
	Code    string
}

func (e *AuthError) Error() string { return e.Message }

type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "request failed: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

type UnknownError struct {
	StatusCode int
	Message    string
}

func (e *UnknownError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "something went wrong"
}
