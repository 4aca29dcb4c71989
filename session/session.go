// Package session manages server-side sessions: opaque session IDs stored in
// a pluggable backend, transported to the browser inside a signed, HttpOnly
// cookie. The middleware distinguishes "no session ever presented" from
// "session invalid or expired" via the error code in the response body, so
// clients never have to match on message text.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/labstack/echo/v4"
)

// ErrSessionNotFound is returned by stores when the session ID is unknown
// or has expired.
var ErrSessionNotFound = errors.New("session not found")

// Data is the server-side session payload.
type Data struct {
	UserID          string `json:"user_id"`
	HasCompletedMFA bool   `json:"has_completed_mfa"`
	// PendingMFASecret holds a TOTP secret generated by start-enrollment
	// until finish-enrollment confirms it.
	PendingMFASecret string `json:"pending_mfa_secret,omitempty"`
}

// Store persists session data keyed by opaque session ID.
type Store interface {
	Create(ctx context.Context, data Data, ttl time.Duration) (id string, err error)
	Get(ctx context.Context, id string) (*Data, error)
	Update(ctx context.Context, id string, fn func(*Data) error) error
	// Touch slides the expiry window forward.
	Touch(ctx context.Context, id string, ttl time.Duration) error
	// Rotate re-keys the session under a fresh ID, to mitigate fixation.
	Rotate(ctx context.Context, id string) (newID string, err error)
	Delete(ctx context.Context, id string) error
}

const (
	dataContextKey = "sess-data"
	idContextKey   = "sess-id"
)

// FromContext returns the session data attached by the middleware, or nil
// when the request carries no valid session.
func FromContext(c echo.Context) *Data {
	data, ok := c.Get(dataContextKey).(Data)
	if !ok {
		return nil
	}
	return &data
}

func idFromContext(c echo.Context) string {
	id, _ := c.Get(idContextKey).(string)
	return id
}

func newSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
