package client

import (
	"context"
	"errors"
	"sync"

	"github.com/hashfleet/hashfleet/apitypes"
	"github.com/hashfleet/hashfleet/roles"
)

// SessionTimeoutMessage is the user-facing message for an involuntary
// session loss. It is deliberately never produced for an explicit logout or
// for the silent first-load session check.
const SessionTimeoutMessage = "Session timeout"

const genericErrorMessage = "Something went wrong"

// Gateway is the slice of AuthGateway the SessionStore depends on,
// substitutable in tests.
type Gateway interface {
	Login(ctx context.Context, username, password string) (*apitypes.AuthLoginResponseDTO, error)
	LoginWithOIDCCallback(ctx context.Context, querystring string) (*apitypes.AuthLoginResponseDTO, error)
	Refresh(ctx context.Context) (*apitypes.AuthWhoamiResponseDTO, error)
	Logout(ctx context.Context) error
	ChangeTemporaryPassword(ctx context.Context, oldPassword, newPassword string) error
	ChangeAccountPassword(ctx context.Context, currentPassword, newPassword string) error
}

// User is the locally mirrored identity, exactly as the server declared it.
type User struct {
	ID       string
	Username string
	Roles    []string
}

// Session mirrors the server's view of the logged-in identity and its
// outstanding gating flags. A nil Session means no known authenticated
// identity.
type Session struct {
	User                   User
	AwaitingMFA            bool
	RequiresPasswordChange bool
	RequiresMFAEnrollment  bool
}

// State is the derived session lifecycle state. It is recomputed from the
// store's fields on every read, never cached.
type State int

const (
	// StateUnknown means no login or refresh has resolved yet. Consumers
	// must not treat it as unauthenticated: render a neutral state and
	// take no redirect action.
	StateUnknown State = iota
	StateUnauthenticated
	StateAwaitingPasswordChange
	StateAwaitingMFAEnrollment
	StateAwaitingMFAChallenge
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAwaitingPasswordChange:
		return "awaiting-password-change"
	case StateAwaitingMFAEnrollment:
		return "awaiting-mfa-enrollment"
	case StateAwaitingMFAChallenge:
		return "awaiting-mfa-challenge"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "invalid"
	}
}

// SessionStore holds the single authoritative in-memory session snapshot and
// reconciles it against gateway responses. Only the store writes these
// fields; everything else reads derived predicates.
type SessionStore struct {
	gateway Gateway

	mu             sync.Mutex
	session        *Session
	lastError      string
	isLoginLoading bool
	isRefreshing   bool
	hasTriedAuth   bool
	hasLoggedOut   bool
}

func NewSessionStore(gateway Gateway) *SessionStore {
	return &SessionStore{gateway: gateway}
}

// Login authenticates with credentials and reconciles the snapshot with the
// outcome. Any previous error is cleared when the attempt starts.
func (s *SessionStore) Login(ctx context.Context, username, password string) error {
	return s.runLogin(func() (*apitypes.AuthLoginResponseDTO, error) {
		return s.gateway.Login(ctx, username, password)
	})
}

// LoginWithOIDCCallback completes an external-identity login. Same state
// contract as Login.
func (s *SessionStore) LoginWithOIDCCallback(ctx context.Context, querystring string) error {
	return s.runLogin(func() (*apitypes.AuthLoginResponseDTO, error) {
		return s.gateway.LoginWithOIDCCallback(ctx, querystring)
	})
}

func (s *SessionStore) runLogin(call func() (*apitypes.AuthLoginResponseDTO, error)) error {
	s.mu.Lock()
	s.isLoginLoading = true
	s.lastError = ""
	s.mu.Unlock()

	resp, err := call()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.isLoginLoading = false
	s.hasTriedAuth = true

	if err != nil {
		s.session = nil
		s.lastError = userMessage(err)
		return err
	}

	s.session = snapshotFromResponse(resp.User, resp.IsAwaitingMFA, resp.RequiresPasswordChange, resp.RequiresMFAEnrollment)
	s.lastError = ""
	return nil
}

// Refresh reconciles the snapshot against the server's whoami view. At most
// one refresh is in flight at a time: a second call while one is
// outstanding returns immediately without waiting for or altering the
// outcome of the first.
func (s *SessionStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.isRefreshing {
		s.mu.Unlock()
		return nil
	}
	s.isRefreshing = true
	hadSession := s.session != nil
	s.mu.Unlock()

	resp, err := s.gateway.Refresh(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.isRefreshing = false }()
	s.hasTriedAuth = true

	if err != nil {
		// a failed refresh always clears any stale session rather than
		// leaving a possibly-invalid one cached
		s.session = nil

		var authErr *AuthError
		switch {
		case s.hasLoggedOut:
			// the user logged out on purpose; the resulting refresh
			// failure is not a timeout
			s.hasLoggedOut = false
			s.lastError = ""
		case errors.As(err, &authErr) && authErr.Code == apitypes.ErrorCodeAuthRequired && !hadSession:
			// silent first-load check: no session was ever presented,
			// so there is nothing to report
			s.lastError = ""
		default:
			s.lastError = SessionTimeoutMessage
		}
		return err
	}

	s.session = snapshotFromResponse(resp.User, resp.IsAwaitingMFA, resp.RequiresPasswordChange, resp.RequiresMFAEnrollment)
	s.lastError = ""
	return nil
}

// Logout is always locally effective: the session is cleared regardless of
// the network outcome, and hasLoggedOut is raised synchronously so a
// subsequent failed refresh is not misreported as a session timeout.
func (s *SessionStore) Logout(ctx context.Context) {
	s.mu.Lock()
	s.hasLoggedOut = true
	s.lastError = ""
	s.mu.Unlock()

	// best effort; local state clearance is the goal
	_ = s.gateway.Logout(ctx)

	s.mu.Lock()
	s.session = nil
	s.hasTriedAuth = true
	s.mu.Unlock()
}

// ChangeTemporaryPassword passes through to the gateway. On success the
// caller is expected to Refresh (or re-Login) to pick up the cleared flag;
// the store never mutates requires_password_change locally.
func (s *SessionStore) ChangeTemporaryPassword(ctx context.Context, oldPassword, newPassword string) error {
	s.setLastError("")
	if err := s.gateway.ChangeTemporaryPassword(ctx, oldPassword, newPassword); err != nil {
		s.setLastError(userMessage(err))
		return err
	}
	return nil
}

// ChangeAccountPassword passes through to the gateway, for a fully
// authenticated session only.
func (s *SessionStore) ChangeAccountPassword(ctx context.Context, currentPassword, newPassword string) error {
	s.setLastError("")
	if err := s.gateway.ChangeAccountPassword(ctx, currentPassword, newPassword); err != nil {
		s.setLastError(userMessage(err))
		return err
	}
	return nil
}

func (s *SessionStore) setLastError(msg string) {
	s.mu.Lock()
	s.lastError = msg
	s.mu.Unlock()
}

// State derives the lifecycle state. Password change takes precedence over
// MFA gating; the MFA challenge outranks enrollment.
func (s *SessionStore) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *SessionStore) stateLocked() State {
	switch {
	case !s.hasTriedAuth:
		return StateUnknown
	case s.session == nil:
		return StateUnauthenticated
	case s.session.RequiresPasswordChange:
		return StateAwaitingPasswordChange
	case s.session.AwaitingMFA:
		return StateAwaitingMFAChallenge
	case s.session.RequiresMFAEnrollment:
		return StateAwaitingMFAEnrollment
	default:
		return StateAuthenticated
	}
}

// IsLoggedIn reports whether any session exists, gated or not.
func (s *SessionStore) IsLoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil
}

// LoggedInUser returns a copy of the mirrored identity, or nil.
func (s *SessionStore) LoggedInUser() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	user := s.session.User
	user.Roles = append([]string(nil), s.session.User.Roles...)
	return &user
}

// HasCompletedAuth reports full authentication: a session with no
// outstanding gating flags.
func (s *SessionStore) HasCompletedAuth() bool {
	return s.State() == StateAuthenticated
}

func (s *SessionStore) IsAwaitingMFA() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil && s.session.AwaitingMFA
}

func (s *SessionStore) RequiresPasswordChange() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil && s.session.RequiresPasswordChange
}

func (s *SessionStore) RequiresMFAEnrollment() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil && s.session.RequiresMFAEnrollment
}

func (s *SessionStore) IsAdmin() bool {
	return s.HasRole(roles.Admin)
}

func (s *SessionStore) HasRole(role string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session != nil && roles.Contains(s.session.User.Roles, role)
}

// HasTriedAuth reports whether any login or refresh has resolved. Until it
// is true, auth status is unknown rather than unauthenticated, and route
// guards must not redirect to a login flow.
func (s *SessionStore) HasTriedAuth() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasTriedAuth
}

func (s *SessionStore) IsLoginLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLoginLoading
}

func (s *SessionStore) IsRefreshing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRefreshing
}

// LastError is the sole channel for surfacing authentication problems to
// the UI layer. Empty when the last attempt succeeded or its failure was
// deliberately suppressed.
func (s *SessionStore) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

func snapshotFromResponse(user apitypes.AuthCurrentUserDTO, awaitingMFA, requiresPasswordChange, requiresMFAEnrollment bool) *Session {
	return &Session{
		User: User{
			ID:       user.ID,
			Username: user.Username,
			Roles:    append([]string(nil), user.Roles...),
		},
		AwaitingMFA:            awaitingMFA,
		RequiresPasswordChange: requiresPasswordChange,
		RequiresMFAEnrollment:  requiresMFAEnrollment,
	}
}

// userMessage extracts a human-readable message from a classified error.
func userMessage(err error) string {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	var unknownErr *UnknownError
	if errors.As(err, &unknownErr) {
		return unknownErr.Error()
	}
	return genericErrorMessage
}
