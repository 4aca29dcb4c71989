package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashfleet/hashfleet/apitypes"
)

type fakeGateway struct {
	mu sync.Mutex

	loginFn   func(ctx context.Context, username, password string) (*apitypes.AuthLoginResponseDTO, error)
	refreshFn func(ctx context.Context) (*apitypes.AuthWhoamiResponseDTO, error)
	logoutFn  func(ctx context.Context) error

	refreshCalls int
	logoutCalls  int
}

func (f *fakeGateway) Login(ctx context.Context, username, password string) (*apitypes.AuthLoginResponseDTO, error) {
	return f.loginFn(ctx, username, password)
}

func (f *fakeGateway) LoginWithOIDCCallback(ctx context.Context, _ string) (*apitypes.AuthLoginResponseDTO, error) {
	return f.loginFn(ctx, "", "")
}

func (f *fakeGateway) Refresh(ctx context.Context) (*apitypes.AuthWhoamiResponseDTO, error) {
	f.mu.Lock()
	f.refreshCalls++
	f.mu.Unlock()
	return f.refreshFn(ctx)
}

func (f *fakeGateway) Logout(ctx context.Context) error {
	f.mu.Lock()
	f.logoutCalls++
	f.mu.Unlock()
	if f.logoutFn != nil {
		return f.logoutFn(ctx)
	}
	return nil
}

func (f *fakeGateway) ChangeTemporaryPassword(context.Context, string, string) error { return nil }
func (f *fakeGateway) ChangeAccountPassword(context.Context, string, string) error  { return nil }

func (f *fakeGateway) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

func loginOK(flags ...func(*apitypes.AuthLoginResponseDTO)) func(context.Context, string, string) (*apitypes.AuthLoginResponseDTO, error) {
	return func(context.Context, string, string) (*apitypes.AuthLoginResponseDTO, error) {
		resp := &apitypes.AuthLoginResponseDTO{
			User: apitypes.AuthCurrentUserDTO{ID: "u1", Username: "alice", Roles: []string{"standard"}},
		}
		for _, fn := range flags {
			fn(resp)
		}
		return resp, nil
	}
}

func whoamiOK() func(context.Context) (*apitypes.AuthWhoamiResponseDTO, error) {
	return func(context.Context) (*apitypes.AuthWhoamiResponseDTO, error) {
		return &apitypes.AuthWhoamiResponseDTO{
			User: apitypes.AuthCurrentUserDTO{ID: "u1", Username: "alice", Roles: []string{"standard"}},
		}, nil
	}
}

func TestInitialStateIsUnknown(t *testing.T) {
	store := NewSessionStore(&fakeGateway{})

	assert.Equal(t, StateUnknown, store.State())
	assert.False(t, store.HasTriedAuth())
	assert.False(t, store.IsLoggedIn())
	assert.Empty(t, store.LastError())
}

func TestLoginSuccess(t *testing.T) {
	gw := &fakeGateway{loginFn: loginOK()}
	store := NewSessionStore(gw)

	require.NoError(t, store.Login(context.Background(), "alice", "pw"))

	assert.Equal(t, StateAuthenticated, store.State())
	assert.True(t, store.HasTriedAuth())
	assert.True(t, store.HasCompletedAuth())
	assert.True(t, store.IsLoggedIn())
	assert.False(t, store.IsLoginLoading())

	user := store.LoggedInUser()
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, store.HasRole("standard"))
	assert.False(t, store.IsAdmin())
}

func TestLoginFailure(t *testing.T) {
	gw := &fakeGateway{
		loginFn: func(context.Context, string, string) (*apitypes.AuthLoginResponseDTO, error) {
			return nil, &AuthError{Message: "Invalid credentials", Code: apitypes.ErrorCodeInvalidCredentials}
		},
	}
	store := NewSessionStore(gw)

	err := store.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)

	assert.Equal(t, StateUnauthenticated, store.State())
	assert.True(t, store.HasTriedAuth())
	assert.Nil(t, store.LoggedInUser())
	assert.Equal(t, "Invalid credentials", store.LastError())
}

func TestLoginClearsStaleError(t *testing.T) {
	failing := func(context.Context, string, string) (*apitypes.AuthLoginResponseDTO, error) {
		return nil, &AuthError{Message: "Invalid credentials"}
	}
	gw := &fakeGateway{loginFn: failing}
	store := NewSessionStore(gw)

	_ = store.Login(context.Background(), "alice", "wrong")
	require.NotEmpty(t, store.LastError())

	gw.loginFn = loginOK()
	require.NoError(t, store.Login(context.Background(), "alice", "right"))
	assert.Empty(t, store.LastError())
}

func TestStatePrecedence(t *testing.T) {
	tests := []struct {
		name                   string
		awaitingMFA            bool
		requiresPasswordChange bool
		requiresMFAEnrollment  bool
		want                   State
	}{
		{"no flags", false, false, false, StateAuthenticated},
		{"password change only", false, true, false, StateAwaitingPasswordChange},
		{"mfa challenge only", true, false, false, StateAwaitingMFAChallenge},
		{"mfa enrollment only", false, false, true, StateAwaitingMFAEnrollment},
		{"password change outranks mfa challenge", true, true, false, StateAwaitingPasswordChange},
		{"password change outranks enrollment", false, true, true, StateAwaitingPasswordChange},
		{"challenge outranks enrollment", true, false, true, StateAwaitingMFAChallenge},
		{"all flags", true, true, true, StateAwaitingPasswordChange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{loginFn: loginOK(func(r *apitypes.AuthLoginResponseDTO) {
				r.IsAwaitingMFA = tt.awaitingMFA
				r.RequiresPasswordChange = tt.requiresPasswordChange
				r.RequiresMFAEnrollment = tt.requiresMFAEnrollment
			})}
			store := NewSessionStore(gw)
			require.NoError(t, store.Login(context.Background(), "alice", "pw"))

			assert.Equal(t, tt.want, store.State())
			assert.Equal(t, tt.want == StateAuthenticated, store.HasCompletedAuth())
			assert.True(t, store.IsLoggedIn(), "a gated session is still logged in")
		})
	}
}

func TestRefreshSuccess(t *testing.T) {
	gw := &fakeGateway{refreshFn: whoamiOK()}
	store := NewSessionStore(gw)

	require.NoError(t, store.Refresh(context.Background()))

	assert.Equal(t, StateAuthenticated, store.State())
	assert.False(t, store.IsRefreshing())
	assert.Empty(t, store.LastError())
}

func TestConcurrentRefreshIsNoOp(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	gw := &fakeGateway{
		refreshFn: func(context.Context) (*apitypes.AuthWhoamiResponseDTO, error) {
			close(entered)
			<-release
			return whoamiOK()(context.Background())
		},
	}
	store := NewSessionStore(gw)

	done := make(chan error, 1)
	go func() { done <- store.Refresh(context.Background()) }()
	<-entered

	// a second refresh while one is outstanding returns immediately and
	// does not hit the gateway again
	require.NoError(t, store.Refresh(context.Background()))
	assert.Equal(t, 1, gw.refreshCount())
	assert.False(t, store.HasTriedAuth(), "the no-op call must not alter state")

	close(release)
	require.NoError(t, <-done)

	assert.False(t, store.IsRefreshing(), "guard must be released")
	assert.Equal(t, StateAuthenticated, store.State())

	// and a later refresh goes through again
	gw.refreshFn = whoamiOK()
	require.NoError(t, store.Refresh(context.Background()))
	assert.Equal(t, 2, gw.refreshCount())
}

func TestRefreshGuardReleasedOnFailure(t *testing.T) {
	gw := &fakeGateway{
		refreshFn: func(context.Context) (*apitypes.AuthWhoamiResponseDTO, error) {
			return nil, &AuthError{Message: "Session is invalid or expired", Code: apitypes.ErrorCodeSessionExpired}
		},
	}
	store := NewSessionStore(gw)

	require.Error(t, store.Refresh(context.Background()))
	assert.False(t, store.IsRefreshing())

	require.Error(t, store.Refresh(context.Background()))
	assert.Equal(t, 2, gw.refreshCount())
}

func TestFirstLoadSilentRefreshSuppressesError(t *testing.T) {
	gw := &fakeGateway{
		refreshFn: func(context.Context) (*apitypes.AuthWhoamiResponseDTO, error) {
			return nil, &AuthError{Message: "Authentication required", Code: apitypes.ErrorCodeAuthRequired}
		},
	}
	store := NewSessionStore(gw)

	require.Error(t, store.Refresh(context.Background()))

	// the failure resolved auth status, but silently
	assert.Equal(t, StateUnauthenticated, store.State())
	assert.True(t, store.HasTriedAuth())
	assert.Empty(t, store.LastError())
}

func TestExpiredSessionRefreshReportsTimeout(t *testing.T) {
	gw := &fakeGateway{loginFn: loginOK(), refreshFn: whoamiOK()}
	store := NewSessionStore(gw)
	require.NoError(t, store.Login(context.Background(), "alice", "pw"))

	gw.refreshFn = func(context.Context) (*apitypes.AuthWhoamiResponseDTO, error) {
		return nil, &AuthError{Message: "Session is invalid or expired", Code: apitypes.ErrorCodeSessionExpired}
	}
	require.Error(t, store.Refresh(context.Background()))

	assert.Equal(t, StateUnauthenticated, store.State())
	assert.Equal(t, SessionTimeoutMessage, store.LastError())
}

func TestLogoutThenRefreshIsNotATimeout(t *testing.T) {
	gw := &fakeGateway{loginFn: loginOK()}
	store := NewSessionStore(gw)
	require.NoError(t, store.Login(context.Background(), "alice", "pw"))

	store.Logout(context.Background())
	assert.Equal(t, 1, gw.logoutCalls)
	assert.Equal(t, StateUnauthenticated, store.State())
	assert.Empty(t, store.LastError())

	gw.refreshFn = func(context.Context) (*apitypes.AuthWhoamiResponseDTO, error) {
		return nil, &AuthError{Message: "Authentication required", Code: apitypes.ErrorCodeAuthRequired}
	}
	require.Error(t, store.Refresh(context.Background()))

	assert.NotEqual(t, SessionTimeoutMessage, store.LastError())
	assert.Empty(t, store.LastError())

	// the suppression is one-shot: a later involuntary failure after a
	// fresh login is reported again
	gw.refreshFn = whoamiOK()
	require.NoError(t, store.Login(context.Background(), "alice", "pw"))
	gw.refreshFn = func(context.Context) (*apitypes.AuthWhoamiResponseDTO, error) {
		return nil, &AuthError{Message: "Session is invalid or expired", Code: apitypes.ErrorCodeSessionExpired}
	}
	require.Error(t, store.Refresh(context.Background()))
	assert.Equal(t, SessionTimeoutMessage, store.LastError())
}

func TestLogoutIsLocallyEffectiveOnNetworkFailure(t *testing.T) {
	gw := &fakeGateway{
		loginFn:  loginOK(),
		logoutFn: func(context.Context) error { return &TransportError{Err: context.DeadlineExceeded} },
	}
	store := NewSessionStore(gw)
	require.NoError(t, store.Login(context.Background(), "alice", "pw"))

	store.Logout(context.Background())

	assert.Nil(t, store.LoggedInUser())
	assert.Equal(t, StateUnauthenticated, store.State())
	assert.Empty(t, store.LastError())
}

func TestLogoutDuringInFlightLogin(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	gw := &fakeGateway{
		loginFn: func(context.Context, string, string) (*apitypes.AuthLoginResponseDTO, error) {
			close(entered)
			<-release
			return loginOK()(context.Background(), "", "")
		},
	}
	store := NewSessionStore(gw)

	done := make(chan error, 1)
	go func() { done <- store.Login(context.Background(), "alice", "pw") }()
	<-entered

	// logout fires while the login is still in flight
	store.Logout(context.Background())
	assert.Nil(t, store.LoggedInUser())

	// the login resolution is not cancelled; last writer wins on session
	close(release)
	require.NoError(t, <-done)
	assert.True(t, store.IsLoggedIn())

	// the hasLoggedOut flag is still armed, so the eventual 401 from a
	// refresh against the logged-out cookie is not labelled a timeout
	gw.refreshFn = func(context.Context) (*apitypes.AuthWhoamiResponseDTO, error) {
		return nil, &AuthError{Message: "Session is invalid or expired", Code: apitypes.ErrorCodeSessionExpired}
	}
	require.Error(t, store.Refresh(context.Background()))
	assert.Empty(t, store.LastError())
	assert.Equal(t, StateUnauthenticated, store.State())
}

func TestPasswordChangeDoesNotMutateFlagsLocally(t *testing.T) {
	gw := &fakeGateway{loginFn: loginOK(func(r *apitypes.AuthLoginResponseDTO) {
		r.RequiresPasswordChange = true
	})}
	store := NewSessionStore(gw)
	require.NoError(t, store.Login(context.Background(), "admin", "changeme"))
	require.Equal(t, StateAwaitingPasswordChange, store.State())

	require.NoError(t, store.ChangeTemporaryPassword(context.Background(), "changeme", "a much stronger passphrase"))

	// the flag only clears after a follow-up round trip to the server
	assert.Equal(t, StateAwaitingPasswordChange, store.State())

	gw.refreshFn = whoamiOK()
	require.NoError(t, store.Refresh(context.Background()))
	assert.Equal(t, StateAuthenticated, store.State())
}

func TestRefreshNoOpReturnsQuickly(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	gw := &fakeGateway{
		refreshFn: func(context.Context) (*apitypes.AuthWhoamiResponseDTO, error) {
			close(entered)
			<-release
			return whoamiOK()(context.Background())
		},
	}
	store := NewSessionStore(gw)

	go func() { _ = store.Refresh(context.Background()) }()
	<-entered

	start := time.Now()
	require.NoError(t, store.Refresh(context.Background()))
	assert.Less(t, time.Since(start), time.Second, "no-op refresh must not wait for the in-flight one")
	close(release)
}
