package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/hashfleet/hashfleet/apitypes"
)

// AuthGateway is the request/response mapping for the server's auth
// operations. It never retries and never swallows errors; classification
// happens in the Transport and the gateway forwards it unchanged, so the
// enumeration-resistant "Invalid credentials" message reaches the caller
// exactly as the server produced it.
type AuthGateway struct {
	transport *Transport
}

func NewAuthGateway(transport *Transport) *AuthGateway {
	return &AuthGateway{transport: transport}
}

func (g *AuthGateway) Login(ctx context.Context, username, password string) (*apitypes.AuthLoginResponseDTO, error) {
	var resp apitypes.AuthLoginResponseDTO
	err := g.transport.Do(ctx, http.MethodPost, "/api/v1/auth/login/credentials", apitypes.AuthLoginRequestDTO{
		Username: username,
		Password: password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// LoginWithOIDCCallback forwards the identity provider's callback query
// string to the server, which finishes the code exchange.
func (g *AuthGateway) LoginWithOIDCCallback(ctx context.Context, querystring string) (*apitypes.AuthLoginResponseDTO, error) {
	if querystring != "" && !strings.HasPrefix(querystring, "?") {
		querystring = "?" + querystring
	}

	var resp apitypes.AuthLoginResponseDTO
	err := g.transport.Do(ctx, http.MethodPost, "/api/v1/auth/login/oidc/callback"+querystring, nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh slides the session window and returns the server's view of the
// current identity. Idempotent; fails with an AuthError when no valid
// session cookie is held.
func (g *AuthGateway) Refresh(ctx context.Context) (*apitypes.AuthWhoamiResponseDTO, error) {
	var resp apitypes.AuthWhoamiResponseDTO
	if err := g.transport.Do(ctx, http.MethodPut, "/api/v1/auth/refresh", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (g *AuthGateway) Logout(ctx context.Context) error {
	var ack string
	return g.transport.Do(ctx, http.MethodPost, "/api/v1/auth/logout", nil, &ack)
}

// ChangeTemporaryPassword rotates a temporary or expired password. Only
// meaningful while the server reports requires_password_change; this is a
// distinct endpoint from the voluntary ChangeAccountPassword and the two are
// not interchangeable.
func (g *AuthGateway) ChangeTemporaryPassword(ctx context.Context, oldPassword, newPassword string) error {
	var ack string
	return g.transport.Do(ctx, http.MethodPost, "/api/v1/auth/change-temporary-password", apitypes.AuthChangePasswordRequestDTO{
		OldPassword: oldPassword,
		NewPassword: newPassword,
	}, &ack)
}

// ChangeAccountPassword is the voluntary password change for a fully
// authenticated session.
func (g *AuthGateway) ChangeAccountPassword(ctx context.Context, currentPassword, newPassword string) error {
	var ack string
	return g.transport.Do(ctx, http.MethodPut, "/api/v1/account/change-password", apitypes.AccountChangePasswordRequestDTO{
		CurrentPassword: currentPassword,
		NewPassword:     newPassword,
	}, &ack)
}
