package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/zitadel/oidc/v3/pkg/client/rp"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/hashfleet/hashfleet/apitypes"
	"github.com/hashfleet/hashfleet/roles"
	"github.com/hashfleet/hashfleet/session"
	"github.com/hashfleet/hashfleet/storage"
)

const oidcStateCookie = "hashfleet_oidc_state"

// handleOIDCRedirect starts the authorization code flow: it pins a random
// state in a short-lived cookie and bounces the browser to the provider.
func (s *Server) handleOIDCRedirect(c echo.Context) error {
	if s.oidcRP == nil {
		return errBadRequest("OIDC login is not configured")
	}

	state := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     oidcStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   c.Scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})

	return c.Redirect(http.StatusFound, rp.AuthURL(state, s.oidcRP))
}

// handleOIDCCallback finishes the code exchange and turns the provider
// identity into a local session.
func (s *Server) handleOIDCCallback(c echo.Context) error {
	if s.oidcRP == nil {
		return errBadRequest("OIDC login is not configured")
	}

	stateCookie, err := c.Cookie(oidcStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != c.QueryParam("state") {
		return errBadRequest("OIDC state mismatch")
	}

	code := c.QueryParam("code")
	if code == "" {
		return errBadRequest("Missing authorization code")
	}

	tokens, err := rp.CodeExchange[*oidc.IDTokenClaims](c.Request().Context(), code, s.oidcRP)
	if err != nil {
		log.Warn().Err(err).Msg("oidc code exchange failed")
		return errInvalidCredentials()
	}

	username := tokens.IDTokenClaims.PreferredUsername
	if username == "" {
		username = tokens.IDTokenClaims.Email
	}
	if username == "" {
		return errBadRequest("Identity provider supplied no usable username")
	}

	user, err := s.users.GetByUsername(c.Request().Context(), username)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return errServer(err, "failed to look up oidc user")
		}
		if !s.cfg.OIDCAutoProvision {
			return errInvalidCredentials()
		}
		// first OIDC login; the account has no local password
		user = &storage.User{
			ID:       uuid.New(),
			Username: username,
			Roles:    []string{roles.Standard},
		}
		if err := s.users.Create(c.Request().Context(), user); err != nil {
			return errServer(err, "failed to provision oidc user")
		}
		log.Info().Str("username", username).Msg("provisioned user from oidc identity")
	}

	sess := session.Data{UserID: user.ID.String()}
	if err := s.sessions.Start(c, sess); err != nil {
		return errServer(err, "failed to start session")
	}

	log.Info().Str("username", user.Username).Msg("user logged in via oidc")
	resp := s.identityResponse(user, &sess)
	return c.JSON(http.StatusOK, apitypes.AuthLoginResponseDTO(resp))
}
