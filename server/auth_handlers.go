package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog/log"

	"github.com/hashfleet/hashfleet/apitypes"
	"github.com/hashfleet/hashfleet/password"
	"github.com/hashfleet/hashfleet/roles"
	"github.com/hashfleet/hashfleet/session"
	"github.com/hashfleet/hashfleet/storage"
)

// dummyBcryptHash is compared against when the username is unknown, so the
// unknown-user and wrong-password paths cost the same.
const dummyBcryptHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

func (s *Server) currentUser(c echo.Context, sess *session.Data) (*storage.User, error) {
	userID, err := uuid.Parse(sess.UserID)
	if err != nil {
		return nil, errServer(err, "session carries a malformed user id")
	}
	user, err := s.users.GetByID(c.Request().Context(), userID)
	if err != nil {
		// the account behind the session is gone; the session is dead
		_ = s.sessions.Destroy(c)
		return nil, echo.NewHTTPError(http.StatusUnauthorized, apitypes.ErrorResponseDTO{
			Message: "Session is invalid or expired",
			Code:    apitypes.ErrorCodeSessionExpired,
		})
	}
	return user, nil
}

func (s *Server) identityResponse(user *storage.User, sess *session.Data) apitypes.AuthWhoamiResponseDTO {
	return apitypes.AuthWhoamiResponseDTO{
		User: apitypes.AuthCurrentUserDTO{
			ID:       user.ID.String(),
			Username: user.Username,
			Roles:    user.Roles,
		},
		IsAwaitingMFA:          user.HasRole(roles.MFAEnrolled) && !sess.HasCompletedMFA,
		RequiresPasswordChange: user.HasRole(roles.RequiresPasswordChange),
		RequiresMFAEnrollment: s.cfg.MFARequired &&
			!user.HasRole(roles.MFAEnrolled) && !user.HasRole(roles.MFAExempt),
	}
}

// padToMinDelay sleeps out the remainder of the configured minimum login
// duration, so response timing does not leak which check failed.
func (s *Server) padToMinDelay(start time.Time) {
	if remaining := s.cfg.LoginMinDelay() - time.Since(start); remaining > 0 {
		time.Sleep(remaining)
	}
}

func (s *Server) handleLoginCredentials(c echo.Context) error {
	start := time.Now()

	var req apitypes.AuthLoginRequestDTO
	if err := c.Bind(&req); err != nil {
		return errBadRequest("Failed to parse request body")
	}

	user, err := s.users.GetByUsername(c.Request().Context(), req.Username)
	if err != nil {
		_ = s.hasher.Verify(dummyBcryptHash, req.Password)
		s.padToMinDelay(start)
		return errInvalidCredentials()
	}

	if err := s.hasher.Verify(user.PasswordHash, req.Password); err != nil {
		s.padToMinDelay(start)
		return errInvalidCredentials()
	}

	sess := session.Data{UserID: user.ID.String()}
	if err := s.sessions.Start(c, sess); err != nil {
		return errServer(err, "failed to start session")
	}

	log.Info().Str("username", user.Username).Msg("user logged in")
	s.padToMinDelay(start)

	resp := s.identityResponse(user, &sess)
	return c.JSON(http.StatusOK, apitypes.AuthLoginResponseDTO(resp))
}

func (s *Server) handleWhoami(c echo.Context) error {
	sess := session.FromContext(c)
	user, err := s.currentUser(c, sess)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.identityResponse(user, sess))
}

func (s *Server) handleRefresh(c echo.Context) error {
	sess := session.FromContext(c)
	user, err := s.currentUser(c, sess)
	if err != nil {
		return err
	}
	if err := s.sessions.Refresh(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.identityResponse(user, sess))
}

func (s *Server) handleLogout(c echo.Context) error {
	if err := s.sessions.Destroy(c); err != nil {
		return errServer(err, "failed to destroy session")
	}
	return c.JSON(http.StatusOK, "Goodbye")
}

// handleChangeTemporaryPassword rotates a password the server has flagged for
// forced change. It is the only data-changing endpoint reachable while the
// requires_password_change gate is up.
func (s *Server) handleChangeTemporaryPassword(c echo.Context) error {
	sess := session.FromContext(c)
	user, err := s.currentUser(c, sess)
	if err != nil {
		return err
	}
	if !user.HasRole(roles.RequiresPasswordChange) {
		return errBadRequest("No password change is required")
	}

	var req apitypes.AuthChangePasswordRequestDTO
	if err := c.Bind(&req); err != nil {
		return errBadRequest("Failed to parse request body")
	}

	if err := s.hasher.Verify(user.PasswordHash, req.OldPassword); err != nil {
		return errBadRequest("Old password was incorrect")
	}
	if req.NewPassword == req.OldPassword {
		return errBadRequest("New password must be different to old password")
	}
	if ok, feedback := password.ValidateStrength(req.NewPassword); !ok {
		return errBadRequest(feedback)
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return errServer(err, "failed to hash password")
	}
	user.PasswordHash = hash
	user.Roles = roles.Remove(user.Roles, roles.RequiresPasswordChange)
	if err := s.users.Update(c.Request().Context(), user); err != nil {
		return errServer(err, "failed to update user")
	}

	// the credential changed, re-key the session
	if err := s.sessions.Rotate(c); err != nil {
		return errServer(err, "failed to rotate session")
	}

	log.Info().Str("username", user.Username).Msg("temporary password rotated")
	return c.JSON(http.StatusOK, "Password changed")
}

func (s *Server) handleMFAStartEnrollment(c echo.Context) error {
	sess := session.FromContext(c)
	user, err := s.currentUser(c, sess)
	if err != nil {
		return err
	}
	if user.HasRole(roles.MFAEnrolled) {
		return errBadRequest("Multi-factor authentication is already enrolled")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "hashfleet",
		AccountName: user.Username,
	})
	if err != nil {
		return errServer(err, "failed to generate totp key")
	}

	if err := s.sessions.UpdateData(c, func(d *session.Data) error {
		d.PendingMFASecret = key.Secret()
		return nil
	}); err != nil {
		return errServer(err, "failed to stash pending mfa secret")
	}

	return c.JSON(http.StatusOK, apitypes.AuthMFAStartEnrollmentResponseDTO{
		Secret:     key.Secret(),
		OTPAuthURL: key.URL(),
	})
}

func (s *Server) handleMFAFinishEnrollment(c echo.Context) error {
	sess := session.FromContext(c)
	user, err := s.currentUser(c, sess)
	if err != nil {
		return err
	}
	if sess.PendingMFASecret == "" {
		return errBadRequest("No enrollment is in progress")
	}

	var req apitypes.AuthMFACodeRequestDTO
	if err := c.Bind(&req); err != nil {
		return errBadRequest("Failed to parse request body")
	}
	if !totp.Validate(req.Code, sess.PendingMFASecret) {
		return errBadRequest("Incorrect code")
	}

	user.MFASecret = sess.PendingMFASecret
	if !user.HasRole(roles.MFAEnrolled) {
		user.Roles = append(user.Roles, roles.MFAEnrolled)
	}
	if err := s.users.Update(c.Request().Context(), user); err != nil {
		return errServer(err, "failed to update user")
	}

	if err := s.sessions.UpdateData(c, func(d *session.Data) error {
		d.PendingMFASecret = ""
		d.HasCompletedMFA = true
		return nil
	}); err != nil {
		return errServer(err, "failed to update session")
	}
	if err := s.sessions.Rotate(c); err != nil {
		return errServer(err, "failed to rotate session")
	}

	log.Info().Str("username", user.Username).Msg("totp enrolled")
	sess = session.FromContext(c)
	return c.JSON(http.StatusOK, s.identityResponse(user, sess))
}

func (s *Server) handleMFAChallenge(c echo.Context) error {
	sess := session.FromContext(c)
	user, err := s.currentUser(c, sess)
	if err != nil {
		return err
	}
	if user.MFASecret == "" {
		return errBadRequest("Multi-factor authentication is not enrolled")
	}

	var req apitypes.AuthMFACodeRequestDTO
	if err := c.Bind(&req); err != nil {
		return errBadRequest("Failed to parse request body")
	}
	if !totp.Validate(req.Code, user.MFASecret) {
		return echo.NewHTTPError(http.StatusUnauthorized, apitypes.ErrorResponseDTO{
			Message: "Incorrect code",
			Code:    apitypes.ErrorCodeInvalidCredentials,
		})
	}

	if err := s.sessions.UpdateData(c, func(d *session.Data) error {
		d.HasCompletedMFA = true
		return nil
	}); err != nil {
		return errServer(err, "failed to update session")
	}
	// privilege level changed, re-key the session
	if err := s.sessions.Rotate(c); err != nil {
		return errServer(err, "failed to rotate session")
	}

	sess = session.FromContext(c)
	return c.JSON(http.StatusOK, s.identityResponse(user, sess))
}
