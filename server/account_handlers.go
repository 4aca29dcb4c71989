package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/hashfleet/hashfleet/apitypes"
	"github.com/hashfleet/hashfleet/password"
	"github.com/hashfleet/hashfleet/session"
)

// handleAccountChangePassword is the voluntary rotation for a fully
// authenticated account. The forced-rotation gate blocks this endpoint, so it
// never doubles as the temporary-password flow.
func (s *Server) handleAccountChangePassword(c echo.Context) error {
	sess := session.FromContext(c)
	user, err := s.currentUser(c, sess)
	if err != nil {
		return err
	}

	var req apitypes.AccountChangePasswordRequestDTO
	if err := c.Bind(&req); err != nil {
		return errBadRequest("Failed to parse request body")
	}

	if err := s.hasher.Verify(user.PasswordHash, req.CurrentPassword); err != nil {
		return errBadRequest("Incorrect current password")
	}
	if req.NewPassword == req.CurrentPassword {
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
	if err := s.users.Update(c.Request().Context(), user); err != nil {
		return errServer(err, "failed to update user")
	}

	if err := s.sessions.Rotate(c); err != nil {
		return errServer(err, "failed to rotate session")
	}

	log.Info().Str("username", user.Username).Msg("account password changed")
	return c.JSON(http.StatusOK, "Password changed")
}
