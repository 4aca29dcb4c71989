package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/hashfleet/hashfleet/apitypes"
	"github.com/hashfleet/hashfleet/password"
	"github.com/hashfleet/hashfleet/roles"
	"github.com/hashfleet/hashfleet/session"
	"github.com/hashfleet/hashfleet/storage"
)

func (s *Server) requireAdmin(c echo.Context) (*storage.User, error) {
	sess := session.FromContext(c)
	user, err := s.currentUser(c, sess)
	if err != nil {
		return nil, err
	}
	if !user.HasRole(roles.Admin) {
		return nil, errForbidden("You are not permitted to manage users")
	}
	return user, nil
}

func (s *Server) handleUserCreate(c echo.Context) error {
	if _, err := s.requireAdmin(c); err != nil {
		return err
	}

	var req apitypes.UserCreateRequestDTO
	if err := c.Bind(&req); err != nil {
		return errBadRequest("Failed to parse request body")
	}

	if storage.NormalizeUsername(req.Username) == "" {
		return errBadRequest("Username must not be empty")
	}
	if !roles.AreAssignable(req.Roles) {
		return errBadRequest("One or more of the given roles cannot be assigned")
	}
	if ok, feedback := password.ValidateStrength(req.Password); !ok {
		return errBadRequest(feedback)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return errServer(err, "failed to hash password")
	}

	user := &storage.User{
		ID:           uuid.New(),
		Username:     req.Username,
		PasswordHash: hash,
		Roles:        req.Roles,
	}
	if err := s.users.Create(c.Request().Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicateUsername) {
			return errBadRequest("A user with that username already exists")
		}
		return errServer(err, "failed to create user")
	}

	log.Info().Str("username", user.Username).Msg("user created")
	return c.JSON(http.StatusCreated, apitypes.UserCreateResponseDTO{
		ID:       user.ID.String(),
		Username: user.Username,
		Roles:    user.Roles,
	})
}

func (s *Server) handleUserGetAll(c echo.Context) error {
	if _, err := s.requireAdmin(c); err != nil {
		return err
	}

	users, err := s.users.List(c.Request().Context())
	if err != nil {
		return errServer(err, "failed to list users")
	}

	resp := apitypes.UsersGetAllResponseDTO{Users: make([]apitypes.UserDTO, 0, len(users))}
	for _, user := range users {
		resp.Users = append(resp.Users, apitypes.UserDTO{
			ID:       user.ID.String(),
			Username: user.Username,
			Roles:    user.Roles,
		})
	}
	return c.JSON(http.StatusOK, resp)
}
