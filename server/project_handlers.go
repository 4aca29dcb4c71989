package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hashfleet/hashfleet/apitypes"
	"github.com/hashfleet/hashfleet/roles"
	"github.com/hashfleet/hashfleet/session"
	"github.com/hashfleet/hashfleet/storage"
)

func projectDTO(project *storage.Project) apitypes.ProjectDTO {
	return apitypes.ProjectDTO{
		ID:          project.ID.String(),
		Name:        project.Name,
		Description: project.Description,
		OwnerUserID: project.OwnerUserID.String(),
	}
}

// loadProjectForUser fetches a project the user may see. A project that does
// not exist and one owned by someone else produce the same 404, so project
// IDs cannot be probed.
func (s *Server) loadProjectForUser(c echo.Context, user *storage.User, rawID string) (*storage.Project, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, errBadRequest("Invalid project ID")
	}

	project, err := s.projects.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errNotFound("Project not found")
		}
		return nil, errServer(err, "failed to load project")
	}

	if project.OwnerUserID != user.ID && !user.HasRole(roles.Admin) {
		return nil, errNotFound("Project not found")
	}
	return project, nil
}

func (s *Server) handleProjectCreate(c echo.Context) error {
	sess := session.FromContext(c)
	user, err := s.currentUser(c, sess)
	if err != nil {
		return err
	}

	var req apitypes.ProjectCreateRequestDTO
	if err := c.Bind(&req); err != nil {
		return errBadRequest("Failed to parse request body")
	}
	if req.Name == "" {
		return errBadRequest("Project name must not be empty")
	}

	project := &storage.Project{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		OwnerUserID: user.ID,
	}
	if err := s.projects.Create(c.Request().Context(), project); err != nil {
		return errServer(err, "failed to create project")
	}

	return c.JSON(http.StatusCreated, projectDTO(project))
}

// handleProjectGetAll lists the caller's projects. Admins see everything;
// everyone else sees only what they own.
func (s *Server) handleProjectGetAll(c echo.Context) error {
	sess := session.FromContext(c)
	user, err := s.currentUser(c, sess)
	if err != nil {
		return err
	}

	var projects []*storage.Project
	if user.HasRole(roles.Admin) {
		projects, err = s.projects.ListAll(c.Request().Context())
	} else {
		projects, err = s.projects.ListForOwner(c.Request().Context(), user.ID)
	}
	if err != nil {
		return errServer(err, "failed to list projects")
	}

	resp := apitypes.ProjectGetAllResponseDTO{Projects: make([]apitypes.ProjectDTO, 0, len(projects))}
	for _, project := range projects {
		resp.Projects = append(resp.Projects, projectDTO(project))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleProjectGet(c echo.Context) error {
	sess := session.FromContext(c)
	user, err := s.currentUser(c, sess)
	if err != nil {
		return err
	}

	project, err := s.loadProjectForUser(c, user, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, projectDTO(project))
}

func (s *Server) handleProjectDelete(c echo.Context) error {
	sess := session.FromContext(c)
	user, err := s.currentUser(c, sess)
	if err != nil {
		return err
	}

	project, err := s.loadProjectForUser(c, user, c.Param("id"))
	if err != nil {
		return err
	}

	if err := s.projects.Delete(c.Request().Context(), project.ID); err != nil {
		return errServer(err, "failed to delete project")
	}
	return c.JSON(http.StatusOK, "Project deleted")
}
