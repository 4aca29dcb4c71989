package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hashfleet/hashfleet/apitypes"
	"github.com/hashfleet/hashfleet/hashformat"
	"github.com/hashfleet/hashfleet/session"
	"github.com/hashfleet/hashfleet/storage"
)

func hashlistDTO(hashlist *storage.Hashlist) apitypes.HashlistDTO {
	dto := apitypes.HashlistDTO{
		ID:           hashlist.ID.String(),
		ProjectID:    hashlist.ProjectID.String(),
		Name:         hashlist.Name,
		HashType:     hashlist.HashType,
		HasUsernames: hashlist.HasUsernames,
		Version:      hashlist.Version,
		Hashes:       make([]apitypes.HashlistHashDTO, 0, len(hashlist.Hashes)),
	}
	for _, h := range hashlist.Hashes {
		dto.Hashes = append(dto.Hashes, apitypes.HashlistHashDTO{
			InputHash:      h.InputHash,
			NormalizedHash: h.NormalizedHash,
		})
	}
	return dto
}

// normalizeInput validates and normalizes the whole batch. One malformed hash
// rejects the batch; nothing is partially accepted.
func normalizeInput(inputHashes []string, hashType int, hasUsernames bool) ([]storage.HashlistHash, error) {
	normalized, err := hashformat.Normalize(inputHashes, hashType, hasUsernames)
	if err != nil {
		return nil, errBadRequest(err.Error())
	}

	hashes := make([]storage.HashlistHash, len(inputHashes))
	for i := range inputHashes {
		hashes[i] = storage.HashlistHash{
			InputHash:      inputHashes[i],
			NormalizedHash: normalized[i],
		}
	}
	return hashes, nil
}

// loadHashlistForUser resolves a hashlist through its project's access rules.
func (s *Server) loadHashlistForUser(c echo.Context, user *storage.User, rawID string) (*storage.Hashlist, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, errBadRequest("Invalid hashlist ID")
	}

	hashlist, err := s.hashlists.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, errNotFound("Hashlist not found")
		}
		return nil, errServer(err, "failed to load hashlist")
	}

	if _, err := s.loadProjectForUser(c, user, hashlist.ProjectID.String()); err != nil {
		return nil, errNotFound("Hashlist not found")
	}
	return hashlist, nil
}

func (s *Server) handleHashlistCreate(c echo.Context) error {
	sess := session.FromContext(c)
	user, err := s.currentUser(c, sess)
	if err != nil {
		return err
	}

	var req apitypes.HashlistCreateRequestDTO
	if err := c.Bind(&req); err != nil {
		return errBadRequest("Failed to parse request body")
	}
	if req.Name == "" {
		return errBadRequest("Hashlist name must not be empty")
	}
	if !hashformat.IsSupportedType(req.HashType) {
		return errBadRequest("Unsupported hash type")
	}

	project, err := s.loadProjectForUser(c, user, req.ProjectID)
	if err != nil {
		return err
	}

	hashes, err := normalizeInput(req.InputHashes, req.HashType, req.HasUsernames)
	if err != nil {
		return err
	}

	hashlist := &storage.Hashlist{
		ID:           uuid.New(),
		ProjectID:    project.ID,
		Name:         req.Name,
		HashType:     req.HashType,
		HasUsernames: req.HasUsernames,
		Version:      1,
		Hashes:       hashes,
	}
	if err := s.hashlists.Create(c.Request().Context(), hashlist); err != nil {
		return errServer(err, "failed to create hashlist")
	}

	return c.JSON(http.StatusCreated, apitypes.HashlistCreateResponseDTO{ID: hashlist.ID.String()})
}

func (s *Server) handleHashlistGet(c echo.Context) error {
	sess := session.FromContext(c)
	user, err := s.currentUser(c, sess)
	if err != nil {
		return err
	}

	hashlist, err := s.loadHashlistForUser(c, user, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hashlistDTO(hashlist))
}

// handleHashlistAppend adds hashes to an existing list, skipping any already
// present, and reports how many were genuinely new.
func (s *Server) handleHashlistAppend(c echo.Context) error {
	sess := session.FromContext(c)
	user, err := s.currentUser(c, sess)
	if err != nil {
		return err
	}

	hashlist, err := s.loadHashlistForUser(c, user, c.Param("id"))
	if err != nil {
		return err
	}

	var req apitypes.HashlistAppendRequestDTO
	if err := c.Bind(&req); err != nil {
		return errBadRequest("Failed to parse request body")
	}

	hashes, err := normalizeInput(req.InputHashes, hashlist.HashType, hashlist.HasUsernames)
	if err != nil {
		return err
	}

	inserted, err := s.hashlists.AppendHashes(c.Request().Context(), hashlist.ID, hashes)
	if err != nil {
		return errServer(err, "failed to append hashes")
	}

	return c.JSON(http.StatusOK, apitypes.HashlistAppendResponseDTO{NumNewHashes: inserted})
}

func (s *Server) handleHashlistsForProject(c echo.Context) error {
	sess := session.FromContext(c)
	user, err := s.currentUser(c, sess)
	if err != nil {
		return err
	}

	project, err := s.loadProjectForUser(c, user, c.Param("id"))
	if err != nil {
		return err
	}

	hashlists, err := s.hashlists.ListForProject(c.Request().Context(), project.ID)
	if err != nil {
		return errServer(err, "failed to list hashlists")
	}

	dtos := make([]apitypes.HashlistDTO, 0, len(hashlists))
	for _, hashlist := range hashlists {
		dtos = append(dtos, hashlistDTO(hashlist))
	}
	return c.JSON(http.StatusOK, dtos)
}
