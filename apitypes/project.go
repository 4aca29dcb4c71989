package apitypes

type ProjectCreateRequestDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ProjectDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerUserID string `json:"owner_user_id"`
}

type ProjectGetAllResponseDTO struct {
	Projects []ProjectDTO `json:"projects"`
}
