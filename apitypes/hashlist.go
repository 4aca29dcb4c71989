package apitypes

type HashlistCreateRequestDTO struct {
	ProjectID    string   `json:"project_id"`
	Name         string   `json:"name"`
	HashType     int      `json:"hash_type"`
	HasUsernames bool     `json:"has_usernames"`
	InputHashes  []string `json:"input_hashes"`
}

type HashlistCreateResponseDTO struct {
	ID string `json:"id"`
}

type HashlistHashDTO struct {
	InputHash      string `json:"input_hash"`
	NormalizedHash string `json:"normalized_hash"`
}

type HashlistDTO struct {
	ID           string            `json:"id"`
	ProjectID    string            `json:"project_id"`
	Name         string            `json:"name"`
	HashType     int               `json:"hash_type"`
	HasUsernames bool              `json:"has_usernames"`
	Version      int               `json:"version"`
	Hashes       []HashlistHashDTO `json:"hashes"`
}

type HashlistAppendRequestDTO struct {
	InputHashes []string `json:"input_hashes"`
}

type HashlistAppendResponseDTO struct {
	NumNewHashes int `json:"num_new_hashes"`
}
