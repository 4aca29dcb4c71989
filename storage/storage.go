// Package storage defines the persistence model and repository contracts.
// Implementations: in-memory (this package) and MongoDB (storage/mongodb).
package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hashfleet/hashfleet/roles"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("a user with that username already exists")
)

type User struct {
	ID           uuid.UUID `bson:"_id" json:"id"`
	Username     string    `bson:"username" json:"username"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	Roles        []string  `bson:"roles" json:"roles"`
	MFASecret    string    `bson:"mfa_secret,omitempty" json:"-"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

func (u *User) HasRole(role string) bool {
	return roles.Contains(u.Roles, role)
}

type Project struct {
	ID          uuid.UUID `bson:"_id" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description" json:"description"`
	OwnerUserID uuid.UUID `bson:"owner_user_id" json:"owner_user_id"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

type HashlistHash struct {
	InputHash      string `bson:"input_hash" json:"input_hash"`
	NormalizedHash string `bson:"normalized_hash" json:"normalized_hash"`
}

type Hashlist struct {
	ID           uuid.UUID      `bson:"_id" json:"id"`
	ProjectID    uuid.UUID      `bson:"project_id" json:"project_id"`
	Name         string         `bson:"name" json:"name"`
	HashType     int            `bson:"hash_type" json:"hash_type"`
	HasUsernames bool           `bson:"has_usernames" json:"has_usernames"`
	Version      int            `bson:"version" json:"version"`
	Hashes       []HashlistHash `bson:"hashes" json:"hashes"`
	CreatedAt    time.Time      `bson:"created_at" json:"created_at"`
}

// NormalizeUsername lowercases and trims a username. All lookups and
// uniqueness checks operate on the normalized form, which makes uniqueness
// case- and whitespace-insensitive.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Update(ctx context.Context, user *User) error
	List(ctx context.Context) ([]*User, error)
	Count(ctx context.Context) (int64, error)
}

type ProjectRepository interface {
	Create(ctx context.Context, project *Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*Project, error)
	ListForOwner(ctx context.Context, ownerUserID uuid.UUID) ([]*Project, error)
	ListAll(ctx context.Context) ([]*Project, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type HashlistRepository interface {
	Create(ctx context.Context, hashlist *Hashlist) error
	GetByID(ctx context.Context, id uuid.UUID) (*Hashlist, error)
	ListForProject(ctx context.Context, projectID uuid.UUID) ([]*Hashlist, error)
	// AppendHashes adds hashes that are not already present (matched on
	// normalized form), preserving the order of existing entries, and
	// returns how many were actually inserted.
	AppendHashes(ctx context.Context, id uuid.UUID, hashes []HashlistHash) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
