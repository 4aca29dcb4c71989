package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryUserRepository is a mutex-guarded in-memory UserRepository.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[uuid.UUID]*User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.Username = NormalizeUsername(user.Username)
	for _, existing := range r.users {
		if existing.Username == user.Username {
			return ErrDuplicateUsername
		}
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	username = NormalizeUsername(username)
	for _, user := range r.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryUserRepository) Update(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return ErrNotFound
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *MemoryUserRepository) List(_ context.Context) ([]*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*User, 0, len(r.users))
	for _, user := range r.users {
		clone := *user
		out = append(out, &clone)
	}
	return out, nil
}

func (r *MemoryUserRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.users)), nil
}

// MemoryProjectRepository is a mutex-guarded in-memory ProjectRepository.
type MemoryProjectRepository struct {
	mu       sync.RWMutex
	projects map[uuid.UUID]*Project
}

func NewMemoryProjectRepository() *MemoryProjectRepository {
	return &MemoryProjectRepository{projects: make(map[uuid.UUID]*Project)}
}

func (r *MemoryProjectRepository) Create(_ context.Context, project *Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now()
	}
	clone := *project
	r.projects[project.ID] = &clone
	return nil
}

func (r *MemoryProjectRepository) GetByID(_ context.Context, id uuid.UUID) (*Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	project, ok := r.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *project
	return &clone, nil
}

func (r *MemoryProjectRepository) ListForOwner(_ context.Context, ownerUserID uuid.UUID) ([]*Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*Project{}
	for _, project := range r.projects {
		if project.OwnerUserID == ownerUserID {
			clone := *project
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *MemoryProjectRepository) ListAll(_ context.Context) ([]*Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*Project{}
	for _, project := range r.projects {
		clone := *project
		out = append(out, &clone)
	}
	return out, nil
}

func (r *MemoryProjectRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[id]; !ok {
		return ErrNotFound
	}
	delete(r.projects, id)
	return nil
}

// MemoryHashlistRepository is a mutex-guarded in-memory HashlistRepository.
type MemoryHashlistRepository struct {
	mu        sync.RWMutex
	hashlists map[uuid.UUID]*Hashlist
}

func NewMemoryHashlistRepository() *MemoryHashlistRepository {
	return &MemoryHashlistRepository{hashlists: make(map[uuid.UUID]*Hashlist)}
}

func (r *MemoryHashlistRepository) Create(_ context.Context, hashlist *Hashlist) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if hashlist.ID == uuid.Nil {
		hashlist.ID = uuid.New()
	}
	if hashlist.CreatedAt.IsZero() {
		hashlist.CreatedAt = time.Now()
	}
	if hashlist.Version == 0 {
		hashlist.Version = 1
	}
	clone := *hashlist
	clone.Hashes = append([]HashlistHash(nil), hashlist.Hashes...)
	r.hashlists[hashlist.ID] = &clone
	return nil
}

func (r *MemoryHashlistRepository) GetByID(_ context.Context, id uuid.UUID) (*Hashlist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hashlist, ok := r.hashlists[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *hashlist
	clone.Hashes = append([]HashlistHash(nil), hashlist.Hashes...)
	return &clone, nil
}

func (r *MemoryHashlistRepository) ListForProject(_ context.Context, projectID uuid.UUID) ([]*Hashlist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*Hashlist{}
	for _, hashlist := range r.hashlists {
		if hashlist.ProjectID == projectID {
			clone := *hashlist
			clone.Hashes = append([]HashlistHash(nil), hashlist.Hashes...)
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *MemoryHashlistRepository) AppendHashes(_ context.Context, id uuid.UUID, hashes []HashlistHash) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hashlist, ok := r.hashlists[id]
	if !ok {
		return 0, ErrNotFound
	}

	present := make(map[string]struct{}, len(hashlist.Hashes))
	for _, h := range hashlist.Hashes {
		present[h.NormalizedHash] = struct{}{}
	}

	inserted := 0
	for _, h := range hashes {
		if _, dup := present[h.NormalizedHash]; dup {
			continue
		}
		present[h.NormalizedHash] = struct{}{}
		hashlist.Hashes = append(hashlist.Hashes, h)
		inserted++
	}
	if inserted > 0 {
		hashlist.Version++
	}
	return inserted, nil
}

func (r *MemoryHashlistRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.hashlists[id]; !ok {
		return ErrNotFound
	}
	delete(r.hashlists, id)
	return nil
}
