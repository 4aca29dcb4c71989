package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hashfleet/hashfleet/storage"
)

// ProjectRepository implements storage.ProjectRepository on MongoDB.
type ProjectRepository struct {
	projects *mongo.Collection
}

func NewProjectRepository(ctx context.Context, db *mongo.Database) (*ProjectRepository, error) {
	repo := &ProjectRepository{projects: db.Collection(projectsCollection)}

	_, err := repo.projects.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_user_id", Value: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create project owner index: %w", err)
	}

	return repo, nil
}

func (r *ProjectRepository) Create(ctx context.Context, project *storage.Project) error {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now()
	}

	if _, err := r.projects.InsertOne(ctx, project); err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*storage.Project, error) {
	var project storage.Project
	err := r.projects.FindOne(ctx, bson.M{"_id": id}).Decode(&project)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return &project, nil
}

func (r *ProjectRepository) ListForOwner(ctx context.Context, ownerUserID uuid.UUID) ([]*storage.Project, error) {
	return r.list(ctx, bson.M{"owner_user_id": ownerUserID})
}

func (r *ProjectRepository) ListAll(ctx context.Context) ([]*storage.Project, error) {
	return r.list(ctx, bson.M{})
}

func (r *ProjectRepository) list(ctx context.Context, filter bson.M) ([]*storage.Project, error) {
	cursor, err := r.projects.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer cursor.Close(ctx)

	projects := []*storage.Project{}
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("failed to decode projects: %w", err)
	}
	return projects, nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.projects.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}
