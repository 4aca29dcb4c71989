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

// HashlistRepository implements storage.HashlistRepository on MongoDB.
type HashlistRepository struct {
	hashlists *mongo.Collection
}

func NewHashlistRepository(ctx context.Context, db *mongo.Database) (*HashlistRepository, error) {
	repo := &HashlistRepository{hashlists: db.Collection(hashlistsCollection)}

	_, err := repo.hashlists.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "project_id", Value: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create hashlist project index: %w", err)
	}

	return repo, nil
}

func (r *HashlistRepository) Create(ctx context.Context, hashlist *storage.Hashlist) error {
	if hashlist.ID == uuid.Nil {
		hashlist.ID = uuid.New()
	}
	if hashlist.CreatedAt.IsZero() {
		hashlist.CreatedAt = time.Now()
	}
	if hashlist.Version == 0 {
		hashlist.Version = 1
	}

	if _, err := r.hashlists.InsertOne(ctx, hashlist); err != nil {
		return fmt.Errorf("failed to insert hashlist: %w", err)
	}
	return nil
}

func (r *HashlistRepository) GetByID(ctx context.Context, id uuid.UUID) (*storage.Hashlist, error) {
	var hashlist storage.Hashlist
	err := r.hashlists.FindOne(ctx, bson.M{"_id": id}).Decode(&hashlist)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find hashlist: %w", err)
	}
	return &hashlist, nil
}

func (r *HashlistRepository) ListForProject(ctx context.Context, projectID uuid.UUID) ([]*storage.Hashlist, error) {
	cursor, err := r.hashlists.Find(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return nil, fmt.Errorf("failed to list hashlists: %w", err)
	}
	defer cursor.Close(ctx)

	hashlists := []*storage.Hashlist{}
	if err := cursor.All(ctx, &hashlists); err != nil {
		return nil, fmt.Errorf("failed to decode hashlists: %w", err)
	}
	return hashlists, nil
}

func (r *HashlistRepository) AppendHashes(ctx context.Context, id uuid.UUID, hashes []storage.HashlistHash) (int, error) {
	hashlist, err := r.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}

	present := make(map[string]struct{}, len(hashlist.Hashes))
	for _, h := range hashlist.Hashes {
		present[h.NormalizedHash] = struct{}{}
	}

	toInsert := []storage.HashlistHash{}
	for _, h := range hashes {
		if _, dup := present[h.NormalizedHash]; dup {
			continue
		}
		present[h.NormalizedHash] = struct{}{}
		toInsert = append(toInsert, h)
	}
	if len(toInsert) == 0 {
		return 0, nil
	}

	res, err := r.hashlists.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"hashes": bson.M{"$each": toInsert}},
		"$inc":  bson.M{"version": 1},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to append hashes: %w", err)
	}
	if res.MatchedCount == 0 {
		return 0, storage.ErrNotFound
	}
	return len(toInsert), nil
}

func (r *HashlistRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.hashlists.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete hashlist: %w", err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}
