package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mansoorceksport/liftlog/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoDocument is the envelope every key-path document is stored in.
// _id is the full document path, parent the collection path it lives under.
type mongoDocument struct {
	ID        string    `bson:"_id"`
	Parent    string    `bson:"parent"`
	Data      bson.M    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoDocumentStore implements domain.DocumentStore on a single MongoDB collection
type MongoDocumentStore struct {
	collection *mongo.Collection
}

func NewMongoDocumentStore(db *mongo.Database) *MongoDocumentStore {
	return &MongoDocumentStore{
		collection: db.Collection("documents"),
	}
}

// EnsureIndexes creates the parent index used by List
func (s *MongoDocumentStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "parent", Value: 1}, {Key: "_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create documents index: %w", mapMongoError(err))
	}
	return nil
}

func (s *MongoDocumentStore) Get(ctx context.Context, path string) (*domain.Document, error) {
	_, id, err := domain.SplitPath(path)
	if err != nil {
		return nil, err
	}

	var doc mongoDocument
	err = s.collection.FindOne(ctx, bson.M{"_id": path}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document %s: %w", path, mapMongoError(err))
	}

	data, err := fromBSON(doc.Data)
	if err != nil {
		return nil, err
	}
	return &domain.Document{ID: id, Path: path, Data: data}, nil
}

func (s *MongoDocumentStore) Set(ctx context.Context, path string, fields map[string]any, merge bool) error {
	parent, _, err := domain.SplitPath(path)
	if err != nil {
		return err
	}
	normalized, err := domain.NormalizeFields(fields)
	if err != nil {
		return err
	}
	now := time.Now()

	if !merge {
		replacement := mongoDocument{ID: path, Parent: parent, Data: bson.M(normalized), UpdatedAt: now}
		_, err = s.collection.ReplaceOne(ctx, bson.M{"_id": path}, replacement, options.Replace().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("failed to replace document %s: %w", path, mapMongoError(err))
		}
		return nil
	}

	set := bson.M{
		"parent":     parent,
		"updated_at": now,
	}
	for k, v := range normalized {
		set["data."+k] = v
	}
	if len(normalized) == 0 {
		// Make sure an upserted document still carries a data object
		update := bson.M{"$set": set, "$setOnInsert": bson.M{"data": bson.M{}}}
		_, err = s.collection.UpdateOne(ctx, bson.M{"_id": path}, update, options.Update().SetUpsert(true))
	} else {
		_, err = s.collection.UpdateOne(ctx, bson.M{"_id": path}, bson.M{"$set": set}, options.Update().SetUpsert(true))
	}
	if err != nil {
		return fmt.Errorf("failed to merge document %s: %w", path, mapMongoError(err))
	}
	return nil
}

func (s *MongoDocumentStore) Append(ctx context.Context, collectionPath string, doc any) (string, error) {
	if err := domain.ValidateCollectionPath(collectionPath); err != nil {
		return "", err
	}
	normalized, err := domain.NormalizeFields(doc)
	if err != nil {
		return "", err
	}

	id := newDocumentID()
	_, err = s.collection.InsertOne(ctx, mongoDocument{
		ID:        collectionPath + "/" + id,
		Parent:    collectionPath,
		Data:      bson.M(normalized),
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to append to %s: %w", collectionPath, mapMongoError(err))
	}
	return id, nil
}

func (s *MongoDocumentStore) List(ctx context.Context, collectionPath string) ([]*domain.Document, error) {
	if err := domain.ValidateCollectionPath(collectionPath); err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.collection.Find(ctx, bson.M{"parent": collectionPath}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collectionPath, mapMongoError(err))
	}
	defer cursor.Close(ctx)

	var raw []mongoDocument
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", collectionPath, mapMongoError(err))
	}

	docs := make([]*domain.Document, 0, len(raw))
	for _, d := range raw {
		_, id, err := domain.SplitPath(d.ID)
		if err != nil {
			return nil, err
		}
		data, err := fromBSON(d.Data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, &domain.Document{ID: id, Path: d.ID, Data: data})
	}
	return docs, nil
}

// fromBSON converts driver types (primitive.D, primitive.A, int32...) back to
// the canonical JSON value set.
func fromBSON(m bson.M) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = bsonValue(v)
	}
	return domain.NormalizeFields(out)
}

func bsonValue(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = bsonValue(inner)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = bsonValue(e.Value)
		}
		return out
	case primitive.A:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = bsonValue(inner)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	case int32:
		return int64(t)
	}
	return v
}

// mapMongoError flags connectivity problems as domain.ErrPersistenceUnavailable
func mapMongoError(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceUnavailable, err)
	}
	return err
}
