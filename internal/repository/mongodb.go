package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vistoria/inspection/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository stores inspections as documents in MongoDB.
type MongoRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

// NewMongoRepository connects to uri and verifies the connection.
func NewMongoRepository(ctx context.Context, uri string, dbName string) (*MongoRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoRepository{
		client:   client,
		dbName:   dbName,
		collName: "inspections",
	}, nil
}

// Database returns the database handle, shared with the GridFS photo store.
func (r *MongoRepository) Database() *mongo.Database {
	return r.client.Database(r.dbName)
}

func (r *MongoRepository) collection() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(r.collName)
}

func (r *MongoRepository) Save(ctx context.Context, record models.Inspection) (string, error) {
	record = record.Clone()
	record.ID = uuid.New().String()

	if _, err := r.collection().InsertOne(ctx, record); err != nil {
		return "", fmt.Errorf("failed to insert inspection: %w", err)
	}
	return record.ID, nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*models.Inspection, error) {
	var record models.Inspection
	err := r.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load inspection: %w", err)
	}
	return &record, nil
}

// List returns up to limit inspections, most recently submitted first.
func (r *MongoRepository) List(ctx context.Context, limit int) ([]models.Inspection, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}
	out := make([]models.Inspection, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode inspections: %w", err)
	}
	return out, nil
}

// Close closes the MongoDB connection.
func (r *MongoRepository) Close() error {
	return r.client.Disconnect(context.Background())
}
