package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/vistoria/inspection/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFSStore implements Store on a MongoDB GridFS bucket.
type GridFSStore struct {
	bucket  *gridfs.Bucket
	timeout time.Duration
}

// gridFile mirrors the fields of a GridFS files document we read back.
type gridFile struct {
	ID         primitive.ObjectID `bson:"_id"`
	Length     int64              `bson:"length"`
	UploadDate time.Time          `bson:"uploadDate"`
	Name       string             `bson:"filename"`
	Metadata   struct {
		ContentType string `bson:"contentType"`
	} `bson:"metadata"`
}

// NewGridFSStore creates a store on the "photos" bucket of db.
func NewGridFSStore(db *mongo.Database) (*GridFSStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName("photos"))
	if err != nil {
		return nil, fmt.Errorf("opening gridfs bucket: %w", err)
	}
	return &GridFSStore{bucket: bucket, timeout: 30 * time.Second}, nil
}

// Save uploads a photo into the bucket.
func (s *GridFSStore) Save(name, contentType string, r io.Reader) (*models.Attachment, error) {
	contentType, r, err := detectImageType(contentType, r)
	if err != nil {
		return nil, err
	}

	name = filepath.Base(name)
	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: "contentType", Value: contentType}})
	stream, err := s.bucket.OpenUploadStream(name, opts)
	if err != nil {
		return nil, fmt.Errorf("opening upload stream: %w", err)
	}
	if err := stream.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		stream.Close()
		return nil, err
	}

	size, err := io.Copy(stream, r)
	if err != nil {
		_ = stream.Abort()
		return nil, fmt.Errorf("writing image: %w", err)
	}
	if err := stream.Close(); err != nil {
		return nil, fmt.Errorf("finishing upload: %w", err)
	}

	return &models.Attachment{
		ID:          stream.FileID.(primitive.ObjectID).Hex(),
		Name:        name,
		Size:        size,
		ContentType: contentType,
		UploadedAt:  time.Now().UTC(),
	}, nil
}

// Get reads photo metadata from the files collection.
func (s *GridFSStore) Get(id string) (*models.Attachment, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	cursor, err := s.bucket.FindContext(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, fmt.Errorf("finding image: %w", err)
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return nil, fmt.Errorf("finding image: %w", err)
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	var f gridFile
	if err := cursor.Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding image metadata: %w", err)
	}
	return f.attachment(), nil
}

// Open streams a photo from the bucket. The caller closes the reader.
func (s *GridFSStore) Open(id string) (io.ReadCloser, *models.Attachment, error) {
	info, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}
	oid, _ := primitive.ObjectIDFromHex(id)

	stream, err := s.bucket.OpenDownloadStream(oid)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, nil, fmt.Errorf("opening image: %w", err)
	}
	return stream, info, nil
}

// Delete removes a photo and its chunks.
func (s *GridFSStore) Delete(id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := s.bucket.Delete(oid); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("deleting image: %w", err)
	}
	return nil
}

func (f gridFile) attachment() *models.Attachment {
	return &models.Attachment{
		ID:          f.ID.Hex(),
		Name:        f.Name,
		Size:        f.Length,
		ContentType: f.Metadata.ContentType,
		UploadedAt:  f.UploadDate.UTC(),
	}
}
