package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultBlobTimeout = 30 * time.Second

// GridFSBlob stores objects in a MongoDB GridFS bucket keyed by filename.
type GridFSBlob struct {
	db         *mongo.Database
	bucketName string
}

func NewGridFSBlob(db *mongo.Database, bucketName string) *GridFSBlob {
	return &GridFSBlob{db: db, bucketName: bucketName}
}

type gridFSFile struct {
	ID         primitive.ObjectID `bson:"_id"`
	Filename   string             `bson:"filename"`
	Length     int64              `bson:"length"`
	UploadDate time.Time          `bson:"uploadDate"`
	Metadata   bson.M             `bson:"metadata,omitempty"`
}

func (f gridFSFile) info() BlobInfo {
	contentType, _ := f.Metadata["contentType"].(string)
	return BlobInfo{
		Name:        f.Filename,
		Size:        f.Length,
		ContentType: contentType,
		UploadedAt:  f.UploadDate,
	}
}

// bucket builds a fresh handle per call because GridFS deadlines are set on
// the bucket rather than passed per operation.
func (g *GridFSBlob) bucket(ctx context.Context) (*gridfs.Bucket, error) {
	bucket, err := gridfs.NewBucket(g.db, options.GridFSBucket().SetName(g.bucketName))
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket: %w", err)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultBlobTimeout)
	}
	if err := bucket.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	if err := bucket.SetWriteDeadline(deadline); err != nil {
		return nil, err
	}
	return bucket, nil
}

func (g *GridFSBlob) files(bucket *gridfs.Bucket, filter interface{}) ([]gridFSFile, error) {
	cursor, err := bucket.Find(filter, options.GridFSFind().SetSort(bson.D{{Key: "uploadDate", Value: 1}}))
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultBlobTimeout)
	defer cancel()
	defer cursor.Close(ctx)

	var files []gridFSFile
	if err := cursor.All(ctx, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (g *GridFSBlob) Put(ctx context.Context, name, contentType string, r io.Reader) error {
	bucket, err := g.bucket(ctx)
	if err != nil {
		return err
	}

	previous, err := g.files(bucket, bson.M{"filename": name})
	if err != nil {
		return fmt.Errorf("lookup %s: %w", name, err)
	}

	opts := options.GridFSUpload().SetMetadata(bson.M{"contentType": contentType})
	if _, err := bucket.UploadFromStream(name, r, opts); err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}

	for _, file := range previous {
		if err := bucket.Delete(file.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("remove old revision of %s: %w", name, err)
		}
	}
	return nil
}

func (g *GridFSBlob) Open(ctx context.Context, name string) (io.ReadCloser, BlobInfo, error) {
	bucket, err := g.bucket(ctx)
	if err != nil {
		return nil, BlobInfo{}, err
	}

	stream, err := bucket.OpenDownloadStreamByName(name)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, BlobInfo{}, ErrNotFound
	}
	if err != nil {
		return nil, BlobInfo{}, err
	}

	var file gridFSFile
	if raw := stream.GetFile(); raw != nil {
		file.Filename = raw.Name
		file.Length = raw.Length
		file.UploadDate = raw.UploadDate
		if raw.Metadata != nil {
			_ = bson.Unmarshal(raw.Metadata, &file.Metadata)
		}
	}
	return stream, file.info(), nil
}

func (g *GridFSBlob) List(ctx context.Context, prefix string) ([]BlobInfo, error) {
	bucket, err := g.bucket(ctx)
	if err != nil {
		return nil, err
	}

	filter := bson.M{}
	if prefix != "" {
		filter["filename"] = bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}
	}

	files, err := g.files(bucket, filter)
	if err != nil {
		return nil, err
	}

	infos := make([]BlobInfo, 0, len(files))
	for _, file := range files {
		infos = append(infos, file.info())
	}
	return infos, nil
}

func (g *GridFSBlob) Delete(ctx context.Context, name string) error {
	bucket, err := g.bucket(ctx)
	if err != nil {
		return err
	}

	files, err := g.files(bucket, bson.M{"filename": name})
	if err != nil {
		return err
	}
	for _, file := range files {
		if err := bucket.Delete(file.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return err
		}
	}
	return nil
}
