package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureProductIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("products").Indexes()

	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "seller", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("seller_createdAt"),
		},
		{
			Keys:    bson.D{{Key: "categoryId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("categoryId_createdAt"),
		},
	}

	log.Println("EnsureProductIndexes: creating seller and category indexes")
	if _, err := indexes.CreateMany(ctx, models); err != nil {
		log.Println("EnsureProductIndexes: index error:", err)
		return err
	}
	log.Println("EnsureProductIndexes: indexes created")
	return nil
}

func EnsureBlobIndexes(db *mongo.Database, bucket string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection(bucket + ".files").Indexes()

	filenameIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "filename", Value: 1}, {Key: "uploadDate", Value: 1}},
		Options: options.Index().SetName("filename_uploadDate"),
	}

	log.Println("EnsureBlobIndexes: creating filename_uploadDate index")
	if _, err := indexes.CreateOne(ctx, filenameIndex); err != nil {
		log.Println("EnsureBlobIndexes: filename index error:", err)
		return err
	}
	log.Println("EnsureBlobIndexes: filename_uploadDate index created")
	return nil
}
