package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pistore/internal/models"
)

const ProductsCollection = "products"

var ErrProductNotFound = errors.New("product not found")

// ProductFilter narrows catalog listings. Zero values match everything;
// Limit 0 disables pagination.
type ProductFilter struct {
	CategoryID string
	Seller     string
	Search     string
	Page       int64
	Limit      int64
}

type ProductStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewProductStore(db *mongo.Database) *ProductStore {
	return &ProductStore{coll: db.Collection(ProductsCollection), now: time.Now}
}

func (f ProductFilter) query() bson.M {
	filter := bson.M{}
	if category := strings.TrimSpace(f.CategoryID); category != "" {
		filter["categoryId"] = category
	}
	if seller := strings.TrimSpace(f.Seller); seller != "" {
		filter["seller"] = NormalizeUsername(seller)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := regexp.QuoteMeta(search)
		filter["$or"] = []bson.M{
			{"name": bson.M{"$regex": pattern, "$options": "i"}},
			{"description": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}
	return filter
}

// List returns the matching page and the total number of matches.
func (s *ProductStore) List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	filter := f.query()

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		opts.SetSkip((page - 1) * f.Limit).SetLimit(f.Limit)
	}

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (s *ProductStore) Get(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	var product models.Product
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Product{}, ErrProductNotFound
	}
	return product, err
}

// View increments the view counter and returns the updated product.
func (s *ProductStore) View(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	var product models.Product
	err := s.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"views": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Product{}, ErrProductNotFound
	}
	return product, err
}

func (s *ProductStore) Create(ctx context.Context, product models.Product) (models.Product, error) {
	product.ID = primitive.NilObjectID
	product.Seller = NormalizeUsername(product.Seller)
	product.Views = 0
	product.CreatedAt = s.now().UTC()
	product.UpdatedAt = nil

	res, err := s.coll.InsertOne(ctx, product)
	if err != nil {
		return models.Product{}, err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		product.ID = id
	}
	return product, nil
}

// Update applies set and unset and returns the new document.
func (s *ProductStore) Update(ctx context.Context, id primitive.ObjectID, set, unset bson.M) (models.Product, error) {
	if set == nil {
		set = bson.M{}
	}
	set["updatedAt"] = s.now().UTC()

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var product models.Product
	err := s.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Product{}, ErrProductNotFound
	}
	return product, err
}

// Delete removes the product and returns what was deleted.
func (s *ProductStore) Delete(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	var product models.Product
	err := s.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Product{}, ErrProductNotFound
	}
	return product, err
}
