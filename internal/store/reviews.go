package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"pistore/internal/models"
)

const ReviewsKey = "reviews"

// ReviewRepository stores reviews as one JSON array, like orders.
type ReviewRepository struct {
	doc Document
	now func() time.Time
}

func NewReviewRepository(doc Document) *ReviewRepository {
	return &ReviewRepository{doc: doc, now: time.Now}
}

func (r *ReviewRepository) List(ctx context.Context) []models.Review {
	return loadList[models.Review](ctx, r.doc, ReviewsKey)
}

// Filter returns reviews matching every non-empty argument.
func (r *ReviewRepository) Filter(ctx context.Context, orderID, username string) []models.Review {
	orderID = strings.TrimSpace(orderID)
	username = strings.TrimSpace(username)

	out := make([]models.Review, 0)
	for _, review := range r.List(ctx) {
		if orderID != "" && review.OrderID.String() != orderID {
			continue
		}
		if username != "" && !strings.EqualFold(review.Username, username) {
			continue
		}
		out = append(out, review)
	}
	return out
}

func (r *ReviewRepository) Create(ctx context.Context, review models.Review) (models.Review, error) {
	review.ID = uuid.NewString()
	review.Username = strings.ToLower(strings.TrimSpace(review.Username))
	review.CreatedAt = r.now().UTC()

	err := mutateList(ctx, r.doc, ReviewsKey, func(reviews []models.Review) ([]models.Review, bool, error) {
		return append(reviews, review), true, nil
	})
	if err != nil {
		return models.Review{}, err
	}
	return review, nil
}

func (r *ReviewRepository) Clear(ctx context.Context) error {
	return r.doc.Delete(ctx)
}
