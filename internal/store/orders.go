package store

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"pistore/internal/models"
)

const (
	OrdersKey      = "orders"
	OrdersBlobName = "orders.json"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrDuplicateOrder = errors.New("order id already exists")
	ErrInvalidStatus  = errors.New("invalid order status")
)

// OrderRepository stores every order in one JSON document. Each mutation
// rewrites the whole collection through Document.Update.
type OrderRepository struct {
	doc Document
	now func() time.Time
}

func NewOrderRepository(doc Document) *OrderRepository {
	return &OrderRepository{doc: doc, now: time.Now}
}

// List returns the full collection, or an empty one when the document is
// missing, unreadable or not JSON.
func (r *OrderRepository) List(ctx context.Context) []models.Order {
	return loadList[models.Order](ctx, r.doc, OrdersKey)
}

func (r *OrderRepository) ListByBuyer(ctx context.Context, buyer string) []models.Order {
	buyer = strings.TrimSpace(buyer)
	out := make([]models.Order, 0)
	for _, order := range r.List(ctx) {
		if strings.EqualFold(order.Buyer, buyer) {
			out = append(out, order)
		}
	}
	return out
}

func (r *OrderRepository) Find(ctx context.Context, id string) (models.Order, error) {
	orders := r.List(ctx)
	if i := indexOfOrder(orders, id); i >= 0 {
		return orders[i], nil
	}
	return models.Order{}, ErrOrderNotFound
}

// Append fills id, status, buyer and createdAt defaults and persists the
// order at the end of the collection.
func (r *OrderRepository) Append(ctx context.Context, order models.Order) (models.Order, error) {
	var saved models.Order
	err := mutateList(ctx, r.doc, OrdersKey, func(orders []models.Order) ([]models.Order, bool, error) {
		next, err := r.prepare(orders, order)
		if err != nil {
			return nil, false, err
		}
		saved = next
		return append(orders, next), true, nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return saved, nil
}

// AppendForPayment appends order unless one with the same PaymentID is already
// stored, in which case the existing order is returned with created=false.
func (r *OrderRepository) AppendForPayment(ctx context.Context, order models.Order) (models.Order, bool, error) {
	var (
		saved   models.Order
		created bool
	)
	err := mutateList(ctx, r.doc, OrdersKey, func(orders []models.Order) ([]models.Order, bool, error) {
		created = false
		if order.PaymentID != "" {
			for _, existing := range orders {
				if existing.PaymentID == order.PaymentID {
					saved = existing
					return nil, false, nil
				}
			}
		}
		next, err := r.prepare(orders, order)
		if err != nil {
			return nil, false, err
		}
		saved, created = next, true
		return append(orders, next), true, nil
	})
	if err != nil {
		return models.Order{}, false, err
	}
	return saved, created, nil
}

func (r *OrderRepository) prepare(orders []models.Order, order models.Order) (models.Order, error) {
	if order.ID == "" {
		order.ID = r.nextID(orders)
	} else if indexOfOrder(orders, order.ID.String()) >= 0 {
		return models.Order{}, ErrDuplicateOrder
	}
	if strings.TrimSpace(order.Status) == "" {
		order.Status = models.StatusAwaitingConfirmation
	}
	if strings.TrimSpace(order.Buyer) == "" {
		order.Buyer = models.GuestBuyer
	}
	if order.Items == nil {
		order.Items = []models.OrderItem{}
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = r.now().UTC()
	}
	return order, nil
}

// nextID uses the current time in milliseconds, bumped until unique.
func (r *OrderRepository) nextID(orders []models.Order) models.FlexibleID {
	candidate := r.now().UnixMilli()
	for indexOfOrder(orders, strconv.FormatInt(candidate, 10)) >= 0 {
		candidate++
	}
	return models.FlexibleID(strconv.FormatInt(candidate, 10))
}

// UpdateStatus replaces the status of one order and stamps updatedAt.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, status string) (models.Order, error) {
	if !models.IsValidOrderStatus(status) {
		return models.Order{}, ErrInvalidStatus
	}
	return r.modify(ctx, id, func(order *models.Order, now time.Time) bool {
		order.Status = status
		order.UpdatedAt = &now
		return true
	})
}

// Cancel marks an order cancelled. Cancelling twice is a no-op that returns
// the already-cancelled order.
func (r *OrderRepository) Cancel(ctx context.Context, id string) (models.Order, error) {
	return r.modify(ctx, id, func(order *models.Order, now time.Time) bool {
		if order.Status == models.StatusCancelled {
			return false
		}
		order.Status = models.StatusCancelled
		order.UpdatedAt = &now
		return true
	})
}

func (r *OrderRepository) MarkReviewed(ctx context.Context, id string) (models.Order, error) {
	return r.modify(ctx, id, func(order *models.Order, _ time.Time) bool {
		if order.Reviewed {
			return false
		}
		order.Reviewed = true
		return true
	})
}

// Clear removes the whole collection.
func (r *OrderRepository) Clear(ctx context.Context) error {
	return r.doc.Delete(ctx)
}

func (r *OrderRepository) modify(ctx context.Context, id string, apply func(order *models.Order, now time.Time) bool) (models.Order, error) {
	var result models.Order
	err := mutateList(ctx, r.doc, OrdersKey, func(orders []models.Order) ([]models.Order, bool, error) {
		i := indexOfOrder(orders, id)
		if i < 0 {
			return nil, false, ErrOrderNotFound
		}
		changed := apply(&orders[i], r.now().UTC())
		result = orders[i]
		return orders, changed, nil
	})
	if err != nil {
		return models.Order{}, err
	}
	return result, nil
}

func indexOfOrder(orders []models.Order, id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return -1
	}
	for i, order := range orders {
		if order.ID.String() == id {
			return i
		}
	}
	return -1
}
