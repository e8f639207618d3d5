package models

import "time"

// Order status labels are user-facing and stored verbatim.
const (
	StatusAwaitingConfirmation = "awaiting confirmation"
	StatusAwaitingPickup       = "awaiting pickup"
	StatusDelivering           = "delivering"
	StatusCompleted            = "completed"
	StatusCancelled            = "cancelled"
	StatusPaid                 = "paid"
)

// GuestBuyer is recorded when an order is placed without a known username.
const GuestBuyer = "guest_user"

var orderStatuses = map[string]struct{}{
	StatusAwaitingConfirmation: {},
	StatusAwaitingPickup:       {},
	StatusDelivering:           {},
	StatusCompleted:            {},
	StatusCancelled:            {},
	StatusPaid:                 {},
}

// IsValidOrderStatus reports whether status belongs to the order vocabulary.
func IsValidOrderStatus(status string) bool {
	_, ok := orderStatuses[status]
	return ok
}

// OrderItem represents a single product entry within an order.
type OrderItem struct {
	ProductID FlexibleID `json:"productId"`
	Name      string     `json:"name"`
	Price     float64    `json:"price"`
	Quantity  int        `json:"quantity"`
}

// Order is one element of the persisted order collection.
type Order struct {
	ID        FlexibleID  `json:"id"`
	Buyer     string      `json:"buyer"`
	Items     []OrderItem `json:"items"`
	Total     float64     `json:"total"`
	Status    string      `json:"status"`
	Note      string      `json:"note,omitempty"`
	PaymentID string      `json:"paymentId,omitempty"`
	TxID      string      `json:"txid,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt *time.Time  `json:"updatedAt,omitempty"`
	Reviewed  bool        `json:"reviewed,omitempty"`
}
