// Package payment drives the create, approve and complete handshake between
// the browser SDK, the Pi Platform API and the order repository.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"pistore/internal/models"
	"pistore/internal/pi"
	"pistore/internal/store"
)

// Provider is the subset of the Pi Platform API the bridge needs.
type Provider interface {
	Create(ctx context.Context, req pi.CreatePaymentRequest) (pi.RawResponse, error)
	Get(ctx context.Context, paymentID string) (pi.RawResponse, error)
	Approve(ctx context.Context, paymentID string) (pi.RawResponse, error)
	Complete(ctx context.Context, paymentID, txid string) (pi.RawResponse, error)
	Cancel(ctx context.Context, paymentID string) (pi.RawResponse, error)
}

// Outcome is the narrowed provider state after a completion call.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomePending   Outcome = "pending"
	OutcomeCancelled Outcome = "cancelled"
)

// Completion is the result of settling a payment. Order is set only for
// OutcomeCompleted; Duplicate marks a payment that already had an order.
type Completion struct {
	Outcome   Outcome
	PaymentID string
	Order     *models.Order
	Duplicate bool
}

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

type Bridge struct {
	provider Provider
	orders   *store.OrderRepository
}

func NewBridge(provider Provider, orders *store.OrderRepository) *Bridge {
	return &Bridge{provider: provider, orders: orders}
}

// Create validates and forwards a payment creation request.
func (b *Bridge) Create(ctx context.Context, req pi.CreatePaymentRequest) (pi.RawResponse, error) {
	req.Memo = strings.TrimSpace(req.Memo)
	req.UID = strings.TrimSpace(req.UID)
	switch {
	case req.Amount <= 0:
		return pi.RawResponse{}, invalid("amount must be greater than zero")
	case req.Memo == "":
		return pi.RawResponse{}, invalid("memo is required")
	case req.UID == "":
		return pi.RawResponse{}, invalid("user_uid is required")
	}
	return b.provider.Create(ctx, req)
}

// Approve forwards server approval; the reply is returned verbatim.
func (b *Bridge) Approve(ctx context.Context, paymentID string) (pi.RawResponse, error) {
	paymentID, err := requireID(paymentID)
	if err != nil {
		return pi.RawResponse{}, err
	}
	return b.provider.Approve(ctx, paymentID)
}

func (b *Bridge) Cancel(ctx context.Context, paymentID string) (pi.RawResponse, error) {
	paymentID, err := requireID(paymentID)
	if err != nil {
		return pi.RawResponse{}, err
	}
	return b.provider.Cancel(ctx, paymentID)
}

func (b *Bridge) Get(ctx context.Context, paymentID string) (pi.RawResponse, error) {
	paymentID, err := requireID(paymentID)
	if err != nil {
		return pi.RawResponse{}, err
	}
	return b.provider.Get(ctx, paymentID)
}

// Complete forwards completion and records a paid order once the provider
// reports the payment as completed. Any other provider state creates nothing.
func (b *Bridge) Complete(ctx context.Context, paymentID, txid string) (Completion, error) {
	paymentID, err := requireID(paymentID)
	if err != nil {
		return Completion{}, err
	}
	txid = strings.TrimSpace(txid)
	if txid == "" {
		return Completion{}, invalid("txid is required")
	}

	resp, err := b.provider.Complete(ctx, paymentID, txid)
	if err != nil {
		return Completion{}, err
	}
	if err := resp.AsError(); err != nil {
		return Completion{}, err
	}

	payment, err := pi.DecodePayment(resp.Body)
	if err != nil {
		return Completion{}, &pi.UpstreamError{StatusCode: resp.StatusCode, Message: "unreadable payment payload: " + err.Error()}
	}

	return b.settle(ctx, paymentID, txid, payment)
}

// ResolveIncomplete handles a payment the SDK found unfinished: it is
// completed when a transaction exists and cancelled otherwise.
func (b *Bridge) ResolveIncomplete(ctx context.Context, paymentID, txid string) (Completion, error) {
	paymentID, err := requireID(paymentID)
	if err != nil {
		return Completion{}, err
	}
	if strings.TrimSpace(txid) != "" {
		return b.Complete(ctx, paymentID, txid)
	}

	resp, err := b.provider.Cancel(ctx, paymentID)
	if err != nil {
		return Completion{}, err
	}
	if err := resp.AsError(); err != nil {
		return Completion{}, err
	}
	log.Println("[PAYMENT] [INFO] incomplete payment cancelled:", paymentID)
	return Completion{Outcome: OutcomeCancelled, PaymentID: paymentID}, nil
}

func (b *Bridge) settle(ctx context.Context, paymentID, txid string, payment pi.Payment) (Completion, error) {
	completion := Completion{PaymentID: paymentID}

	switch {
	case payment.Status.DeveloperCompleted:
		completion.Outcome = OutcomeCompleted
	case payment.Status.Cancelled || payment.Status.UserCancelled:
		completion.Outcome = OutcomeCancelled
		return completion, nil
	default:
		completion.Outcome = OutcomePending
		log.Println("[PAYMENT] [INFO] payment not final yet:", paymentID)
		return completion, nil
	}

	order, created, err := b.orders.AppendForPayment(ctx, orderFromPayment(paymentID, txid, payment))
	if err != nil {
		return Completion{}, fmt.Errorf("record order for payment %s: %w", paymentID, err)
	}

	completion.Order = &order
	completion.Duplicate = !created
	if created {
		log.Printf("[PAYMENT] [INFO] payment %s completed, order %s created for %s", paymentID, order.ID, order.Buyer)
	} else {
		log.Printf("[PAYMENT] [WARN] payment %s already recorded as order %s", paymentID, order.ID)
	}
	return completion, nil
}

type paymentMetadata struct {
	Username string             `json:"username"`
	Buyer    string             `json:"buyer"`
	Items    []models.OrderItem `json:"items"`
	Note     string             `json:"note"`
}

func orderFromPayment(paymentID, txid string, payment pi.Payment) models.Order {
	var meta paymentMetadata
	if len(payment.Metadata) > 0 {
		if err := json.Unmarshal(payment.Metadata, &meta); err != nil {
			log.Printf("[PAYMENT] [WARN] payment %s metadata ignored: %v", paymentID, err)
			meta = paymentMetadata{}
		}
	}

	buyer := store.NormalizeUsername(meta.Username)
	if buyer == "" {
		buyer = store.NormalizeUsername(meta.Buyer)
	}
	if buyer == "" {
		buyer = strings.TrimSpace(payment.UserUID)
	}
	if buyer == "" {
		buyer = models.GuestBuyer
	}

	items := meta.Items
	if len(items) == 0 {
		items = []models.OrderItem{{
			Name:     payment.Memo,
			Price:    payment.Amount,
			Quantity: 1,
		}}
	}

	return models.Order{
		Buyer:     buyer,
		Items:     items,
		Total:     payment.Amount,
		Status:    models.StatusPaid,
		Note:      strings.TrimSpace(meta.Note),
		PaymentID: paymentID,
		TxID:      txid,
	}
}

func requireID(paymentID string) (string, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return "", invalid("paymentId is required")
	}
	return paymentID, nil
}

// IsValidation reports whether err came from request validation.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
