package store_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"pistore/internal/models"
	"pistore/internal/store"
	"pistore/internal/store/storetest"
)

func newOrders(t *testing.T) (*store.OrderRepository, *storetest.MemoryKV) {
	t.Helper()
	kv := storetest.NewMemoryKV()
	return store.NewOrderRepository(store.NewKVDocument(kv, store.OrdersKey)), kv
}

func TestAppendDefaultsStatusAndBuyer(t *testing.T) {
	orders, _ := newOrders(t)
	ctx := context.Background()

	saved, err := orders.Append(ctx, models.Order{Items: []models.OrderItem{{Name: "X", Price: 10, Quantity: 1}}, Total: 10})
	if err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	if saved.Status != models.StatusAwaitingConfirmation {
		t.Fatalf("expected status %q, got %q", models.StatusAwaitingConfirmation, saved.Status)
	}
	if saved.Buyer != models.GuestBuyer {
		t.Fatalf("expected guest buyer, got %q", saved.Buyer)
	}
	if saved.ID == "" || saved.CreatedAt.IsZero() {
		t.Fatalf("expected id and createdAt to be set, got %+v", saved)
	}

	list := orders.List(ctx)
	if len(list) != 1 || list[0].ID != saved.ID {
		t.Fatalf("expected listed order %s, got %+v", saved.ID, list)
	}
}

func TestAppendAssignsUniqueIDs(t *testing.T) {
	orders, _ := newOrders(t)
	ctx := context.Background()

	seen := map[models.FlexibleID]bool{}
	for i := 0; i < 5; i++ {
		saved, err := orders.Append(ctx, models.Order{Buyer: "alice"})
		if err != nil {
			t.Fatalf("Append returned error: %v", err)
		}
		if seen[saved.ID] {
			t.Fatalf("duplicate id %s", saved.ID)
		}
		seen[saved.ID] = true
	}
}

func TestAppendRejectsDuplicateProvidedID(t *testing.T) {
	orders, _ := newOrders(t)
	ctx := context.Background()

	if _, err := orders.Append(ctx, models.Order{ID: "42"}); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	if _, err := orders.Append(ctx, models.Order{ID: "42"}); !errors.Is(err, store.ErrDuplicateOrder) {
		t.Fatalf("expected ErrDuplicateOrder, got %v", err)
	}
}

func TestCancelTwiceKeepsUpdatedAt(t *testing.T) {
	orders, _ := newOrders(t)
	ctx := context.Background()

	saved, _ := orders.Append(ctx, models.Order{Buyer: "alice"})
	first, err := orders.Cancel(ctx, saved.ID.String())
	if err != nil {
		t.Fatalf("first cancel returned error: %v", err)
	}
	if first.Status != models.StatusCancelled || first.UpdatedAt == nil {
		t.Fatalf("expected cancelled order with updatedAt, got %+v", first)
	}

	second, err := orders.Cancel(ctx, saved.ID.String())
	if err != nil {
		t.Fatalf("second cancel returned error: %v", err)
	}
	if second.UpdatedAt == nil || !second.UpdatedAt.Equal(*first.UpdatedAt) {
		t.Fatalf("expected updatedAt %v to be unchanged, got %v", first.UpdatedAt, second.UpdatedAt)
	}
}

func TestUpdateStatusUnknownIDLeavesCollection(t *testing.T) {
	orders, kv := newOrders(t)
	ctx := context.Background()

	orders.Append(ctx, models.Order{Buyer: "alice"})
	before := string(kv.Raw(store.OrdersKey))

	if _, err := orders.UpdateStatus(ctx, "does-not-exist", models.StatusDelivering); !errors.Is(err, store.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if after := string(kv.Raw(store.OrdersKey)); after != before {
		t.Fatalf("collection changed:\nbefore %s\nafter  %s", before, after)
	}
}

func TestCancelMissingIDLeavesCollection(t *testing.T) {
	orders, kv := newOrders(t)
	ctx := context.Background()

	orders.Append(ctx, models.Order{Buyer: "alice"})
	before := string(kv.Raw(store.OrdersKey))

	if _, err := orders.Cancel(ctx, "999"); !errors.Is(err, store.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if after := string(kv.Raw(store.OrdersKey)); after != before {
		t.Fatalf("collection changed:\nbefore %s\nafter  %s", before, after)
	}
}

func TestUpdateStatusSequence(t *testing.T) {
	orders, _ := newOrders(t)
	ctx := context.Background()

	saved, _ := orders.Append(ctx, models.Order{Buyer: "alice"})
	for _, status := range []string{models.StatusDelivering, models.StatusCompleted} {
		if _, err := orders.UpdateStatus(ctx, saved.ID.String(), status); err != nil {
			t.Fatalf("UpdateStatus(%s) returned error: %v", status, err)
		}
	}

	list := orders.List(ctx)
	if len(list) != 1 {
		t.Fatalf("expected one order, got %d", len(list))
	}
	if list[0].Status != models.StatusCompleted || list[0].UpdatedAt == nil {
		t.Fatalf("expected completed order with updatedAt, got %+v", list[0])
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	orders, _ := newOrders(t)
	ctx := context.Background()

	saved, _ := orders.Append(ctx, models.Order{})
	if _, err := orders.UpdateStatus(ctx, saved.ID.String(), "teleported"); !errors.Is(err, store.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestListReadFailureReturnsEmpty(t *testing.T) {
	orders, kv := newOrders(t)
	kv.FailGet = errors.New("connection refused")

	if list := orders.List(context.Background()); len(list) != 0 || list == nil {
		t.Fatalf("expected empty non-nil list, got %#v", list)
	}
}

func TestListCorruptDocumentReturnsEmpty(t *testing.T) {
	orders, kv := newOrders(t)
	ctx := context.Background()
	kv.Set(ctx, store.OrdersKey, []byte("not json"), 0)

	if list := orders.List(ctx); len(list) != 0 {
		t.Fatalf("expected empty list, got %+v", list)
	}

	saved, err := orders.Append(ctx, models.Order{Buyer: "bob"})
	if err != nil {
		t.Fatalf("Append over corrupt document returned error: %v", err)
	}
	if list := orders.List(ctx); len(list) != 1 || list[0].ID != saved.ID {
		t.Fatalf("expected corrupt document to be replaced, got %+v", list)
	}
}

func TestUnreadableOrderSurvivesWrites(t *testing.T) {
	orders, kv := newOrders(t)
	ctx := context.Background()
	kv.Set(ctx, store.OrdersKey, []byte(`[
		{"id":"1","buyer":"alice","items":[],"total":10,"status":"paid","createdAt":"2024-01-01T00:00:00Z"},
		{"id":"2","buyer":"bob","items":[],"total":"10","status":"paid","createdAt":""}
	]`), 0)

	list := orders.List(ctx)
	if len(list) != 1 || list[0].ID != "1" {
		t.Fatalf("expected only the readable order, got %+v", list)
	}

	if _, err := orders.Append(ctx, models.Order{Buyer: "carol"}); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	if _, err := orders.UpdateStatus(ctx, "1", models.StatusCompleted); err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}

	if list := orders.List(ctx); len(list) != 2 {
		t.Fatalf("expected alice and carol orders, got %+v", list)
	}
	raw, err := kv.Get(ctx, store.OrdersKey)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !strings.Contains(string(raw), `"buyer":"bob"`) || !strings.Contains(string(raw), `"total":"10"`) {
		t.Fatalf("expected unreadable order to be kept verbatim, got %s", raw)
	}
}

func TestNumericIDsMatchByStringForm(t *testing.T) {
	orders, kv := newOrders(t)
	ctx := context.Background()
	kv.Set(ctx, store.OrdersKey, []byte(`[{"id":1700000000000,"buyer":"alice","items":[],"total":1,"status":"awaiting confirmation","createdAt":"2024-01-01T00:00:00Z"}]`), 0)

	found, err := orders.Find(ctx, "1700000000000")
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}
	if found.Buyer != "alice" {
		t.Fatalf("unexpected order %+v", found)
	}
}

func TestAppendForPaymentDeduplicates(t *testing.T) {
	orders, _ := newOrders(t)
	ctx := context.Background()

	first, created, err := orders.AppendForPayment(ctx, models.Order{PaymentID: "pay_1", Status: models.StatusPaid})
	if err != nil || !created {
		t.Fatalf("expected first append to create, created=%v err=%v", created, err)
	}
	second, created, err := orders.AppendForPayment(ctx, models.Order{PaymentID: "pay_1", Status: models.StatusPaid})
	if err != nil {
		t.Fatalf("second append returned error: %v", err)
	}
	if created {
		t.Fatal("expected duplicate payment not to create an order")
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected existing order back, got %+v vs %+v", first, second)
	}
	if n := len(orders.List(ctx)); n != 1 {
		t.Fatalf("expected one order, got %d", n)
	}
}

func TestListByBuyerAndMarkReviewed(t *testing.T) {
	orders, _ := newOrders(t)
	ctx := context.Background()

	a, _ := orders.Append(ctx, models.Order{Buyer: "alice"})
	orders.Append(ctx, models.Order{Buyer: "bob"})

	if list := orders.ListByBuyer(ctx, "ALICE"); len(list) != 1 || list[0].ID != a.ID {
		t.Fatalf("expected alice's order, got %+v", list)
	}

	reviewed, err := orders.MarkReviewed(ctx, a.ID.String())
	if err != nil || !reviewed.Reviewed {
		t.Fatalf("expected reviewed order, got %+v err=%v", reviewed, err)
	}
}

func TestClearRemovesOrders(t *testing.T) {
	orders, _ := newOrders(t)
	ctx := context.Background()

	orders.Append(ctx, models.Order{})
	if err := orders.Clear(ctx); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if n := len(orders.List(ctx)); n != 0 {
		t.Fatalf("expected empty collection, got %d", n)
	}
}

func TestBlobDocumentBackend(t *testing.T) {
	blob := storetest.NewMemoryBlob()
	orders := store.NewOrderRepository(store.NewBlobDocument(blob, store.OrdersBlobName))
	ctx := context.Background()

	saved, err := orders.Append(ctx, models.Order{Buyer: "alice", Total: 10})
	if err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	if _, err := orders.UpdateStatus(ctx, saved.ID.String(), models.StatusAwaitingPickup); err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}

	_, info, err := blob.Open(ctx, store.OrdersBlobName)
	if err != nil {
		t.Fatalf("expected orders.json in blob store: %v", err)
	}
	if info.ContentType != "application/json" {
		t.Fatalf("unexpected content type %q", info.ContentType)
	}

	list := orders.List(ctx)
	if len(list) != 1 || list[0].Status != models.StatusAwaitingPickup {
		t.Fatalf("unexpected orders %+v", list)
	}
}
