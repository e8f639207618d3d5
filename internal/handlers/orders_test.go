package handlers

import (
	"context"
	"net/http"
	"testing"

	"pistore/internal/models"
)

func TestCreateOrderScenario(t *testing.T) {
	env := newTestEnv(t)
	r := env.router()
	r.POST("/orders", CreateOrder(env.orders))

	w := doJSON(t, r, http.MethodPost, "/orders", map[string]any{
		"buyer": "alice",
		"items": []map[string]any{{"name": "X", "price": 10, "quantity": 1}},
	}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	list := env.orders.List(context.Background())
	if len(list) != 1 {
		t.Fatalf("expected one order, got %d", len(list))
	}
	order := list[0]
	if order.Buyer != "alice" || order.Total != 10 || order.Status != models.StatusAwaitingConfirmation {
		t.Fatalf("unexpected order %+v", order)
	}
}

func TestCreateOrderUsesSessionBuyer(t *testing.T) {
	env := newTestEnv(t)
	r := env.router()
	r.POST("/orders", CreateOrder(env.orders))

	token := env.login(t, "carol")
	w := doJSON(t, r, http.MethodPost, "/orders", map[string]any{
		"buyer": "mallory",
		"items": []map[string]any{{"name": "Hat", "price": 4, "quantity": 2}},
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	order := env.orders.List(context.Background())[0]
	if order.Buyer != "carol" || order.Total != 8 {
		t.Fatalf("expected session buyer and summed total, got %+v", order)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	env := newTestEnv(t)
	r := env.router()
	r.POST("/orders", CreateOrder(env.orders))

	cases := []any{
		`{not json`,
		map[string]any{"items": []map[string]any{}},
		map[string]any{"items": []map[string]any{{"price": 1, "quantity": 1}}},
		map[string]any{"items": []map[string]any{{"name": "X", "quantity": -1}}},
		map[string]any{"status": "lost", "items": []map[string]any{{"name": "X", "quantity": 1}}},
	}
	for i, body := range cases {
		w := doJSON(t, r, http.MethodPost, "/orders", body, "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("case %d: expected 400, got %d: %s", i, w.Code, w.Body.String())
		}
		if got := decodeBody(t, w); got["success"] != false || got["error"] == "" {
			t.Fatalf("case %d: expected error envelope, got %v", i, got)
		}
	}
	if n := len(env.orders.List(context.Background())); n != 0 {
		t.Fatalf("expected no orders, got %d", n)
	}
}

func TestOrderStatusFlow(t *testing.T) {
	env := newTestEnv(t)
	r := env.router()
	r.GET("/orders", GetOrders(env.orders))
	r.GET("/orders/:id", GetOrder(env.orders))
	r.PATCH("/orders/:id", UpdateOrderStatus(env.orders))
	r.POST("/orders/cancel", CancelOrder(env.orders))

	saved, err := env.orders.Append(context.Background(), models.Order{Buyer: "alice"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	id := saved.ID.String()

	for _, status := range []string{models.StatusDelivering, models.StatusCompleted} {
		w := doJSON(t, r, http.MethodPatch, "/orders/"+id, map[string]string{"status": status}, "")
		if w.Code != http.StatusOK {
			t.Fatalf("PATCH %s: expected 200, got %d: %s", status, w.Code, w.Body.String())
		}
	}

	w := doJSON(t, r, http.MethodGet, "/orders/"+id, nil, "")
	order := decodeBody(t, w)["order"].(map[string]any)
	if order["status"] != models.StatusCompleted {
		t.Fatalf("expected completed, got %v", order["status"])
	}

	if w := doJSON(t, r, http.MethodPatch, "/orders/"+id, map[string]string{"status": "nope"}, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPatch, "/orders/missing", map[string]string{"status": models.StatusDelivering}, ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing order, got %d", w.Code)
	}

	if w := doJSON(t, r, http.MethodGet, "/orders?buyer=alice&status=completed", nil, ""); len(decodeBody(t, w)["orders"].([]any)) != 1 {
		t.Fatalf("expected filtered order, got %s", w.Body.String())
	}
	if w := doJSON(t, r, http.MethodGet, "/orders?buyer=bob", nil, ""); len(decodeBody(t, w)["orders"].([]any)) != 0 {
		t.Fatalf("expected no orders for bob, got %s", w.Body.String())
	}
}

func TestCancelOrderIdempotentAndNumericID(t *testing.T) {
	env := newTestEnv(t)
	r := env.router()
	r.POST("/orders/cancel", CancelOrder(env.orders))

	env.orders.Append(context.Background(), models.Order{ID: "1700000000000"})

	for i := 0; i < 2; i++ {
		w := doJSON(t, r, http.MethodPost, "/orders/cancel", `{"id":1700000000000}`, "")
		if w.Code != http.StatusOK {
			t.Fatalf("cancel %d: expected 200, got %d: %s", i, w.Code, w.Body.String())
		}
	}

	w := doJSON(t, r, http.MethodPost, "/orders/cancel", map[string]string{"id": "999"}, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if n := len(env.orders.List(context.Background())); n != 1 {
		t.Fatalf("expected collection unchanged, got %d orders", n)
	}
}
