package handlers

import (
	"context"
	"net/http"
	"testing"

	"pistore/internal/middleware"
	"pistore/internal/models"
)

func TestAddressRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	r := env.router()
	r.GET("/address", env.requireSession(), GetAddress(env.profiles))
	r.POST("/address", env.requireSession(), SaveAddress(env.profiles))

	if w := doJSON(t, r, http.MethodGet, "/address", nil, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	token := env.login(t, "alice")
	if w := doJSON(t, r, http.MethodPost, "/address", map[string]string{"name": "Alice"}, token); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for incomplete address, got %d", w.Code)
	}

	w := doJSON(t, r, http.MethodPost, "/address", map[string]string{
		"name": "Alice", "phone": "555", "address": "1 Loop Rd", "country": "TR",
	}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/address", nil, token)
	address := decodeBody(t, w)["address"].(map[string]any)
	if address["address"] != "1 Loop Rd" || address["country"] != "TR" {
		t.Fatalf("unexpected address %v", address)
	}
}

func TestSetRoleAdminNeedsKey(t *testing.T) {
	env := newTestEnv(t)
	r := env.router()
	r.GET("/users/role", GetRole(env.roles))
	r.POST("/users/role", SetRole(env.roles, testAdminKey))

	if w := doJSON(t, r, http.MethodPost, "/users/role", map[string]string{"username": "bob", "role": "seller"}, ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for seller, got %d: %s", w.Code, w.Body.String())
	}
	if w := doJSON(t, r, http.MethodPost, "/users/role", map[string]string{"username": "bob", "role": "admin"}, ""); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for admin without key, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, "/users/role", map[string]string{"username": "bob", "role": "wizard"}, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown role, got %d", w.Code)
	}

	w := doJSON(t, r, http.MethodGet, "/users/role?username=BOB", nil, "")
	if got := decodeBody(t, w)["role"]; got != models.RoleSeller {
		t.Fatalf("expected seller, got %v", got)
	}

	if w := doJSON(t, r, http.MethodGet, "/users/role?username=nobody", nil, ""); decodeBody(t, w)["role"] != models.RoleBuyer {
		t.Fatalf("expected default buyer, got %s", w.Body.String())
	}
}

func TestAdminRoutesNeedKey(t *testing.T) {
	env := newTestEnv(t)
	r := env.router()
	admin := r.Group("/admin", middleware.AdminKey(testAdminKey))
	admin.GET("/users", ListUsers(env.roles))
	admin.POST("/clear", ClearTestData(false, env.orders, env.reviews))

	env.roles.SetRole(context.Background(), "alice", models.RoleSeller, "")
	env.orders.Append(context.Background(), models.Order{Buyer: "alice"})

	if w := doJSON(t, r, http.MethodGet, "/admin/users", nil, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", w.Code)
	}

	w := doJSON(t, r, http.MethodGet, "/admin/users?adminKey="+testAdminKey, nil, "")
	if w.Code != http.StatusOK || decodeBody(t, w)["total"] != float64(1) {
		t.Fatalf("unexpected users response %d %s", w.Code, w.Body.String())
	}

	if w := doJSON(t, r, http.MethodPost, "/admin/clear?adminKey="+testAdminKey, nil, ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200 from clear, got %d", w.Code)
	}
	if n := len(env.orders.List(context.Background())); n != 0 {
		t.Fatalf("expected orders cleared, got %d", n)
	}
}

func TestClearRefusedInProduction(t *testing.T) {
	env := newTestEnv(t)
	r := env.router()
	r.POST("/admin/clear", ClearTestData(true, env.orders, env.reviews))

	env.orders.Append(context.Background(), models.Order{})
	if w := doJSON(t, r, http.MethodPost, "/admin/clear", nil, ""); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if n := len(env.orders.List(context.Background())); n != 1 {
		t.Fatalf("expected orders kept, got %d", n)
	}
}
