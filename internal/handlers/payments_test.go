package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pistore/internal/models"
	"pistore/internal/payment"
	"pistore/internal/pi"
)

// fakePiServer answers like the platform API: approve echoes the payment,
// complete reports whatever status is configured for the payment id.
func fakePiServer(t *testing.T, completed map[string]bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Key test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized","error_message":"bad key"}`))
			return
		}

		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case len(parts) == 1 && parts[0] == "payments" && r.Method == http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
			w.Write(body)
		case len(parts) == 3 && parts[2] == "approve":
			w.Write([]byte(`{"identifier":"` + parts[1] + `","status":{"developer_approved":true}}`))
		case len(parts) == 3 && parts[2] == "cancel":
			w.Write([]byte(`{"identifier":"` + parts[1] + `","status":{"cancelled":true}}`))
		case len(parts) == 3 && parts[2] == "complete":
			var body struct {
				TxID string `json:"txid"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			record := map[string]any{
				"identifier":  parts[1],
				"user_uid":    "uid-alice",
				"amount":      3.14,
				"memo":        "Pie",
				"metadata":    map[string]string{"username": "alice"},
				"status":      map[string]bool{"developer_approved": true, "developer_completed": completed[parts[1]]},
				"transaction": map[string]string{"txid": body.TxID},
			}
			json.NewEncoder(w).Encode(record)
		case len(parts) == 2 && r.Method == http.MethodGet:
			w.Write([]byte(`{"identifier":"` + parts[1] + `"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"not_found"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newPaymentRouter(t *testing.T, env *testEnv, completed map[string]bool) http.Handler {
	srv := fakePiServer(t, completed)
	bridge := payment.NewBridge(pi.NewClient(srv.URL, "test-key", time.Second), env.orders)

	r := env.router()
	r.POST("/pi/create", CreatePayment(bridge))
	r.POST("/pi/approve", ApprovePayment(bridge))
	r.POST("/pi/complete", CompletePayment(bridge))
	r.POST("/pi/cancel", CancelPayment(bridge))
	r.POST("/pi/incomplete", ResolveIncompletePayment(bridge))
	r.GET("/pi/payments/:id", GetPayment(bridge))
	return r
}

func TestApprovePassesProviderReplyThrough(t *testing.T) {
	env := newTestEnv(t)
	r := newPaymentRouter(t, env, nil)

	w := doJSON(t, r, http.MethodPost, "/pi/approve", map[string]string{"paymentId": "p1"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); got != `{"identifier":"p1","status":{"developer_approved":true}}` {
		t.Fatalf("expected verbatim body, got %s", got)
	}
}

func TestCompleteCreatesOrderOnce(t *testing.T) {
	env := newTestEnv(t)
	r := newPaymentRouter(t, env, map[string]bool{"p1": true})

	for i := 0; i < 2; i++ {
		w := doJSON(t, r, http.MethodPost, "/pi/complete", map[string]string{"paymentId": "p1", "txid": "tx1"}, "")
		if w.Code != http.StatusOK {
			t.Fatalf("complete %d: expected 200, got %d: %s", i, w.Code, w.Body.String())
		}
		body := decodeBody(t, w)
		if body["status"] != "completed" || body["duplicate"] != (i == 1) {
			t.Fatalf("complete %d: unexpected body %v", i, body)
		}
	}

	list := env.orders.List(context.Background())
	if len(list) != 1 {
		t.Fatalf("expected one order, got %d", len(list))
	}
	if list[0].Buyer != "alice" || list[0].Status != models.StatusPaid || list[0].Total != 3.14 {
		t.Fatalf("unexpected order %+v", list[0])
	}
}

func TestCompletePendingCreatesNoOrder(t *testing.T) {
	env := newTestEnv(t)
	r := newPaymentRouter(t, env, map[string]bool{"p2": false})

	w := doJSON(t, r, http.MethodPost, "/pi/complete", map[string]string{"paymentId": "p2", "txid": "tx2"}, "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if decodeBody(t, w)["status"] != "pending" {
		t.Fatalf("expected pending status, got %s", w.Body.String())
	}
	if n := len(env.orders.List(context.Background())); n != 0 {
		t.Fatalf("expected no orders, got %d", n)
	}
}

func TestCreatePaymentValidation(t *testing.T) {
	env := newTestEnv(t)
	r := newPaymentRouter(t, env, nil)

	w := doJSON(t, r, http.MethodPost, "/pi/create", map[string]any{"amount": 1, "memo": "m"}, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/pi/create", map[string]any{"amount": -1, "memo": "m", "user_uid": "u"}, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative amount, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/pi/create", map[string]any{"amount": 2, "memo": "m", "user_uid": "u"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpstreamErrorIsReported(t *testing.T) {
	env := newTestEnv(t)
	srv := fakePiServer(t, nil)
	bridge := payment.NewBridge(pi.NewClient(srv.URL, "wrong-key", time.Second), env.orders)

	r := env.router()
	r.POST("/pi/complete", CompletePayment(bridge))

	w := doJSON(t, r, http.MethodPost, "/pi/complete", map[string]string{"paymentId": "p1", "txid": "tx"}, "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["message"] != "bad key" || body["success"] != false {
		t.Fatalf("expected upstream message, got %v", body)
	}
}

func TestIncompletePaymentWithoutTxIDIsCancelled(t *testing.T) {
	env := newTestEnv(t)
	r := newPaymentRouter(t, env, nil)

	w := doJSON(t, r, http.MethodPost, "/pi/incomplete", map[string]any{
		"payment": map[string]any{"identifier": "p9", "amount": 1, "status": map[string]bool{}},
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if decodeBody(t, w)["status"] != "cancelled" {
		t.Fatalf("expected cancelled, got %s", w.Body.String())
	}
}

func TestGetPaymentPassthrough(t *testing.T) {
	env := newTestEnv(t)
	r := newPaymentRouter(t, env, nil)

	w := doJSON(t, r, http.MethodGet, "/pi/payments/p5", nil, "")
	if w.Code != http.StatusOK || w.Body.String() != `{"identifier":"p5"}` {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body.String())
	}
}
