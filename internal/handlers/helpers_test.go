package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"pistore/internal/middleware"
	"pistore/internal/models"
	"pistore/internal/store"
	"pistore/internal/store/storetest"
)

const (
	testCookie   = "pi_session"
	testAdminKey = "admin-secret"
)

type testEnv struct {
	kv       *storetest.MemoryKV
	blob     *storetest.MemoryBlob
	orders   *store.OrderRepository
	reviews  *store.ReviewRepository
	sessions *store.SessionStore
	roles    *store.RoleStore
	profiles *store.ProfileStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	kv := storetest.NewMemoryKV()
	return &testEnv{
		kv:       kv,
		blob:     storetest.NewMemoryBlob(),
		orders:   store.NewOrderRepository(store.NewKVDocument(kv, store.OrdersKey)),
		reviews:  store.NewReviewRepository(store.NewKVDocument(kv, store.ReviewsKey)),
		sessions: store.NewSessionStore(kv, "test-secret", time.Hour),
		roles:    store.NewRoleStore(kv),
		profiles: store.NewProfileStore(kv),
	}
}

// router returns an engine with optional session resolution installed.
func (e *testEnv) router() *gin.Engine {
	r := gin.New()
	r.Use(middleware.SessionAuth(e.sessions, testCookie, false))
	return r
}

func (e *testEnv) requireSession() gin.HandlerFunc {
	return middleware.SessionAuth(e.sessions, testCookie, true)
}

func (e *testEnv) login(t *testing.T, username string) string {
	t.Helper()
	token, _, err := e.sessions.Issue(context.Background(), models.Identity{UID: "uid-" + username, Username: username})
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	return token
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	switch v := body.(type) {
	case nil:
	case string:
		payload = []byte(v)
	default:
		var err error
		if payload, err = json.Marshal(v); err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: testCookie, Value: token})
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}
