package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vovakirdan/batepapo-server/internal/chat"
	"github.com/vovakirdan/batepapo-server/internal/config"
	"github.com/vovakirdan/batepapo-server/internal/log"
	"github.com/vovakirdan/batepapo-server/internal/store"
	"github.com/vovakirdan/batepapo-server/internal/store/sqlite"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testServer bundles a router with the in-memory store behind it.
type testServer struct {
	handler http.Handler
	store   store.Store
}

// newTestServer creates a router over an in-memory SQLite store.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second

	svc := chat.NewService(st, nil, log.Nop())
	server := NewServer(svc, &cfg, log.Nop())

	return &testServer{handler: server.Handler, store: st}
}

// do performs a request; user is sent as the identity header when non-empty.
func (s *testServer) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("User", user)
	}

	resp := httptest.NewRecorder()
	s.handler.ServeHTTP(resp, req)
	return resp
}

func (s *testServer) register(t *testing.T, name string) {
	t.Helper()

	resp := s.do(t, http.MethodPost, "/participants", "", map[string]string{"name": name})
	if resp.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d: %s", name, resp.Code, resp.Body.String())
	}
}

func (s *testServer) post(t *testing.T, from, to, text, typ string) {
	t.Helper()

	resp := s.do(t, http.MethodPost, "/messages", from, map[string]string{"to": to, "text": text, "type": typ})
	if resp.Code != http.StatusCreated {
		t.Fatalf("post from %s: expected 201, got %d: %s", from, resp.Code, resp.Body.String())
	}
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", resp.Body.String(), err)
	}
	return out
}
