package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kartikbazzad/bunbase/bunstore/collection"
	"github.com/kartikbazzad/bunbase/bunstore/internal/memory"
	"github.com/kartikbazzad/bunbase/bunstore/internal/metrics"
	apperrors "github.com/kartikbazzad/bunbase/bunstore/pkg/errors"
)

const testSecret = "s3cret"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := metrics.New()
	cs, err := collection.NewCollections(context.Background(), memory.NewStore(), collection.WithSchemaHook(m.SchemaChanged))
	if err != nil {
		t.Fatalf("NewCollections failed: %v", err)
	}
	srv, err := NewServer(cs, m, Config{SecretCode: testSecret})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return srv.Router()
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+testSecret)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON %q: %v", w.Body.String(), err)
	}
	return out
}

func TestAuth(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing", "", http.StatusUnauthorized, `{"error":"unauthorized"}`},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, `{"error":"unauthorized"}`},
		{"wrong token", "Bearer nope", http.StatusForbidden, `{"error":"forbidden"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/collections/users/1", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if w.Body.String() != tt.body {
				t.Errorf("body = %s, want %s", w.Body.String(), tt.body)
			}
		})
	}

	// Health and metrics stay open.
	for _, path := range []string{"/health", "/metrics"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, w.Code)
		}
	}
}

func TestCRUD(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/collections/users", `{"name":"bob","score":10.0,"ratio":1.5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"score":10,`) {
		t.Errorf("integral number not normalized: %s", w.Body.String())
	}
	created := decode(t, w)
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("no id in %v", created)
	}

	w = do(t, r, http.MethodGet, "/api/collections/users/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if got := decode(t, w); got["name"] != "bob" {
		t.Errorf("get = %v", got)
	}

	w = do(t, r, http.MethodPut, "/api/collections/users/"+id, `{"score":11}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", w.Code, w.Body.String())
	}
	if got := decode(t, w); got["score"] != 11.0 || got["name"] != "bob" {
		t.Errorf("update = %v", got)
	}

	w = do(t, r, http.MethodDelete, "/api/collections/users/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/api/collections/users/"+id, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ValueNotFound"`) {
		t.Errorf("unexpected error body: %s", w.Body.String())
	}
}

func TestErrors(t *testing.T) {
	r := newTestRouter(t)
	do(t, r, http.MethodPost, "/api/collections/users", `{"age":1}`)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		want   string
	}{
		{"validation", http.MethodPost, "/api/collections/users", `{"age":"old"}`, http.StatusBadRequest,
			`{"ValidateFields":{"collection":"users","fields":["age"]}}`},
		{"not an object", http.MethodPost, "/api/collections/users", `[1]`, http.StatusBadRequest,
			`{"CollectionInputData":{"collection":"users"}}`},
		{"unknown collection", http.MethodGet, "/api/collections/ghosts/1", "", http.StatusNotFound,
			`{"CollectionNotFound":{"collection":"ghosts"}}`},
		{"bad json", http.MethodPost, "/api/collections/users", `{`, http.StatusBadRequest,
			`{"error":"invalid JSON body"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, tt.method, tt.path, tt.body)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if w.Body.String() != tt.want {
				t.Errorf("body = %s, want %s", w.Body.String(), tt.want)
			}
		})
	}
}

func TestList(t *testing.T) {
	r := newTestRouter(t)
	for _, body := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		if w := do(t, r, http.MethodPost, "/api/collections/nums", body); w.Code != http.StatusOK {
			t.Fatalf("create failed: %s", w.Body.String())
		}
	}

	where := url.QueryEscape(`{"n":{"$gt":1}}`)
	w := do(t, r, http.MethodGet, "/api/collections/nums?where="+where, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d: %s", w.Code, w.Body.String())
	}
	var rows []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Errorf("got %d rows, want 2", len(rows))
	}

	w = do(t, r, http.MethodGet, "/api/collections/nums?where=%7B", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad where status = %d", w.Code)
	}
}

func TestBatch(t *testing.T) {
	r := newTestRouter(t)

	body := `{"requests":[
		{"action":"Create","collection":"tasks","data":{"id":"t1","title":"write"}},
		{"action":"Get","collection":"tasks","identifier":"t1"},
		{"action":"Get","collection":"tasks","identifier":"missing"},
		{"action":"Update","collection":"tasks","identifier":"t1","data":{"done":true}},
		{"action":"Delete","collection":"tasks","identifier":"t1"}
	]}`
	w := do(t, r, http.MethodPost, "/api/batch", body)
	if w.Code != http.StatusOK {
		t.Fatalf("batch status = %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 5 {
		t.Fatalf("got %d results, want 5", len(resp.Results))
	}
	if resp.Results[1]["title"] != "write" {
		t.Errorf("get result = %v", resp.Results[1])
	}
	if _, ok := resp.Results[2]["StorageError"]; !ok {
		t.Errorf("missing record should yield an error payload, got %v", resp.Results[2])
	}
	if resp.Results[3]["done"] != true {
		t.Errorf("update result = %v", resp.Results[3])
	}
}

func TestBatchRejectsMalformedEnvelope(t *testing.T) {
	r := newTestRouter(t)

	for _, body := range []string{
		`{}`,
		`{"requests":[{"action":"Drop","collection":"x"}]}`,
		`{"requests":[{"action":"Get","collection":"x"}]}`,
		`{"requests":[{"action":"Create","collection":"x"}]}`,
	} {
		w := do(t, r, http.MethodPost, "/api/batch", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, w.Code)
		}
	}
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(60, 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes[i] = w.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}
}

func TestRequestID(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Header().Get(requestIDHeader) == "" {
		t.Error("expected a generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); got != "abc" {
		t.Errorf("request id = %q, want abc", got)
	}
}

func TestUnknownRoute(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/nowhere", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if w.Body.String() != `{"error":"not found"}` {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestToAppError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"app error kept", fmt.Errorf("wrapped: %w", apperrors.BadRequest("bad")), http.StatusBadRequest},
		{"missing collection", &collection.CollectionError{Kind: collection.KindCollectionNotFound, Collection: "x"}, http.StatusNotFound},
		{"missing value", &collection.StorageError{Kind: collection.KindValueNotFound, Collection: "x", ID: "1"}, http.StatusNotFound},
		{"validation", &collection.CollectionError{Kind: collection.KindValidateFields, Collection: "x", Fields: []string{"a"}}, http.StatusBadRequest},
		{"untyped", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toAppError(tt.err).Code; got != tt.status {
				t.Errorf("status = %d, want %d", got, tt.status)
			}
		})
	}
}
