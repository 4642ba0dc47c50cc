package restapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"fuelstreams/internal/auth"
	"fuelstreams/internal/record"
	"fuelstreams/internal/store"
)

type stubStore struct {
	rows []record.Row
	err  error
}

func (s *stubStore) FindMany(ctx context.Context, entityID string, q store.QueryParams) ([]record.Row, error) {
	return s.rows, s.err
}

func testServer(t *testing.T, st Store) *Server {
	t.Helper()
	e, err := auth.New(func(ctx context.Context, key string) (*auth.APIKey, bool, error) {
		return &auth.APIKey{ID: "k1", Status: auth.StatusActive, Role: auth.Role{Scopes: []auth.Scope{auth.ScopeRestApi}, RateLimitPerMinute: auth.Unlimited}}, true, nil
	}, 16, 0)
	if err != nil {
		t.Fatalf("auth.New: %v", err)
	}
	return &Server{Store: st, Auth: e}
}

func TestHandleQueryReturnsEnvelope(t *testing.T) {
	enc, err := record.Encode([]byte(`{"height":10}`), record.CompressionNone)
	if err != nil {
		t.Fatalf("record.Encode: %v", err)
	}
	rows := []record.Row{{BlockHeight: 10, Subject: "blocks.10", Value: enc}}
	s := testServer(t, &stubStore{rows: rows})

	req := httptest.NewRequest(http.MethodGet, "/v1/blocks", nil)
	req.Header.Set("X-API-Key", "abc")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Metadata.Total != 1 || len(resp.Data) != 1 {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if string(resp.Data[0].Value) != `{"height":10}` {
		t.Fatalf("expected decoded canonical JSON value, got %s", resp.Data[0].Value)
	}
}

func TestHandleQueryRejectsMissingKey(t *testing.T) {
	s := testServer(t, &stubStore{})
	req := httptest.NewRequest(http.MethodGet, "/v1/blocks", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestHandleQueryRejectsMalformedCursor(t *testing.T) {
	s := testServer(t, &stubStore{})
	req := httptest.NewRequest(http.MethodGet, "/v1/blocks?after=not-base64!!", nil)
	req.Header.Set("X-API-Key", "abc")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestChiPathRendersDottedEntityAsSlashes(t *testing.T) {
	if got := chiPath("inputs.coin"); got != "inputs/coin" {
		t.Errorf("chiPath(inputs.coin) = %q", got)
	}
}
