package vectordb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/openclaims/claimlens/internal/config"
	"github.com/openclaims/claimlens/internal/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(logger.NewNop(), config.VectorDBConfig{
		URL:        srv.URL,
		Collection: "policy_chunks",
		Timeout:    2 * time.Second,
	})
	return client, srv
}

func TestClient_Search(t *testing.T) {
	var gotBody map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/policy_chunks/points/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":[
			{"id":"chunk-1","score":0.92,"payload":{"source":"insurance_claim_policy","content":"coverage text"}},
			{"id":7,"score":0.81,"payload":{}}
		],"status":"ok"}`))
	})

	filter := &Filter{Must: []Condition{{Key: "source", Value: "insurance_claim_policy"}}}
	points, err := client.Search(context.Background(), []float32{0.1, 0.2}, 3, filter)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].ID != "chunk-1" || points[0].Score != 0.92 {
		t.Errorf("first point = %+v", points[0])
	}
	if points[1].ID != "7" {
		t.Errorf("integer id not normalized: %+v", points[1])
	}

	wantFilter := map[string]any{
		"must": []any{
			map[string]any{"key": "source", "match": map[string]any{"value": "insurance_claim_policy"}},
		},
	}
	if diff := cmp.Diff(wantFilter, gotBody["filter"]); diff != "" {
		t.Errorf("filter mismatch (-want +got):\n%s", diff)
	}
	if gotBody["limit"] != float64(3) {
		t.Errorf("limit = %v, want 3", gotBody["limit"])
	}
	if gotBody["with_payload"] != true {
		t.Error("expected with_payload true")
	}
}

func TestClient_Search_ShouldFilter(t *testing.T) {
	var gotBody map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"result":[],"status":"ok"}`))
	})

	filter := &Filter{Should: []Condition{
		{Key: "source", Value: "insurance_claim_policy"},
		{Key: "user_id", Value: "user-1"},
	}}
	if _, err := client.Search(context.Background(), []float32{0.5}, 5, filter); err != nil {
		t.Fatalf("Search: %v", err)
	}

	f, ok := gotBody["filter"].(map[string]any)
	if !ok {
		t.Fatalf("filter missing from request: %v", gotBody)
	}
	should, ok := f["should"].([]any)
	if !ok || len(should) != 2 {
		t.Errorf("should clause = %v, want 2 alternatives", f["should"])
	}
	if _, hasMust := f["must"]; hasMust {
		t.Error("unexpected must clause")
	}
}

func TestClient_Search_ServerError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":{"error":"collection not found"}}`, http.StatusNotFound)
	})

	if _, err := client.Search(context.Background(), []float32{0.5}, 5, nil); err == nil {
		t.Error("expected error for non-200 status")
	}
}

func TestClient_Search_EmptyVector(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	})
	if _, err := client.Search(context.Background(), nil, 5, nil); err == nil {
		t.Error("expected error for empty vector")
	}
}
