package weaviate_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	adapter "deskmate/internal/adapter/weaviate"
	"deskmate/internal/vector"
)

func mockWeaviate(t *testing.T, handler http.HandlerFunc) (*weaviate.Client, *httptest.Server) {
	ts := httptest.NewServer(handler)
	cfg := weaviate.Config{Host: ts.Listener.Addr().String(), Scheme: "http"}
	client, err := weaviate.NewClient(cfg)
	assert.NoError(t, err)
	return client, ts
}

func TestStore_Upsert(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/meta" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"version": "1.19.0"}`))
			return
		}
		assert.Equal(t, "/v1/objects", r.URL.Path)
		assert.Equal(t, "POST", r.Method)

		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		assert.NotEmpty(t, body["id"], "object id must be set for idempotent writes")
		props := body["properties"].(map[string]interface{})
		assert.Equal(t, "office hours are 9 to 5", props["content"])
		assert.Equal(t, "abc12345", props["chunkId"])
		assert.Equal(t, "handbook.pdf", props["source"])

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{"id": body["id"]})
	})
	defer ts.Close()

	store := adapter.NewStore(client)
	err := store.Upsert(context.Background(), []vector.Entry{{
		ID:      "abc12345",
		Content: "office hours are 9 to 5",
		Vector:  []float32{0.1, 0.2},
		Source:  "handbook.pdf",
		Seq:     0,
	}})
	assert.NoError(t, err)
}

func TestStore_UpsertStableObjectID(t *testing.T) {
	var seen []string
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/meta" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"version": "1.19.0"}`))
			return
		}
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		seen = append(seen, body["id"].(string))
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{})
	})
	defer ts.Close()

	store := adapter.NewStore(client)
	entry := vector.Entry{ID: "abc12345", Content: "x", Vector: []float32{0.1}}
	assert.NoError(t, store.Upsert(context.Background(), []vector.Entry{entry}))
	assert.NoError(t, store.Upsert(context.Background(), []vector.Entry{entry}))

	assert.Len(t, seen, 2)
	assert.Equal(t, seen[0], seen[1], "same chunk id must map to the same object")
}

func TestStore_Delete(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/meta" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"version": "1.19.0"}`))
			return
		}
		assert.Equal(t, "DELETE", r.Method)
		assert.True(t, strings.HasPrefix(r.URL.Path, "/v1/objects/DocumentChunk/"))
		w.WriteHeader(http.StatusNoContent)
	})
	defer ts.Close()

	store := adapter.NewStore(client)
	err := store.Delete(context.Background(), []string{"abc12345", "def67890"})
	assert.NoError(t, err)
}

func TestStore_ListIDs(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/meta" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"version": "1.19.0"}`))
			return
		}
		assert.Equal(t, "/v1/graphql", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		resp := map[string]interface{}{
			"data": map[string]interface{}{
				"Get": map[string]interface{}{
					"DocumentChunk": []interface{}{
						map[string]interface{}{"chunkId": "bbb"},
						map[string]interface{}{"chunkId": "aaa"},
					},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})
	defer ts.Close()

	store := adapter.NewStore(client)
	ids, err := store.ListIDs(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{"aaa", "bbb"}, ids)
}

func TestStore_Query(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/meta" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"version": "1.19.0"}`))
			return
		}
		assert.Equal(t, "/v1/graphql", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		resp := map[string]interface{}{
			"data": map[string]interface{}{
				"Get": map[string]interface{}{
					"DocumentChunk": []interface{}{
						map[string]interface{}{
							"content": "found content",
							"chunkId": "abc12345",
							"source":  "handbook.pdf",
							"_additional": map[string]interface{}{
								"certainty": 0.95,
							},
						},
					},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})
	defer ts.Close()

	store := adapter.NewStore(client)
	hits, err := store.Query(context.Background(), []float32{0.1, 0.2}, 10)
	assert.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.Equal(t, "found content", hits[0].Content)
	assert.Equal(t, "abc12345", hits[0].ID)
	assert.Equal(t, "handbook.pdf", hits[0].Source)
	assert.Equal(t, float32(0.95), hits[0].Score)
}

func TestStore_QueryStringCertainty(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/meta" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"version": "1.19.0"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		resp := map[string]interface{}{
			"data": map[string]interface{}{
				"Get": map[string]interface{}{
					"DocumentChunk": []interface{}{
						map[string]interface{}{
							"content": "c",
							"_additional": map[string]interface{}{
								"certainty": "0.87",
							},
						},
					},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})
	defer ts.Close()

	store := adapter.NewStore(client)
	hits, err := store.Query(context.Background(), []float32{0.1}, 5)
	assert.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.Equal(t, float32(0.87), hits[0].Score)
}

func TestStore_QueryZeroK(t *testing.T) {
	store := adapter.NewStore(nil)
	hits, err := store.Query(context.Background(), []float32{0.1}, 0)
	assert.NoError(t, err)
	assert.Empty(t, hits)
}

func TestStore_Count(t *testing.T) {
	client, ts := mockWeaviate(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/meta" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"version": "1.19.0"}`))
			return
		}
		assert.Equal(t, "/v1/graphql", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		resp := map[string]interface{}{
			"data": map[string]interface{}{
				"Aggregate": map[string]interface{}{
					"DocumentChunk": []interface{}{
						map[string]interface{}{
							"meta": map[string]interface{}{
								"count": 42.0,
							},
						},
					},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	})
	defer ts.Close()

	store := adapter.NewStore(client)
	count, err := store.Count(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 42, count)
}
