package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vectra/internal/engine"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	eng := engine.New(engine.Options{})
	srv := New("127.0.0.1:0", eng)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func createLibrary(t *testing.T, ts *httptest.Server, body map[string]any) map[string]any {
	t.Helper()
	resp, lib := doJSON(t, http.MethodPost, ts.URL+"/libraries", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return lib
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "vectra", body["service"])
	storage, ok := body["storage"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 0, storage["libraries"])
}

func TestLibraryLifecycle(t *testing.T) {
	ts := newTestServer(t)

	lib := createLibrary(t, ts, map[string]any{"name": "docs", "index_type": "flat"})
	libID, _ := lib["id"].(string)
	require.NotEmpty(t, libID)

	resp, got := doJSON(t, http.MethodGet, ts.URL+"/libraries/"+libID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "docs", got["name"])

	resp, got = doJSON(t, http.MethodPatch, ts.URL+"/libraries/"+libID, map[string]any{"name": "docs-v2"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "docs-v2", got["name"])

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/libraries/"+libID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/libraries/"+libID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateLibraryRejectsBadIndex(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/libraries",
		map[string]any{"name": "bad", "index_type": "graph"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/libraries",
		map[string]any{"name": "bad", "index_type": "ivf", "index_config": map[string]any{"nlist": -1}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChunkFlowAndQuery(t *testing.T) {
	ts := newTestServer(t)
	lib := createLibrary(t, ts, map[string]any{"name": "lib", "index_type": "flat"})
	libID := lib["id"].(string)

	resp, doc := doJSON(t, http.MethodPost, ts.URL+"/libraries/"+libID+"/documents",
		map[string]any{"name": "doc"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	docID := doc["id"].(string)

	chunksURL := fmt.Sprintf("%s/libraries/%s/documents/%s/chunks", ts.URL, libID, docID)
	for i := 0; i < 6; i++ {
		resp, _ := doJSON(t, http.MethodPost, chunksURL, map[string]any{
			"text":      fmt.Sprintf("chunk %d", i),
			"embedding": []float32{float32(i), 1, 0},
			"metadata":  map[string]any{"parity": i % 2},
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	// Dimension mismatch surfaces as 400.
	resp, _ = doJSON(t, http.MethodPost, chunksURL, map[string]any{
		"text":      "bad",
		"embedding": []float32{1, 2},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unfiltered query.
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/libraries/"+libID+"/query", map[string]any{
		"embedding": []float32{5, 1, 0},
		"k":         3,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := body["results"].([]any)
	assert.Len(t, results, 3)
	assert.EqualValues(t, 3, body["total"])

	// Filtered query with the declarative DSL.
	resp, body = doJSON(t, http.MethodPost, ts.URL+"/libraries/"+libID+"/query", map[string]any{
		"embedding": []float32{5, 1, 0},
		"k":         2,
		"filters": map[string]any{
			"metadata": map[string]any{
				"operator": "and",
				"filters": []map[string]any{
					{"field": "parity", "op": "eq", "value": 0},
				},
			},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, r := range body["results"].([]any) {
		meta := r.(map[string]any)["metadata"].(map[string]any)
		assert.EqualValues(t, 0, meta["parity"])
	}

	// k out of range.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/libraries/"+libID+"/query", map[string]any{
		"embedding": []float32{5, 1, 0},
		"k":         5000,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown library.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/libraries/missing/query", map[string]any{
		"embedding": []float32{5, 1, 0},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChunksBatchRollback(t *testing.T) {
	ts := newTestServer(t)
	lib := createLibrary(t, ts, map[string]any{"name": "lib"})
	libID := lib["id"].(string)
	resp, doc := doJSON(t, http.MethodPost, ts.URL+"/libraries/"+libID+"/documents",
		map[string]any{"name": "doc"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	docID := doc["id"].(string)

	batchURL := fmt.Sprintf("%s/libraries/%s/documents/%s/chunks/batch", ts.URL, libID, docID)
	chunks := make([]map[string]any, 10)
	for i := range chunks {
		chunks[i] = map[string]any{
			"text":      fmt.Sprintf("chunk %d", i),
			"embedding": []float32{float32(i), 1, 0},
		}
	}
	chunks[6]["embedding"] = []float32{1, 2} // wrong dimension

	resp, _ = doJSON(t, http.MethodPost, batchURL, map[string]any{"chunks": chunks})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, status := doJSON(t, http.MethodGet, ts.URL+"/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, status["chunks"], "failed batch must not leave chunks behind")

	// A clean batch lands atomically.
	for i := range chunks {
		chunks[i]["embedding"] = []float32{float32(i), 1, 0}
	}
	resp, body := doJSON(t, http.MethodPost, batchURL, map[string]any{"chunks": chunks})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.EqualValues(t, 10, body["total"])
}

func TestBuildIndexEndpoint(t *testing.T) {
	ts := newTestServer(t)
	lib := createLibrary(t, ts, map[string]any{
		"name": "lib", "index_type": "ivf",
		"index_config": map[string]any{"nlist": 2},
	})
	libID := lib["id"].(string)

	// No vectors yet: surfaced as 400 by the adapter.
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/libraries/"+libID+"/build-index", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, doc := doJSON(t, http.MethodPost, ts.URL+"/libraries/"+libID+"/documents",
		map[string]any{"name": "doc"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	docID := doc["id"].(string)
	chunksURL := fmt.Sprintf("%s/libraries/%s/documents/%s/chunks", ts.URL, libID, docID)
	for i := 0; i < 4; i++ {
		resp, _ := doJSON(t, http.MethodPost, chunksURL, map[string]any{
			"text": "c", "embedding": []float32{float32(i), 1},
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, stats := doJSON(t, http.MethodPost, ts.URL+"/libraries/"+libID+"/build-index", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 4, stats["total_vectors"])
	assert.EqualValues(t, 2, stats["dimension"])

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/libraries/missing/build-index", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSnapshotEndpointsDisabled(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/snapshot/save", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/snapshot/restore", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestQueryRequiresEmbedding(t *testing.T) {
	ts := newTestServer(t)
	lib := createLibrary(t, ts, map[string]any{"name": "lib"})
	libID := lib["id"].(string)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/libraries/"+libID+"/query", map[string]any{"k": 3})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
