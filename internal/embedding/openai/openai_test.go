package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("EMBED_TEST_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "EMBED_TEST_KEY"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EMBED_TEST_KEY")
}

func TestEmbed(t *testing.T) {
	t.Setenv("EMBED_TEST_KEY", "sk-test")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req struct {
			Input string `json:"input"`
			Model string `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "some text", req.Input)

		json.NewEncoder(w).Encode(map[string]any{
			"data": []any{map[string]any{"embedding": []float32{0.5, 0.5}}},
		})
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, APIKeyEnv: "EMBED_TEST_KEY", Dimension: 2})
	require.NoError(t, err)

	vec, err := c.Embed(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vec)
	assert.Equal(t, 2, c.Dimension())
}

func TestEmbedRetriesRateLimit(t *testing.T) {
	t.Setenv("EMBED_TEST_KEY", "sk-test")
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []any{map[string]any{"embedding": []float32{1}}},
		})
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, APIKeyEnv: "EMBED_TEST_KEY"})
	require.NoError(t, err)

	vec, err := c.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbedEmptyResponse(t *testing.T) {
	t.Setenv("EMBED_TEST_KEY", "sk-test")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, APIKeyEnv: "EMBED_TEST_KEY"})
	require.NoError(t, err)

	_, err = c.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no embedding returned")
}
