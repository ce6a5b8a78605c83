package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateStreams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
			Stream bool   `json:"stream"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, "the prompt", req.Prompt)
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Write([]byte(`{"response":"Hel","done":false}` + "\n"))
		w.Write([]byte(`{"response":"lo.","done":false}` + "\n"))
		w.Write([]byte(`{"response":"","done":true}` + "\n"))
		// Anything after done must be ignored.
		w.Write([]byte(`{"response":"junk","done":false}` + "\n"))
	}))
	defer srv.Close()

	g := NewGenerator(Config{BaseURL: srv.URL, Model: "test-model"})
	var got strings.Builder
	err := g.Generate(context.Background(), "the prompt", func(d string) { got.WriteString(d) })
	require.NoError(t, err)
	assert.Equal(t, "Hello.", got.String())
}

func TestGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such model", http.StatusNotFound)
	}))
	defer srv.Close()

	g := NewGenerator(Config{BaseURL: srv.URL})
	err := g.Generate(context.Background(), "p", func(string) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama generate failed")
}

func TestGenerateMalformedStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json\n"))
	}))
	defer srv.Close()

	g := NewGenerator(Config{BaseURL: srv.URL})
	err := g.Generate(context.Background(), "p", func(string) {})
	assert.Error(t, err)
}
