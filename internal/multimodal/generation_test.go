package multimodal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageGenerator_Generate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/images/generations", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = io.WriteString(w, `{"data":[{"b64_json":"aGVsbG8=","revised_prompt":"a sunny beach"}]}`)
	}))
	defer srv.Close()

	g := NewImageGenerator(ImageGenConfig{BaseURL: srv.URL, Model: "dall-e-2"})
	img, err := g.Generate(context.Background(), ImageGenRequest{Prompt: "beach"})
	require.NoError(t, err)

	assert.Equal(t, "openai-dall-e-2", g.Name())
	assert.Equal(t, "hello", string(img.Data))
	assert.Equal(t, "a sunny beach", img.RevisedPrompt)
	assert.Equal(t, "b64_json", body["response_format"])
	assert.Equal(t, "1024x1024", body["size"])
}

func TestImageGenerator_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "content policy", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewImageGenerator(ImageGenConfig{BaseURL: srv.URL}).Generate(context.Background(), ImageGenRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}
