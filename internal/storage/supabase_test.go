package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/memorylane/internal/config"
)

func TestSupabaseStorage_Upload(t *testing.T) {
	var gotPath, gotAuth, gotType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	}))
	defer srv.Close()

	s := NewSupabaseStorage(srv.URL, "service-key", "media")
	err := s.Upload(context.Background(), "owner/id/photo.jpg", strings.NewReader("jpeg"), 4, "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, "/storage/v1/object/media/owner/id/photo.jpg", gotPath)
	assert.Equal(t, "Bearer service-key", gotAuth)
	assert.Equal(t, "image/jpeg", gotType)
	assert.Equal(t, "jpeg", gotBody)
}

func TestSupabaseStorage_UploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
	}))
	defer srv.Close()

	err := NewSupabaseStorage(srv.URL, "k", "media").Upload(context.Background(), "p", strings.NewReader("x"), 1, "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "413")
}

func TestSupabaseStorage_DeleteMissingIsOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	assert.NoError(t, NewSupabaseStorage(srv.URL, "k", "media").Delete(context.Background(), "gone.jpg"))
}

func TestSupabaseStorage_URL(t *testing.T) {
	u, err := NewSupabaseStorage("https://x.supabase.co", "k", "media").URL(context.Background(), "a/b.mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://x.supabase.co/storage/v1/object/public/media/a/b.mp4", u)
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Backend: "ftp"})
	assert.Error(t, err)
}
