package story

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/memorylane/internal/llm"
	"github.com/nikhilbhutani/memorylane/internal/models"
	"github.com/nikhilbhutani/memorylane/internal/multimodal"
	"github.com/nikhilbhutani/memorylane/internal/multimodal/tts"
)

type memRepo struct {
	mu      sync.Mutex
	stories map[uuid.UUID]*models.Story
}

func newMemRepo() *memRepo { return &memRepo{stories: map[uuid.UUID]*models.Story{}} }

func (r *memRepo) Insert(_ context.Context, s *models.Story) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.stories[s.ID] = &cp
	return nil
}

func (r *memRepo) Get(_ context.Context, id uuid.UUID) (*models.Story, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stories[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memRepo) List(_ context.Context, owner uuid.UUID, _, _ int) ([]*models.Story, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Story
	for _, s := range r.stories {
		if s.OwnerID == owner {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memRepo) SetNarrationURL(_ context.Context, id uuid.UUID, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stories[id]
	if !ok {
		return ErrNotFound
	}
	s.NarrationURL = url
	return nil
}

type fakeFiles struct {
	files []*models.File
}

func (f *fakeFiles) GetMany(_ context.Context, owner uuid.UUID, ids []uuid.UUID) ([]*models.File, error) {
	want := map[uuid.UUID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []*models.File
	// reverse order to prove the service restores request order
	for i := len(f.files) - 1; i >= 0; i-- {
		if file := f.files[i]; file.OwnerID == owner && want[file.ID] {
			out = append(out, file)
		}
	}
	return out, nil
}

type fakeGenerator struct {
	content string
	err     error
	last    llm.ChatRequest
}

func (g *fakeGenerator) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	g.last = req
	if g.err != nil {
		return nil, g.err
	}
	return &llm.ChatResponse{Content: g.content, Provider: "openai", Model: "gpt-4o-mini"}, nil
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failUp  error
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStorage) Upload(_ context.Context, path string, data io.Reader, _ int64, contentType string) error {
	if m.failUp != nil {
		return m.failUp
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = b
	m.types[path] = contentType
	return nil
}

func (m *memStorage) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, path)
	return nil
}

func (m *memStorage) URL(_ context.Context, path string) (string, error) {
	return "https://cdn/" + path, nil
}

type fakeQueue struct {
	enqueued []uuid.UUID
	err      error
}

func (q *fakeQueue) EnqueueStoryNarrate(_ context.Context, id uuid.UUID) error {
	q.enqueued = append(q.enqueued, id)
	return q.err
}

type fakeImage struct {
	name string
	err  error
	req  multimodal.ImageGenRequest
}

func (f *fakeImage) Name() string { return f.name }

func (f *fakeImage) Generate(_ context.Context, req multimodal.ImageGenRequest) (*multimodal.GeneratedImage, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &multimodal.GeneratedImage{Data: []byte("png"), ContentType: "image/png"}, nil
}

type fakeSpeaker struct {
	input string
	err   error
}

func (f *fakeSpeaker) Narrate(_ context.Context, req tts.SynthesisRequest) (*tts.SynthesisResult, error) {
	f.input = req.Input
	if f.err != nil {
		return nil, f.err
	}
	return &tts.SynthesisResult{Audio: []byte("mp3"), ContentType: "audio/mpeg", Provider: "openai-tts"}, nil
}

var errBoom = errors.New("boom")
