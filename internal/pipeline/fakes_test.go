package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/memorylane/internal/config"
	"github.com/nikhilbhutani/memorylane/internal/models"
	"github.com/nikhilbhutani/memorylane/internal/multimodal"
	"github.com/nikhilbhutani/memorylane/internal/multimodal/probe"
	"github.com/nikhilbhutani/memorylane/internal/multimodal/stt"
)

var errNotFound = errors.New("file not found")

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type memStore struct {
	mu    sync.Mutex
	files map[uuid.UUID]*models.File

	beginErr error
	saveErr  error
	failErr  error
	saves    int
}

func newMemStore(files ...*models.File) *memStore {
	s := &memStore{files: make(map[uuid.UUID]*models.File)}
	for _, f := range files {
		s.files[f.ID] = cloneFile(f)
	}
	return s
}

func cloneFile(f *models.File) *models.File {
	c := *f
	c.ProcessingHistory = append([]models.ProcessingEntry(nil), f.ProcessingHistory...)
	return &c
}

func (s *memStore) BeginRun(_ context.Context, id uuid.UUID) (*models.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	f, ok := s.files[id]
	if !ok {
		return nil, errNotFound
	}
	f.Generation++
	f.Status = models.FileStatusProcessing
	f.ProcessingProgress = ProgressSeed
	return cloneFile(f), nil
}

func (s *memStore) SaveRun(_ context.Context, f *models.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if s.files[f.ID].Generation != f.Generation {
		return ErrStaleRun
	}
	s.saves++
	s.files[f.ID] = cloneFile(f)
	return nil
}

func (s *memStore) FailRun(_ context.Context, id uuid.UUID, generation int64, entry models.ProcessingEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	f, ok := s.files[id]
	if !ok {
		return errNotFound
	}
	if generation != 0 && f.Generation != generation {
		return ErrStaleRun
	}
	f.Status = models.FileStatusFailed
	f.ProcessingHistory = append(f.ProcessingHistory, entry)
	return nil
}

// supersede simulates a newer run taking over the file.
func (s *memStore) supersede(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id].Generation++
}

func (s *memStore) get(id uuid.UUID) *models.File {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneFile(s.files[id])
}

type fakeInspector struct {
	info *probe.FileInfo
	err  error
	src  string
}

func (f *fakeInspector) Inspect(_ context.Context, src string, _ models.MediaKind) (*probe.FileInfo, error) {
	f.src = src
	return f.info, f.err
}

type fakeURLs struct {
	url   string
	err   error
	paths []string
}

func (u *fakeURLs) URL(_ context.Context, path string) (string, error) {
	u.paths = append(u.paths, path)
	return u.url, u.err
}

type fakeFrames struct {
	data []byte
	err  error
	at   float64
}

func (f *fakeFrames) ExtractFrame(_ context.Context, _ string, at float64) ([]byte, error) {
	f.at = at
	return f.data, f.err
}

type fakeTranscriber struct {
	errs  []error
	resp  *stt.TranscriptionResponse
	calls int
}

func (f *fakeTranscriber) Transcribe(context.Context, stt.TranscriptionRequest) (*stt.TranscriptionResponse, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.resp, nil
}

type fakeVision struct {
	res   *multimodal.VisionResult
	err   error
	hook  func(ctx context.Context)
	image multimodal.ImageInput
}

func (f *fakeVision) AnalyzeMedia(ctx context.Context, image multimodal.ImageInput, _ models.MediaKind) (*multimodal.VisionResult, error) {
	f.image = image
	if f.hook != nil {
		f.hook(ctx)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

type fakeEmbedder struct {
	vec   []float32
	err   error
	panic bool
	hook  func(ctx context.Context)
	text  string
}

func (f *fakeEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if f.panic {
		panic("boom")
	}
	f.text = text
	if f.hook != nil {
		f.hook(ctx)
	}
	return f.vec, f.err
}

type fakeLocker struct {
	held     bool
	err      error
	released bool
}

func (l *fakeLocker) TryLock(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	return func(context.Context) error {
		l.released = true
		return nil
	}, true, nil
}

func speechResponse() *stt.TranscriptionResponse {
	return &stt.TranscriptionResponse{
		Text:     "Happy birthday, dear Sam! Make a wish.",
		Language: "english",
		Duration: 10,
		Segments: []stt.Segment{
			{ID: 0, Start: 0, End: 5, Text: "Happy birthday, dear Sam!", AvgLogprob: 0, NoSpeechProb: 0, CompressionRatio: 1.2},
			{ID: 1, Start: 5, End: 10, Text: "Make a wish.", AvgLogprob: 0, NoSpeechProb: 0, CompressionRatio: 1.2},
		},
	}
}

func beachVision() *multimodal.VisionResult {
	return &multimodal.VisionResult{
		Tags:        []models.VisionTag{{Tag: "cake", Confidence: 0.9}, {Tag: "party", Confidence: 0.8}},
		Description: "A birthday cake with candles.",
		Emotions:    []string{"joy"},
		Objects:     []string{"cake"},
		Faces:       []models.Face{},
	}
}

type harness struct {
	store       *memStore
	inspector   *fakeInspector
	frames      *fakeFrames
	transcriber *fakeTranscriber
	vision      *fakeVision
	embedder    *fakeEmbedder
	locker      *fakeLocker
	urls        *fakeURLs
	processor   *Processor
}

func newHarness(files ...*models.File) *harness {
	ten := 10.0
	w, h := 1920, 1080
	hs := &harness{
		store:       newMemStore(files...),
		inspector:   &fakeInspector{info: &probe.FileInfo{Duration: &ten, Width: &w, Height: &h}},
		frames:      &fakeFrames{data: []byte{0xff, 0xd8}},
		transcriber: &fakeTranscriber{resp: speechResponse()},
		vision:      &fakeVision{res: beachVision()},
		embedder:    &fakeEmbedder{vec: []float32{0.1, 0.2, 0.3}},
		locker:      &fakeLocker{},
		urls:        &fakeURLs{url: "https://cdn.example.com/clip?sig=fresh"},
	}
	hs.processor = NewProcessor(Deps{
		Store:       hs.store,
		Locker:      hs.locker,
		URLs:        hs.urls,
		Inspector:   hs.inspector,
		Frames:      hs.frames,
		Transcriber: hs.transcriber,
		Vision:      hs.vision,
		Embedder:    hs.embedder,
		Config: config.PipelineConfig{
			LockTTL:        time.Minute,
			RetryBaseDelay: time.Millisecond,
			Quality:        config.DefaultQualityThresholds(),
		},
		Now: func() time.Time { return testNow },
	})
	return hs
}

func newFile(kind models.MediaKind) *models.File {
	return &models.File{
		ID:                 uuid.New(),
		OwnerID:            uuid.New(),
		OriginalName:       "clip",
		StoragePath:        "owner/clip",
		StorageURL:         "https://cdn.example.com/clip",
		MediaKind:          kind,
		Status:             models.FileStatusProcessing,
		ProcessingProgress: 5,
	}
}

func historySteps(f *models.File) []models.StepName {
	var out []models.StepName
	for _, e := range f.ProcessingHistory {
		if e.Status != models.EntryProcessing {
			out = append(out, e.Step)
		}
	}
	return out
}
