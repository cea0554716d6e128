package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/memorylane/internal/models"
	"github.com/nikhilbhutani/memorylane/internal/multimodal"
	"github.com/nikhilbhutani/memorylane/internal/multimodal/probe"
	"github.com/nikhilbhutani/memorylane/internal/multimodal/stt"
)

// Capability providers the steps call. Implementations live in
// internal/multimodal and internal/embedding.

type FileInspector interface {
	Inspect(ctx context.Context, src string, kind models.MediaKind) (*probe.FileInfo, error)
}

type FrameExtractor interface {
	ExtractFrame(ctx context.Context, src string, at float64) ([]byte, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, req stt.TranscriptionRequest) (*stt.TranscriptionResponse, error)
}

type VisionAnalyzer interface {
	AnalyzeMedia(ctx context.Context, image multimodal.ImageInput, kind models.MediaKind) (*multimodal.VisionResult, error)
}

type Embedder interface {
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
}

// URLResolver turns a storage path into an address providers can fetch now.
type URLResolver interface {
	URL(ctx context.Context, path string) (string, error)
}

// Store persists files for the pipeline. Every write after BeginRun is fenced
// by the file's generation: a write carrying an older generation fails with
// ErrStaleRun.
type Store interface {
	// BeginRun loads the file, increments its generation, marks it processing
	// and resets progress to ProgressSeed.
	BeginRun(ctx context.Context, id uuid.UUID) (*models.File, error)
	// SaveRun writes derived fields, status, progress and history.
	SaveRun(ctx context.Context, f *models.File) error
	// FailRun appends entry and sets status failed. A zero generation skips fencing.
	FailRun(ctx context.Context, id uuid.UUID, generation int64, entry models.ProcessingEntry) error
}

// Locker guards a file across processes. ok is false when another holder has it.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, ok bool, err error)
}
