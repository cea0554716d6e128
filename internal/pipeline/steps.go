package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nikhilbhutani/memorylane/internal/embedding"
	"github.com/nikhilbhutani/memorylane/internal/llm"
	"github.com/nikhilbhutani/memorylane/internal/models"
	"github.com/nikhilbhutani/memorylane/internal/multimodal"
	"github.com/nikhilbhutani/memorylane/internal/multimodal/stt"
	"github.com/nikhilbhutani/memorylane/pkg/retry"
)

var errNoProvider = errors.New("provider not configured")

// step is one enrichment stage. run mutates the file only when it succeeds.
type step struct {
	name    models.StepName
	applies func(models.MediaKind) bool
	weight  func(models.MediaKind) int
	timeout time.Duration
	run     func(ctx context.Context, f *models.File) error
	reason  func(error) string
}

func always(models.MediaKind) bool { return true }

func fixed(n int) func(models.MediaKind) int {
	return func(models.MediaKind) int { return n }
}

func (p *Processor) steps() []step {
	return []step{
		{
			name:    models.StepFileInfo,
			applies: always,
			weight:  fixed(20),
			timeout: p.cfg.FileInfoTimeout,
			run:     p.fileInfo,
		},
		{
			name:    models.StepTranscription,
			applies: models.MediaKind.HasAudio,
			weight:  fixed(50),
			timeout: p.cfg.TranscriptionTimeout,
			run:     p.transcription,
		},
		{
			name:    models.StepVisionAnalysis,
			applies: models.MediaKind.HasVisual,
			weight: func(k models.MediaKind) int {
				if k == models.MediaVideo {
					return 80
				}
				return 60
			},
			timeout: p.cfg.VisionTimeout,
			run:     p.visionAnalysis,
		},
		{
			name:    models.StepTextProcessing,
			applies: always,
			weight:  fixed(90),
			run:     textProcessing,
		},
		{
			name:    models.StepEmbedding,
			applies: always,
			weight:  fixed(100),
			timeout: p.cfg.EmbeddingTimeout,
			run:     p.embedding,
			reason:  embeddingFailureReason,
		},
	}
}

func (p *Processor) fileInfo(ctx context.Context, f *models.File) error {
	if p.deps.Inspector == nil {
		return errNoProvider
	}
	info, err := p.deps.Inspector.Inspect(ctx, f.StorageURL, f.MediaKind)
	if err != nil {
		return err
	}
	f.Duration = info.Duration
	f.Width = info.Width
	f.Height = info.Height
	return nil
}

func (p *Processor) transcription(ctx context.Context, f *models.File) error {
	if p.deps.Transcriber == nil {
		return errNoProvider
	}

	policy := retry.Policy{
		Retries:   p.cfg.ProviderRetries,
		BaseDelay: p.cfg.RetryBaseDelay,
		MaxDelay:  30 * time.Second,
		Retryable: transientTranscriptionError,
	}
	resp, err := retry.Do(ctx, policy, func(ctx context.Context) (*stt.TranscriptionResponse, error) {
		return p.deps.Transcriber.Transcribe(ctx, stt.TranscriptionRequest{
			URL:      f.StorageURL,
			FileName: f.OriginalName,
		})
	})
	if err != nil {
		return err
	}

	f.Transcription = BuildTranscription(resp, p.cfg.Quality)
	if f.Duration == nil && resp.Duration > 0 {
		d := resp.Duration
		f.Duration = &d
	}
	return nil
}

func transientTranscriptionError(err error) bool {
	var statusErr *stt.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return !errors.Is(err, context.Canceled)
}

func (p *Processor) visionAnalysis(ctx context.Context, f *models.File) error {
	if p.deps.Vision == nil {
		return errNoProvider
	}

	image := multimodal.ImageInput{URL: f.StorageURL, MimeType: f.MimeType}
	if f.MediaKind == models.MediaVideo {
		frame, err := p.extractFrame(ctx, f)
		if err != nil {
			slog.Warn("frame extraction failed, using stub vision result",
				"file_id", f.ID, "error", err)
			applyVision(f, multimodal.StubVisionResult())
			return nil
		}
		image = multimodal.ImageFromBytes(frame, "image/jpeg")
	}

	res, err := p.deps.Vision.AnalyzeMedia(ctx, image, f.MediaKind)
	if err != nil {
		return err
	}
	applyVision(f, res)
	return nil
}

func (p *Processor) extractFrame(ctx context.Context, f *models.File) ([]byte, error) {
	if p.deps.Frames == nil {
		return nil, errNoProvider
	}
	return p.deps.Frames.ExtractFrame(ctx, f.StorageURL, midpoint(f))
}

// midpoint picks the representative frame offset, falling back to the first frame.
func midpoint(f *models.File) float64 {
	switch {
	case f.Duration != nil && *f.Duration > 0:
		return *f.Duration / 2
	case f.Transcription != nil && f.Transcription.Duration > 0:
		return f.Transcription.Duration / 2
	default:
		return 0
	}
}

func applyVision(f *models.File, r *multimodal.VisionResult) {
	f.VisionTags = r.Tags
	f.AIDescription = r.Description
	f.Emotions = r.Emotions
	f.Objects = r.Objects
	f.Faces = r.Faces
}

func textProcessing(_ context.Context, f *models.File) error {
	ApplySearchIndex(f)
	return nil
}

func (p *Processor) embedding(ctx context.Context, f *models.File) error {
	if p.deps.Embedder == nil {
		return errNoProvider
	}
	vec, err := p.deps.Embedder.EmbedSingle(ctx, f.SearchableText)
	if err != nil {
		return err
	}
	if len(vec) == 0 {
		return embedding.ErrNoVector
	}
	f.Embedding = vec
	return nil
}

// embeddingFailureReason keeps capacity problems out of the error vocabulary:
// the file is fine, it just has no vector yet.
func embeddingFailureReason(err error) string {
	switch {
	case errors.Is(err, llm.ErrQuotaExceeded):
		return "embedding skipped: provider quota exhausted"
	case errors.Is(err, llm.ErrRateLimited):
		return "embedding skipped: provider rate limited"
	case errors.Is(err, embedding.ErrNoVector):
		return "embedding skipped: no vector returned"
	default:
		return fmt.Sprintf("embedding failed: %v", err)
	}
}
