// Package pipeline runs the per-file enrichment steps and records their
// outcome in the file's processing history.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/memorylane/internal/config"
	"github.com/nikhilbhutani/memorylane/internal/models"
)

type Deps struct {
	Store    Store
	Locker   Locker      // optional; nil relies on the registry and generation fencing
	Registry *Registry   // optional; a private one is created when nil
	URLs     URLResolver // optional; nil keeps the URL stored at upload

	Inspector   FileInspector
	Frames      FrameExtractor
	Transcriber Transcriber
	Vision      VisionAnalyzer
	Embedder    Embedder

	Config config.PipelineConfig
	Now    func() time.Time
}

type Processor struct {
	deps     Deps
	cfg      config.PipelineConfig
	store    Store
	tracker  *Tracker
	registry *Registry
}

func NewProcessor(deps Deps) *Processor {
	if deps.Registry == nil {
		deps.Registry = NewRegistry()
	}
	return &Processor{
		deps:     deps,
		cfg:      deps.Config,
		store:    deps.Store,
		tracker:  NewTracker(deps.Store, deps.Now),
		registry: deps.Registry,
	}
}

func (p *Processor) Registry() *Registry { return p.registry }

// Cancel aborts the in-flight run for fileID. The run records the
// interruption as an error entry.
func (p *Processor) Cancel(fileID uuid.UUID) bool {
	return p.registry.Cancel(fileID)
}

// ProgressSeed is the progress a file shows while queued.
const ProgressSeed = 5

// LockKey names the cross-process lock held while a file is processed.
func LockKey(id uuid.UUID) string { return "lock:file:" + id.String() }

// Process runs every applicable step for the file in order. Soft step failures
// are recorded and the run continues; anything else that goes wrong marks the
// file failed with a single error entry. A run superseded by a newer one stops
// without touching the file and returns nil.
func (p *Processor) Process(ctx context.Context, fileID uuid.UUID) (err error) {
	runCtx, done, err := p.registry.Start(ctx, fileID)
	if err != nil {
		return err
	}
	defer done()

	if p.deps.Locker != nil {
		unlock, ok, lockErr := p.deps.Locker.TryLock(ctx, LockKey(fileID), p.cfg.LockTTL)
		switch {
		case lockErr != nil:
			slog.Warn("file lock unavailable, relying on generation fencing",
				"file_id", fileID, "error", lockErr)
		case !ok:
			return ErrAlreadyProcessing
		default:
			defer func() {
				if err := unlock(context.WithoutCancel(ctx)); err != nil {
					slog.Warn("release file lock", "file_id", fileID, "error", err)
				}
			}()
		}
	}

	// writes must land even after the run is cancelled
	storeCtx := context.WithoutCancel(runCtx)

	var f *models.File
	defer func() {
		if r := recover(); r != nil {
			slog.Error("pipeline panic", "file_id", fileID, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("pipeline panic: %v", r)
		}
		switch {
		case err == nil:
		case errors.Is(err, ErrStaleRun):
			slog.Info("processing run superseded", "file_id", fileID)
			err = nil
		case errors.Is(err, errHardStepFailed):
		default:
			p.fail(storeCtx, fileID, f, err)
		}
	}()

	f, err = p.store.BeginRun(runCtx, fileID)
	if err != nil {
		return fmt.Errorf("load file: %w", err)
	}

	if p.deps.URLs != nil && f.StoragePath != "" {
		url, urlErr := p.deps.URLs.URL(runCtx, f.StoragePath)
		if urlErr != nil {
			return fmt.Errorf("resolve storage url: %w", urlErr)
		}
		f.StorageURL = url
	}

	slog.Info("processing started", "file_id", fileID, "kind", f.MediaKind, "generation", f.Generation)
	start := time.Now()

	if f, err = p.run(runCtx, storeCtx, f); err != nil {
		return err
	}

	summary := f.ProcessingSummary()
	slog.Info("processing completed",
		"file_id", fileID,
		"generation", f.Generation,
		"completed_steps", summary.Completed,
		"failed_steps", summary.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (p *Processor) run(runCtx, storeCtx context.Context, f *models.File) (*models.File, error) {
	var err error
	for _, s := range p.steps() {
		if !s.applies(f.MediaKind) {
			continue
		}
		if cerr := runCtx.Err(); cerr != nil {
			return f, fmt.Errorf("processing cancelled before %s: %w", s.name, cerr)
		}

		if f, err = p.tracker.Record(storeCtx, f, s.name, models.EntryProcessing, ""); err != nil {
			return f, err
		}

		stepErr := p.runStep(runCtx, s, f)
		if cerr := runCtx.Err(); cerr != nil {
			return f, fmt.Errorf("processing cancelled during %s: %w", s.name, cerr)
		}
		f.ProcessingProgress = max(f.ProcessingProgress, s.weight(f.MediaKind))

		status, msg := models.EntryCompleted, ""
		if stepErr != nil {
			status = models.EntryFailed
			msg = stepErr.Error()
			if s.reason != nil {
				msg = s.reason(stepErr)
			}
			slog.Warn("step failed", "file_id", f.ID, "step", s.name, "generation", f.Generation, "error", stepErr)
		}

		if f, err = p.tracker.Record(storeCtx, f, s.name, status, msg); err != nil {
			return f, err
		}
		if f.Status == models.FileStatusFailed {
			return f, fmt.Errorf("%w: %s: %s", errHardStepFailed, s.name, msg)
		}
	}

	if cerr := runCtx.Err(); cerr != nil {
		return f, fmt.Errorf("processing cancelled before %s: %w", models.StepComplete, cerr)
	}
	return p.tracker.Record(storeCtx, f, models.StepComplete, models.EntryCompleted, "")
}

func (p *Processor) runStep(ctx context.Context, s step, f *models.File) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.run(ctx, f)
}

// fail records the terminal error entry. Errors here are logged, never returned.
func (p *Processor) fail(ctx context.Context, fileID uuid.UUID, f *models.File, cause error) {
	entry := models.ProcessingEntry{
		Step:      models.StepError,
		Status:    models.EntryFailed,
		Timestamp: p.tracker.now(),
		Error:     cause.Error(),
	}
	if f != nil {
		entry.Progress = f.ProcessingProgress
		entry.Generation = f.Generation
	}

	slog.Error("processing failed", "file_id", fileID, "generation", entry.Generation, "error", cause)

	if err := p.store.FailRun(ctx, fileID, entry.Generation, entry); err != nil {
		slog.Error("record processing failure", "file_id", fileID, "error", err)
	}
}
