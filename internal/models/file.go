package models

import (
	"time"

	"github.com/google/uuid"
)

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

// HasAudio reports whether the media carries a speech track worth transcribing.
func (k MediaKind) HasAudio() bool { return k == MediaVideo || k == MediaAudio }

// HasVisual reports whether the media can be shown to a vision model.
func (k MediaKind) HasVisual() bool { return k == MediaImage || k == MediaVideo }

func (k MediaKind) Valid() bool {
	switch k {
	case MediaImage, MediaVideo, MediaAudio:
		return true
	}
	return false
}

type FileStatus string

const (
	FileStatusUploading  FileStatus = "uploading"
	FileStatusProcessing FileStatus = "processing"
	FileStatusCompleted  FileStatus = "completed"
	FileStatusFailed     FileStatus = "failed"
)

type StepName string

const (
	StepFileInfo       StepName = "file_info"
	StepTranscription  StepName = "transcription"
	StepVisionAnalysis StepName = "vision_analysis"
	StepTextProcessing StepName = "text_processing"
	StepEmbedding      StepName = "embedding"
	StepComplete       StepName = "complete"
	StepError          StepName = "error"
)

type EntryStatus string

const (
	EntryProcessing EntryStatus = "processing"
	EntryCompleted  EntryStatus = "completed"
	EntryFailed     EntryStatus = "failed"
)

// ProcessingEntry is one immutable line of a file's processing history.
type ProcessingEntry struct {
	Step       StepName    `json:"step"`
	Status     EntryStatus `json:"status"`
	Progress   int         `json:"progress"`
	Generation int64       `json:"generation"`
	Timestamp  time.Time   `json:"timestamp"`
	Error      string      `json:"error,omitempty"`
}

type TranscriptSegment struct {
	ID               int     `json:"id"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	AvgLogprob       float64 `json:"avg_logprob"`
	NoSpeechProb     float64 `json:"no_speech_prob"`
	CompressionRatio float64 `json:"compression_ratio"`
	Confidence       float64 `json:"confidence"`
}

type TranscriptWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type QualityMetrics struct {
	AverageConfidence    float64 `json:"average_confidence"`
	AverageNoSpeechProb  float64 `json:"average_no_speech_prob"`
	AverageCompression   float64 `json:"average_compression_ratio"`
	AudioQuality         string  `json:"audio_quality"`
	TranscriptionQuality string  `json:"transcription_quality"`
}

type Transcription struct {
	Text           string              `json:"text"`
	Language       string              `json:"language"`
	Duration       float64             `json:"duration"`
	Segments       []TranscriptSegment `json:"segments"`
	Words          []TranscriptWord    `json:"words,omitempty"`
	QualityMetrics QualityMetrics      `json:"quality_metrics"`
}

type VisionTag struct {
	Tag        string  `json:"tag"`
	Confidence float64 `json:"confidence"`
	Category   string  `json:"category,omitempty"`
}

type Face struct {
	Emotion    string  `json:"emotion,omitempty"`
	AgeRange   string  `json:"age_range,omitempty"`
	Confidence float64 `json:"confidence"`
}

type File struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`

	OriginalName string    `json:"original_name"`
	StoragePath  string    `json:"storage_path"`
	StorageURL   string    `json:"storage_url"`
	MediaKind    MediaKind `json:"media_kind"`
	MimeType     string    `json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`

	Duration      *float64       `json:"duration,omitempty"`
	Width         *int           `json:"width,omitempty"`
	Height        *int           `json:"height,omitempty"`
	Transcription *Transcription `json:"transcription,omitempty"`
	VisionTags    []VisionTag    `json:"vision_tags"`
	AIDescription string         `json:"ai_description,omitempty"`
	Emotions      []string       `json:"emotions"`
	Objects       []string       `json:"objects"`
	Faces         []Face         `json:"faces"`

	Title           string   `json:"title,omitempty"`
	UserDescription string   `json:"user_description,omitempty"`
	UserTags        []string `json:"user_tags"`

	SearchableText string    `json:"searchable_text"`
	Keywords       []string  `json:"keywords"`
	Embedding      []float32 `json:"-"`

	Status             FileStatus        `json:"status"`
	ProcessingProgress int               `json:"processing_progress"`
	ProcessingHistory  []ProcessingEntry `json:"processing_history"`
	Generation         int64             `json:"generation"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasEmbedding reports whether the semantic vector is present.
func (f *File) HasEmbedding() bool { return len(f.Embedding) > 0 }

// TagNames returns vision tags followed by user tags, in order.
func (f *File) TagNames() []string {
	names := make([]string, 0, len(f.VisionTags)+len(f.UserTags))
	for _, t := range f.VisionTags {
		names = append(names, t.Tag)
	}
	return append(names, f.UserTags...)
}

type ProcessingSummary struct {
	Completed int     `json:"completed"`
	Failed    int     `json:"failed"`
	Total     int     `json:"total"`
	Ratio     float64 `json:"ratio"`
}

// ProcessingSummary counts terminal step outcomes of the latest run.
// Total is the number of distinct steps that reached a terminal entry.
func (f *File) ProcessingSummary() ProcessingSummary {
	var s ProcessingSummary
	gen := f.latestGeneration()
	for _, e := range f.ProcessingHistory {
		if e.Generation != gen {
			continue
		}
		switch e.Status {
		case EntryCompleted:
			s.Completed++
			s.Total++
		case EntryFailed:
			s.Failed++
			s.Total++
		}
	}
	if s.Total > 0 {
		s.Ratio = float64(s.Completed) / float64(s.Total)
	}
	return s
}

func (f *File) latestGeneration() int64 {
	var gen int64
	for _, e := range f.ProcessingHistory {
		if e.Generation > gen {
			gen = e.Generation
		}
	}
	return gen
}
