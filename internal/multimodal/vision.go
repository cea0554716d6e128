package multimodal

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/nikhilbhutani/memorylane/internal/llm"
	"github.com/nikhilbhutani/memorylane/internal/models"
)

// ErrMalformedResponse is returned when the vision model answer cannot be decoded.
var ErrMalformedResponse = errors.New("malformed vision response")

const visionSystemPrompt = `You analyze personal photos and video stills for a memory library.
Answer with a single JSON object and nothing else:
{"tags":[{"tag":"beach","confidence":0.9,"category":"scene"}],
 "description":"one or two sentences",
 "emotions":["joy"],
 "objects":["umbrella"],
 "faces":[{"emotion":"happy","age_range":"20-30","confidence":0.8}]}
Use lower case tags. Categories are scene, object, activity, person, animal or other.
Confidence is between 0 and 1.`

// VisionService turns a still image into tags, a description and detections
// using a vision-capable chat model.
type VisionService struct {
	gateway  llm.Gateway
	provider string
	model    string
}

func NewVisionService(gw llm.Gateway, provider, model string) *VisionService {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &VisionService{gateway: gw, provider: provider, model: model}
}

// ImageInput represents an image for vision analysis.
type ImageInput struct {
	// Exactly one of these should be set
	URL      string `json:"url,omitempty"`
	Base64   string `json:"base64,omitempty"`
	FilePath string `json:"file_path,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// ImageFromBytes wraps raw image bytes, for example a frame from ffmpeg.
func ImageFromBytes(data []byte, mimeType string) ImageInput {
	return ImageInput{Base64: base64.StdEncoding.EncodeToString(data), MimeType: mimeType}
}

type VisionResult struct {
	Tags        []models.VisionTag `json:"tags"`
	Description string             `json:"description"`
	Emotions    []string           `json:"emotions"`
	Objects     []string           `json:"objects"`
	Faces       []models.Face      `json:"faces"`
}

// AnalyzeMedia asks the model to describe one still image of a file of the given kind.
func (v *VisionService) AnalyzeMedia(ctx context.Context, image ImageInput, kind models.MediaKind) (*VisionResult, error) {
	ref, err := v.resolveImage(image)
	if err != nil {
		return nil, fmt.Errorf("resolve image: %w", err)
	}

	prompt := "Analyze this photo."
	if kind == models.MediaVideo {
		prompt = "Analyze this frame taken from the middle of a video."
	}

	resp, err := v.gateway.Chat(ctx, llm.ChatRequest{
		Provider: v.provider,
		Model:    v.model,
		JSONMode: true,
		Messages: []llm.Message{
			{Role: "system", Content: visionSystemPrompt},
			{Role: "user", Content: prompt, Images: []string{ref}},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("vision analyze: %w", err)
	}

	result, ok := ParseJSON(resp.Content, VisionResult{})
	if !ok {
		return nil, fmt.Errorf("%w: %.200s", ErrMalformedResponse, resp.Content)
	}
	normalize(&result)
	return &result, nil
}

// StubVisionResult is used for videos whose frame could not be extracted.
func StubVisionResult() *VisionResult {
	return &VisionResult{
		Tags:        []models.VisionTag{{Tag: "video", Confidence: 1, Category: "other"}},
		Description: "Video file. A preview frame could not be extracted for visual analysis.",
		Emotions:    []string{"neutral"},
		Objects:     []string{},
		Faces:       []models.Face{},
	}
}

func normalize(r *VisionResult) {
	seen := make(map[string]bool, len(r.Tags))
	tags := r.Tags[:0]
	for _, t := range r.Tags {
		t.Tag = strings.ToLower(strings.TrimSpace(t.Tag))
		if t.Tag == "" || seen[t.Tag] {
			continue
		}
		seen[t.Tag] = true
		t.Confidence = clamp01(t.Confidence)
		tags = append(tags, t)
	}
	r.Tags = tags
	r.Description = strings.TrimSpace(r.Description)

	for i := range r.Faces {
		r.Faces[i].Confidence = clamp01(r.Faces[i].Confidence)
	}
	if r.Emotions == nil {
		r.Emotions = []string{}
	}
	if r.Objects == nil {
		r.Objects = []string{}
	}
	if r.Faces == nil {
		r.Faces = []models.Face{}
	}
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(1, x))
}

func (v *VisionService) resolveImage(img ImageInput) (string, error) {
	if img.URL != "" {
		return img.URL, nil
	}

	if img.Base64 != "" {
		mimeType := img.MimeType
		if mimeType == "" {
			mimeType = "image/png"
		}
		return fmt.Sprintf("data:%s;base64,%s", mimeType, img.Base64), nil
	}

	if img.FilePath != "" {
		data, err := os.ReadFile(img.FilePath)
		if err != nil {
			return "", fmt.Errorf("read image file: %w", err)
		}

		mimeType := img.MimeType
		if mimeType == "" {
			mimeType = mimeFromExtension(filepath.Ext(img.FilePath))
		}

		encoded := base64.StdEncoding.EncodeToString(data)
		return fmt.Sprintf("data:%s;base64,%s", mimeType, encoded), nil
	}

	return "", fmt.Errorf("image input must have url, base64, or file_path")
}

func mimeFromExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	default:
		return "image/png"
	}
}
