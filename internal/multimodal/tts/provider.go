package tts

import (
	"context"
	"fmt"

	"github.com/nikhilbhutani/memorylane/pkg/fallback"
)

// SynthesisRequest holds the parameters for text-to-speech generation.
type SynthesisRequest struct {
	Input string  `json:"input"`
	Voice string  `json:"voice,omitempty"`
	Speed float64 `json:"speed,omitempty"`
}

// SynthesisResult holds the generated audio and its content type.
type SynthesisResult struct {
	Audio       []byte
	ContentType string // "audio/mpeg" (OpenAI) or "audio/wav" (Piper)
	Provider    string
}

// Extension returns the file extension matching ContentType.
func (r *SynthesisResult) Extension() string {
	if r.ContentType == "audio/wav" {
		return ".wav"
	}
	return ".mp3"
}

// TTSProvider is the interface for text-to-speech backends.
type TTSProvider interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error)
	Name() string
}

// Narrator reads story narratives aloud, trying each backend in order.
type Narrator struct {
	chain *fallback.Chain[TTSProvider]
}

func NewNarrator(providers ...TTSProvider) *Narrator {
	return &Narrator{chain: fallback.NewChain(providers...)}
}

func (n *Narrator) Narrate(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	if req.Input == "" {
		return nil, fmt.Errorf("nothing to narrate")
	}
	res, name, err := fallback.Run(ctx, n.chain, func(ctx context.Context, p TTSProvider) (*SynthesisResult, error) {
		return p.Synthesize(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("narrate: %w", err)
	}
	res.Provider = name
	return res, nil
}
