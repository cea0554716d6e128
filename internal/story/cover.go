package story

import (
	"context"
	"fmt"

	"github.com/nikhilbhutani/memorylane/internal/multimodal"
	"github.com/nikhilbhutani/memorylane/pkg/fallback"
)

type ImageProvider interface {
	Generate(ctx context.Context, req multimodal.ImageGenRequest) (*multimodal.GeneratedImage, error)
	Name() string
}

// CoverArtist draws story covers, trying each image provider in order.
type CoverArtist struct {
	chain *fallback.Chain[ImageProvider]
}

func NewCoverArtist(providers ...ImageProvider) *CoverArtist {
	return &CoverArtist{chain: fallback.NewChain(providers...)}
}

func (c *CoverArtist) Draw(ctx context.Context, title, subjects string) (*multimodal.GeneratedImage, error) {
	prompt, err := Render(coverTemplate, map[string]string{"title": title, "subjects": subjects})
	if err != nil {
		return nil, err
	}
	img, _, err := fallback.Run(ctx, c.chain, func(ctx context.Context, p ImageProvider) (*multimodal.GeneratedImage, error) {
		return p.Generate(ctx, multimodal.ImageGenRequest{Prompt: prompt, Size: "1024x1024"})
	})
	if err != nil {
		return nil, fmt.Errorf("draw cover: %w", err)
	}
	return img, nil
}
