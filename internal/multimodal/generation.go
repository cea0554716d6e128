package multimodal

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type ImageGenConfig struct {
	APIKey  string
	BaseURL string // default: "https://api.openai.com/v1"
	Model   string // default: "dall-e-3"
}

// ImageGenerator creates story cover images from text prompts (DALL-E).
type ImageGenerator struct {
	cfg        ImageGenConfig
	httpClient *http.Client
}

func NewImageGenerator(cfg ImageGenConfig) *ImageGenerator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "dall-e-3"
	}
	return &ImageGenerator{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (g *ImageGenerator) Name() string { return "openai-" + g.cfg.Model }

// ImageGenRequest holds the parameters for image generation.
type ImageGenRequest struct {
	Prompt  string `json:"prompt"`
	Size    string `json:"size,omitempty"`    // 1024x1024, 1792x1024, 1024x1792
	Quality string `json:"quality,omitempty"` // standard, hd
	Style   string `json:"style,omitempty"`   // vivid, natural
}

// GeneratedImage is a decoded PNG plus the prompt the model actually used.
type GeneratedImage struct {
	Data          []byte
	ContentType   string
	RevisedPrompt string
}

// Generate creates one image. The image is requested inline as base64 because
// hosted result URLs expire after an hour.
func (g *ImageGenerator) Generate(ctx context.Context, req ImageGenRequest) (*GeneratedImage, error) {
	if req.Size == "" {
		req.Size = "1024x1024"
	}

	body := map[string]any{
		"model":           g.cfg.Model,
		"prompt":          req.Prompt,
		"size":            req.Size,
		"n":               1,
		"response_format": "b64_json",
	}
	if req.Quality != "" {
		body["quality"] = req.Quality
	}
	if req.Style != "" {
		body["style"] = req.Style
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/images/generations", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("image generation request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image generation failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	var apiResp struct {
		Data []struct {
			B64JSON       string `json:"b64_json"`
			RevisedPrompt string `json:"revised_prompt"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if len(apiResp.Data) == 0 {
		return nil, fmt.Errorf("image generation returned no images")
	}

	img, err := base64.StdEncoding.DecodeString(apiResp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	return &GeneratedImage{
		Data:          img,
		ContentType:   "image/png",
		RevisedPrompt: apiResp.Data[0].RevisedPrompt,
	}, nil
}
