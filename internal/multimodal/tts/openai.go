package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxInputChars is the per-request input limit of the speech endpoint.
const maxInputChars = 4096

// OpenAITTSConfig holds configuration for the OpenAI TTS backend.
type OpenAITTSConfig struct {
	APIKey  string
	BaseURL string // default: "https://api.openai.com/v1"
	Model   string // default: "tts-1"
}

// OpenAITTS synthesizes speech using OpenAI's TTS API.
type OpenAITTS struct {
	cfg        OpenAITTSConfig
	httpClient *http.Client
}

// NewOpenAITTS creates an OpenAITTS with sensible defaults applied.
func NewOpenAITTS(cfg OpenAITTSConfig) *OpenAITTS {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "tts-1"
	}
	return &OpenAITTS{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (o *OpenAITTS) Name() string { return "openai-tts" }

// Synthesize converts text to MP3. Long narratives are split on sentence
// boundaries and the MP3 streams are concatenated.
func (o *OpenAITTS) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	var audio bytes.Buffer
	for _, chunk := range splitText(req.Input, maxInputChars) {
		part, err := o.synthesizeChunk(ctx, chunk, req)
		if err != nil {
			return nil, err
		}
		audio.Write(part)
	}

	return &SynthesisResult{
		Audio:       audio.Bytes(),
		ContentType: "audio/mpeg",
	}, nil
}

func (o *OpenAITTS) synthesizeChunk(ctx context.Context, input string, req SynthesisRequest) ([]byte, error) {
	voice := req.Voice
	if voice == "" {
		voice = "alloy"
	}

	body := map[string]any{
		"model": o.cfg.Model,
		"input": input,
		"voice": voice,
	}
	if req.Speed > 0 {
		body["speed"] = req.Speed
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/audio/speech", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tts failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	return audio, nil
}

// splitText cuts s into pieces of at most limit bytes, preferring to break
// after a sentence end, then at a space.
func splitText(s string, limit int) []string {
	s = strings.TrimSpace(s)
	var out []string
	for len(s) > limit {
		cut := strings.LastIndexAny(s[:limit], ".!?")
		if cut < limit/2 {
			cut = strings.LastIndexByte(s[:limit], ' ')
		}
		if cut <= 0 {
			cut = limit - 1
		}
		out = append(out, strings.TrimSpace(s[:cut+1]))
		s = strings.TrimSpace(s[cut+1:])
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
