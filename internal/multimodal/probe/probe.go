// Package probe reads media attributes with ffprobe and grabs still frames with ffmpeg.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/nikhilbhutani/memorylane/internal/models"
)

// ErrNoVideoStream is returned when the source has nothing to take a frame from.
var ErrNoVideoStream = errors.New("no video stream")

type Config struct {
	FFprobePath string // default: "ffprobe"
	FFmpegPath  string // default: "ffmpeg"
}

type FileInfo struct {
	Duration   *float64 `json:"duration,omitempty"`
	Width      *int     `json:"width,omitempty"`
	Height     *int     `json:"height,omitempty"`
	FormatName string   `json:"format_name,omitempty"`
	HasAudio   bool     `json:"has_audio"`
}

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Prober shells out to the ffmpeg tools. Sources may be local paths or URLs.
type Prober struct {
	cfg Config
	run runFunc
}

func New(cfg Config) *Prober {
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	return &Prober{cfg: cfg, run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w (stderr: %s)", name, err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// Inspect returns duration and dimensions. Images never report a duration.
func (p *Prober) Inspect(ctx context.Context, src string, kind models.MediaKind) (*FileInfo, error) {
	out, err := p.run(ctx, p.cfg.FFprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		src,
	)
	if err != nil {
		return nil, fmt.Errorf("probe media: %w", err)
	}
	info, err := parseProbe(out)
	if err != nil {
		return nil, err
	}
	if kind == models.MediaImage {
		info.Duration = nil
	}
	if kind == models.MediaAudio {
		info.Width, info.Height = nil, nil
	}
	return info, nil
}

// ExtractFrame returns a JPEG of the frame at the given offset in seconds.
func (p *Prober) ExtractFrame(ctx context.Context, src string, at float64) ([]byte, error) {
	out, err := p.run(ctx, p.cfg.FFmpegPath,
		"-v", "error",
		"-ss", strconv.FormatFloat(at, 'f', 3, 64),
		"-i", src,
		"-frames:v", "1",
		"-f", "image2",
		"-c:v", "mjpeg",
		"pipe:1",
	)
	if err != nil {
		return nil, fmt.Errorf("extract frame: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("extract frame at %.3fs: %w", at, ErrNoVideoStream)
	}
	return out, nil
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
}

func parseProbe(raw []byte) (*FileInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := &FileInfo{FormatName: out.Format.FormatName}
	if d, ok := parseSeconds(out.Format.Duration); ok {
		info.Duration = &d
	}

	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if info.Width == nil && s.Width > 0 && s.Height > 0 {
				w, h := s.Width, s.Height
				info.Width, info.Height = &w, &h
			}
			if info.Duration == nil {
				if d, ok := parseSeconds(s.Duration); ok {
					info.Duration = &d
				}
			}
		case "audio":
			info.HasAudio = true
			if info.Duration == nil {
				if d, ok := parseSeconds(s.Duration); ok {
					info.Duration = &d
				}
			}
		}
	}
	return info, nil
}

func parseSeconds(s string) (float64, bool) {
	if s == "" || s == "N/A" {
		return 0, false
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}
