package probe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/memorylane/internal/models"
)

const videoProbe = `{
  "streams": [
    {"codec_type": "video", "width": 1920, "height": 1080, "duration": "10.010000"},
    {"codec_type": "audio", "duration": "10.000000"}
  ],
  "format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "10.010000"}
}`

const imageProbe = `{
  "streams": [{"codec_type": "video", "width": 4032, "height": 3024}],
  "format": {"format_name": "image2", "duration": "0.040000"}
}`

func fakeRunner(out string, err error, gotArgs *[]string) runFunc {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		if gotArgs != nil {
			*gotArgs = append([]string{name}, args...)
		}
		return []byte(out), err
	}
}

func TestInspect_Video(t *testing.T) {
	p := New(Config{})
	var args []string
	p.run = fakeRunner(videoProbe, nil, &args)

	info, err := p.Inspect(context.Background(), "https://cdn/v.mp4", models.MediaVideo)
	require.NoError(t, err)

	assert.Equal(t, "ffprobe", args[0])
	assert.Equal(t, "https://cdn/v.mp4", args[len(args)-1])
	require.NotNil(t, info.Duration)
	assert.InDelta(t, 10.01, *info.Duration, 1e-9)
	assert.Equal(t, 1920, *info.Width)
	assert.Equal(t, 1080, *info.Height)
	assert.True(t, info.HasAudio)
}

func TestInspect_ImageDropsDuration(t *testing.T) {
	p := New(Config{})
	p.run = fakeRunner(imageProbe, nil, nil)

	info, err := p.Inspect(context.Background(), "x.jpg", models.MediaImage)
	require.NoError(t, err)
	assert.Nil(t, info.Duration)
	assert.Equal(t, 4032, *info.Width)
}

func TestInspect_AudioDropsDimensions(t *testing.T) {
	p := New(Config{})
	p.run = fakeRunner(`{"streams":[{"codec_type":"audio","duration":"3.5"}],"format":{"duration":"N/A"}}`, nil, nil)

	info, err := p.Inspect(context.Background(), "x.m4a", models.MediaAudio)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, *info.Duration, 1e-9)
	assert.Nil(t, info.Width)
}

func TestInspect_Errors(t *testing.T) {
	p := New(Config{})
	p.run = fakeRunner("", errors.New("404 Not Found"), nil)
	_, err := p.Inspect(context.Background(), "gone", models.MediaVideo)
	assert.Error(t, err)

	p.run = fakeRunner("not json", nil, nil)
	_, err = p.Inspect(context.Background(), "x", models.MediaVideo)
	assert.Error(t, err)
}

func TestExtractFrame(t *testing.T) {
	p := New(Config{FFmpegPath: "/usr/bin/ffmpeg"})
	var args []string
	p.run = fakeRunner("\xff\xd8jpeg", nil, &args)

	frame, err := p.ExtractFrame(context.Background(), "v.mp4", 5.005)
	require.NoError(t, err)
	assert.Equal(t, "\xff\xd8jpeg", string(frame))
	assert.Equal(t, "/usr/bin/ffmpeg", args[0])
	assert.Contains(t, args, "5.005")
	assert.Equal(t, "pipe:1", args[len(args)-1])

	p.run = fakeRunner("", nil, nil)
	_, err = p.ExtractFrame(context.Background(), "song.mp3", 1)
	assert.ErrorIs(t, err, ErrNoVideoStream)
}
