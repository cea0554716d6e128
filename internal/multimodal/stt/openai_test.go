package stt

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const verboseJSON = `{
  "text": "Hello from the beach.",
  "language": "english",
  "duration": 10.2,
  "segments": [
    {"id": 0, "start": 0, "end": 4.1, "text": "Hello from", "avg_logprob": -0.2, "no_speech_prob": 0.01, "compression_ratio": 1.1},
    {"id": 1, "start": 4.1, "end": 10.2, "text": "the beach.", "avg_logprob": -0.4, "no_speech_prob": 0.05, "compression_ratio": 1.3}
  ],
  "words": [{"word": "Hello", "start": 0, "end": 0.5}]
}`

func TestOpenAISTT_TranscribeFromURL(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "fake-audio-bytes")
	}))
	defer media.Close()

	var gotModel, gotFormat, gotFile string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotModel = r.FormValue("model")
		gotFormat = r.FormValue("response_format")
		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		gotFile = string(data)
		_, _ = io.WriteString(w, verboseJSON)
	}))
	defer api.Close()

	client := NewOpenAISTT(OpenAISTTConfig{BaseURL: api.URL, APIKey: "k"})
	resp, err := client.Transcribe(context.Background(), TranscriptionRequest{URL: media.URL + "/clip.mp4"})

	require.NoError(t, err)
	assert.Equal(t, "whisper-1", gotModel)
	assert.Equal(t, "verbose_json", gotFormat)
	assert.Equal(t, "fake-audio-bytes", gotFile)
	assert.Equal(t, "Hello from the beach.", resp.Text)
	require.Len(t, resp.Segments, 2)
	assert.InDelta(t, -0.4, resp.Segments[1].AvgLogprob, 1e-9)
	assert.Len(t, resp.Words, 1)
}

func TestOpenAISTT_StatusError(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, "slow down")
	}))
	defer api.Close()

	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "x")
	}))
	defer media.Close()

	_, err := NewOpenAISTT(OpenAISTTConfig{BaseURL: api.URL}).Transcribe(context.Background(), TranscriptionRequest{URL: media.URL})

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.True(t, statusErr.Temporary())
}

func TestOpenAISTT_MissingSource(t *testing.T) {
	_, err := NewOpenAISTT(OpenAISTTConfig{}).Transcribe(context.Background(), TranscriptionRequest{})
	assert.Error(t, err)
}

func TestNew_PicksBackend(t *testing.T) {
	assert.Equal(t, "local-whisper", New("local", OpenAISTTConfig{}, LocalSTTConfig{}).Name())
	assert.Equal(t, "openai-whisper", New("openai", OpenAISTTConfig{}, LocalSTTConfig{}).Name())
}
