package pipeline

import (
	"math"
	"strings"

	"github.com/nikhilbhutani/memorylane/internal/config"
	"github.com/nikhilbhutani/memorylane/internal/models"
	"github.com/nikhilbhutani/memorylane/internal/multimodal/stt"
)

const (
	QualityExcellent = "excellent"
	QualityGood      = "good"
	QualityFair      = "fair"
	QualityPoor      = "poor"
	QualityUnknown   = "unknown"
)

var qualityLevels = []string{QualityExcellent, QualityGood, QualityFair, QualityPoor}

// SegmentConfidence blends decoder certainty with speech presence. avg_logprob
// is mapped from [-1, 0] onto [0, 1].
func SegmentConfidence(avgLogprob, noSpeechProb float64) float64 {
	norm := clamp01(avgLogprob + 1)
	c := 0.7*norm + 0.3*(1-noSpeechProb)
	return round2(clamp01(c))
}

// BuildTranscription converts a provider answer into the stored transcription,
// scoring every segment.
func BuildTranscription(resp *stt.TranscriptionResponse, q config.QualityThresholds) *models.Transcription {
	t := &models.Transcription{
		Text:     strings.TrimSpace(resp.Text),
		Language: resp.Language,
		Duration: resp.Duration,
		Segments: make([]models.TranscriptSegment, 0, len(resp.Segments)),
	}

	for _, s := range resp.Segments {
		t.Segments = append(t.Segments, models.TranscriptSegment{
			ID:               s.ID,
			Start:            s.Start,
			End:              s.End,
			Text:             strings.TrimSpace(s.Text),
			AvgLogprob:       s.AvgLogprob,
			NoSpeechProb:     s.NoSpeechProb,
			CompressionRatio: s.CompressionRatio,
			Confidence:       SegmentConfidence(s.AvgLogprob, s.NoSpeechProb),
		})
	}
	for _, w := range resp.Words {
		t.Words = append(t.Words, models.TranscriptWord{Word: w.Word, Start: w.Start, End: w.End})
	}

	t.QualityMetrics = qualityMetrics(t.Segments, q)
	return t
}

func qualityMetrics(segments []models.TranscriptSegment, q config.QualityThresholds) models.QualityMetrics {
	if len(segments) == 0 {
		return models.QualityMetrics{AudioQuality: QualityUnknown, TranscriptionQuality: QualityUnknown}
	}

	var conf, noSpeech, compression float64
	for _, s := range segments {
		conf += s.Confidence
		noSpeech += s.NoSpeechProb
		compression += s.CompressionRatio
	}
	n := float64(len(segments))
	m := models.QualityMetrics{
		AverageConfidence:   round2(conf / n),
		AverageNoSpeechProb: round2(noSpeech / n),
		AverageCompression:  round2(compression / n),
	}

	switch {
	case m.AverageNoSpeechProb < q.AudioExcellent:
		m.AudioQuality = QualityExcellent
	case m.AverageNoSpeechProb < q.AudioGood:
		m.AudioQuality = QualityGood
	case m.AverageNoSpeechProb < q.AudioFair:
		m.AudioQuality = QualityFair
	default:
		m.AudioQuality = QualityPoor
	}

	level := 3
	switch {
	case m.AverageConfidence >= q.TranscriptExcellent:
		level = 0
	case m.AverageConfidence >= q.TranscriptGood:
		level = 1
	case m.AverageConfidence >= q.TranscriptFair:
		level = 2
	}
	// repetitive output is a hallucination signal
	if q.MaxCompressionRatio > 0 && m.AverageCompression > q.MaxCompressionRatio && level < 3 {
		level++
	}
	m.TranscriptionQuality = qualityLevels[level]

	return m
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(1, x))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
