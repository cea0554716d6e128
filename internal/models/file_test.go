package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMediaKind(t *testing.T) {
	assert.True(t, MediaVideo.HasAudio())
	assert.True(t, MediaAudio.HasAudio())
	assert.False(t, MediaImage.HasAudio())

	assert.True(t, MediaImage.HasVisual())
	assert.True(t, MediaVideo.HasVisual())
	assert.False(t, MediaAudio.HasVisual())

	assert.False(t, MediaKind("document").Valid())
}

func TestProcessingSummary_LatestRunOnly(t *testing.T) {
	f := &File{ProcessingHistory: []ProcessingEntry{
		{Step: StepFileInfo, Status: EntryProcessing, Generation: 1},
		{Step: StepFileInfo, Status: EntryFailed, Generation: 1},
		{Step: StepError, Status: EntryFailed, Generation: 1},
		{Step: StepFileInfo, Status: EntryProcessing, Generation: 2},
		{Step: StepFileInfo, Status: EntryCompleted, Generation: 2},
		{Step: StepVisionAnalysis, Status: EntryProcessing, Generation: 2},
		{Step: StepVisionAnalysis, Status: EntryFailed, Generation: 2},
		{Step: StepTextProcessing, Status: EntryProcessing, Generation: 2},
		{Step: StepTextProcessing, Status: EntryCompleted, Generation: 2},
		{Step: StepComplete, Status: EntryCompleted, Generation: 2},
	}}

	s := f.ProcessingSummary()
	assert.Equal(t, 3, s.Completed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 4, s.Total)
	assert.InDelta(t, 0.75, s.Ratio, 1e-9)
}

func TestProcessingSummary_Empty(t *testing.T) {
	s := (&File{}).ProcessingSummary()
	assert.Zero(t, s.Total)
	assert.Zero(t, s.Ratio)
}

func TestTagNames(t *testing.T) {
	f := &File{
		VisionTags: []VisionTag{{Tag: "beach"}, {Tag: "sunset"}},
		UserTags:   []string{"holiday"},
	}
	assert.Equal(t, []string{"beach", "sunset", "holiday"}, f.TagNames())
}
