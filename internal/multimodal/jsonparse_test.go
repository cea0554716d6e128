package multimodal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

func TestParseJSON(t *testing.T) {
	fallback := sample{Title: "Untitled"}

	tests := []struct {
		name   string
		raw    string
		want   sample
		parsed bool
	}{
		{"strict", `{"title":"Beach","tags":["sea"]}`, sample{Title: "Beach", Tags: []string{"sea"}}, true},
		{"fenced", "```json\n{\"title\":\"Beach\"}\n```", sample{Title: "Beach"}, true},
		{"fence without hint", "```\n{\"title\":\"Hike\"}\n```", sample{Title: "Hike"}, true},
		{"prose around object", "Sure! Here it is: {\"title\":\"Party\"} Enjoy.", fallback, false},
		{"prose around fence", "Here you go:\n```json\n{\"title\":\"Party\"}\n```\nEnjoy.", sample{Title: "Party"}, true},
		{"garbage", "I cannot help with that.", fallback, false},
		{"empty", "", fallback, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseJSON(tt.raw, fallback)
			assert.Equal(t, tt.parsed, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
