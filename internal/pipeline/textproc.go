package pipeline

import (
	"strings"
	"unicode"

	"github.com/nikhilbhutani/memorylane/internal/models"
)

const transcriptKeywordWords = 10

// BuildSearchIndex derives searchable text and keywords from a file's current
// fields. It is pure, so running it twice gives the same result.
func BuildSearchIndex(f *models.File) (string, []string) {
	var parts []string
	if f.Transcription != nil {
		parts = append(parts, f.Transcription.Text)
	}
	parts = append(parts, f.AIDescription, f.UserDescription)
	parts = append(parts, f.TagNames()...)

	searchable := strings.ToLower(strings.Join(strings.Fields(strings.Join(parts, " ")), " "))

	seen := make(map[string]bool)
	keywords := []string{}
	add := func(w string) {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || seen[w] {
			return
		}
		seen[w] = true
		keywords = append(keywords, w)
	}

	for _, tag := range f.TagNames() {
		add(tag)
	}
	if f.Transcription != nil {
		words := strings.Fields(f.Transcription.Text)
		if len(words) > transcriptKeywordWords {
			words = words[:transcriptKeywordWords]
		}
		for _, w := range words {
			add(strings.TrimFunc(w, isPunct))
		}
	}

	return searchable, keywords
}

// ApplySearchIndex stores the result of BuildSearchIndex on f.
func ApplySearchIndex(f *models.File) {
	f.SearchableText, f.Keywords = BuildSearchIndex(f)
}

func isPunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
