package story

import (
	"fmt"
	"regexp"
	"strings"
)

var variablePattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

const systemTemplate = `You are a warm, concise storyteller who turns a person's photos, videos and recordings into a short story.
Respond with a single JSON object and nothing else:
{"title": string, "narrative": string, "scenes": [{"file_id": string, "caption": string}]}
Use only the file_id values given. Keep the narrative under {{max_words}} words.`

const userTemplate = `Memories, in the order the story should follow:

{{memories}}

Guidance from the user: {{guidance}}`

const coverTemplate = `A painterly cover illustration for a personal story titled "{{title}}". Mood and subjects: {{subjects}}. No text or lettering.`

// Render replaces {{variable}} placeholders in the template with values from vars.
func Render(template string, vars map[string]string) (string, error) {
	missing := findMissingVars(template, vars)
	if len(missing) > 0 {
		return "", fmt.Errorf("missing template variables: %s", strings.Join(missing, ", "))
	}

	result := variablePattern.ReplaceAllStringFunc(template, func(match string) string {
		return vars[match[2:len(match)-2]]
	})
	return result, nil
}

// ExtractVariables returns the distinct variable names found in the template.
func ExtractVariables(template string) []string {
	matches := variablePattern.FindAllStringSubmatch(template, -1)
	seen := make(map[string]bool)
	var vars []string
	for _, m := range matches {
		if len(m) > 1 && !seen[m[1]] {
			vars = append(vars, m[1])
			seen[m[1]] = true
		}
	}
	return vars
}

func findMissingVars(template string, vars map[string]string) []string {
	var missing []string
	for _, v := range ExtractVariables(template) {
		if _, ok := vars[v]; !ok {
			missing = append(missing, v)
		}
	}
	return missing
}
