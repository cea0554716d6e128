package story

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	out, err := Render("Hi {{name}}, {{name}} likes {{thing}}", map[string]string{"name": "Ana", "thing": "tea"})
	require.NoError(t, err)
	assert.Equal(t, "Hi Ana, Ana likes tea", out)

	_, err = Render("{{a}} {{b}}", map[string]string{"a": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b")
}

func TestTemplatesDeclareExpectedVariables(t *testing.T) {
	assert.Equal(t, []string{"max_words"}, ExtractVariables(systemTemplate))
	assert.Equal(t, []string{"memories", "guidance"}, ExtractVariables(userTemplate))
	assert.Equal(t, []string{"title", "subjects"}, ExtractVariables(coverTemplate))
}
