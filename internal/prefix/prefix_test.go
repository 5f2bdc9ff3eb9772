package prefix

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComplete(t *testing.T) {
	idx := FromKeys("openai", "openrouter", "ollama", "gemini")

	assert.Equal(t, []string{"openai", "openrouter"}, idx.Complete("open"))
	assert.Equal(t, []string{"gemini", "ollama", "openai", "openrouter"}, idx.Complete(""))
	assert.Empty(t, idx.Complete("x"))
	assert.Equal(t, 4, idx.Len())
}

func TestResolve(t *testing.T) {
	idx := New[int]()
	idx.Insert("claude", 1)
	idx.Insert("anthropic", 1)
	idx.Insert("gemini", 2)
	idx.Insert("gpt", 3)

	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"claude", 1, true},
		{"ant", 1, true},
		{"gem", 2, true},
		{"g", 0, false},
		{"mistral", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := idx.Resolve(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	idx.Insert("gpt", 4)
	v, _ := idx.Get("gpt")
	assert.Equal(t, 4, v, "insert replaces")
	assert.Equal(t, 4, idx.Len())
}
