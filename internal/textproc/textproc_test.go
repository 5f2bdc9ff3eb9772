package textproc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"collapses whitespace", "  one \n\t two   three ", "one two three"},
		{"squeezes punctuation", "Hello world!!!  How are you??", "Hello world! How are you?"},
		{"drops symbols", "Price: $5 @ store", "Price: 5 store"},
		{"space before punctuation", "word , next", "word, next"},
		{"curly quotes", "“quoted” and ‘single’", `"quoted" and 'single'`},
		{"keeps letters", "Zażółć gęślą jaźń.", "Zażółć gęślą jaźń."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestChunkShortText(t *testing.T) {
	assert.Equal(t, []string{"Short text."}, Chunk("  Short   text. ", DefaultChunkSize, DefaultOverlap))
	assert.Empty(t, Chunk("   ", DefaultChunkSize, DefaultOverlap))
}

func TestChunkWithoutBreakpoints(t *testing.T) {
	chunks := Chunk(strings.Repeat("a", 2500), 1000, 200)

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 1000)
	assert.Len(t, chunks[1], 1000)
	assert.Len(t, chunks[2], 900)
}

func TestChunkPrefersSentenceEnds(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 60; i++ {
		b.WriteString("This sentence is about retrieval. ")
	}
	text := b.String()

	chunks := Chunk(text, 300, 50)
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 300)
		if i < len(chunks)-1 {
			assert.True(t, strings.HasSuffix(c, "."), "chunk %d should end a sentence: %q", i, c)
		}
	}
	assert.True(t, strings.HasSuffix(chunks[len(chunks)-1], "retrieval."))
}

func TestChunkOverlapNotSmallerThanSize(t *testing.T) {
	chunks := Chunk(strings.Repeat("b", 25), 10, 10)
	assert.Equal(t, []string{strings.Repeat("b", 10), strings.Repeat("b", 10), strings.Repeat("b", 5)}, chunks)
}

func TestFingerprintAndDedup(t *testing.T) {
	assert.Equal(t, Fingerprint("Hello  World"), Fingerprint(" hello world"))
	assert.NotEqual(t, Fingerprint("hello"), Fingerprint("world"))

	seen := map[uint64]bool{}
	assert.Equal(t, []string{"a", "b"}, Dedup([]string{"a", "A", "b", "a "}, seen))
	assert.Equal(t, []string{"c"}, Dedup([]string{"b", "c"}, seen), "seen is shared across calls")
	assert.Equal(t, []string{"b"}, Dedup([]string{"b"}, nil))
}

func TestHTMLToMarkdown(t *testing.T) {
	md, err := HTMLToMarkdown("<h1>Title</h1><p>Body <strong>bold</strong></p>")
	require.NoError(t, err)
	assert.Contains(t, md, "# Title")
	assert.Contains(t, md, "**bold**")
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()
	htmlPath := filepath.Join(dir, "page.HTML")
	txtPath := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(htmlPath, []byte("<p>Hello <em>there</em></p>"), 0o600))
	require.NoError(t, os.WriteFile(txtPath, []byte("<p>kept raw</p>"), 0o600))

	md, err := ReadDocument(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, md, "Hello")
	assert.NotContains(t, md, "<p>")

	raw, err := ReadDocument(txtPath)
	require.NoError(t, err)
	assert.Equal(t, "<p>kept raw</p>", raw)

	_, err = ReadDocument(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)

	assert.True(t, Supported(htmlPath))
	assert.True(t, Supported("readme.md"))
	assert.False(t, Supported("image.png"))
}
