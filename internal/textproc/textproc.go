// Package textproc prepares documents for indexing: HTML conversion,
// cleaning, overlapping chunking and duplicate detection.
package textproc

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/cespare/xxhash/v2"
)

// Chunking defaults.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

var (
	whitespace      = regexp.MustCompile(`\s+`)
	disallowed      = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?;:()\-'"“”‘’]`)
	repeatedPunct   = regexp.MustCompile(`([.,!?;:]){2,}`)
	spaceBeforePunc = regexp.MustCompile(`\s+([.,!?;:])`)
	spaceAfterPunc  = regexp.MustCompile(`([.,!?;:])\s+`)
	quotes          = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'")
)

// SupportedExtensions are the file types ReadDocument understands.
var SupportedExtensions = []string{".txt", ".md", ".markdown", ".html", ".htm"}

// Supported reports whether path has a supported extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ReadDocument reads a file as text. HTML is converted to markdown.
func ReadDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return HTMLToMarkdown(string(data))
	default:
		return string(data), nil
	}
}

// HTMLToMarkdown converts an HTML document to markdown.
func HTMLToMarkdown(html string) (string, error) {
	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML: %w", err)
	}
	return md, nil
}

// Clean collapses whitespace, drops symbols other than common punctuation,
// squeezes repeated punctuation and normalizes curly quotes.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	cleaned := whitespace.ReplaceAllString(text, " ")
	cleaned = disallowed.ReplaceAllString(cleaned, " ")
	cleaned = repeatedPunct.ReplaceAllString(cleaned, "${1}")
	cleaned = quotes.Replace(cleaned)
	cleaned = spaceBeforePunc.ReplaceAllString(cleaned, "${1}")
	cleaned = spaceAfterPunc.ReplaceAllString(cleaned, "${1} ")
	cleaned = whitespace.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// Chunk cleans text and splits it into pieces of at most size characters,
// consecutive pieces sharing about overlap characters. A piece prefers to end
// after a period in its last 100 characters, else at a space in its last 50.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	cleaned := []rune(Clean(text))
	if len(cleaned) == 0 {
		return []string{}
	}
	if len(cleaned) <= size {
		return []string{string(cleaned)}
	}

	var chunks []string
	start := 0
	for start < len(cleaned) {
		end := start + size
		if end < len(cleaned) {
			if i := lastIndex(cleaned, '.', max(start, end-100), end); i > start {
				end = i + 1
			} else if i := lastIndex(cleaned, ' ', max(start, end-50), end); i > start {
				end = i
			}
		} else {
			end = len(cleaned)
		}

		if chunk := strings.TrimSpace(string(cleaned[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end >= len(cleaned) {
			break
		}

		next := end - overlap
		if next <= start {
			next = start + max(1, size-overlap)
		}
		start = next
	}
	return chunks
}

// lastIndex returns the last position of r in s[lo:hi], or -1.
func lastIndex(s []rune, r rune, lo, hi int) int {
	for i := hi - 1; i >= lo; i-- {
		if s[i] == r {
			return i
		}
	}
	return -1
}

// Fingerprint hashes text after case and whitespace normalization.
func Fingerprint(text string) uint64 {
	normalized := whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), " ")
	return xxhash.Sum64String(normalized)
}

// Dedup drops chunks whose fingerprint was already seen, keeping order.
// seen may be shared across documents; nil starts fresh.
func Dedup(chunks []string, seen map[uint64]bool) []string {
	if seen == nil {
		seen = make(map[uint64]bool)
	}
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		fp := Fingerprint(c)
		if seen[fp] {
			continue
		}
		seen[fp] = true
		out = append(out, c)
	}
	return out
}
