package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitShortDocumentSingleChunk(t *testing.T) {
	c := New(Config{MaxChunkSize: 500, Overlap: 50})

	chunks := c.Split("# Title\n\nShort.")

	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "# Title")
	assert.Contains(t, chunks[0].Text, "Short.")
	assert.Equal(t, []string{"Title"}, chunks[0].HeadingPath)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestSplitHeadingPaths(t *testing.T) {
	content := strings.Join([]string{
		"# Guide",
		"intro text",
		"## Install",
		"install steps",
		"### Linux",
		"apt install",
		"## Usage",
		"run the thing",
	}, "\n")

	c := New(Config{MaxChunkSize: 500, Overlap: 50})
	chunks := c.Split(content)

	require.Len(t, chunks, 4)
	assert.Equal(t, []string{"Guide"}, chunks[0].HeadingPath)
	assert.Equal(t, []string{"Guide", "Install"}, chunks[1].HeadingPath)
	assert.Equal(t, []string{"Guide", "Install", "Linux"}, chunks[2].HeadingPath)
	// Usage is level 2, so the Linux level pops off the path.
	assert.Equal(t, []string{"Guide", "Usage"}, chunks[3].HeadingPath)

	// Headers are retained in the body.
	assert.True(t, strings.HasPrefix(chunks[1].Text, "## Install"))
}

func TestSplitRespectsMaxSize(t *testing.T) {
	para := strings.Repeat("word ", 60) // ~300 runes
	content := "# Big\n\n" + strings.Repeat(para+"\n\n", 10)

	c := New(Config{MaxChunkSize: 400, Overlap: 80})
	chunks := c.Split(content)

	require.Greater(t, len(chunks), 1)
	for i, ch := range chunks {
		assert.LessOrEqualf(t, len([]rune(ch.Text)), 400, "chunk %d exceeds max size", i)
		assert.NotEmpty(t, strings.TrimSpace(ch.Text), "chunk %d is whitespace-only", i)
		assert.Equal(t, i, ch.Index)
	}
}

func TestSplitNoSeparatorFallsBackToRuneWindow(t *testing.T) {
	content := strings.Repeat("x", 1000) // no blank line, newline or space

	c := New(Config{MaxChunkSize: 300, Overlap: 50})
	chunks := c.Split(content)

	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len([]rune(ch.Text)), 300)
	}
	// Consecutive window chunks share the configured overlap.
	first := []rune(chunks[0].Text)
	second := []rune(chunks[1].Text)
	assert.Equal(t, string(first[len(first)-50:]), string(second[:50]))
}

func TestSplitEmptyAndWhitespaceContent(t *testing.T) {
	c := New(Config{})
	assert.Empty(t, c.Split(""))
	assert.Empty(t, c.Split("   \n\n\t  "))
}

func TestNewRejectsOverlapNotBelowMax(t *testing.T) {
	c := New(Config{MaxChunkSize: 100, Overlap: 100})
	assert.Less(t, c.cfg.Overlap, c.cfg.MaxChunkSize)

	c = New(Config{MaxChunkSize: 100, Overlap: 500})
	assert.Less(t, c.cfg.Overlap, c.cfg.MaxChunkSize)
}

func TestEmbeddingInput(t *testing.T) {
	assert.Equal(t, "Setup Guide\n\nbody", EmbeddingInput("Setup Guide", "body"))
	assert.Equal(t, "body", EmbeddingInput("", "body"))
}
