package chunker

import (
	"fmt"
	"regexp"
	"strings"
)

// Chunk is one retrieval-sized unit of a document. Index is the chunk's
// position within the document, HeadingPath the markdown heading trail
// (levels 1-3) leading to the text.
type Chunk struct {
	Text        string
	Index       int
	HeadingPath []string
}

// Config controls the size pass. Overlap must be strictly smaller than
// MaxChunkSize or New falls back to defaults.
type Config struct {
	MaxChunkSize int // in runes
	Overlap      int // in runes
}

const (
	DefaultMaxChunkSize = 1500
	DefaultOverlap      = 200
)

type Chunker struct {
	cfg Config
}

func New(cfg Config) *Chunker {
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = DefaultMaxChunkSize
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.MaxChunkSize {
		cfg.Overlap = DefaultOverlap
		if cfg.Overlap >= cfg.MaxChunkSize {
			cfg.Overlap = cfg.MaxChunkSize / 4
		}
	}
	return &Chunker{cfg: cfg}
}

var headingRe = regexp.MustCompile(`^(#{1,3})\s+(.+?)\s*$`)

// sizeSeparators is the priority list for the recursive size pass. The empty
// separator means a plain rune window split, the last resort.
var sizeSeparators = []string{"\n\n", "\n", " "}

// Split runs the structural pass then the size pass over content and returns
// the ordered chunk list. Headings are kept in the segment body so a chunk is
// self-describing; no emitted chunk is empty or whitespace-only.
func (c *Chunker) Split(content string) []Chunk {
	var chunks []Chunk
	for _, seg := range c.structuralPass(content) {
		for _, text := range c.splitBySize(seg.text) {
			if strings.TrimSpace(text) == "" {
				continue
			}
			chunks = append(chunks, Chunk{
				Text:        text,
				Index:       len(chunks),
				HeadingPath: seg.path,
			})
		}
	}
	return chunks
}

// EmbeddingInput prefixes the parent document title onto a chunk's text so
// the embedded representation stays interpretable without its siblings.
func EmbeddingInput(title, chunkText string) string {
	if title == "" {
		return chunkText
	}
	return fmt.Sprintf("%s\n\n%s", title, chunkText)
}

type segment struct {
	path []string
	text string
}

// structuralPass splits content on heading markers (levels 1-3), tagging each
// segment with its heading path. The heading line stays in the segment body.
func (c *Chunker) structuralPass(content string) []segment {
	lines := strings.Split(content, "\n")

	var segments []segment
	var path []string
	var buf []string

	flush := func() {
		text := strings.Join(buf, "\n")
		if strings.TrimSpace(text) != "" {
			segments = append(segments, segment{
				path: append([]string{}, path...),
				text: text,
			})
		}
		buf = nil
	}

	for _, line := range lines {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			flush()
			level := len(m[1])
			if level <= len(path) {
				path = path[:level-1]
			}
			path = append(path, m[2])
		}
		buf = append(buf, line)
	}
	flush()

	return segments
}

// splitBySize breaks a structural segment into pieces no larger than
// MaxChunkSize, then merges them back greedily with Overlap runes carried
// across each cut boundary.
func (c *Chunker) splitBySize(text string) []string {
	if runeLen(text) <= c.cfg.MaxChunkSize {
		return []string{text}
	}
	return c.merge(c.atomize(text, sizeSeparators))
}

// atomize recursively splits text until every piece fits in MaxChunkSize,
// walking down the separator priority list and falling back to a rune window.
func (c *Chunker) atomize(text string, separators []string) []string {
	if runeLen(text) <= c.cfg.MaxChunkSize {
		return []string{text}
	}
	if len(separators) == 0 {
		return c.splitRunes(text)
	}

	sep := separators[0]
	if !strings.Contains(text, sep) {
		return c.atomize(text, separators[1:])
	}

	var pieces []string
	// SplitAfter keeps the separator attached so rejoining is lossless.
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		pieces = append(pieces, c.atomize(part, separators[1:])...)
	}
	return pieces
}

// splitRunes is the last-resort window split, stepping by size minus overlap.
func (c *Chunker) splitRunes(text string) []string {
	runes := []rune(text)
	size := c.cfg.MaxChunkSize
	step := size - c.cfg.Overlap
	if step <= 0 {
		step = size
	}

	var out []string
	for i := 0; i < len(runes); i += step {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}

// merge packs atomized pieces into chunks of at most MaxChunkSize, seeding
// each chunk after the first with the overlap tail of its predecessor. The
// overlap is dropped at a boundary where it would push the chunk past the
// maximum.
func (c *Chunker) merge(pieces []string) []string {
	var chunks []string
	var buf string

	for _, piece := range pieces {
		if buf != "" && runeLen(buf)+runeLen(piece) > c.cfg.MaxChunkSize {
			chunks = append(chunks, buf)
			tail := c.overlapTail(buf)
			if runeLen(tail)+runeLen(piece) <= c.cfg.MaxChunkSize {
				buf = tail + piece
			} else {
				buf = piece
			}
			continue
		}
		buf += piece
	}
	if strings.TrimSpace(buf) != "" {
		chunks = append(chunks, buf)
	}
	return chunks
}

func (c *Chunker) overlapTail(s string) string {
	runes := []rune(s)
	if len(runes) <= c.cfg.Overlap {
		return s
	}
	return string(runes[len(runes)-c.cfg.Overlap:])
}

func runeLen(s string) int {
	return len([]rune(s))
}
