package extraction

// DefaultMaxChars and DefaultOverlapChars are the chunker's defaults.
const (
	DefaultMaxChars     = 16000
	DefaultOverlapChars = 800
)

// TextChunk is one ordered slice of a document's text, addressed by
// code-point offsets into the original string.
type TextChunk struct {
	Text        string
	StartChar   int
	EndChar     int
	ChunkIndex  int
	TotalChunks int
}

// Chunker splits document text into overlapping, paragraph-aware
// chunks for per-chunk LLM extraction.
type Chunker struct {
	MaxChars     int
	OverlapChars int
}

// NewChunker builds a Chunker, falling back to the package defaults for
// a non-positive maxChars or a negative overlapChars (zero overlap is kept).
func NewChunker(maxChars, overlapChars int) *Chunker {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if overlapChars < 0 {
		overlapChars = DefaultOverlapChars
	}
	return &Chunker{MaxChars: maxChars, OverlapChars: overlapChars}
}

// Chunk splits text into code-point-indexed TextChunks. Empty text
// yields a single empty chunk at (0, 0).
func (c *Chunker) Chunk(text string) []TextChunk {
	runes := []rune(text)
	n := len(runes)

	if n <= c.MaxChars {
		return []TextChunk{{Text: text, StartChar: 0, EndChar: n, ChunkIndex: 0, TotalChunks: 1}}
	}

	var spans [][2]int
	start := 0
	for start < n {
		end := start + c.MaxChars
		if end >= n {
			end = n
		} else {
			end = preferParagraphBreak(runes, start, end)
		}

		spans = append(spans, [2]int{start, end})
		if end >= n {
			break
		}

		next := end - c.OverlapChars
		if next <= start {
			next = end
		}
		start = next
	}

	chunks := make([]TextChunk, len(spans))
	for i, s := range spans {
		chunks[i] = TextChunk{
			Text:        string(runes[s[0]:s[1]]),
			StartChar:   s[0],
			EndChar:     s[1],
			ChunkIndex:  i,
			TotalChunks: len(spans),
		}
	}
	return chunks
}

// preferParagraphBreak looks for a "\n\n" within the last 20% of the
// proposed [start,end) window and, if found, moves the boundary back to
// just past the last such break.
func preferParagraphBreak(runes []rune, start, end int) int {
	windowStart := start + int(float64(end-start)*0.8)
	bestBreak := -1
	for i := windowStart; i < end-1 && i+1 < len(runes); i++ {
		if runes[i] == '\n' && runes[i+1] == '\n' {
			bestBreak = i + 2
		}
	}
	if bestBreak > start && bestBreak <= end {
		return bestBreak
	}
	return end
}
