package text

import (
	"crypto/sha256"
	"fmt"
)

// Chunk is the unit of retrieval: a bounded window of one source document.
type Chunk struct {
	ID     string
	Text   string
	Source string
	Seq    int
}

// DefaultSize and DefaultOverlap are measured in runes, not bytes, so
// multi-byte corpora chunk the same way as ASCII ones.
const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// SplitDocument slides a window of `size` runes over the document. Each
// window may end early at a natural break (paragraph, sentence, then word)
// found in its second half; the next window always starts exactly `overlap`
// runes before the previous end, so consecutive chunks share exactly
// `overlap` runes and concatenating chunks minus that shared tail
// reconstructs the input losslessly.
//
// Same input and parameters always yield the same chunk sequence.
func SplitDocument(content, source string, size, overlap int) []Chunk {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultOverlap
		if overlap >= size {
			overlap = size / 5
		}
	}

	runes := []rune(content)
	if len(runes) == 0 {
		return nil
	}

	var chunks []Chunk
	start := 0
	for seq := 0; ; seq++ {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, newChunk(string(runes[start:]), source, seq))
			break
		}

		end = snapToBreak(runes, start, end, overlap)
		chunks = append(chunks, newChunk(string(runes[start:end]), source, seq))
		start = end - overlap
	}

	return chunks
}

// snapToBreak moves the window end backwards to the nearest natural break.
// The search floor keeps the step positive even after snapping: the end may
// never move at or before start+overlap.
func snapToBreak(runes []rune, start, end, overlap int) int {
	floor := start + (end-start)/2
	if min := start + overlap + 1; floor < min {
		floor = min
	}

	// Paragraph break: cut after the blank line.
	for i := end - 1; i > floor; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}

	// Sentence break: cut after terminal punctuation and its separator.
	for i := end - 2; i > floor; i-- {
		if isSentenceEnd(runes[i]) && isSeparator(runes[i+1]) {
			return i + 2
		}
	}

	// Word break.
	for i := end - 1; i > floor; i-- {
		if isSeparator(runes[i]) {
			return i + 1
		}
	}

	// No break available: hard cut.
	return end
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isSeparator(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t'
}

func newChunk(text, source string, seq int) Chunk {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s#%d:%s", source, seq, text)))
	return Chunk{
		ID:     fmt.Sprintf("%x", sum[:8]),
		Text:   text,
		Source: source,
		Seq:    seq,
	}
}
