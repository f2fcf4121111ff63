// Package chunker splits oversized inputs into bounded-size chunks that
// respect semantic boundaries where possible.
package chunker

import (
	"errors"
	"strings"

	"github.com/dervan/noteforge/pkg/types"
)

// DefaultMaxSize is the default chunk size bound in bytes.
const DefaultMaxSize = 1_000_000

// ErrInvalidMaxSize is returned when the size bound is not positive.
var ErrInvalidMaxSize = errors.New("chunker: max size must be positive")

// Split cuts text into ordered chunks of at most maxSize bytes each.
//
// Inputs no larger than maxSize come back as a single chunk. For larger
// inputs the cut point is moved backward from the size boundary to the
// nearest paragraph break, then sentence break, then word break; if the
// text has no break at all inside the look-back window the cut happens at
// the hard byte boundary, so a single giant line still terminates.
//
// Concatenating the returned chunks in order reproduces text exactly.
func Split(sourceID, text string, maxSize int) ([]types.Chunk, error) {
	if maxSize <= 0 {
		return nil, ErrInvalidMaxSize
	}

	if len(text) <= maxSize {
		return []types.Chunk{{
			SourceID:      sourceID,
			SequenceIndex: 0,
			Text:          text,
			Start:         0,
			End:           len(text),
		}}, nil
	}

	chunks := make([]types.Chunk, 0, len(text)/maxSize+1)
	pos := 0

	for pos < len(text) {
		end := pos + maxSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = splitPoint(text, pos, end, maxSize)
		}

		chunks = append(chunks, types.Chunk{
			SourceID:      sourceID,
			SequenceIndex: len(chunks),
			Text:          text[pos:end],
			Start:         pos,
			End:           end,
		})
		pos = end
	}

	return chunks, nil
}

// splitPoint finds the cut offset for the chunk starting at pos whose hard
// boundary is end. It never returns a value <= pos or > end.
func splitPoint(text string, pos, end, maxSize int) int {
	window := text[pos:end]

	// Prefer a paragraph break, keeping the break with the left chunk.
	if i := strings.LastIndex(window, "\n\n"); i >= 0 {
		return pos + i + 2
	}

	// Then a sentence break.
	if i := strings.LastIndex(window, ". "); i >= 0 {
		return pos + i + 2
	}
	if i := strings.LastIndex(window, ".\n"); i >= 0 {
		return pos + i + 2
	}

	// Then a word break, but only in the second half of the window so a
	// pathological run of early spaces cannot shrink chunks indefinitely.
	half := pos + maxSize/2
	if half < end {
		if i := strings.LastIndex(text[half:end], " "); i >= 0 {
			return half + i + 1
		}
		if i := strings.LastIndex(text[half:end], "\n"); i >= 0 {
			return half + i + 1
		}
	}

	// No usable boundary: hard cut.
	return end
}
