package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dervan/noteforge/pkg/types"
)

func TestSplitSmallInputSingleChunk(t *testing.T) {
	text := "A short document.\n\nTwo paragraphs."

	chunks, err := Split("doc.txt", text, DefaultMaxSize)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, "doc.txt", chunks[0].SourceID)
	assert.Equal(t, 0, chunks[0].SequenceIndex)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, len(text), chunks[0].End)
}

func TestSplitEmptyInput(t *testing.T) {
	chunks, err := Split("doc.txt", "", DefaultMaxSize)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Empty(t, chunks[0].Text)
}

func TestSplitInvalidMaxSize(t *testing.T) {
	_, err := Split("doc.txt", "text", 0)
	assert.ErrorIs(t, err, ErrInvalidMaxSize)

	_, err = Split("doc.txt", "text", -1)
	assert.ErrorIs(t, err, ErrInvalidMaxSize)
}

func TestSplitRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		maxSize int
	}{
		{
			name:    "paragraphs",
			text:    strings.Repeat("First paragraph with some words.\n\nSecond paragraph follows here.\n\n", 20),
			maxSize: 100,
		},
		{
			name:    "sentences only",
			text:    strings.Repeat("One sentence here. Another sentence there. ", 30),
			maxSize: 120,
		},
		{
			name:    "no breaks at all",
			text:    strings.Repeat("x", 5000),
			maxSize: 1024,
		},
		{
			name:    "exact boundary",
			text:    strings.Repeat("a", 2048),
			maxSize: 1024,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := Split("doc.txt", tt.text, tt.maxSize)
			require.NoError(t, err)
			require.NotEmpty(t, chunks)

			assert.Equal(t, tt.text, types.Reassemble(chunks))

			pos := 0
			for i, c := range chunks {
				assert.Equal(t, i, c.SequenceIndex)
				assert.Equal(t, pos, c.Start, "chunks must be contiguous")
				assert.LessOrEqual(t, len(c.Text), tt.maxSize)
				assert.NotEmpty(t, c.Text, "chunks must make progress")
				require.NoError(t, c.Validate())
				pos = c.End
			}
			assert.Equal(t, len(tt.text), pos)
		})
	}
}

func TestSplitPrefersParagraphBreak(t *testing.T) {
	// The paragraph break sits well before the hard boundary; the cut
	// should land just after it, not at byte maxSize.
	text := strings.Repeat("a", 50) + "\n\n" + strings.Repeat("b", 100)

	chunks, err := Split("doc.txt", text, 100)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)

	assert.Equal(t, strings.Repeat("a", 50)+"\n\n", chunks[0].Text)
	assert.True(t, strings.HasPrefix(chunks[1].Text, "b"))
}

func TestSplitPrefersSentenceBreakOverWordBreak(t *testing.T) {
	text := "Some words here. " + strings.Repeat("word ", 40)

	chunks, err := Split("doc.txt", text, 100)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)

	assert.Equal(t, "Some words here. ", chunks[0].Text)
}

func TestSplitBreakFreeInputHardCuts(t *testing.T) {
	// 2.5 MB with no whitespace: only hard cuts can apply, and the
	// splitter must still terminate with full-size chunks.
	text := strings.Repeat("x", 2_500_000)

	chunks, err := Split("doc.txt", text, 1_000_000)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, 1_000_000, len(chunks[0].Text))
	assert.Equal(t, 1_000_000, len(chunks[1].Text))
	assert.Equal(t, 500_000, len(chunks[2].Text))
	assert.Equal(t, text, types.Reassemble(chunks))
}

func TestSplitEarlySpacesDoNotShrinkChunks(t *testing.T) {
	// All word breaks sit in the first half of the window; the splitter
	// must ignore them rather than emit tiny chunks forever.
	text := "a b c d " + strings.Repeat("x", 5000)

	chunks, err := Split("doc.txt", text, 100)
	require.NoError(t, err)

	for _, c := range chunks[:len(chunks)-1] {
		assert.GreaterOrEqual(t, len(c.Text), 50, "chunk %d too small", c.SequenceIndex)
	}
	assert.Equal(t, text, types.Reassemble(chunks))
}
