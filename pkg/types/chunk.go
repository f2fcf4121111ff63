package types

import "errors"

// Chunk represents a bounded-size contiguous slice of one source file.
type Chunk struct {
	// SourceID identifies the originating file, relative to the input root.
	SourceID string

	// SequenceIndex is the chunk's position within its file, starting at 0.
	SequenceIndex int

	// Text is the raw chunk content.
	Text string

	// Start and End are the byte offsets of Text within the source file,
	// half-open [Start, End).
	Start int
	End   int
}

// Len returns the chunk length in bytes.
func (c *Chunk) Len() int {
	return c.End - c.Start
}

// Validate checks the chunk's structural invariants.
func (c *Chunk) Validate() error {
	if c.SourceID == "" {
		return errors.New("chunk source id cannot be empty")
	}

	if c.SequenceIndex < 0 {
		return errors.New("chunk sequence index must be non-negative")
	}

	if c.Start < 0 || c.End < c.Start {
		return errors.New("chunk byte range is invalid")
	}

	if len(c.Text) != c.End-c.Start {
		return errors.New("chunk text length does not match byte range")
	}

	return nil
}

// Reassemble concatenates chunks in SequenceIndex order. Callers must pass
// the complete chunk sequence of a single file.
func Reassemble(chunks []Chunk) string {
	total := 0
	for i := range chunks {
		total += len(chunks[i].Text)
	}

	buf := make([]byte, 0, total)
	for i := range chunks {
		buf = append(buf, chunks[i].Text...)
	}
	return string(buf)
}
