package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkValidate(t *testing.T) {
	valid := Chunk{SourceID: "a.txt", SequenceIndex: 0, Text: "hello", Start: 0, End: 5}
	require.NoError(t, valid.Validate())
	assert.Equal(t, 5, valid.Len())

	tests := []struct {
		name   string
		mutate func(*Chunk)
	}{
		{"empty source id", func(c *Chunk) { c.SourceID = "" }},
		{"negative sequence index", func(c *Chunk) { c.SequenceIndex = -1 }},
		{"negative start", func(c *Chunk) { c.Start = -1 }},
		{"end before start", func(c *Chunk) { c.Start = 10; c.End = 5 }},
		{"text range mismatch", func(c *Chunk) { c.End = 4 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestReassemble(t *testing.T) {
	chunks := []Chunk{
		{SourceID: "a.txt", SequenceIndex: 0, Text: "first ", Start: 0, End: 6},
		{SourceID: "a.txt", SequenceIndex: 1, Text: "second", Start: 6, End: 12},
	}
	assert.Equal(t, "first second", Reassemble(chunks))
	assert.Equal(t, "", Reassemble(nil))
}

func TestNoteValidate(t *testing.T) {
	valid := Note{
		ID:          "a.txt#000",
		SourceID:    "a.txt",
		Title:       "A Note",
		ContentHash: "abc123",
		Links: []Link{
			{TargetID: "a.txt#001", Score: 0.9},
			{TargetID: "b.txt#000", Score: 0.5},
		},
	}
	require.NoError(t, valid.Validate())

	selfLinked := valid
	selfLinked.Links = []Link{{TargetID: selfLinked.ID, Score: 1.0}}
	assert.Error(t, selfLinked.Validate())

	duplicated := valid
	duplicated.Links = []Link{
		{TargetID: "a.txt#001", Score: 0.9},
		{TargetID: "a.txt#001", Score: 0.4},
	}
	assert.Error(t, duplicated.Validate())

	missingHash := valid
	missingHash.ContentHash = ""
	assert.Error(t, missingHash.Validate())
}
