// Package types provides shared type definitions for noteforge.
//
// This package defines the domain types that flow through the conversion
// pipeline: chunks cut from source files, sections returned by the
// segmentation provider, assembled notes, and the similarity edges that
// connect them.
//
// # Core Types
//
// Chunk is a bounded, contiguous slice of one source file. Concatenating a
// file's chunks in SequenceIndex order reproduces the file exactly:
//
//	chunk := types.Chunk{
//	    SourceID:      "journal/2024-01.txt",
//	    SequenceIndex: 0,
//	    Text:          text,
//	    Start:         0,
//	    End:           len(text),
//	}
//
// Section is one titled, tagged logical unit produced by the segmentation
// provider for a chunk. Sections are what the response cache persists.
//
// Note is the assembled output record. A note's Links slice stays empty
// until the global linking pass runs; linking requires the complete note
// set, so no partial linking happens mid-pipeline.
//
// # Validation
//
// Chunk and Note implement Validate methods that enforce the structural
// invariants the pipeline relies on:
//
//	if err := chunk.Validate(); err != nil {
//	    return err
//	}
package types
