package types

import (
	"errors"
	"time"
)

// Link is a directed, scored edge from one note to another. Links are
// attached by the similarity linker after the full note set exists.
type Link struct {
	TargetID string  `json:"target_id"`
	Score    float64 `json:"score"`
}

// Note is an atomic note assembled from one section of a source file.
type Note struct {
	// ID is derived from the source file path and the section ordinal
	// within that file, e.g. "journal/2024-01.txt#002". Stable across runs.
	ID string `json:"id"`

	SourceID string `json:"source_id"`

	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags,omitempty"`
	Category string   `json:"category,omitempty"`

	// ContentHash is the digest of the normalized content, used for
	// similarity correlation and deduplication.
	ContentHash string `json:"content_hash"`

	CreatedAt time.Time `json:"created_at"`

	// Links is empty until the global linking pass runs, then holds at
	// most the configured maximum of scored neighbors, strongest first.
	Links []Link `json:"links,omitempty"`

	// CategoryInferred records that the provider's category was not on the
	// configured allowlist and had to be inferred or defaulted.
	CategoryInferred bool `json:"-"`
}

// Validate checks the note's structural invariants.
func (n *Note) Validate() error {
	if n.ID == "" {
		return errors.New("note id cannot be empty")
	}

	if n.Title == "" {
		return errors.New("note title cannot be empty")
	}

	if n.ContentHash == "" {
		return errors.New("note content hash must be computed")
	}

	seen := make(map[string]struct{}, len(n.Links))
	for _, l := range n.Links {
		if l.TargetID == n.ID {
			return errors.New("note must not link to itself")
		}
		if _, dup := seen[l.TargetID]; dup {
			return errors.New("note links contain a duplicate target")
		}
		seen[l.TargetID] = struct{}{}
	}

	return nil
}

// SimilarityEdge is a transient scored pairing between two notes, produced
// by the linker and consumed to populate Links. Never persisted.
type SimilarityEdge struct {
	A     string
	B     string
	Score float64
}
