// Package linker computes pairwise similarity across a complete note set
// and attaches bounded-degree link edges. It runs exactly once per batch,
// after every note exists; incremental linking is deliberately impossible
// because the top-K selection needs global knowledge.
package linker

import (
	"context"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/dervan/noteforge/pkg/types"
)

// Feature weights. Shared tags say more about relatedness than shared
// title words, and the single category feature sits in between.
const (
	tagWeight      = 2.0
	titleWeight    = 1.0
	categoryWeight = 1.5
)

// Config holds linking parameters.
type Config struct {
	// Threshold is the minimum similarity score for a candidate edge.
	Threshold float64

	// MaxLinks bounds each note's out-degree.
	MaxLinks int

	// Workers bounds row-level parallelism; <= 0 means sequential.
	Workers int
}

// Result summarizes a linking pass.
type Result struct {
	PairComparisons int64
	EdgesKept       int
}

// Link populates the Links field of every note in place and returns pass
// statistics. Scores are symmetric, but selection is directional: A may
// keep B as a neighbor while B's own quota is filled by stronger matches.
// That bounded fan-out is intended, not a defect.
//
// Given identical notes and configuration the output is byte-identical
// across runs: notes are processed in id order, and candidate ties break
// by neighbor id ascending, never by iteration or arrival order.
func Link(ctx context.Context, notes []*types.Note, cfg Config) (*Result, error) {
	if cfg.MaxLinks <= 0 {
		cfg.MaxLinks = 5
	}

	// Work over an id-sorted view so arrival order cannot leak into the
	// output. The caller's slice order is left alone.
	ordered := make([]*types.Note, len(notes))
	copy(ordered, notes)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	features := make([]featureSet, len(ordered))
	for i, n := range ordered {
		features[i] = buildFeatures(n)
		n.Links = nil
	}

	edges, comparisons, err := scorePairs(ctx, ordered, features, cfg)
	if err != nil {
		return nil, err
	}

	kept := attachLinks(ordered, edges, cfg)

	return &Result{PairComparisons: comparisons, EdgesKept: kept}, nil
}

// featureSet maps a feature key to its weight.
type featureSet map[string]float64

// buildFeatures derives the explicit feature representation of a note:
// its tags, title tokens, and category, each namespaced and weighted.
// Explicit features keep the linker deterministic and testable, unlike an
// opaque embedding.
func buildFeatures(n *types.Note) featureSet {
	fs := make(featureSet)

	for _, tag := range n.Tags {
		fs["tag:"+tag] = tagWeight
	}

	for _, tok := range titleTokens(n.Title) {
		key := "title:" + tok
		if _, ok := fs[key]; !ok {
			fs[key] = titleWeight
		}
	}

	if n.Category != "" {
		fs["category:"+normalizeToken(n.Category)] = categoryWeight
	}

	return fs
}

// similarity is a weighted Jaccard over feature sets: the weight of the
// intersection divided by the weight of the union, in [0, 1]. Symmetric
// by construction.
func similarity(a, b featureSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var inter, union float64
	for key, wa := range a {
		if wb, ok := b[key]; ok {
			inter += min(wa, wb)
			union += max(wa, wb)
		} else {
			union += wa
		}
	}
	for key, wb := range b {
		if _, ok := a[key]; !ok {
			union += wb
		}
	}

	if union == 0 {
		return 0
	}
	return inter / union
}

// scorePairs evaluates every unordered note pair, in parallel across rows.
// Each row i owns the pairs (i, j) for j > i, so rows never write to the
// same slot and need no locking beyond the final merge.
func scorePairs(ctx context.Context, ordered []*types.Note, features []featureSet, cfg Config) ([]types.SimilarityEdge, int64, error) {
	rows := make([][]types.SimilarityEdge, len(ordered))
	var comparisons atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Workers > 0 {
		g.SetLimit(cfg.Workers)
	} else {
		g.SetLimit(1)
	}

	for i := range ordered {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			var row []types.SimilarityEdge
			for j := i + 1; j < len(ordered); j++ {
				comparisons.Add(1)
				score := similarity(features[i], features[j])
				if score > 0 && score >= cfg.Threshold {
					row = append(row, types.SimilarityEdge{
						A:     ordered[i].ID,
						B:     ordered[j].ID,
						Score: score,
					})
				}
			}
			rows[i] = row
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	var edges []types.SimilarityEdge
	for _, row := range rows {
		edges = append(edges, row...)
	}
	return edges, comparisons.Load(), nil
}

// attachLinks selects each note's top MaxLinks neighbors from the
// surviving edges and writes them to Links, strongest first.
func attachLinks(ordered []*types.Note, edges []types.SimilarityEdge, cfg Config) int {
	candidates := make(map[string][]types.Link, len(ordered))
	for _, e := range edges {
		candidates[e.A] = append(candidates[e.A], types.Link{TargetID: e.B, Score: e.Score})
		candidates[e.B] = append(candidates[e.B], types.Link{TargetID: e.A, Score: e.Score})
	}

	kept := 0
	for _, n := range ordered {
		links := candidates[n.ID]
		sort.Slice(links, func(i, j int) bool {
			if links[i].Score != links[j].Score {
				return links[i].Score > links[j].Score
			}
			return links[i].TargetID < links[j].TargetID
		})
		if len(links) > cfg.MaxLinks {
			links = links[:cfg.MaxLinks]
		}
		n.Links = links
		kept += len(links)
	}

	return kept
}
