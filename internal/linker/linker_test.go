package linker

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dervan/noteforge/pkg/types"
)

func note(id, title, category string, tags ...string) *types.Note {
	return &types.Note{
		ID:       id,
		Title:    title,
		Category: category,
		Tags:     tags,
	}
}

func linkTargets(n *types.Note) []string {
	ids := make([]string, len(n.Links))
	for i, l := range n.Links {
		ids[i] = l.TargetID
	}
	return ids
}

func TestLinkRelatedNotesAboveThreshold(t *testing.T) {
	notes := []*types.Note{
		note("a#000", "Quarterly planning session", "Projects", "planning", "goals"),
		note("a#001", "Planning the roadmap", "Projects", "planning", "roadmap"),
		note("a#002", "Sourdough starter recipe", "Personal", "baking", "recipe"),
	}

	result, err := Link(context.Background(), notes, Config{Threshold: 0.3, MaxLinks: 5})
	require.NoError(t, err)

	// Three notes, three unordered pairs.
	assert.Equal(t, int64(3), result.PairComparisons)

	assert.Contains(t, linkTargets(notes[0]), "a#001")
	assert.Contains(t, linkTargets(notes[1]), "a#000")

	// The baking note shares nothing and stays unlinked.
	assert.Empty(t, notes[2].Links)
}

func TestLinkScoresAreSymmetricAndBounded(t *testing.T) {
	a := buildFeatures(note("x", "Planning the week", "Projects", "planning"))
	b := buildFeatures(note("y", "Planning the month", "Projects", "planning"))

	ab := similarity(a, b)
	ba := similarity(b, a)
	assert.Equal(t, ab, ba)
	assert.Greater(t, ab, 0.0)
	assert.LessOrEqual(t, ab, 1.0)

	assert.Equal(t, 1.0, similarity(a, a))
	assert.Equal(t, 0.0, similarity(a, featureSet{}))
}

func TestLinkRespectsMaxLinks(t *testing.T) {
	// The hub shares two tags with "close", one tag plus category with
	// "near", and only the category with "far".
	notes := []*types.Note{
		note("hub", "Alpha", "Projects", "planning", "goals"),
		note("close", "Beta", "Projects", "planning", "goals"),
		note("near", "Gamma", "Projects", "planning"),
		note("far", "Delta", "Projects", "unrelated"),
	}

	_, err := Link(context.Background(), notes, Config{Threshold: 0.1, MaxLinks: 2})
	require.NoError(t, err)

	hub := notes[0]
	require.Len(t, hub.Links, 2)
	assert.Equal(t, "close", hub.Links[0].TargetID)
	assert.Equal(t, "near", hub.Links[1].TargetID)
	assert.Greater(t, hub.Links[0].Score, hub.Links[1].Score, "links must be strongest first")
}

func TestLinkEnforcesThreshold(t *testing.T) {
	notes := []*types.Note{
		note("a", "Alpha report", "Projects", "planning", "alpha"),
		note("b", "Beta report", "Projects", "planning", "beta"),
		note("c", "Gamma report", "Knowledge", "unrelated"),
	}

	_, err := Link(context.Background(), notes, Config{Threshold: 0.99, MaxLinks: 5})
	require.NoError(t, err)

	for _, n := range notes {
		assert.Empty(t, n.Links, "no pair reaches a 0.99 threshold")
	}
}

func TestLinkNeverSelfLinksOrDuplicates(t *testing.T) {
	notes := []*types.Note{
		note("a", "Shared topic", "Projects", "common"),
		note("b", "Shared topic", "Projects", "common"),
		note("c", "Shared topic", "Projects", "common"),
	}

	_, err := Link(context.Background(), notes, Config{Threshold: 0.1, MaxLinks: 5})
	require.NoError(t, err)

	for _, n := range notes {
		n.ContentHash = "x" // satisfy structural validation
		require.NoError(t, n.Validate())
		assert.NotContains(t, linkTargets(n), n.ID)
	}
}

func TestLinkDeterministicAcrossInputOrder(t *testing.T) {
	build := func() []*types.Note {
		return []*types.Note{
			note("n0", "Planning the sprint", "Projects", "planning", "sprint"),
			note("n1", "Sprint retrospective notes", "Projects", "sprint", "retro"),
			note("n2", "Planning next quarter", "Projects", "planning", "quarter"),
			note("n3", "Grocery list", "Personal", "shopping"),
			note("n4", "Quarterly planning goals", "Projects", "planning", "goals", "quarter"),
		}
	}

	reference := build()
	_, err := Link(context.Background(), reference, Config{Threshold: 0.2, MaxLinks: 3, Workers: 4})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 5; run++ {
		shuffled := build()
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		_, err := Link(context.Background(), shuffled, Config{Threshold: 0.2, MaxLinks: 3, Workers: 4})
		require.NoError(t, err)

		byID := make(map[string]*types.Note, len(shuffled))
		for _, n := range shuffled {
			byID[n.ID] = n
		}
		for _, want := range reference {
			assert.Equal(t, want.Links, byID[want.ID].Links, "note %s", want.ID)
		}
	}
}

func TestLinkTieBreaksByTargetID(t *testing.T) {
	// Both candidates score identically against the hub; the lower id
	// must come first.
	notes := []*types.Note{
		note("hub", "Alpha", "", "shared"),
		note("z-twin", "Beta", "", "shared"),
		note("a-twin", "Beta", "", "shared"),
	}

	_, err := Link(context.Background(), notes, Config{Threshold: 0.1, MaxLinks: 5})
	require.NoError(t, err)

	hub := notes[0]
	require.Len(t, hub.Links, 2)
	assert.Equal(t, "a-twin", hub.Links[0].TargetID)
	assert.Equal(t, "z-twin", hub.Links[1].TargetID)
}

func TestLinkClearsStaleLinks(t *testing.T) {
	n := note("solo", "Nothing in common", "", "lonely")
	n.Links = []types.Link{{TargetID: "ghost", Score: 0.9}}

	_, err := Link(context.Background(), []*types.Note{n}, Config{Threshold: 0.3, MaxLinks: 5})
	require.NoError(t, err)

	assert.Empty(t, n.Links)
}

func TestLinkEmptyAndSingleInputs(t *testing.T) {
	result, err := Link(context.Background(), nil, Config{Threshold: 0.3, MaxLinks: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.PairComparisons)

	solo := note("only", "A single note", "Knowledge", "tag")
	result, err = Link(context.Background(), []*types.Note{solo}, Config{Threshold: 0.3, MaxLinks: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.PairComparisons)
	assert.Empty(t, solo.Links)
}
