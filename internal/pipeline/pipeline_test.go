package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dervan/noteforge/internal/cache"
	"github.com/dervan/noteforge/internal/config"
	"github.com/dervan/noteforge/internal/segment"
	"github.com/dervan/noteforge/internal/stats"
	"github.com/dervan/noteforge/pkg/types"
)

// countingSegmenter wraps a Segmenter and counts real provider calls.
type countingSegmenter struct {
	segment.Segmenter
	calls atomic.Int32
}

func (c *countingSegmenter) Segment(ctx context.Context, req segment.Request) ([]types.Section, error) {
	c.calls.Add(1)
	return c.Segmenter.Segment(ctx, req)
}

// recordingWriter captures the note set handed to the write phase.
type recordingWriter struct {
	notes []*types.Note
}

func (w *recordingWriter) Write(_ context.Context, notes []*types.Note) ([]string, error) {
	w.notes = notes
	paths := make([]string, len(notes))
	for i, n := range notes {
		paths[i] = n.ID + ".md"
	}
	return paths, nil
}

func testConfig(inputDir string) *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Input.Dir = inputDir
	cfg.Output.Dir = filepath.Join(inputDir, "vault")
	cfg.Provider.Name = config.ProviderMock
	cfg.Pipeline.Workers = 1
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg *config.Config, seg segment.Segmenter, collector stats.Collector, writer Writer) *Orchestrator {
	t.Helper()

	responseCache, err := cache.New(cache.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = responseCache.Close() })

	orch, err := New(Options{
		Config:    cfg,
		Segmenter: seg,
		Cache:     responseCache,
		Writer:    writer,
		Collector: collector,
		Logger:    slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	})
	require.NoError(t, err)
	return orch
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRunDeduplicatesIdenticalFiles(t *testing.T) {
	dir := t.TempDir()
	content := "Planning the sprint backlog.\n\nReview the server logs for errors."
	writeFile(t, dir, "a.txt", content)
	writeFile(t, dir, "b.txt", content)

	seg := &countingSegmenter{Segmenter: segment.NewMockProvider()}
	collector := stats.NewBasic()
	orch := newTestOrchestrator(t, testConfig(dir), seg, collector, nil)

	result, err := orch.Run(context.Background())
	require.NoError(t, err)

	// Identical chunk text under the same model resolves to the same key,
	// so the provider runs once and the second file is served from cache.
	assert.Equal(t, int32(1), seg.calls.Load())

	summary := collector.Summary()
	assert.Equal(t, 2, summary.FilesProcessed)
	assert.Equal(t, 1, summary.CacheHits)
	assert.Equal(t, 1, summary.CacheMisses)
	assert.Equal(t, 4, summary.NotesCreated)

	require.Len(t, result.Notes, 4)
	for _, res := range result.Files {
		assert.Equal(t, StateDone, res.State)
	}
}

func TestRunIsolatesPerFileFailures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.txt", "A perfectly normal paragraph of text.")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.txt"), []byte{0xff, 0xfe, 0x00, 0x41}, 0o644))

	seg := &countingSegmenter{Segmenter: segment.NewMockProvider()}
	collector := stats.NewBasic()
	orch := newTestOrchestrator(t, testConfig(dir), seg, collector, nil)

	result, err := orch.Run(context.Background())
	require.NoError(t, err, "one bad file must not abort the batch")

	summary := collector.Summary()
	assert.Equal(t, 1, summary.FilesProcessed)
	assert.Equal(t, 1, summary.FilesFailed)

	states := map[string]FileState{}
	for _, res := range result.Files {
		states[filepath.Base(res.Path)] = res.State
	}
	assert.Equal(t, StateFailed, states["bad.txt"])
	assert.Equal(t, StateDone, states["good.txt"])

	for _, res := range result.Files {
		if res.State == StateFailed {
			var fault *ChunkingFault
			assert.ErrorAs(t, res.Err, &fault)
		}
	}
}

func TestRunLinksNotesAfterBarrier(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "Planning the quarterly project goals carefully.")
	writeFile(t, dir, "b.txt", "Planning the quarterly project goals carefully today.")

	writer := &recordingWriter{}
	collector := stats.NewBasic()
	orch := newTestOrchestrator(t, testConfig(dir), segment.NewMockProvider(), collector, writer)

	result, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Notes, 2)

	// Near-identical notes share tags and must link to each other.
	for _, n := range result.Notes {
		require.NotEmpty(t, n.Links, "note %s should have been linked", n.ID)
		assert.NotEqual(t, n.ID, n.Links[0].TargetID)
	}

	assert.Greater(t, collector.Summary().PairComparisons, int64(0))
	assert.Len(t, result.Written, 2)
	assert.Equal(t, result.Notes, writer.notes)
}

func TestRunWithCancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "Some content.")
	writeFile(t, dir, "b.txt", "More content.")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := newTestOrchestrator(t, testConfig(dir), segment.NewMockProvider(), stats.NewBasic(), nil)
	result, err := orch.Run(ctx)
	require.NoError(t, err)

	// Nothing was dispatched; every file records the cancellation.
	for _, res := range result.Files {
		assert.Equal(t, StateFailed, res.State)
		assert.ErrorIs(t, res.Err, context.Canceled)
	}
	assert.Empty(t, result.Notes)
}

func TestRunSingleFileInput(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "only.txt", "A single file given directly.")

	cfg := testConfig(filepath.Join(dir, "only.txt"))
	orch := newTestOrchestrator(t, cfg, segment.NewMockProvider(), stats.NewBasic(), nil)

	result, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.Equal(t, StateDone, result.Files[0].State)
	assert.Len(t, result.Notes, 1)
	assert.Equal(t, "only.txt#000", result.Notes[0].ID)
}

func TestDiscoverFilesFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "x")
	writeFile(t, dir, "a.txt", "x")
	writeFile(t, dir, "notes.md", "x")
	writeFile(t, dir, "scratch.tmp", "x")
	writeFile(t, dir, "image.png", "x")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".hidden"), 0o755))
	writeFile(t, filepath.Join(dir, ".hidden"), "secret.txt", "x")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	writeFile(t, filepath.Join(dir, "sub"), "c.txt", "x")

	orch := newTestOrchestrator(t, testConfig(dir), segment.NewMockProvider(), stats.NewBasic(), nil)

	files, err := orch.discoverFiles()
	require.NoError(t, err)

	names := make([]string, len(files))
	for i, f := range files {
		rel, relErr := filepath.Rel(dir, f)
		require.NoError(t, relErr)
		names[i] = filepath.ToSlash(rel)
	}
	assert.Equal(t, []string{"a.txt", "b.txt", "notes.md", "sub/c.txt"}, names)
}

func TestSourceIDIsRelativeToInputRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "journal"), 0o755))
	writeFile(t, filepath.Join(dir, "journal"), "2024.txt", "Entry text.")

	orch := newTestOrchestrator(t, testConfig(dir), segment.NewMockProvider(), stats.NewBasic(), nil)

	result, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Notes, 1)
	assert.Equal(t, "journal/2024.txt#000", result.Notes[0].ID)
}
