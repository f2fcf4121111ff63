// Package pipeline orchestrates the conversion run: files fan out across
// a bounded worker pool for chunking, segmentation and assembly, meet at a
// barrier once every file has settled, and the complete note set then goes
// through the global linking pass before being handed to the writer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/dervan/noteforge/internal/assembler"
	"github.com/dervan/noteforge/internal/cache"
	"github.com/dervan/noteforge/internal/chunker"
	"github.com/dervan/noteforge/internal/config"
	"github.com/dervan/noteforge/internal/keying"
	"github.com/dervan/noteforge/internal/linker"
	"github.com/dervan/noteforge/internal/segment"
	"github.com/dervan/noteforge/internal/stats"
	"github.com/dervan/noteforge/pkg/types"
)

// FileState tracks a file's progress through the pipeline.
type FileState string

const (
	StateQueued     FileState = "queued"
	StateChunking   FileState = "chunking"
	StateCacheHit   FileState = "cache_hit"
	StateSegmenting FileState = "segmenting"
	StateAssembled  FileState = "assembled"
	StateLinked     FileState = "linked"
	StateDone       FileState = "done"
	StateFailed     FileState = "failed"
)

// ChunkingFault reports malformed or undecodable input. Fatal for its
// file only; other files keep going.
type ChunkingFault struct {
	Path string
	Err  error
}

func (e *ChunkingFault) Error() string {
	return fmt.Sprintf("pipeline: chunking %s: %v", e.Path, e.Err)
}

func (e *ChunkingFault) Unwrap() error { return e.Err }

// Writer receives the final linked note set. On-disk layout, filenames
// and frontmatter are its business, not the pipeline's.
type Writer interface {
	Write(ctx context.Context, notes []*types.Note) ([]string, error)
}

// FileResult records one file's terminal state.
type FileResult struct {
	Path  string
	State FileState
	Notes int
	Err   error
}

// RunResult is the outcome of a pipeline run.
type RunResult struct {
	Notes   []*types.Note
	Files   []FileResult
	Written []string
}

// Orchestrator drives files through chunking, cached segmentation,
// assembly, linking and writing.
type Orchestrator struct {
	cfg       *config.Config
	segmenter segment.Segmenter
	cache     *cache.Cache
	asm       *assembler.Assembler
	writer    Writer
	collector stats.Collector
	logger    *slog.Logger
}

// Options wires an Orchestrator's collaborators.
type Options struct {
	Config    *config.Config
	Segmenter segment.Segmenter
	Cache     *cache.Cache
	Writer    Writer
	Collector stats.Collector
	Logger    *slog.Logger
}

// New creates an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Config == nil {
		return nil, errors.New("pipeline: config is required")
	}
	if opts.Segmenter == nil {
		return nil, errors.New("pipeline: segmenter is required")
	}
	if opts.Cache == nil {
		return nil, errors.New("pipeline: cache is required")
	}
	if opts.Collector == nil {
		opts.Collector = stats.Discard{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Orchestrator{
		cfg:       opts.Config,
		segmenter: opts.Segmenter,
		cache:     opts.Cache,
		asm:       assembler.New(opts.Config.Categories.Allowed, opts.Config.Categories.Default),
		writer:    opts.Writer,
		collector: opts.Collector,
		logger:    opts.Logger,
	}, nil
}

// Run executes the full two-phase pipeline over the configured input.
//
// Phase one fans files out across the worker pool; a failed file records
// its fault and never aborts the batch. Phase two starts only after every
// file has reached a terminal pre-link state — linking needs the complete
// note set. Global invariant violations (a cache consistency fault) abort
// the run instead, since continuing would corrupt output silently.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	files, err := o.discoverFiles()
	if err != nil {
		return nil, fmt.Errorf("pipeline: discover files: %w", err)
	}
	o.logger.Info("starting conversion",
		slog.Int("files", len(files)),
		slog.Int("workers", o.cfg.Pipeline.Workers))

	results := make([]FileResult, len(files))
	var (
		mu    sync.Mutex
		notes []*types.Note
	)

	// Fan-out phase: bounded worker pool, failure isolation per file.
	g, gctx := errgroup.WithContext(ctx)
	semaphore := make(chan struct{}, o.cfg.Pipeline.Workers)

	for i, path := range files {
		results[i] = FileResult{Path: path, State: StateQueued}

		// Cancellation stops dispatching new jobs here; jobs already
		// running finish or fail on their own. The pre-check matters when
		// both the context and a pool slot are ready at once.
		if err := gctx.Err(); err != nil {
			results[i].State = StateFailed
			results[i].Err = err
			continue
		}
		select {
		case <-gctx.Done():
			results[i].State = StateFailed
			results[i].Err = gctx.Err()
			continue
		case semaphore <- struct{}{}:
		}

		g.Go(func() error {
			defer func() { <-semaphore }()

			fileNotes, err := o.processFile(gctx, path, &results[i])
			if err != nil {
				var ce *cache.ConsistencyError
				if errors.As(err, &ce) {
					// Broken key function; abort the whole run.
					return err
				}
				results[i].State = StateFailed
				results[i].Err = err
				o.collector.FileFailed(path, err)
				o.logger.Warn("file failed",
					slog.String("path", path), slog.String("error", err.Error()))
				return nil
			}

			results[i].State = StateAssembled
			results[i].Notes = len(fileNotes)
			o.collector.FileProcessed()

			mu.Lock()
			notes = append(notes, fileNotes...)
			mu.Unlock()
			return nil
		})
	}

	// Barrier: every file is Assembled or Failed before linking begins.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	linkResult, err := linker.Link(ctx, notes, linker.Config{
		Threshold: o.cfg.Similarity.Threshold,
		MaxLinks:  o.cfg.Similarity.MaxLinks,
		Workers:   o.cfg.Pipeline.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: linking: %w", err)
	}
	o.collector.PairComparisons(linkResult.PairComparisons)

	for i := range results {
		if results[i].State == StateAssembled {
			results[i].State = StateLinked
		}
	}

	run := &RunResult{Notes: notes, Files: results}

	if o.writer != nil {
		written, err := o.writer.Write(ctx, notes)
		if err != nil {
			return run, fmt.Errorf("pipeline: write notes: %w", err)
		}
		run.Written = written
	}

	for i := range results {
		if results[i].State == StateLinked {
			results[i].State = StateDone
		}
	}

	return run, nil
}

// processFile runs one file through chunking, cached segmentation and
// assembly. The returned notes preserve source document order.
func (o *Orchestrator) processFile(ctx context.Context, path string, result *FileResult) ([]*types.Note, error) {
	result.State = StateChunking

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ChunkingFault{Path: path, Err: err}
	}
	if !utf8.Valid(data) {
		return nil, &ChunkingFault{Path: path, Err: errors.New("input is not valid UTF-8")}
	}

	sourceID := o.sourceID(path)

	chunks, err := chunker.Split(sourceID, string(data), o.cfg.Pipeline.ChunkSize)
	if err != nil {
		return nil, &ChunkingFault{Path: path, Err: err}
	}

	var fileNotes []*types.Note
	ordinal := 0

	for _, chunk := range chunks {
		key := keying.CacheKey(chunk.Text, o.segmenter.Model(), o.segmenter.PromptVersion())

		sections, cached, err := o.cache.GetOrCompute(ctx, key, func(ctx context.Context) ([]types.Section, error) {
			result.State = StateSegmenting
			return o.segmenter.Segment(ctx, segment.Request{
				Text:       chunk.Text,
				SourceName: path,
			})
		})
		if err != nil {
			if _, ok := segment.AsProviderError(err); ok {
				o.collector.ProviderError()
			}
			return nil, err
		}

		if cached {
			result.State = StateCacheHit
			o.collector.CacheHit()
		} else {
			o.collector.CacheMiss()
		}

		assembled := o.asm.Assemble(sourceID, chunk, sections, ordinal)
		ordinal += len(sections)

		for i := range assembled {
			note := &assembled[i]
			o.collector.NoteCreated(note.Category, note.Tags)
			if note.CategoryInferred {
				o.collector.CategoryFallback()
			}
			fileNotes = append(fileNotes, note)
		}
	}

	return fileNotes, nil
}

// sourceID is the file's path relative to the input root, falling back to
// the path itself when it is not under the root.
func (o *Orchestrator) sourceID(path string) string {
	rel, err := filepath.Rel(o.cfg.Input.Dir, path)
	if err != nil || rel == "." {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}
