// Package stats accumulates counters and timings from the pipeline. The
// pipeline only sees the Collector interface; how the numbers are reported
// is up to the caller.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Collector receives pipeline events. Implementations must be safe for
// concurrent use; workers report from multiple goroutines.
type Collector interface {
	FileProcessed()
	FileFailed(path string, err error)
	NoteCreated(category string, tags []string)
	CacheHit()
	CacheMiss()
	ProviderError()
	CategoryFallback()
	PairComparisons(n int64)
}

// Summary is a point-in-time snapshot of a run's counters.
type Summary struct {
	FilesProcessed    int            `json:"files_processed"`
	FilesFailed       int            `json:"files_failed"`
	NotesCreated      int            `json:"notes_created"`
	CacheHits         int            `json:"cache_hits"`
	CacheMisses       int            `json:"cache_misses"`
	ProviderErrors    int            `json:"provider_errors"`
	CategoryFallbacks int            `json:"category_fallbacks"`
	PairComparisons   int64          `json:"pair_comparisons"`
	Categories        map[string]int `json:"categories,omitempty"`
	Tags              map[string]int `json:"tags,omitempty"`
	Failures          []string       `json:"failures,omitempty"`
	Elapsed           time.Duration  `json:"elapsed"`
}

// CacheHitRate returns the fraction of segmentation lookups served from
// cache, as a percentage.
func (s *Summary) CacheHitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total) * 100
}

// TopCategories returns up to n categories by note count, descending,
// ties by name.
func (s *Summary) TopCategories(n int) []string {
	return topKeys(s.Categories, n)
}

// TopTags returns up to n tags by note count, descending, ties by name.
func (s *Summary) TopTags(n int) []string {
	return topKeys(s.Tags, n)
}

func topKeys(m map[string]int, n int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// Format renders a human-readable run summary.
func (s *Summary) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Processed %d files (%d failed), created %d notes in %s\n",
		s.FilesProcessed, s.FilesFailed, s.NotesCreated, s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(&b, "Cache: %d hits, %d misses (%.1f%% hit rate)\n",
		s.CacheHits, s.CacheMisses, s.CacheHitRate())
	fmt.Fprintf(&b, "Provider errors: %d, category fallbacks: %d\n",
		s.ProviderErrors, s.CategoryFallbacks)
	fmt.Fprintf(&b, "Linking: %d pair comparisons\n", s.PairComparisons)
	if top := s.TopCategories(3); len(top) > 0 {
		fmt.Fprintf(&b, "Top categories: %s\n", strings.Join(top, ", "))
	}
	if top := s.TopTags(5); len(top) > 0 {
		fmt.Fprintf(&b, "Top tags: %s\n", strings.Join(top, ", "))
	}
	for _, f := range s.Failures {
		fmt.Fprintf(&b, "failed: %s\n", f)
	}
	return b.String()
}

// Basic is the standard Collector: mutex-guarded counters plus per
// category and per-tag tallies.
type Basic struct {
	mu sync.Mutex

	started           time.Time
	filesProcessed    int
	filesFailed       int
	notesCreated      int
	cacheHits         int
	cacheMisses       int
	providerErrors    int
	categoryFallbacks int
	pairComparisons   int64
	categories        map[string]int
	tags              map[string]int
	failures          []string
}

// NewBasic creates a Collector that starts timing now.
func NewBasic() *Basic {
	return &Basic{
		started:    time.Now(),
		categories: make(map[string]int),
		tags:       make(map[string]int),
	}
}

// FileProcessed implements Collector.
func (b *Basic) FileProcessed() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filesProcessed++
}

// FileFailed implements Collector.
func (b *Basic) FileFailed(path string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filesFailed++
	b.failures = append(b.failures, fmt.Sprintf("%s: %v", path, err))
}

// NoteCreated implements Collector.
func (b *Basic) NoteCreated(category string, tags []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notesCreated++
	if category != "" {
		b.categories[category]++
	}
	for _, t := range tags {
		b.tags[t]++
	}
}

// CacheHit implements Collector.
func (b *Basic) CacheHit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheHits++
}

// CacheMiss implements Collector.
func (b *Basic) CacheMiss() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheMisses++
}

// ProviderError implements Collector.
func (b *Basic) ProviderError() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.providerErrors++
}

// CategoryFallback implements Collector.
func (b *Basic) CategoryFallback() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.categoryFallbacks++
}

// PairComparisons implements Collector.
func (b *Basic) PairComparisons(n int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pairComparisons += n
}

// Summary snapshots the counters collected so far.
func (b *Basic) Summary() *Summary {
	b.mu.Lock()
	defer b.mu.Unlock()

	categories := make(map[string]int, len(b.categories))
	for k, v := range b.categories {
		categories[k] = v
	}
	tags := make(map[string]int, len(b.tags))
	for k, v := range b.tags {
		tags[k] = v
	}

	return &Summary{
		FilesProcessed:    b.filesProcessed,
		FilesFailed:       b.filesFailed,
		NotesCreated:      b.notesCreated,
		CacheHits:         b.cacheHits,
		CacheMisses:       b.cacheMisses,
		ProviderErrors:    b.providerErrors,
		CategoryFallbacks: b.categoryFallbacks,
		PairComparisons:   b.pairComparisons,
		Categories:        categories,
		Tags:              tags,
		Failures:          append([]string(nil), b.failures...),
		Elapsed:           time.Since(b.started),
	}
}

// Discard is a Collector that drops everything, for callers that do not
// care about statistics.
type Discard struct{}

// FileProcessed implements Collector.
func (Discard) FileProcessed() {}

// FileFailed implements Collector.
func (Discard) FileFailed(string, error) {}

// NoteCreated implements Collector.
func (Discard) NoteCreated(string, []string) {}

// CacheHit implements Collector.
func (Discard) CacheHit() {}

// CacheMiss implements Collector.
func (Discard) CacheMiss() {}

// ProviderError implements Collector.
func (Discard) ProviderError() {}

// CategoryFallback implements Collector.
func (Discard) CategoryFallback() {}

// PairComparisons implements Collector.
func (Discard) PairComparisons(int64) {}
