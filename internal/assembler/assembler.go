// Package assembler turns segmentation output plus source metadata into
// note records, validating provider-suggested metadata on the way.
package assembler

import (
	"fmt"
	"strings"
	"time"

	"github.com/dervan/noteforge/internal/keying"
	"github.com/dervan/noteforge/pkg/types"
)

// Assembler builds notes from sections. Categories are checked against a
// closed allowlist; unrecognized values are inferred from the title or
// replaced with the configured default, and the substitution is recorded
// on the note so statistics can report it.
type Assembler struct {
	allowed    map[string]string // lowercase -> canonical
	defaultCat string
	now        func() time.Time
}

// New creates an Assembler with the given category allowlist and default.
func New(allowed []string, defaultCategory string) *Assembler {
	m := make(map[string]string, len(allowed))
	for _, c := range allowed {
		m[strings.ToLower(c)] = c
	}
	return &Assembler{
		allowed:    m,
		defaultCat: defaultCategory,
		now:        time.Now,
	}
}

// Assemble converts a chunk's sections into notes. startOrdinal is the
// number of sections already assembled for this source file, so ordinals
// (and therefore note ids) stay unique and ordered across chunks.
func (a *Assembler) Assemble(sourceID string, chunk types.Chunk, sections []types.Section, startOrdinal int) []types.Note {
	notes := make([]types.Note, 0, len(sections))

	for i, sec := range sections {
		title := strings.TrimSpace(sec.Title)
		if title == "" {
			continue
		}

		ordinal := startOrdinal + i
		category, inferred := a.resolveCategory(sec.Category, title)

		notes = append(notes, types.Note{
			ID:               NoteID(sourceID, ordinal),
			SourceID:         sourceID,
			Title:            title,
			Content:          sec.Body,
			Tags:             NormalizeTags(sec.Tags),
			Category:         category,
			ContentHash:      keying.ContentHash(sec.Body),
			CreatedAt:        a.now(),
			CategoryInferred: inferred,
		})
	}

	return notes
}

// NoteID derives the stable note identifier from the source file path and
// the section ordinal within that file.
func NoteID(sourceID string, ordinal int) string {
	return fmt.Sprintf("%s#%03d", sourceID, ordinal)
}

// resolveCategory validates the suggested category against the allowlist,
// falling back to title-keyword inference and then the default. The bool
// result reports whether a fallback happened.
func (a *Assembler) resolveCategory(suggested, title string) (string, bool) {
	if canonical, ok := a.allowed[strings.ToLower(strings.TrimSpace(suggested))]; ok {
		return canonical, false
	}

	if inferred := a.inferCategory(title); inferred != "" {
		return inferred, true
	}
	return a.defaultCat, true
}

// categoryKeywords maps title keywords onto the conventional categories.
// Order matters: the first matching category wins, so inference stays
// deterministic. Only entries present in the allowlist are ever returned.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"Technology", []string{"tech", "software", "programming", "code", "app",
		"server", "api", "database", "network", "algorithm", "web", "script",
		"system"}},
	{"Finance", []string{"money", "financial", "invest", "stock", "crypto",
		"budget", "bank", "tax", "trading", "payment", "currency"}},
	{"Personal", []string{"health", "life", "journal", "habit", "routine",
		"fitness", "diary", "mood", "relationship", "wellness"}},
	{"Projects", []string{"project", "business", "work", "task", "startup",
		"plan", "milestone", "deliverable", "team", "product"}},
	{"Knowledge", []string{"learn", "study", "concept", "theory", "method",
		"course", "skill", "lesson", "tutorial", "book", "article"}},
	{"Reference", []string{"reference", "guide", "manual", "documentation",
		"instruction", "template", "checklist", "glossary", "cheatsheet"}},
}

func (a *Assembler) inferCategory(title string) string {
	lower := strings.ToLower(title)
	for _, group := range categoryKeywords {
		canonical, ok := a.allowed[strings.ToLower(group.category)]
		if !ok {
			continue
		}
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return canonical
			}
		}
	}
	return ""
}

// NormalizeTags lowercases tags, converts separators to kebab-case, and
// drops empties and duplicates while preserving first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))

	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		tag = strings.TrimPrefix(tag, "#")
		tag = strings.Join(strings.FieldsFunc(tag, func(r rune) bool {
			return r == ' ' || r == '_'
		}), "-")
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
