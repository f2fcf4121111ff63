// Package vault writes the final linked note set to disk as a markdown
// vault: one file per note with YAML frontmatter, category subfolders,
// and wiki-style links to related notes. It sits outside the core
// pipeline and only ever receives frozen, fully linked notes.
package vault

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/dervan/noteforge/pkg/types"
)

const maxSlugLen = 60

// Writer renders notes into a vault directory.
type Writer struct {
	root string
}

// NewWriter creates a Writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{root: dir}
}

// Write implements pipeline.Writer. Filenames are assigned for the whole
// set first so related-note links can point at their targets' files.
// Returns the written paths relative to the vault root.
func (w *Writer) Write(ctx context.Context, notes []*types.Note) ([]string, error) {
	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return nil, fmt.Errorf("vault: create root: %w", err)
	}

	// Deterministic file assignment regardless of note arrival order.
	ordered := make([]*types.Note, len(notes))
	copy(ordered, notes)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	filenames := make(map[string]string, len(ordered))
	titles := make(map[string]string, len(ordered))
	used := make(map[string]struct{}, len(ordered))
	for _, n := range ordered {
		filenames[n.ID] = w.assignFilename(n, used)
		titles[n.ID] = n.Title
	}

	written := make([]string, 0, len(ordered))
	for _, n := range ordered {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		relPath := filenames[n.ID]
		fullPath := filepath.Join(w.root, relPath)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			return written, fmt.Errorf("vault: create dir for %s: %w", relPath, err)
		}

		content := w.render(n, filenames, titles)
		if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
			return written, fmt.Errorf("vault: write %s: %w", relPath, err)
		}
		written = append(written, relPath)
	}

	return written, nil
}

// assignFilename derives "category-slug/date-title-slug.md", suffixing a
// counter when two notes would collide.
func (w *Writer) assignFilename(n *types.Note, used map[string]struct{}) string {
	datePrefix := n.CreatedAt.Format("200601021504")
	base := fmt.Sprintf("%s-%s", datePrefix, Slugify(n.Title))

	dir := ""
	if n.Category != "" {
		dir = Slugify(n.Category)
	}

	name := filepath.Join(dir, base+".md")
	for i := 2; ; i++ {
		if _, taken := used[name]; !taken {
			break
		}
		name = filepath.Join(dir, fmt.Sprintf("%s-%d.md", base, i))
	}
	used[name] = struct{}{}
	return name
}

// render produces the note's markdown document.
func (w *Writer) render(n *types.Note, filenames, titles map[string]string) string {
	var b strings.Builder

	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %q\n", n.Title)
	fmt.Fprintf(&b, "date: %s\n", n.CreatedAt.Format("2006-01-02"))
	if len(n.Tags) > 0 {
		quoted := make([]string, len(n.Tags))
		for i, t := range n.Tags {
			quoted[i] = fmt.Sprintf("%q", t)
		}
		fmt.Fprintf(&b, "tags: [%s]\n", strings.Join(quoted, ", "))
	} else {
		b.WriteString("tags: []\n")
	}
	if n.Category != "" {
		fmt.Fprintf(&b, "category: %s\n", n.Category)
	}
	b.WriteString("---\n\n")

	b.WriteString(strings.TrimSpace(n.Content))
	b.WriteString("\n")

	if len(n.Links) > 0 {
		b.WriteString("\n## Related Notes\n")
		for _, link := range n.Links {
			target, ok := filenames[link.TargetID]
			if !ok {
				continue
			}
			stem := strings.TrimSuffix(filepath.Base(target), ".md")
			fmt.Fprintf(&b, "- [[%s|%s]]\n", stem, titles[link.TargetID])
		}
	}

	return b.String()
}

// Slugify converts a title into a filesystem-friendly slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}

	slug := b.String()
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	slug = strings.Trim(slug, "-")

	if len(slug) > maxSlugLen {
		slug = strings.Trim(slug[:maxSlugLen], "-")
	}
	if slug == "" {
		slug = "untitled"
	}
	return slug
}
