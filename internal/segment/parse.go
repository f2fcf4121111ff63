package segment

import (
	"strings"

	"github.com/dervan/noteforge/pkg/types"
)

// ExtractSections pulls note sections out of raw model output. The model
// is asked for frontmatter-delimited documents; when it ignores that, a
// split on H2 headings is tried instead. Returns nil when the output holds
// no usable sections at all, which callers surface as InvalidResponse.
func ExtractSections(output string) []types.Section {
	sections := parseFrontmatterBlocks(output)
	if len(sections) == 0 {
		sections = parseHeadingBlocks(output)
	}
	return sections
}

// parseFrontmatterBlocks scans for "--- frontmatter --- body" documents.
func parseFrontmatterBlocks(output string) []types.Section {
	lines := strings.Split(output, "\n")
	var sections []types.Section

	i := 0
	for i < len(lines) {
		if !isDelimiter(lines[i]) {
			i++
			continue
		}

		// Frontmatter runs until the closing delimiter.
		fmStart := i + 1
		fmEnd := -1
		for j := fmStart; j < len(lines); j++ {
			if isDelimiter(lines[j]) {
				fmEnd = j
				break
			}
		}
		if fmEnd < 0 {
			break
		}

		// Body runs until the next opening delimiter or EOF.
		bodyEnd := len(lines)
		for j := fmEnd + 1; j < len(lines); j++ {
			if isDelimiter(lines[j]) {
				bodyEnd = j
				break
			}
		}

		sec := parseFrontmatter(lines[fmStart:fmEnd])
		sec.Body = strings.TrimSpace(strings.Join(lines[fmEnd+1:bodyEnd], "\n"))
		if sec.Title != "" && sec.Body != "" {
			sections = append(sections, sec)
		}
		i = bodyEnd
	}

	return sections
}

func isDelimiter(line string) bool {
	return strings.TrimSpace(line) == "---"
}

// parseFrontmatter extracts title, tags and category from frontmatter
// lines. Models are sloppy about quoting, so values are unquoted
// defensively rather than parsed as strict YAML.
func parseFrontmatter(lines []string) types.Section {
	var sec types.Section
	for _, line := range lines {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "title":
			sec.Title = unquote(value)
		case "category":
			sec.Category = unquote(value)
		case "tags":
			sec.Tags = parseTagList(value)
		}
	}
	return sec
}

// parseTagList handles ["a", "b"], [a, b] and bare comma lists.
func parseTagList(value string) []string {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "[")
	value = strings.TrimSuffix(value, "]")

	var tags []string
	for _, raw := range strings.Split(value, ",") {
		tag := unquote(strings.TrimSpace(raw))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func unquote(s string) string {
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

// parseHeadingBlocks is the fallback: one section per H2 heading.
func parseHeadingBlocks(output string) []types.Section {
	lines := strings.Split(output, "\n")
	var sections []types.Section

	var title string
	var body []string
	flush := func() {
		content := strings.TrimSpace(strings.Join(body, "\n"))
		if title != "" && content != "" {
			sections = append(sections, types.Section{
				Title: title,
				Body:  "## " + title + "\n\n" + content,
			})
		}
	}

	for _, line := range lines {
		if heading, ok := strings.CutPrefix(line, "## "); ok {
			flush()
			title = strings.TrimSpace(heading)
			body = body[:0]
			continue
		}
		if title != "" {
			body = append(body, line)
		}
	}
	flush()

	return sections
}
