package segment

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PromptVersionV1 tags the current prompt revision. Bump whenever the
// prompt text changes in a way that alters model output, or stale cache
// entries will be served for the new prompt.
const PromptVersionV1 = "v1"

const promptTemplate = `# Note Creation Task

You are an expert knowledge organizer. Analyze the text below and convert
it into logically separated atomic notes.
%s
## Instructions

1. Identify the distinct topics in the content; each becomes one note.
2. Preserve all important information, code blocks, and lists.
3. Create a meaningful title per note, without dates or timestamps.
4. Generate 3-5 kebab-case tags per note describing its key concepts.
5. Pick exactly one category per note from: %s.

## Output Format

Emit each note as a markdown document with YAML frontmatter:

---
title: "Clear Descriptive Title"
tags: ["primary-topic", "specific-concept"]
category: CategoryName
---

[Well-formatted note content]

## Content to Analyze:

%s`

// BuildPrompt renders the segmentation prompt for one chunk of text.
func BuildPrompt(text, sourceName string, categories []string) string {
	fileContext := ""
	if sourceName != "" {
		base := strings.TrimSuffix(filepath.Base(sourceName), filepath.Ext(sourceName))
		fileContext = fmt.Sprintf("\nThe content comes from a file named %q, which may hint at its topic.\n", base)
	}

	return fmt.Sprintf(promptTemplate, fileContext, strings.Join(categories, ", "), text)
}
