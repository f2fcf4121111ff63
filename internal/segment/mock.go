package segment

import (
	"context"
	"strings"
	"unicode"

	"github.com/dervan/noteforge/pkg/types"
)

// MockProvider is a deterministic, offline Segmenter: it splits text on
// blank lines and derives titles and tags lexically. Useful for tests and
// for dry runs without a model backend.
type MockProvider struct {
	model         string
	promptVersion string
}

// NewMockProvider creates a deterministic offline segmenter.
func NewMockProvider() *MockProvider {
	return &MockProvider{model: "mock", promptVersion: PromptVersionV1}
}

// Segment implements Segmenter.
func (p *MockProvider) Segment(_ context.Context, req Request) ([]types.Section, error) {
	paragraphs := strings.Split(req.Text, "\n\n")

	var sections []types.Section
	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		sections = append(sections, types.Section{
			Title: mockTitle(para),
			Body:  para,
			Tags:  mockTags(para),
		})
	}

	if len(sections) == 0 {
		return nil, &ProviderError{
			Kind:     KindInvalidResponse,
			Provider: ProviderMock,
			Err:      errEmptyInput,
		}
	}
	return sections, nil
}

var errEmptyInput = &emptyInputError{}

type emptyInputError struct{}

func (*emptyInputError) Error() string { return "input contains no paragraphs" }

// mockTitle takes up to the first six words of the paragraph.
func mockTitle(para string) string {
	line := para
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	words := strings.Fields(line)
	if len(words) > 6 {
		words = words[:6]
	}
	return strings.Join(words, " ")
}

// mockTags picks the first few distinct lowercase words longer than three
// characters.
func mockTags(para string) []string {
	seen := make(map[string]struct{})
	var tags []string
	for _, word := range strings.FieldsFunc(para, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		word = strings.ToLower(word)
		if len(word) <= 3 {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		tags = append(tags, word)
		if len(tags) == 5 {
			break
		}
	}
	return tags
}

// Model implements Segmenter.
func (p *MockProvider) Model() string { return p.model }

// PromptVersion implements Segmenter.
func (p *MockProvider) PromptVersion() string { return p.promptVersion }

// Close implements Segmenter.
func (p *MockProvider) Close() error { return nil }
