package segment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProviderSplitsParagraphs(t *testing.T) {
	p := NewMockProvider()

	sections, err := p.Segment(context.Background(), Request{
		Text: "The morning routine starts with coffee.\n\nServer maintenance happens on weekends.",
	})
	require.NoError(t, err)
	require.Len(t, sections, 2)

	assert.Equal(t, "The morning routine starts with coffee.", sections[0].Title)
	assert.Equal(t, "The morning routine starts with coffee.", sections[0].Body)
	assert.Contains(t, sections[0].Tags, "morning")
	assert.Contains(t, sections[0].Tags, "routine")

	assert.Equal(t, "Server maintenance happens on weekends.", sections[1].Body)
}

func TestMockProviderDeterministic(t *testing.T) {
	p := NewMockProvider()
	req := Request{Text: "Some repeatable paragraph about testing determinism."}

	first, err := p.Segment(context.Background(), req)
	require.NoError(t, err)
	second, err := p.Segment(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestMockProviderEmptyInput(t *testing.T) {
	p := NewMockProvider()

	_, err := p.Segment(context.Background(), Request{Text: "   \n\n  "})
	pe, ok := AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, KindInvalidResponse, pe.Kind)
}

func TestMockProviderIdentity(t *testing.T) {
	p := NewMockProvider()
	assert.Equal(t, "mock", p.Model())
	assert.Equal(t, PromptVersionV1, p.PromptVersion())
	assert.NoError(t, p.Close())
}
