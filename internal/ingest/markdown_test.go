package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mysite/internal/source/workspace"
)

// fakeBlocks serves canned child lists keyed by parent id.
type fakeBlocks map[string][]workspace.Block

func (f fakeBlocks) BlockChildren(ctx context.Context, blockID string) ([]workspace.Block, error) {
	return f[blockID], nil
}

func text(s string) []workspace.RichText {
	return []workspace.RichText{{PlainText: s}}
}

func TestPageMarkdownBasicBlocks(t *testing.T) {
	blocks := fakeBlocks{
		"page": {
			{Type: workspace.BlockHeading1, Heading1: &workspace.TextPayload{RichText: text("Title")}},
			{Type: workspace.BlockParagraph, Paragraph: &workspace.TextPayload{RichText: text("Hello world.")}},
			{Type: workspace.BlockQuote, Quote: &workspace.TextPayload{RichText: text("quoted")}},
			{Type: workspace.BlockDivider},
			{Type: workspace.BlockCode, Code: &workspace.CodePayload{RichText: text("x := 1"), Language: "go"}},
			{Type: "callout"}, // unsupported, skipped
		},
	}

	tf := NewTransformer(blocks, zap.NewNop())
	res, err := tf.PageMarkdown(context.Background(), "page")
	require.NoError(t, err)

	want := "# Title\n\nHello world.\n\n> quoted\n\n---\n\n```go\nx := 1\n```"
	assert.Equal(t, want, res.Content)
	assert.Empty(t, res.Images)
}

func TestPageMarkdownAnnotations(t *testing.T) {
	blocks := fakeBlocks{
		"page": {
			{Type: workspace.BlockParagraph, Paragraph: &workspace.TextPayload{RichText: []workspace.RichText{
				{PlainText: "bold", Annotations: workspace.Annotations{Bold: true}},
				{PlainText: " and "},
				{PlainText: "a link", Href: "https://example.com"},
			}}},
		},
	}

	tf := NewTransformer(blocks, zap.NewNop())
	res, err := tf.PageMarkdown(context.Background(), "page")
	require.NoError(t, err)
	assert.Equal(t, "**bold** and [a link](https://example.com)", res.Content)
}

func TestPageMarkdownLists(t *testing.T) {
	blocks := fakeBlocks{
		"page": {
			{Type: workspace.BlockBulletedListItem, BulletedListItem: &workspace.TextPayload{RichText: text("first")}},
			{Type: workspace.BlockNumberedListItem, NumberedListItem: &workspace.TextPayload{RichText: text("one")}},
			{Type: workspace.BlockNumberedListItem, NumberedListItem: &workspace.TextPayload{RichText: text("two")}},
		},
	}

	tf := NewTransformer(blocks, zap.NewNop())
	res, err := tf.PageMarkdown(context.Background(), "page")
	require.NoError(t, err)
	assert.Equal(t, "- first\n\n1. one\n\n2. two", res.Content)
}

func TestPageMarkdownImageBlock(t *testing.T) {
	blocks := fakeBlocks{
		"page": {
			{Type: workspace.BlockImage, Image: &workspace.ImagePayload{
				Type:     "external",
				External: &workspace.URLRef{URL: "https://cdn.example.com/pics/cover.png?sig=abc"},
			}},
		},
	}

	tf := NewTransformer(blocks, zap.NewNop())
	res, err := tf.PageMarkdown(context.Background(), "page")
	require.NoError(t, err)

	// local reference regardless of whether the later download succeeds
	assert.Equal(t, `<figure><img src="/images/cover.png"/></figure>`, res.Content)
	require.Len(t, res.Images, 1)
	assert.Equal(t, "https://cdn.example.com/pics/cover.png?sig=abc", res.Images[0].URL)
	assert.Equal(t, "cover.png", res.Images[0].Filename)
}

func TestPageMarkdownColumnList(t *testing.T) {
	blocks := fakeBlocks{
		"page": {
			{ID: "cl", Type: workspace.BlockColumnList, HasChildren: true},
		},
		"cl": {
			{ID: "c1", Type: workspace.BlockColumn, HasChildren: true},
			{ID: "c2", Type: workspace.BlockColumn, HasChildren: true},
		},
		"c1": {
			{Type: workspace.BlockParagraph, Paragraph: &workspace.TextPayload{RichText: text("left")}},
		},
		"c2": {
			{Type: workspace.BlockParagraph, Paragraph: &workspace.TextPayload{RichText: text("right")}},
		},
	}

	tf := NewTransformer(blocks, zap.NewNop())
	res, err := tf.PageMarkdown(context.Background(), "page")
	require.NoError(t, err)
	assert.Equal(t, `<div class="column"><div>left</div><div>right</div></div>`, res.Content)
}
