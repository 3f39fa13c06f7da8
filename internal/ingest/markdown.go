package ingest

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"mysite/internal/source/workspace"
)

// BlockSource retrieves a block's children from the workspace, pagination
// already flattened.
type BlockSource interface {
	BlockChildren(ctx context.Context, blockID string) ([]workspace.Block, error)
}

// ImageRef describes one image the transform wants fetched locally. The
// transform itself stays deterministic; a separate stage performs the
// downloads.
type ImageRef struct {
	URL      string
	Filename string
}

// MarkdownResult is a page's block tree flattened to markdown, plus the
// images referenced along the way.
type MarkdownResult struct {
	Content string
	Images  []ImageRef
}

// Transformer converts workspace block trees to markdown.
type Transformer struct {
	blocks BlockSource
	logger *zap.Logger
}

func NewTransformer(blocks BlockSource, logger *zap.Logger) *Transformer {
	return &Transformer{
		blocks: blocks,
		logger: logger.Named("transform"),
	}
}

// PageMarkdown renders the whole block tree of a page.
func (t *Transformer) PageMarkdown(ctx context.Context, pageID string) (MarkdownResult, error) {
	blocks, err := t.blocks.BlockChildren(ctx, pageID)
	if err != nil {
		return MarkdownResult{}, fmt.Errorf("page %s: %w", pageID, err)
	}

	var res MarkdownResult
	fragments, err := t.render(ctx, blocks, &res.Images)
	if err != nil {
		return MarkdownResult{}, fmt.Errorf("page %s: %w", pageID, err)
	}
	res.Content = strings.Join(fragments, "\n\n")
	return res, nil
}

// render converts a block list to markdown fragments, one per block.
func (t *Transformer) render(ctx context.Context, blocks []workspace.Block, images *[]ImageRef) ([]string, error) {
	var fragments []string
	number := 0

	for _, b := range blocks {
		if b.Type == workspace.BlockNumberedListItem {
			number++
		} else {
			number = 0
		}

		frag, err := t.renderBlock(ctx, b, number, images)
		if err != nil {
			return nil, err
		}
		if frag != "" {
			fragments = append(fragments, frag)
		}
	}
	return fragments, nil
}

func (t *Transformer) renderBlock(ctx context.Context, b workspace.Block, number int, images *[]ImageRef) (string, error) {
	switch b.Type {
	case workspace.BlockParagraph:
		return richTextMarkdown(b.Text()), nil

	case workspace.BlockHeading1:
		return heading(1, b.Text()), nil
	case workspace.BlockHeading2:
		return heading(2, b.Text()), nil
	case workspace.BlockHeading3:
		return heading(3, b.Text()), nil

	case workspace.BlockBulletedListItem:
		return t.listItem(ctx, "- ", b, images)
	case workspace.BlockNumberedListItem:
		return t.listItem(ctx, fmt.Sprintf("%d. ", number), b, images)

	case workspace.BlockQuote:
		return "> " + richTextMarkdown(b.Text()), nil

	case workspace.BlockCode:
		if b.Code == nil {
			return "", nil
		}
		var body strings.Builder
		for _, r := range b.Code.RichText {
			body.WriteString(r.PlainText)
		}
		return "```" + b.Code.Language + "\n" + body.String() + "\n```", nil

	case workspace.BlockDivider:
		return "---", nil

	case workspace.BlockImage:
		return t.imageFigure(b, images), nil

	case workspace.BlockColumnList:
		return t.columnList(ctx, b, images)

	case workspace.BlockColumn:
		// Handled by columnList; a stray column renders as its children.
		return t.childrenMarkdown(ctx, b.ID, images)

	default:
		t.logger.Debug("skipping unsupported block",
			zap.String("block_id", b.ID),
			zap.String("type", b.Type),
		)
		return "", nil
	}
}

// imageFigure rewrites an image block to an HTML figure pointing at the
// local images path. The local reference is emitted regardless of whether
// the later download succeeds.
func (t *Transformer) imageFigure(b workspace.Block, images *[]ImageRef) string {
	if b.Image == nil {
		return ""
	}
	src := b.Image.URL()
	if src == "" {
		return ""
	}
	name, ok := Filename(src)
	if !ok {
		t.logger.Warn("image block without usable filename",
			zap.String("block_id", b.ID),
			zap.String("url", src),
		)
		return ""
	}
	*images = append(*images, ImageRef{URL: src, Filename: name})
	return fmt.Sprintf(`<figure><img src="/images/%s"/></figure>`, name)
}

// columnList flattens a multi-column layout: markdown has no column
// construct, so each column becomes a plain div inside a wrapper.
func (t *Transformer) columnList(ctx context.Context, b workspace.Block, images *[]ImageRef) (string, error) {
	columns, err := t.blocks.BlockChildren(ctx, b.ID)
	if err != nil {
		return "", fmt.Errorf("column list %s: %w", b.ID, err)
	}

	var sb strings.Builder
	sb.WriteString(`<div class="column">`)
	for _, col := range columns {
		inner, err := t.childrenMarkdown(ctx, col.ID, images)
		if err != nil {
			return "", err
		}
		sb.WriteString("<div>")
		sb.WriteString(inner)
		sb.WriteString("</div>")
	}
	sb.WriteString("</div>")
	return sb.String(), nil
}

func (t *Transformer) childrenMarkdown(ctx context.Context, blockID string, images *[]ImageRef) (string, error) {
	children, err := t.blocks.BlockChildren(ctx, blockID)
	if err != nil {
		return "", fmt.Errorf("children of %s: %w", blockID, err)
	}
	fragments, err := t.render(ctx, children, images)
	if err != nil {
		return "", err
	}
	return strings.Join(fragments, "\n\n"), nil
}

func (t *Transformer) listItem(ctx context.Context, marker string, b workspace.Block, images *[]ImageRef) (string, error) {
	item := marker + richTextMarkdown(b.Text())
	if !b.HasChildren {
		return item, nil
	}

	nested, err := t.childrenMarkdown(ctx, b.ID, images)
	if err != nil {
		return "", err
	}
	if nested == "" {
		return item, nil
	}
	return item + "\n" + indent(nested, "  "), nil
}

func heading(level int, runs []workspace.RichText) string {
	return strings.Repeat("#", level) + " " + richTextMarkdown(runs)
}

func richTextMarkdown(runs []workspace.RichText) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(runMarkdown(r))
	}
	return b.String()
}

func runMarkdown(r workspace.RichText) string {
	s := r.PlainText
	if s == "" {
		return ""
	}

	if r.Annotations.Code {
		s = "`" + s + "`"
	}
	if r.Annotations.Bold {
		s = "**" + s + "**"
	}
	if r.Annotations.Italic {
		s = "*" + s + "*"
	}
	if r.Annotations.Strikethrough {
		s = "~~" + s + "~~"
	}
	if r.Href != "" {
		s = "[" + s + "](" + r.Href + ")"
	}
	return s
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
