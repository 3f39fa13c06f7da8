package render

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"mysite/internal/domain/content"
)

type MarkdownRenderer struct {
	md goldmark.Markdown
}

func NewMarkdownRenderer() *MarkdownRenderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Linkify,
			extension.Strikethrough,
			extension.Table,
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		// Cached content embeds figure/div fragments from the block
		// transform; raw HTML must pass through.
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	return &MarkdownRenderer{md: md}
}

type MarkdownResult struct {
	HTML []byte
	Toc  []content.TocItem
}

// Render converts cached markdown to HTML and extracts the heading list
// used for the table of contents.
func (r *MarkdownRenderer) Render(src []byte) (MarkdownResult, error) {
	var buf bytes.Buffer

	ctx := parser.NewContext()
	reader := text.NewReader(src)
	doc := r.md.Parser().Parse(reader, parser.WithContext(ctx))

	var toc []content.TocItem
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}

		var idStr string
		if id, ok := h.AttributeString("id"); ok {
			switch v := id.(type) {
			case string:
				idStr = v
			case []byte:
				idStr = string(v)
			}
		}

		var textBuf bytes.Buffer
		for c := h.FirstChild(); c != nil; c = c.NextSibling() {
			if seg, ok := c.(*ast.Text); ok {
				textBuf.Write(seg.Segment.Value(src))
			}
		}

		toc = append(toc, content.TocItem{
			ID:    idStr,
			Text:  textBuf.String(),
			Level: h.Level,
		})
		return ast.WalkContinue, nil
	})

	if err := r.md.Renderer().Render(&buf, src, doc); err != nil {
		return MarkdownResult{}, err
	}
	return MarkdownResult{
		HTML: buf.Bytes(),
		Toc:  toc,
	}, nil
}
