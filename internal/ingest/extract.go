package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mysite/internal/domain/content"
	domainerr "mysite/internal/domain/errors"
	"mysite/internal/source/workspace"
)

// Workspace property names read by the extractor.
const (
	propTitle      = "Name"
	propSlug       = "Slug"
	propCoverImage = "Cover Image"
	propExcerpt    = "Excerpt"
	propDate       = "Date"
	propSection    = "Section"
	propShowToc    = "Show TOC"
)

// Extractor turns a raw workspace page into a validated Post. Validation is
// a linear chain that stops at the first missing required field; an invalid
// page is a skip, never a batch failure.
type Extractor struct {
	tf     *Transformer
	author string
	logger *zap.Logger
}

func NewExtractor(tf *Transformer, author string, logger *zap.Logger) *Extractor {
	return &Extractor{
		tf:     tf,
		author: author,
		logger: logger.Named("extract"),
	}
}

// Extract validates the page's properties and renders its content. The
// returned error is a domainerr.FieldError for validation rejections and a
// plain error for upstream fetch failures; callers treat both as skips.
func (e *Extractor) Extract(ctx context.Context, page workspace.Page) (content.Post, []ImageRef, error) {
	reject := func(field string) (content.Post, []ImageRef, error) {
		return content.Post{}, nil, domainerr.FieldError{Field: field, Message: "missing required property"}
	}

	title := page.TitleText(propTitle)
	if title == "" {
		return reject(propTitle)
	}
	slug := page.RichTextValue(propSlug)
	if slug == "" {
		return reject(propSlug)
	}
	cover := page.RichTextValue(propCoverImage)
	if cover == "" {
		return reject(propCoverImage)
	}
	excerpt := page.RichTextValue(propExcerpt)
	if excerpt == "" {
		return reject(propExcerpt)
	}
	date := page.DateStart(propDate)
	if date == "" {
		return reject(propDate)
	}

	post := content.Post{
		ID:           page.ID,
		Title:        title,
		Slug:         slug,
		CoverImage:   cover,
		Date:         date,
		DateModified: page.LastEditedTime,
		Excerpt:      excerpt,
		Author:       e.author,
		Section:      page.SelectName(propSection),
		ShowToc:      page.CheckboxValue(propShowToc),
	}
	post.Normalize()

	if _, err := post.PublishedAt(); err != nil {
		return content.Post{}, nil, domainerr.FieldError{
			Field:   propDate,
			Message: fmt.Sprintf("unparseable date %q", date),
		}
	}

	md, err := e.tf.PageMarkdown(ctx, page.ID)
	if err != nil {
		return content.Post{}, nil, err
	}
	post.Content = md.Content

	return post, md.Images, nil
}
