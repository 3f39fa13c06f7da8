package workspace

import "strings"

// Page is one record from a workspace data source, with its typed properties.
type Page struct {
	ID             string              `json:"id"`
	CreatedTime    string              `json:"created_time"`
	LastEditedTime string              `json:"last_edited_time"`
	Properties     map[string]Property `json:"properties"`
}

// Property is the workspace's tagged property union. Only the variants the
// pipeline reads are modelled; everything else decodes to the zero value.
type Property struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Title    []RichText   `json:"title,omitempty"`
	RichText []RichText   `json:"rich_text,omitempty"`
	Select   *SelectValue `json:"select,omitempty"`
	Date     *DateValue   `json:"date,omitempty"`
	Checkbox *bool        `json:"checkbox,omitempty"`
}

type SelectValue struct {
	Name string `json:"name"`
}

type DateValue struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

type RichText struct {
	PlainText   string      `json:"plain_text"`
	Href        string      `json:"href,omitempty"`
	Annotations Annotations `json:"annotations"`
}

type Annotations struct {
	Bold          bool `json:"bold"`
	Italic        bool `json:"italic"`
	Strikethrough bool `json:"strikethrough"`
	Code          bool `json:"code"`
}

// PlainText joins the text runs of a property value.
func plainText(runs []RichText) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.PlainText)
	}
	return strings.TrimSpace(b.String())
}

// TitleText returns the joined plain text of a title-type property, or "".
func (p Page) TitleText(name string) string {
	prop, ok := p.Properties[name]
	if !ok {
		return ""
	}
	return plainText(prop.Title)
}

// RichTextValue returns the joined plain text of a rich-text property, or "".
func (p Page) RichTextValue(name string) string {
	prop, ok := p.Properties[name]
	if !ok {
		return ""
	}
	return plainText(prop.RichText)
}

// SelectName returns the selected option name of a select property, or "".
func (p Page) SelectName(name string) string {
	prop, ok := p.Properties[name]
	if !ok || prop.Select == nil {
		return ""
	}
	return strings.TrimSpace(prop.Select.Name)
}

// DateStart returns the start of a date property, or "".
func (p Page) DateStart(name string) string {
	prop, ok := p.Properties[name]
	if !ok || prop.Date == nil {
		return ""
	}
	return strings.TrimSpace(prop.Date.Start)
}

// CheckboxValue returns a checkbox property, false when absent.
func (p Page) CheckboxValue(name string) bool {
	prop, ok := p.Properties[name]
	if !ok || prop.Checkbox == nil {
		return false
	}
	return *prop.Checkbox
}

// Known block kinds. Anything else falls through to BlockUnsupported.
const (
	BlockParagraph        = "paragraph"
	BlockHeading1         = "heading_1"
	BlockHeading2         = "heading_2"
	BlockHeading3         = "heading_3"
	BlockBulletedListItem = "bulleted_list_item"
	BlockNumberedListItem = "numbered_list_item"
	BlockQuote            = "quote"
	BlockCode             = "code"
	BlockDivider          = "divider"
	BlockImage            = "image"
	BlockColumnList       = "column_list"
	BlockColumn           = "column"
	BlockUnsupported      = "unsupported"
)

// Block is the workspace's tagged block union. The payload pointer matching
// Type is set; the rest stay nil.
type Block struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	HasChildren bool   `json:"has_children"`

	Paragraph        *TextPayload  `json:"paragraph,omitempty"`
	Heading1         *TextPayload  `json:"heading_1,omitempty"`
	Heading2         *TextPayload  `json:"heading_2,omitempty"`
	Heading3         *TextPayload  `json:"heading_3,omitempty"`
	BulletedListItem *TextPayload  `json:"bulleted_list_item,omitempty"`
	NumberedListItem *TextPayload  `json:"numbered_list_item,omitempty"`
	Quote            *TextPayload  `json:"quote,omitempty"`
	Code             *CodePayload  `json:"code,omitempty"`
	Image            *ImagePayload `json:"image,omitempty"`
}

type TextPayload struct {
	RichText []RichText `json:"rich_text"`
}

type CodePayload struct {
	RichText []RichText `json:"rich_text"`
	Language string     `json:"language,omitempty"`
}

// ImagePayload carries either an externally hosted URL or a workspace-hosted
// file URL, tagged by Type.
type ImagePayload struct {
	Type     string     `json:"type"`
	External *URLRef    `json:"external,omitempty"`
	File     *URLRef    `json:"file,omitempty"`
	Caption  []RichText `json:"caption,omitempty"`
}

type URLRef struct {
	URL string `json:"url"`
}

// URL resolves the image source regardless of hosting variant.
func (ip ImagePayload) URL() string {
	switch {
	case ip.External != nil:
		return ip.External.URL
	case ip.File != nil:
		return ip.File.URL
	default:
		return ""
	}
}

// Text returns the block's rich text runs, nil for non-text blocks.
func (b Block) Text() []RichText {
	switch b.Type {
	case BlockParagraph:
		if b.Paragraph != nil {
			return b.Paragraph.RichText
		}
	case BlockHeading1:
		if b.Heading1 != nil {
			return b.Heading1.RichText
		}
	case BlockHeading2:
		if b.Heading2 != nil {
			return b.Heading2.RichText
		}
	case BlockHeading3:
		if b.Heading3 != nil {
			return b.Heading3.RichText
		}
	case BlockBulletedListItem:
		if b.BulletedListItem != nil {
			return b.BulletedListItem.RichText
		}
	case BlockNumberedListItem:
		if b.NumberedListItem != nil {
			return b.NumberedListItem.RichText
		}
	case BlockQuote:
		if b.Quote != nil {
			return b.Quote.RichText
		}
	}
	return nil
}
