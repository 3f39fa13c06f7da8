package content

import (
	"regexp"
	"strings"
	"time"
)

// Bucket names the two independent post collections. Each bucket has its own
// cache file and its own upstream data source; slugs are only unique within
// one bucket.
type Bucket string

const (
	BucketPosts  Bucket = "posts"
	BucketPhotos Bucket = "photos"
)

// Section tags on general posts. Photo posts carry no section.
const (
	SectionAll = "All"
	SectionVBC = "VBC"
)

// SectionLabel maps a section tag to its human-readable feed label.
func SectionLabel(section string) string {
	switch section {
	case SectionVBC:
		return "Value-Based Care"
	default:
		return section
	}
}

// Post is the canonical content record, produced by the cache pipeline and
// read back at render time. Field names match the on-disk cache format.
type Post struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Slug         string `json:"slug"`
	CoverImage   string `json:"coverImage"`
	Date         string `json:"date"`
	DateModified string `json:"dateModified,omitempty"`
	Excerpt      string `json:"excerpt"`
	Content      string `json:"content"`
	Author       string `json:"author,omitempty"`
	Section      string `json:"section,omitempty"`
	ShowToc      bool   `json:"showToc,omitempty"`
}

// PublishedAt parses the post's publish date. Dates come from the upstream
// workspace as either a bare date or a full timestamp.
func (p Post) PublishedAt() (time.Time, error) {
	s := strings.TrimSpace(p.Date)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

func (p *Post) Normalize() {
	p.Title = strings.TrimSpace(p.Title)
	p.Slug = strings.TrimSpace(p.Slug)
	p.CoverImage = strings.TrimSpace(p.CoverImage)
	p.Excerpt = strings.TrimSpace(p.Excerpt)
	p.Section = strings.TrimSpace(p.Section)
}

// TocItem is one table-of-contents entry, derived from a post's markdown at
// render time and never persisted.
type TocItem struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Level int    `json:"level"`
}

var nonWordRuns = regexp.MustCompile(`\W+`)

// WordCount counts the non-empty tokens left after splitting on runs of
// non-word characters, so punctuation-only strings count as zero.
func WordCount(s string) int {
	n := 0
	for _, tok := range nonWordRuns.Split(s, -1) {
		if tok != "" {
			n++
		}
	}
	return n
}
