package syndication

import (
	"fmt"
	"path"
	"strings"
	"time"

	"mysite/internal/domain/content"
)

// Options carries the site-level values every serializer shares.
type Options struct {
	SiteURL     string
	Title       string
	Description string
	Language    string
	Author      string

	// ImagesDir is the local public images directory, used to resolve
	// enclosure byte lengths from disk.
	ImagesDir string
}

// Type labels attached to feed items by bucket.
const (
	typeLabelWriting     = "Writing"
	typeLabelPhotography = "Photography"
)

func (o Options) siteURL() string {
	return strings.TrimRight(o.SiteURL, "/")
}

// PostLink is the canonical URL of a general post.
func (o Options) PostLink(p content.Post) string {
	return o.siteURL() + "/writing/" + p.Slug
}

// PhotoLink is the canonical URL of a photo post.
func (o Options) PhotoLink(p content.Post) string {
	return o.siteURL() + "/photos/" + p.Slug
}

// coverImagePath is the cover filename resolved against its bucket's base
// path under /images (photo covers live in a photos/ subpath by convention
// of the consuming templates).
func coverImagePath(p content.Post, bucket content.Bucket) string {
	if bucket == content.BucketPhotos {
		return path.Join("photos", p.CoverImage)
	}
	return p.CoverImage
}

func (o Options) imageURL(p content.Post, bucket content.Bucket) string {
	if p.CoverImage == "" {
		return ""
	}
	return o.siteURL() + "/images/" + coverImagePath(p, bucket)
}

func (o Options) author(p content.Post) string {
	if p.Author != "" {
		return p.Author
	}
	return o.Author
}

// publishedAt parses an item's date for serialization. Per the feed
// contract an unparseable date is a hard error for the run, not a silent
// skip.
func publishedAt(p content.Post) (time.Time, error) {
	t, err := p.PublishedAt()
	if err != nil {
		return time.Time{}, fmt.Errorf("post %s: invalid date %q: %w", p.Slug, p.Date, err)
	}
	return t, nil
}
