package syndication

import (
	"time"

	"mysite/internal/domain/content"
)

// Entry is one typed sitemap record; the serving layer renders these to
// whatever wire format it needs.
type Entry struct {
	URL             string
	LastModified    time.Time
	ChangeFrequency string
	Priority        float64
}

// Sitemap lists the homepage followed by every post and every photo, in
// that order with no cross-bucket date sorting. The homepage entry uses
// build time; content entries use their own publish date.
func Sitemap(opt Options, posts, photos []content.Post, now time.Time) ([]Entry, error) {
	entries := make([]Entry, 0, 1+len(posts)+len(photos))
	entries = append(entries, Entry{
		URL:             opt.siteURL(),
		LastModified:    now,
		ChangeFrequency: "daily",
		Priority:        1,
	})

	for _, p := range posts {
		pub, err := publishedAt(p)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{
			URL:             opt.PostLink(p),
			LastModified:    pub,
			ChangeFrequency: "weekly",
			Priority:        0.8,
		})
	}
	for _, p := range photos {
		pub, err := publishedAt(p)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{
			URL:             opt.PhotoLink(p),
			LastModified:    pub,
			ChangeFrequency: "weekly",
			Priority:        0.8,
		})
	}
	return entries, nil
}
