package syndication

import (
	"encoding/json"
	"time"

	"mysite/internal/domain/content"
)

// Feed is a JSON Feed 1.1 envelope.
type Feed struct {
	Version     string   `json:"version"`
	Title       string   `json:"title"`
	HomePageURL string   `json:"home_page_url"`
	FeedURL     string   `json:"feed_url"`
	Description string   `json:"description,omitempty"`
	Authors     []Author `json:"authors,omitempty"`
	Language    string   `json:"language,omitempty"`
	Items       []Item   `json:"items"`
}

type Author struct {
	Name string `json:"name"`
}

type Item struct {
	ID            string   `json:"id"`
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	ContentHTML   string   `json:"content_html"`
	Summary       string   `json:"summary,omitempty"`
	Image         string   `json:"image,omitempty"`
	DatePublished string   `json:"date_published"`
	Authors       []Author `json:"authors,omitempty"`
	Tags          []string `json:"tags,omitempty"`

	// _word_count is a custom extension, computed over the raw markdown.
	WordCount int `json:"_word_count"`
}

const jsonFeedVersion = "https://jsonfeed.org/version/1.1"

// JSONFeed renders both buckets as a JSON Feed 1.1 document.
func JSONFeed(opt Options, posts, photos []content.Post) ([]byte, error) {
	feed := Feed{
		Version:     jsonFeedVersion,
		Title:       opt.Title,
		HomePageURL: opt.siteURL(),
		FeedURL:     opt.siteURL() + "/feed.json",
		Description: opt.Description,
		Authors:     []Author{{Name: opt.Author}},
		Language:    opt.Language,
		Items:       make([]Item, 0, len(posts)+len(photos)),
	}

	for _, p := range posts {
		item, err := jsonFeedItem(opt, p, content.BucketPosts)
		if err != nil {
			return nil, err
		}
		feed.Items = append(feed.Items, item)
	}
	for _, p := range photos {
		item, err := jsonFeedItem(opt, p, content.BucketPhotos)
		if err != nil {
			return nil, err
		}
		feed.Items = append(feed.Items, item)
	}

	return json.MarshalIndent(feed, "", "  ")
}

func jsonFeedItem(opt Options, p content.Post, bucket content.Bucket) (Item, error) {
	pub, err := publishedAt(p)
	if err != nil {
		return Item{}, err
	}

	link := opt.PostLink(p)
	typeLabel := typeLabelWriting
	if bucket == content.BucketPhotos {
		link = opt.PhotoLink(p)
		typeLabel = typeLabelPhotography
	}

	var tags []string
	if p.Section != "" {
		tags = append(tags, content.SectionLabel(p.Section))
	}
	tags = append(tags, typeLabel)

	return Item{
		ID:            link,
		URL:           link,
		Title:         p.Title,
		ContentHTML:   p.Content,
		Summary:       p.Excerpt,
		Image:         opt.imageURL(p, bucket),
		DatePublished: pub.UTC().Format(time.RFC3339),
		Authors:       []Author{{Name: opt.author(p)}},
		Tags:          tags,
		WordCount:     content.WordCount(p.Content),
	}, nil
}
