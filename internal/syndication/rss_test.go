package syndication

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mysite/internal/domain/content"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		SiteURL:     "https://example.com",
		Title:       "Writing & Photography",
		Description: "A personal site.",
		Language:    "en",
		Author:      "Site Owner",
		ImagesDir:   t.TempDir(),
	}
}

func post(slug, date string) content.Post {
	return content.Post{
		ID:         "id-" + slug,
		Title:      "Post " + slug,
		Slug:       slug,
		CoverImage: slug + ".jpg",
		Date:       date,
		Excerpt:    "About " + slug,
		Content:    "Body of " + slug,
		Section:    content.SectionAll,
	}
}

func TestRSSLastBuildDateIsMaxItemDate(t *testing.T) {
	opt := testOptions(t)

	// deliberately out of order
	posts := []content.Post{
		post("b", "2023-06-10"),
		post("c", "2023-06-01"),
		post("a", "2023-06-15"),
	}

	out, err := RSS(opt, posts, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "<lastBuildDate>Thu, 15 Jun 2023 00:00:00 GMT</lastBuildDate>")
}

func TestRSSEmptyOmitsLastBuildDate(t *testing.T) {
	out, err := RSS(testOptions(t), nil, nil)
	require.NoError(t, err)
	assert.NotContains(t, out, "<lastBuildDate>")
	assert.Contains(t, out, "<language>en</language>")
	assert.Contains(t, out, `<atom:link href="https://example.com/feed.xml" rel="self" type="application/rss+xml"/>`)
}

func TestRSSCDATAPassesRawText(t *testing.T) {
	opt := testOptions(t)
	p := post("specials", "2023-06-15")
	p.Title = "Ampersands & <angles> are > fine"

	out, err := RSS(opt, []content.Post{p}, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "<title><![CDATA[Ampersands & <angles> are > fine]]></title>")
}

func TestRSSItemFields(t *testing.T) {
	opt := testOptions(t)
	p := post("hello", "2023-06-15")
	p.Section = content.SectionVBC

	coverPath := filepath.Join(opt.ImagesDir, "hello.jpg")
	require.NoError(t, os.WriteFile(coverPath, []byte("12345"), 0o644))

	out, err := RSS(opt, []content.Post{p}, nil)
	require.NoError(t, err)

	assert.Contains(t, out, "<link>https://example.com/writing/hello</link>")
	assert.Contains(t, out, "<guid>https://example.com/writing/hello</guid>")
	assert.Contains(t, out, "<pubDate>Thu, 15 Jun 2023 00:00:00 GMT</pubDate>")
	assert.Contains(t, out, "<dc:creator><![CDATA[Site Owner]]></dc:creator>")
	assert.Contains(t, out, "<category><![CDATA[Value-Based Care]]></category>")
	assert.Contains(t, out, "<category><![CDATA[Writing]]></category>")
	assert.Contains(t, out, `<enclosure url="https://example.com/images/hello.jpg" type="image/jpeg" length="5"/>`)
}

func TestRSSPhotoItems(t *testing.T) {
	opt := testOptions(t)
	p := post("sunset", "2023-06-15")
	p.Section = ""

	out, err := RSS(opt, nil, []content.Post{p})
	require.NoError(t, err)

	assert.Contains(t, out, "<link>https://example.com/photos/sunset</link>")
	assert.Contains(t, out, "<category><![CDATA[Photography]]></category>")
	// photo covers resolve under the photos/ subpath, missing file -> length 0
	assert.Contains(t, out, `<enclosure url="https://example.com/images/photos/sunset.jpg" type="image/jpeg" length="0"/>`)
}

func TestRSSEnclosureMIMETypes(t *testing.T) {
	cases := map[string]string{
		"a.png":  "image/png",
		"a.gif":  "image/gif",
		"a.webp": "image/webp",
		"a.avif": "image/avif",
		"a.JPG":  "image/jpeg",
		"a.tiff": "image/jpeg", // unknown extensions fall back
	}
	for name, want := range cases {
		assert.Equal(t, want, mimeForFile(name), "file %s", name)
	}
}

func TestRSSNoEnclosureWithoutCover(t *testing.T) {
	opt := testOptions(t)
	p := post("bare", "2023-06-15")
	p.CoverImage = ""

	out, err := RSS(opt, []content.Post{p}, nil)
	require.NoError(t, err)
	assert.NotContains(t, out, "<enclosure")
}

func TestRSSUnparseableDateIsFatal(t *testing.T) {
	opt := testOptions(t)
	p := post("bad", "June 15th")

	_, err := RSS(opt, []content.Post{p}, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "bad"), "error names the offending post")
}

func TestRSSCreatorDefaultsToSiteOwner(t *testing.T) {
	opt := testOptions(t)
	p := post("anon", "2023-06-15")
	p.Author = ""

	out, err := RSS(opt, []content.Post{p}, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "<dc:creator><![CDATA[Site Owner]]></dc:creator>")
}
