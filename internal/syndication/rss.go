package syndication

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mysite/internal/domain/content"
)

var enclosureMIME = map[string]string{
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".avif": "image/avif",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// RSS renders both buckets as an RSS 2.0 document. lastBuildDate is the
// maximum item publish date regardless of input order; with no items the
// tag is omitted.
func RSS(opt Options, posts, photos []content.Post) (string, error) {
	type itemInput struct {
		post   content.Post
		bucket content.Bucket
	}
	inputs := make([]itemInput, 0, len(posts)+len(photos))
	for _, p := range posts {
		inputs = append(inputs, itemInput{post: p, bucket: content.BucketPosts})
	}
	for _, p := range photos {
		inputs = append(inputs, itemInput{post: p, bucket: content.BucketPhotos})
	}

	var (
		items   strings.Builder
		lastPub time.Time
	)
	for _, in := range inputs {
		pub, err := publishedAt(in.post)
		if err != nil {
			return "", err
		}
		if pub.After(lastPub) {
			lastPub = pub
		}
		items.WriteString(rssItem(opt, in.post, in.bucket, pub))
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:content="http://purl.org/rss/1.0/modules/content/">` + "\n")
	b.WriteString("  <channel>\n")
	fmt.Fprintf(&b, "    <title>%s</title>\n", escapeXML(opt.Title))
	fmt.Fprintf(&b, "    <description>%s</description>\n", escapeXML(opt.Description))
	fmt.Fprintf(&b, "    <link>%s</link>\n", escapeXML(opt.siteURL()))
	fmt.Fprintf(&b, `    <atom:link href="%s/feed.xml" rel="self" type="application/rss+xml"/>`+"\n", escapeXML(opt.siteURL()))
	fmt.Fprintf(&b, "    <language>%s</language>\n", escapeXML(opt.Language))
	if !lastPub.IsZero() {
		fmt.Fprintf(&b, "    <lastBuildDate>%s</lastBuildDate>\n", utcString(lastPub))
	}
	b.WriteString(items.String())
	b.WriteString("  </channel>\n")
	b.WriteString("</rss>\n")
	return b.String(), nil
}

func rssItem(opt Options, p content.Post, bucket content.Bucket, pub time.Time) string {
	link := opt.PostLink(p)
	typeLabel := typeLabelWriting
	if bucket == content.BucketPhotos {
		link = opt.PhotoLink(p)
		typeLabel = typeLabelPhotography
	}

	var b strings.Builder
	b.WriteString("    <item>\n")
	fmt.Fprintf(&b, "      <title><![CDATA[%s]]></title>\n", p.Title)
	fmt.Fprintf(&b, "      <link>%s</link>\n", escapeXML(link))
	fmt.Fprintf(&b, "      <guid>%s</guid>\n", escapeXML(link))
	fmt.Fprintf(&b, "      <pubDate>%s</pubDate>\n", utcString(pub))
	fmt.Fprintf(&b, "      <dc:creator><![CDATA[%s]]></dc:creator>\n", opt.author(p))
	fmt.Fprintf(&b, "      <description><![CDATA[%s]]></description>\n", p.Excerpt)
	fmt.Fprintf(&b, "      <content:encoded><![CDATA[%s]]></content:encoded>\n", p.Content)
	if p.Section != "" {
		fmt.Fprintf(&b, "      <category><![CDATA[%s]]></category>\n", content.SectionLabel(p.Section))
	}
	fmt.Fprintf(&b, "      <category><![CDATA[%s]]></category>\n", typeLabel)
	if p.CoverImage != "" {
		rel := coverImagePath(p, bucket)
		fmt.Fprintf(&b, `      <enclosure url="%s" type="%s" length="%d"/>`+"\n",
			escapeXML(opt.imageURL(p, bucket)),
			mimeForFile(p.CoverImage),
			fileLength(filepath.Join(opt.ImagesDir, filepath.FromSlash(rel))),
		)
	}
	b.WriteString("    </item>\n")
	return b.String()
}

// utcString formats a time the way feed readers expect pubDate: the RFC
// 1123 GMT form.
func utcString(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

func mimeForFile(name string) string {
	if m, ok := enclosureMIME[strings.ToLower(filepath.Ext(name))]; ok {
		return m
	}
	return "image/jpeg"
}

// fileLength resolves an enclosure's byte length from disk, 0 when the
// file is missing or unreadable.
func fileLength(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func escapeXML(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
