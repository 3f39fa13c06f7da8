package cache

import (
	"encoding/json"
	"os"

	"go.uber.org/zap"

	"mysite/internal/domain/content"
)

// Reader loads cached post arrays at request time. Reads are defensive by
// contract: a missing file is an empty bucket (the site must build before
// the first cache run), and a corrupt file is logged and treated as empty
// rather than crashing rendering.
type Reader struct {
	postsPath  string
	photosPath string
	logger     *zap.Logger
}

func NewReader(postsPath, photosPath string, logger *zap.Logger) *Reader {
	return &Reader{
		postsPath:  postsPath,
		photosPath: photosPath,
		logger:     logger.Named("cache"),
	}
}

// Posts returns the general-posts bucket in file order (publish date
// descending as written, but callers needing an order must sort).
func (r *Reader) Posts() []content.Post {
	return r.read(r.postsPath)
}

// Photos returns the photo-posts bucket in file order.
func (r *Reader) Photos() []content.Post {
	return r.read(r.photosPath)
}

// AllSectionPosts returns general posts tagged with the "All" section.
func (r *Reader) AllSectionPosts() []content.Post {
	return filterSection(r.Posts(), content.SectionAll)
}

// VBCSectionPosts returns the value-based-care essay series.
func (r *Reader) VBCSectionPosts() []content.Post {
	return filterSection(r.Posts(), content.SectionVBC)
}

func (r *Reader) read(path string) []content.Post {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn("cache read failed", zap.String("path", path), zap.Error(err))
		}
		return []content.Post{}
	}

	var posts []content.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		r.logger.Error("corrupt cache file, serving empty list",
			zap.String("path", path),
			zap.Error(err),
		)
		return []content.Post{}
	}
	if posts == nil {
		posts = []content.Post{}
	}
	return posts
}

func filterSection(posts []content.Post, section string) []content.Post {
	out := make([]content.Post, 0, len(posts))
	for _, p := range posts {
		if p.Section == section {
			out = append(out, p)
		}
	}
	return out
}
