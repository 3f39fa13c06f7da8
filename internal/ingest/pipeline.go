package ingest

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"mysite/internal/domain/content"
	"mysite/internal/source/workspace"
)

// PageSource lists a data source's published pages.
type PageSource interface {
	QueryPublished(ctx context.Context, dataSourceID string) ([]workspace.Page, error)
}

// Result carries one page's extraction outcome through the worker pool.
type Result struct {
	Post   content.Post
	Images []ImageRef
	Skip   bool
}

// Pipeline runs one content bucket: list published pages, extract each in
// parallel, and return the surviving posts in publish-date-descending order
// together with the images to fetch. A failure listing pages is fatal; a
// failure extracting one page only drops that page.
type Pipeline struct {
	source    PageSource
	extractor *Extractor
	logger    *zap.Logger
}

func NewPipeline(source PageSource, extractor *Extractor, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		source:    source,
		extractor: extractor,
		logger:    logger.Named("pipeline"),
	}
}

func (p *Pipeline) Run(ctx context.Context, bucket content.Bucket, dataSourceID string) ([]content.Post, []ImageRef, error) {
	pages, err := p.source.QueryPublished(ctx, dataSourceID)
	if err != nil {
		return nil, nil, fmt.Errorf("list pages for %s: %w", bucket, err)
	}
	p.logger.Info("listed published pages",
		zap.String("bucket", string(bucket)),
		zap.Int("pages", len(pages)),
	)

	workers := runtime.GOMAXPROCS(0)
	jobs := make(chan workspace.Page)
	results := make(chan Result)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for page := range jobs {
				post, images, err := p.extractor.Extract(ctx, page)
				if err != nil {
					p.logger.Warn("skipping page",
						zap.String("bucket", string(bucket)),
						zap.String("page_id", page.ID),
						zap.Error(err),
					)
					results <- Result{Skip: true}
					continue
				}
				results <- Result{Post: post, Images: images}
			}
		}()
	}

	go func() {
		for _, page := range pages {
			jobs <- page
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	var (
		posts  []content.Post
		images []ImageRef
	)
	for r := range results {
		if r.Skip {
			continue
		}
		posts = append(posts, r.Post)
		images = append(images, r.Images...)
	}

	// Workers return in completion order; restore the upstream's
	// publish-date-descending ordering before anything is persisted.
	sortByDateDesc(posts)

	posts = dedupeSlugs(posts, func(post content.Post) {
		p.logger.Warn("duplicate slug, dropping later page",
			zap.String("bucket", string(bucket)),
			zap.String("page_id", post.ID),
			zap.String("slug", post.Slug),
		)
	})

	p.logger.Info("bucket extracted",
		zap.String("bucket", string(bucket)),
		zap.Int("posts", len(posts)),
		zap.Int("skipped", len(pages)-len(posts)),
	)
	return posts, images, nil
}

func sortByDateDesc(posts []content.Post) {
	key := func(p content.Post) time.Time {
		// Dates were validated parseable at extraction.
		t, _ := p.PublishedAt()
		return t
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return key(posts[i]).After(key(posts[j]))
	})
}

func dedupeSlugs(posts []content.Post, onDrop func(content.Post)) []content.Post {
	seen := make(map[string]struct{}, len(posts))
	out := posts[:0]
	for _, post := range posts {
		if _, ok := seen[post.Slug]; ok {
			onDrop(post)
			continue
		}
		seen[post.Slug] = struct{}{}
		out = append(out, post)
	}
	return out
}
