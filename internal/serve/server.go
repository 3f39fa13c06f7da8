package serve

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"mysite/internal/cache"
	"mysite/internal/domain/config"
	"mysite/internal/domain/content"
	"mysite/internal/index"
	"mysite/internal/render"
	"mysite/internal/syndication"
)

// Server renders the site from the cache files alone; it never talks to
// the content workspace, so the site stays up whatever the upstream does.
type Server struct {
	cfg    config.Config
	reader *cache.Reader
	idx    *index.Store
	md     *render.MarkdownRenderer
	tpl    *render.TemplateRenderer
	logger *zap.Logger

	watcher   *fsnotify.Watcher
	watchOnce sync.Once
}

func New(cfg config.Config, logger *zap.Logger) (*Server, error) {
	tpl, err := render.NewTemplateRenderer()
	if err != nil {
		return nil, fmt.Errorf("serve: template renderer: %w", err)
	}
	idx, err := index.Open(cfg.Cache.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("serve: open index: %w", err)
	}

	return &Server{
		cfg:    cfg,
		reader: cache.NewReader(cfg.Cache.PostsFile, cfg.Cache.PhotosFile, logger),
		idx:    idx,
		md:     render.NewMarkdownRenderer(),
		tpl:    tpl,
		logger: logger.Named("serve"),
	}, nil
}

func (s *Server) Close() error {
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	if s.idx != nil {
		return s.idx.Close()
	}
	return nil
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if err := s.rebuild(); err != nil {
		return err
	}
	if err := s.startWatch(ctx); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome)
	mux.HandleFunc("/writing/", s.handlePage(content.BucketPosts))
	mux.HandleFunc("/photos/", s.handlePage(content.BucketPhotos))
	mux.HandleFunc("/feed.xml", s.handleRSS)
	mux.HandleFunc("/feed.json", s.handleJSONFeed)
	mux.HandleFunc("/sitemap.xml", s.handleSitemap)
	mux.Handle("/images/", http.StripPrefix("/images/",
		http.FileServer(http.Dir(s.cfg.Cache.ImagesDir))))

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	s.logger.Info("listening", zap.String("addr", addr))
	return srv.ListenAndServe()
}

// rebuild refreshes the lookup index from the cache files.
func (s *Server) rebuild() error {
	posts := s.reader.Posts()
	photos := s.reader.Photos()

	if err := s.idx.Rebuild(posts, photos); err != nil {
		return fmt.Errorf("index rebuild: %w", err)
	}
	s.logger.Info("index rebuilt",
		zap.Int("posts", len(posts)),
		zap.Int("photos", len(photos)),
	)
	return nil
}

// startWatch watches the cache files' directories so a `mysite cache` run
// refreshes the serving index without a restart.
func (s *Server) startWatch(ctx context.Context) error {
	var err error
	s.watchOnce.Do(func() {
		w, e := fsnotify.NewWatcher()
		if e != nil {
			err = e
			return
		}
		s.watcher = w

		go s.watchLoop(ctx)

		dirs := map[string]struct{}{
			filepath.Dir(s.cfg.Cache.PostsFile):  {},
			filepath.Dir(s.cfg.Cache.PhotosFile): {},
		}
		for dir := range dirs {
			if e := w.Add(dir); e != nil {
				err = e
				return
			}
		}
	})
	return err
}

func (s *Server) watchLoop(ctx context.Context) {
	s.logger.Info("watching cache files")

	// A timer fires once per Reset, so a burst of events collapses into a
	// single rebuild 200ms after the last one.
	debounce := time.NewTimer(time.Hour)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	trigger := func() {
		if !debounce.Stop() {
			select {
			case <-debounce.C:
			default:
			}
		}
		debounce.Reset(200 * time.Millisecond)
	}

	cacheFiles := map[string]struct{}{
		filepath.Clean(s.cfg.Cache.PostsFile):  {},
		filepath.Clean(s.cfg.Cache.PhotosFile): {},
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if _, watched := cacheFiles[filepath.Clean(ev.Name)]; !watched {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				trigger()
			}
		case watchErr, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watcher error", zap.Error(watchErr))
		case <-debounce.C:
			if err := s.rebuild(); err != nil {
				s.logger.Error("rebuild failed", zap.Error(err))
			}
		}
	}
}

func (s *Server) feedOptions() syndication.Options {
	return syndication.Options{
		SiteURL:     s.cfg.Site.SiteURL,
		Title:       s.cfg.Site.Title,
		Description: s.cfg.Site.Description,
		Language:    s.cfg.Site.Language,
		Author:      s.cfg.Site.Author,
		ImagesDir:   s.cfg.Cache.ImagesDir,
	}
}

func (s *Server) handleRSS(w http.ResponseWriter, r *http.Request) {
	body, err := syndication.RSS(s.feedOptions(), s.reader.Posts(), s.reader.Photos())
	if err != nil {
		s.logger.Error("rss render failed", zap.Error(err))
		http.Error(w, "feed error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Write([]byte(body))
}

func (s *Server) handleJSONFeed(w http.ResponseWriter, r *http.Request) {
	body, err := syndication.JSONFeed(s.feedOptions(), s.reader.Posts(), s.reader.Photos())
	if err != nil {
		s.logger.Error("json feed render failed", zap.Error(err))
		http.Error(w, "feed error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/feed+json; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600, stale-while-revalidate=86400")
	w.Write(body)
}

func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	entries, err := syndication.Sitemap(s.feedOptions(), s.reader.Posts(), s.reader.Photos(), time.Now())
	if err != nil {
		s.logger.Error("sitemap render failed", zap.Error(err))
		http.Error(w, "sitemap error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Write([]byte(sitemapXML(entries)))
}

// sitemapXML renders the typed entries; the serializer itself stays
// format-agnostic.
func sitemapXML(entries []syndication.Entry) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")
	for _, e := range entries {
		b.WriteString("  <url>\n")
		fmt.Fprintf(&b, "    <loc>%s</loc>\n", template.HTMLEscapeString(e.URL))
		fmt.Fprintf(&b, "    <lastmod>%s</lastmod>\n", e.LastModified.UTC().Format(time.RFC3339))
		fmt.Fprintf(&b, "    <changefreq>%s</changefreq>\n", e.ChangeFrequency)
		fmt.Fprintf(&b, "    <priority>%.1f</priority>\n", e.Priority)
		b.WriteString("  </url>\n")
	}
	b.WriteString("</urlset>\n")
	return b.String()
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	page := render.HomePage{
		Site:   s.cfg.Site,
		Posts:  s.reader.Posts(),
		Photos: s.reader.Photos(),
	}
	body, err := s.tpl.RenderHome(page)
	if err != nil {
		s.logger.Error("home render failed", zap.Error(err))
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(body)
}

func (s *Server) handlePage(bucket content.Bucket) http.HandlerFunc {
	prefix := "/writing/"
	lookup := s.idx.GetPost
	coverBase := "/images/"
	if bucket == content.BucketPhotos {
		prefix = "/photos/"
		lookup = s.idx.GetPhoto
		coverBase = "/images/photos/"
	}

	return func(w http.ResponseWriter, r *http.Request) {
		slug := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
		if slug == "" || strings.Contains(slug, "/") {
			http.NotFound(w, r)
			return
		}

		post, err := lookup(slug)
		if err != nil {
			if errors.Is(err, index.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			s.logger.Error("post lookup failed", zap.String("slug", slug), zap.Error(err))
			http.Error(w, "lookup error", http.StatusInternalServerError)
			return
		}

		md, err := s.md.Render([]byte(post.Content))
		if err != nil {
			s.logger.Error("markdown render failed", zap.String("slug", slug), zap.Error(err))
			http.Error(w, "render error", http.StatusInternalServerError)
			return
		}

		page := render.PostPage{
			Site: s.cfg.Site,
			Post: post,
			HTML: template.HTML(md.HTML),
		}
		if post.CoverImage != "" {
			page.CoverPath = path.Join(coverBase, post.CoverImage)
		}
		if post.ShowToc {
			page.Toc = md.Toc
		}

		body, err := s.tpl.RenderPost(page)
		if err != nil {
			s.logger.Error("page render failed", zap.String("slug", slug), zap.Error(err))
			http.Error(w, "render error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(body)
	}
}
