package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mysite/internal/cache"
	"mysite/internal/domain/config"
	"mysite/internal/domain/content"
	"mysite/internal/ingest"
	"mysite/internal/serve"
	"mysite/internal/source/workspace"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd := os.Args[1]

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "site.yaml", "path to yaml config file")
	fs.Parse(os.Args[2:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err.Error())
		os.Exit(2)
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	switch cmd {
	case "cache":
		if err := runCache(cfg, logger); err != nil {
			logger.Error("cache run failed", zap.Error(err))
			os.Exit(1)
		}
	case "serve":
		if err := runServe(cfg, logger); err != nil {
			logger.Error("serve failed", zap.Error(err))
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: mysite <cache|serve> [-config site.yaml]")
}

func newLogger(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	switch level {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

// runCache is the batch job: both buckets fetched, extracted, and written
// out, then the collected images downloaded. Any bucket failing its page
// list aborts the run with a non-zero exit; it is always safe to re-run
// because each cache file is replaced atomically, never written partially.
func runCache(cfg config.Config, logger *zap.Logger) error {
	if err := cfg.ValidateWorkspace(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := workspace.New(workspace.Config{
		BaseURL:        cfg.Workspace.BaseURL,
		Token:          cfg.Workspace.Token,
		PageSize:       cfg.Workspace.PageSize,
		Timeout:        cfg.Workspace.Timeout.Std(),
		MaxAttempts:    cfg.Workspace.Retry.MaxAttempts,
		InitialBackoff: cfg.Workspace.Retry.InitialBackoff.Std(),
		MaxBackoff:     cfg.Workspace.Retry.MaxBackoff.Std(),
	}, logger)

	transformer := ingest.NewTransformer(client, logger)
	extractor := ingest.NewExtractor(transformer, cfg.Site.Author, logger)
	pipeline := ingest.NewPipeline(client, extractor, logger)

	buckets := []struct {
		bucket       content.Bucket
		dataSourceID string
		cacheFile    string
	}{
		{content.BucketPosts, cfg.Workspace.PostsDataSourceID, cfg.Cache.PostsFile},
		{content.BucketPhotos, cfg.Workspace.PhotosDataSourceID, cfg.Cache.PhotosFile},
	}

	var images []ingest.ImageRef
	for _, b := range buckets {
		posts, refs, err := pipeline.Run(ctx, b.bucket, b.dataSourceID)
		if err != nil {
			return err
		}
		if err := cache.Write(b.cacheFile, posts); err != nil {
			return err
		}
		logger.Info("cache written",
			zap.String("bucket", string(b.bucket)),
			zap.String("file", b.cacheFile),
			zap.Int("posts", len(posts)),
		)
		images = append(images, refs...)
	}

	downloader := ingest.NewDownloader(cfg.Cache.ImagesDir, logger)
	if failed := downloader.DownloadAll(ctx, images); failed > 0 {
		logger.Warn("some image downloads failed", zap.Int("failed", failed))
	}
	return nil
}

func runServe(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := serve.New(cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.ListenAndServe(ctx, cfg.Serve.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
