package ingest

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	domainerr "mysite/internal/domain/errors"
)

// IsURLSafe reports whether an image URL may be fetched. The policy is a
// pure predicate over the URL string and literal IP octets, with no DNS
// resolution: https only, no localhost aliases, no private, loopback,
// link-local or unspecified addresses.
func IsURLSafe(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "https" {
		return false
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return false
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return true
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
		return false
	}
	return true
}

// Filename derives the local filename for an image URL: the final path
// segment, with percent-escapes preserved. An empty segment (trailing
// slash) or a dots-only segment ("." / "..") is rejected.
func Filename(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	p := u.EscapedPath()
	name := p
	if i := strings.LastIndex(p, "/"); i >= 0 {
		name = p[i+1:]
	}
	if name == "" {
		return "", false
	}
	if strings.Trim(name, ".") == "" {
		return "", false
	}
	return name, true
}

// Downloader fetches remote images into a flat local directory. Downloads
// are cache-first: an existing file is never re-fetched, even if the remote
// bytes changed. Concurrent calls for the same not-yet-present filename may
// race; the last write wins.
type Downloader struct {
	dir    string
	client *http.Client
	logger *zap.Logger
}

func NewDownloader(dir string, logger *zap.Logger) *Downloader {
	return &Downloader{
		dir: dir,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger.Named("images"),
	}
}

// Download fetches the URL into the image directory. It returns
// domainerr.ErrUnsafeURL or domainerr.ErrInvalidFilename (wrapped) without
// touching the network; network and filesystem errors propagate unchanged.
func (d *Downloader) Download(ctx context.Context, raw string) error {
	if !IsURLSafe(raw) {
		return fmt.Errorf("%w: %s", domainerr.ErrUnsafeURL, raw)
	}
	name, ok := Filename(raw)
	if !ok {
		return fmt.Errorf("%w: %s", domainerr.ErrInvalidFilename, raw)
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return err
	}

	dest := filepath.Join(d.dir, name)
	if _, err := os.Stat(dest); err == nil {
		d.logger.Debug("image already present", zap.String("file", name))
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", raw, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status %d", raw, resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(dest)
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return err
	}

	d.logger.Info("downloaded image", zap.String("file", name))
	return nil
}

// DownloadAll runs the side-effect stage for the image references collected
// during a transform. Failures are logged and counted, never fatal: the
// markdown already points at the local path and the image simply stays
// missing until the next run.
func (d *Downloader) DownloadAll(ctx context.Context, refs []ImageRef) int {
	seen := make(map[string]struct{}, len(refs))
	failed := 0
	for _, ref := range refs {
		if _, ok := seen[ref.Filename]; ok {
			continue
		}
		seen[ref.Filename] = struct{}{}

		if err := d.Download(ctx, ref.URL); err != nil {
			failed++
			d.logger.Warn("image download failed",
				zap.String("url", ref.URL),
				zap.String("file", ref.Filename),
				zap.Error(err),
			)
		}
	}
	return failed
}
