package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"mysite/internal/domain/content"
)

// Write serializes a bucket's posts to its cache file as a pretty-printed
// JSON array. The file is written to a temp sibling and renamed into place,
// so readers always see either the previous snapshot or the new one, never
// a partial write. A nil slice still produces "[]".
func Write(path string, posts []content.Post) error {
	if posts == nil {
		posts = []content.Post{}
	}

	data, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write cache %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace cache %s: %w", path, err)
	}
	return nil
}
