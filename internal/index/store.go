package index

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"mysite/internal/domain/content"
)

// Store is the serve-time lookup index over the cached buckets: slug
// lookups and ordered listings without re-reading the JSON files per
// request. It is rebuilt wholesale from the cache files, mirroring their
// full-overwrite lifecycle.
type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("index: missing path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Rebuild replaces the whole index with the given cache snapshots in one
// transaction. Posts whose date fails to parse are indexed at the zero
// time rather than dropped; the serializers own date strictness.
func (s *Store) Rebuild(posts, photos []content.Post) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bPosts, bPhotos, bOrdPosts, bOrdPhotos, bIdxSection} {
			_ = tx.DeleteBucket(name)
		}

		postsB, _ := tx.CreateBucket(bPosts)
		photosB, _ := tx.CreateBucket(bPhotos)
		ordPostsB, _ := tx.CreateBucket(bOrdPosts)
		ordPhotosB, _ := tx.CreateBucket(bOrdPhotos)
		sectionB, _ := tx.CreateBucket(bIdxSection)

		for _, p := range posts {
			key, err := putPost(postsB, ordPostsB, p)
			if err != nil {
				return err
			}
			if key == nil || p.Section == "" {
				continue
			}
			sb, err := sectionB.CreateBucketIfNotExists([]byte(p.Section))
			if err != nil {
				return err
			}
			if err := sb.Put(key, []byte{1}); err != nil {
				return err
			}
		}

		for _, p := range photos {
			if _, err := putPost(photosB, ordPhotosB, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func putPost(metaB, ordB *bolt.Bucket, p content.Post) ([]byte, error) {
	if p.Slug == "" {
		return nil, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	if err := metaB.Put([]byte(p.Slug), data); err != nil {
		return nil, err
	}

	at, _ := p.PublishedAt()
	key := makeTimeSlugKey(at.UnixNano(), p.Slug)
	if err := ordB.Put(key, []byte{1}); err != nil {
		return nil, err
	}
	return key, nil
}
