package index

import (
	"encoding/json"
	"errors"
	"strings"

	bolt "go.etcd.io/bbolt"

	"mysite/internal/domain/content"
)

var ErrNotFound = errors.New("not found")

// GetPost looks up a general post by slug.
func (s *Store) GetPost(slug string) (content.Post, error) {
	return s.get(bPosts, slug)
}

// GetPhoto looks up a photo post by slug.
func (s *Store) GetPhoto(slug string) (content.Post, error) {
	return s.get(bPhotos, slug)
}

func (s *Store) get(bucket []byte, slug string) (content.Post, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return content.Post{}, ErrNotFound
	}
	var p content.Post
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return ErrNotFound
		}
		v := b.Get([]byte(slug))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &p)
	})
	return p, err
}

// ListPosts returns general posts newest first, all of them when limit <= 0.
func (s *Store) ListPosts(limit int) ([]content.Post, error) {
	return s.list(bOrdPosts, bPosts, limit)
}

// ListPhotos returns photo posts newest first.
func (s *Store) ListPhotos(limit int) ([]content.Post, error) {
	return s.list(bOrdPhotos, bPhotos, limit)
}

func (s *Store) list(ordBucket, metaBucket []byte, limit int) ([]content.Post, error) {
	var out []content.Post
	err := s.db.View(func(tx *bolt.Tx) error {
		ord := tx.Bucket(ordBucket)
		meta := tx.Bucket(metaBucket)
		if ord == nil || meta == nil {
			return nil
		}

		cur := ord.Cursor()
		for k, _ := cur.First(); k != nil; k, _ = cur.Next() {
			slug := slugFromTimeSlugKey(k)
			if slug == "" {
				continue
			}
			v := meta.Get([]byte(slug))
			if v == nil {
				continue
			}
			var p content.Post
			if err := json.Unmarshal(v, &p); err != nil {
				continue
			}
			out = append(out, p)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	return out, err
}

// ListBySection returns general posts carrying the section tag, newest
// first.
func (s *Store) ListBySection(section string, limit int) ([]content.Post, error) {
	section = strings.TrimSpace(section)
	if section == "" {
		return nil, nil
	}

	var out []content.Post
	err := s.db.View(func(tx *bolt.Tx) error {
		parent := tx.Bucket(bIdxSection)
		meta := tx.Bucket(bPosts)
		if parent == nil || meta == nil {
			return nil
		}
		sb := parent.Bucket([]byte(section))
		if sb == nil {
			return nil
		}

		cur := sb.Cursor()
		for k, _ := cur.First(); k != nil; k, _ = cur.Next() {
			slug := slugFromTimeSlugKey(k)
			if slug == "" {
				continue
			}
			v := meta.Get([]byte(slug))
			if v == nil {
				continue
			}
			var p content.Post
			if err := json.Unmarshal(v, &p); err != nil {
				continue
			}
			out = append(out, p)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	return out, err
}
