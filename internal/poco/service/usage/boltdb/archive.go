package boltdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/boltdb/bolt"

	"github.com/libreassistant/poco/internal/poco/pkg/errno"
	"github.com/libreassistant/poco/internal/poco/service/usage"
	"github.com/libreassistant/poco/pkg/utils/json"
)

var bucketArchive = []byte("session_archive")

// Archive implements usage.ArchiveStore on BoltDB so the session archive
// survives daemon restarts.
type Archive struct {
	db *bolt.DB
}

var _ usage.ArchiveStore = (*Archive)(nil)

// Open creates or opens the archive database at path.
func Open(path string) (*Archive, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketArchive)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &Archive{db: db}, nil
}

func (a *Archive) Put(_ context.Context, s *usage.SessionSummary) error {
	return a.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketArchive)
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}
		return b.Put([]byte(s.ID), data)
	})
}

func (a *Archive) Get(_ context.Context, id string) (*usage.SessionSummary, error) {
	var s usage.SessionSummary
	err := a.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketArchive)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", errno.ErrSessionNotFound, id)
		}
		return json.Unmarshal(data, &s)
	})
	if err != nil {
		return nil, err
	}

	return &s, nil
}

func (a *Archive) List(_ context.Context) ([]*usage.SessionSummary, error) {
	var sessions []*usage.SessionSummary
	err := a.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketArchive)
		return b.ForEach(func(k, v []byte) error {
			var s usage.SessionSummary
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("failed to unmarshal session %q: %w", k, err)
			}
			sessions = append(sessions, &s)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].EndedAt.Before(sessions[j].EndedAt)
	})

	return sessions, nil
}

func (a *Archive) Trim(ctx context.Context, max int) error {
	if max < 0 {
		return nil
	}

	sessions, err := a.List(ctx)
	if err != nil {
		return err
	}
	if len(sessions) <= max {
		return nil
	}

	drop := sessions[:len(sessions)-max]

	return a.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketArchive)
		for _, s := range drop {
			if err := b.Delete([]byte(s.ID)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the underlying BoltDB instance.
func (a *Archive) Close() error {
	return a.db.Close()
}
