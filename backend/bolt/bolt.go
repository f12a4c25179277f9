// Package bolt is a persistent Backend on a single bbolt file. Each value is
// stored behind an 8-byte big-endian expiry (unix nanoseconds, 0 = never),
// which Get strips so the backend stays byte-transparent.
package bolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/unkn0wn-root/cachekit/backend"
)

const expHeader = 8

var errCorruptRecord = errors.New("bolt backend: record shorter than expiry header")

type Options struct {
	// Bucket is the name of the Bolt bucket to use. Default "cachekit".
	Bucket string
	// OpenTimeout bounds waiting for the file lock. Default 1s.
	OpenTimeout time.Duration
}

// Backend is safe for concurrent use; bbolt serializes writers itself.
type Backend struct {
	db     *bolt.DB
	bucket []byte
	now    func() time.Time
}

var _ backend.Backend = (*Backend)(nil)

// Open initializes or opens a store at path.
func Open(path string, opts Options) (*Backend, error) {
	timeout := opts.OpenTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, err
	}
	bucket := []byte("cachekit")
	if opts.Bucket != "" {
		bucket = []byte(opts.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Backend{db: db, bucket: bucket, now: time.Now}, nil
}

func (s *Backend) encode(value []byte, ttl time.Duration) []byte {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).UnixNano()
	}
	buf := make([]byte, expHeader+len(value))
	binary.BigEndian.PutUint64(buf[:expHeader], uint64(expiresAt))
	copy(buf[expHeader:], value)
	return buf
}

// live returns a copy of the value in rec when it has not expired.
func (s *Backend) live(rec []byte, now time.Time) ([]byte, bool, error) {
	if len(rec) < expHeader {
		return nil, false, errCorruptRecord
	}
	expiresAt := int64(binary.BigEndian.Uint64(rec[:expHeader]))
	if expiresAt > 0 && now.UnixNano() > expiresAt {
		return nil, false, nil
	}
	return bytes.Clone(rec[expHeader:]), true, nil
}

func (s *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	var (
		out []byte
		ok  bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		rec := tx.Bucket(s.bucket).Get([]byte(key))
		if rec == nil {
			return nil
		}
		var err error
		out, ok, err = s.live(rec, s.now())
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return out, ok, nil
}

func (s *Backend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	rec := s.encode(value, ttl)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), rec)
	})
}

func (s *Backend) Delete(_ context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
}

func (s *Backend) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

// MGet reads all keys in one read transaction. Corrupt records read as misses.
func (s *Backend) MGet(_ context.Context, keys []string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	now := s.now()
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for i, k := range keys {
			rec := b.Get([]byte(k))
			if rec == nil {
				continue
			}
			if v, ok, err := s.live(rec, now); err == nil && ok {
				out[i] = v
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Backend) MDelete(_ context.Context, keys []string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for _, k := range keys {
			_ = b.Delete([]byte(k))
		}
		return nil
	})
}

func (s *Backend) HealthCheck(context.Context) (bool, error) {
	err := s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(s.bucket) == nil {
			return errors.New("bucket missing")
		}
		return nil
	})
	return err == nil, nil
}

// ClearAll drops and recreates the bucket.
func (s *Backend) ClearAll(context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(s.bucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(s.bucket)
		return err
	})
}

// Purge deletes expired records and reports how many were removed.
func (s *Backend) Purge(context.Context) (int, error) {
	removed := 0
	now := s.now().UnixNano()
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		var dead [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			if len(v) < expHeader {
				dead = append(dead, bytes.Clone(k))
				return nil
			}
			if exp := int64(binary.BigEndian.Uint64(v[:expHeader])); exp > 0 && now > exp {
				dead = append(dead, bytes.Clone(k))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range dead {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(dead)
		return nil
	})
	return removed, err
}

// Close closes the underlying database.
func (s *Backend) Close(context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
