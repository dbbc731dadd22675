package boltbackend

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

var (
	// ErrNotFound is returned when a key is not in its bucket.
	ErrNotFound = errors.New("record not found")
)

// BucketMeta holds book level values such as the book GUID.
const BucketMeta = "meta"

// Store wraps a bbolt database holding one bucket per table.
type Store struct {
	db *bolt.DB
}

// OpenStore opens or creates the database at path and ensures the meta bucket.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.EnsureBuckets(BucketMeta); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.db.Path()
}

// EnsureBuckets creates missing buckets.
func (s *Store) EnsureBuckets(names ...string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range names {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// Update runs fn in a read-write transaction.
func (s *Store) Update(fn func(tx *bolt.Tx) error) error {
	return s.db.Update(fn)
}

// View runs fn in a read-only transaction.
func (s *Store) View(fn func(tx *bolt.Tx) error) error {
	return s.db.View(fn)
}

// putJSON stores value under key in the named bucket.
func putJSON(tx *bolt.Tx, bucketName, key string, value any) error {
	b := tx.Bucket([]byte(bucketName))
	if b == nil {
		return fmt.Errorf("bucket %s not found", bucketName)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return b.Put([]byte(key), data)
}

// deleteKey removes key from the named bucket.
func deleteKey(tx *bolt.Tx, bucketName, key string) error {
	b := tx.Bucket([]byte(bucketName))
	if b == nil {
		return fmt.Errorf("bucket %s not found", bucketName)
	}
	return b.Delete([]byte(key))
}

// list returns copies of every key/value pair of a bucket in key order.
func list(tx *bolt.Tx, bucketName string) ([][2][]byte, error) {
	b := tx.Bucket([]byte(bucketName))
	if b == nil {
		return nil, fmt.Errorf("bucket %s not found", bucketName)
	}

	var results [][2][]byte
	err := b.ForEach(func(k, v []byte) error {
		// Copy, the slices are only valid during the transaction
		results = append(results, [2][]byte{
			append([]byte(nil), k...),
			append([]byte(nil), v...),
		})
		return nil
	})
	return results, err
}

// clearBucket drops and recreates a bucket.
func clearBucket(tx *bolt.Tx, bucketName string) error {
	if err := tx.DeleteBucket([]byte(bucketName)); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
		return fmt.Errorf("failed to clear bucket %s: %w", bucketName, err)
	}
	if _, err := tx.CreateBucket([]byte(bucketName)); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucketName, err)
	}
	return nil
}

// PutString stores a meta value.
func (s *Store) PutString(key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putString(tx, key, value)
	})
}

func putString(tx *bolt.Tx, key, value string) error {
	b := tx.Bucket([]byte(BucketMeta))
	if b == nil {
		return fmt.Errorf("bucket %s not found", BucketMeta)
	}
	return b.Put([]byte(key), []byte(value))
}

// GetString retrieves a meta value.
func (s *Store) GetString(key string) (string, error) {
	var value string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketMeta))
		if b == nil {
			return fmt.Errorf("bucket %s not found", BucketMeta)
		}

		data := b.Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}

		value = string(data)
		return nil
	})
	return value, err
}
