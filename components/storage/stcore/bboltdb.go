package stcore

import (
	"bytes"
	"errors"

	"go.etcd.io/bbolt"

	"github.com/open-control-systems/ping-monitor/components/status"
)

// NewBboltDB initialization.
//
// Parameters:
//   - dbPath - database file path, if it doesn't exist then it will be created automatically.
//
// References:
//   - https://github.com/etcd-io/bbolt
func NewBboltDB(dbPath string, opts *bbolt.Options) (*bbolt.DB, error) {
	db, err := bbolt.Open(dbPath, 0600, opts)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// BboltDBBucket is a wrapper over the bbolt database to operate on a single bucket.
//
// Remarks:
//   - bbolt allows a single writer at a time, concurrent writes are serialized by bbolt.
type BboltDBBucket struct {
	db     *bbolt.DB
	bucket []byte
}

// NewBboltDBBucket initialization.
//
// Parameters:
//   - db - bbolt database instance.
//   - bucket - bbolt database bucket.
func NewBboltDBBucket(db *bbolt.DB, bucket string) *BboltDBBucket {
	return &BboltDBBucket{
		db:     db,
		bucket: []byte(bucket),
	}
}

// Read reads a blob of data from bbolt database.
func (b *BboltDBBucket) Read(key string) (Blob, error) {
	blob := Blob{}

	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		if bucket == nil {
			return status.StatusNoData
		}

		data := bucket.Get([]byte(key))
		if data == nil {
			return status.StatusNoData
		}

		// Data is only valid during the transaction.
		blob.Data = bytes.Clone(data)

		return nil
	})
	if err != nil {
		return Blob{}, err
	}

	return blob, nil
}

// Write write a blob to the database bucket.
func (b *BboltDBBucket) Write(key string, blob Blob) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(b.bucket)
		if err != nil {
			return err
		}

		return bucket.Put([]byte(key), blob.Data)
	})
}

// Update reads, modifies and writes the blob within a single bbolt transaction.
func (b *BboltDBBucket) Update(key string, fn UpdateFunc) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(b.bucket)
		if err != nil {
			return err
		}

		current := Blob{}

		data := bucket.Get([]byte(key))
		if data != nil {
			current.Data = bytes.Clone(data)
		}

		next, err := fn(current, data != nil)
		if err != nil {
			return err
		}

		return bucket.Put([]byte(key), next.Data)
	})
}

// Remove removes a blob from the database bucket.
func (b *BboltDBBucket) Remove(key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		if bucket == nil {
			return nil
		}

		return bucket.Delete([]byte(key))
	})
}

// RemovePrefix removes all blobs which keys start with prefix.
func (b *BboltDBBucket) RemovePrefix(prefix string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		if bucket == nil {
			return nil
		}

		p := []byte(prefix)

		cursor := bucket.Cursor()

		// Cursor.Delete() moves the cursor to the next item.
		for k, _ := cursor.Seek(p); k != nil && bytes.HasPrefix(k, p); {
			if err := cursor.Delete(); err != nil {
				return err
			}

			k, _ = cursor.Seek(p)
		}

		return nil
	})
}

// ForEach iterates over all blobs in the database bucket.
func (b *BboltDBBucket) ForEach(fn func(key string, b Blob) error) error {
	return b.ForEachPrefix("", false, fn)
}

// ForEachPrefix iterates over blobs which keys start with prefix.
func (b *BboltDBBucket) ForEachPrefix(
	prefix string,
	reverse bool,
	fn func(key string, b Blob) error,
) error {
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		if bucket == nil {
			return nil
		}

		p := []byte(prefix)
		cursor := bucket.Cursor()

		if !reverse {
			for k, v := cursor.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = cursor.Next() {
				if err := fn(string(k), Blob{Data: bytes.Clone(v)}); err != nil {
					return err
				}
			}

			return nil
		}

		k, v := b.seekLast(cursor, p)
		for ; k != nil && bytes.HasPrefix(k, p); k, v = cursor.Prev() {
			if err := fn(string(k), Blob{Data: bytes.Clone(v)}); err != nil {
				return err
			}
		}

		return nil
	})
	if errors.Is(err, ErrStop) {
		return nil
	}

	return err
}

// Close is non-operational.
func (*BboltDBBucket) Close() error {
	return nil
}

// seekLast positions the cursor at the last key with the prefix.
func (*BboltDBBucket) seekLast(cursor *bbolt.Cursor, prefix []byte) ([]byte, []byte) {
	if len(prefix) == 0 {
		return cursor.Last()
	}

	upper := prefixUpperBound(prefix)
	if upper == nil {
		return cursor.Last()
	}

	if k, _ := cursor.Seek(upper); k == nil {
		return cursor.Last()
	}

	return cursor.Prev()
}

// prefixUpperBound returns the smallest key greater than all keys with the prefix,
// nil if there is no such key.
func prefixUpperBound(prefix []byte) []byte {
	upper := bytes.Clone(prefix)

	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++

			return upper[:i+1]
		}
	}

	return nil
}
