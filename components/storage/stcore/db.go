package stcore

import "errors"

// ErrStop can be returned from the iteration callback to end the iteration early.
var ErrStop = errors.New("stop iteration")

// UpdateFunc receives the current blob and returns the blob to store.
//
// Parameters:
//   - blob - current value, empty if the key doesn't exist.
//   - exists - whether the key exists.
//
// Remarks:
//   - Returning an error aborts the update, the error is returned from DB.Update().
type UpdateFunc func(blob Blob, exists bool) (Blob, error)

// DB is a key-value database to store blobs of data.
//
// Remarks:
//   - Implementation should be thread-safe.
type DB interface {
	// Read reads a blob from the database.
	//
	// Remarks:
	//  - Implementation should return status.StatusNoData if blob doesn't exist.
	Read(key string) (Blob, error)

	// Write write a blob to the database.
	Write(key string, blob Blob) error

	// Update atomically reads the blob, applies fn and writes the result.
	Update(key string, fn UpdateFunc) error

	// Remove removes a blob from the database.
	//
	// Remarks:
	//  - Implementation should return nil if blob doesn't exist.
	Remove(key string) error

	// RemovePrefix removes all blobs which keys start with prefix.
	RemovePrefix(prefix string) error

	// ForEach iterates over all data in the database in key order.
	//
	// Remarks:
	//  - Returning ErrStop from fn ends the iteration without an error.
	ForEach(fn func(key string, b Blob) error) error

	// ForEachPrefix iterates over blobs which keys start with prefix.
	//
	// Parameters:
	//  - prefix - key prefix.
	//  - reverse - iterate in descending key order.
	//  - fn - called for each blob, ErrStop ends the iteration without an error.
	ForEachPrefix(prefix string, reverse bool, fn func(key string, b Blob) error) error

	// Close releases all resources for the database.
	Close() error
}
