package stcore

// Blob is an opaque value stored in the database.
type Blob struct {
	Data []byte
}
