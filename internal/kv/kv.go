package kv

// Store is the opaque key-value persistence the tagging core snapshots into
// after every mutation. No transactional guarantee is assumed; a crash between
// mutation and Set loses at most the latest mutation.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Remove(key string) error
}
