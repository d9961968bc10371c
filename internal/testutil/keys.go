package testutil

import (
	"fmt"
	"sync"
)

// SequentialKeys generates predictable idempotency keys: prefix-1,
// prefix-2, and so on.
//
// Thread-safety: Next is safe for concurrent use.
type SequentialKeys struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialKeys creates a generator. An empty prefix becomes "test-key".
func NewSequentialKeys(prefix string) *SequentialKeys {
	if prefix == "" {
		prefix = "test-key"
	}
	return &SequentialKeys{prefix: prefix}
}

// Next returns the next key. It never fails; the error result matches the
// checkout key generator signature.
func (k *SequentialKeys) Next() (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.n++
	return fmt.Sprintf("%s-%d", k.prefix, k.n), nil
}

// Issued returns how many keys have been generated.
func (k *SequentialKeys) Issued() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.n
}
