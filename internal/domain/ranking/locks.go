package ranking

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// keyLocks serializes read-modify-write cycles on the same aggregate key
// within this process. Distinct keys may share a stripe. A nil table locks
// nothing.
type keyLocks struct {
	stripes []sync.Mutex
}

func newKeyLocks(n int) *keyLocks {
	if n <= 0 {
		return nil
	}
	return &keyLocks{stripes: make([]sync.Mutex, n)}
}

func (l *keyLocks) lock(key string) (unlock func()) {
	if l == nil {
		return func() {}
	}
	m := &l.stripes[xxhash.Sum64String(key)%uint64(len(l.stripes))]
	m.Lock()
	return m.Unlock
}
