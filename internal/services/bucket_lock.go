package services

import (
	"sync"

	"finledger/internal/core"
)

// bucketLocks serializes recompute+evaluate per aggregation key. Two
// concurrent recomputes of the same bucket could otherwise interleave
// and clobber each other's alert_sent flag; different buckets stay
// fully parallel.
type bucketLocks struct {
	locks sync.Map // core.BucketKey -> *sync.Mutex
}

func newBucketLocks() *bucketLocks {
	return &bucketLocks{}
}

// lock acquires the mutex for key and returns its unlock func.
func (l *bucketLocks) lock(key core.BucketKey) func() {
	v, _ := l.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// lockAll acquires multiple keys in a deterministic order so that two
// callers touching the same pair of buckets cannot deadlock.
func (l *bucketLocks) lockAll(keys []core.BucketKey) func() {
	ordered := make([]core.BucketKey, len(keys))
	copy(ordered, keys)
	sortBucketKeys(ordered)

	unlocks := make([]func(), 0, len(ordered))
	for _, key := range ordered {
		unlocks = append(unlocks, l.lock(key))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

func sortBucketKeys(keys []core.BucketKey) {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && bucketKeyLess(keys[j], keys[j-1]); j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
}

func bucketKeyLess(a, b core.BucketKey) bool {
	if a.Owner != b.Owner {
		return a.Owner < b.Owner
	}
	if a.Category != b.Category {
		return a.Category < b.Category
	}
	if a.Year != b.Year {
		return a.Year < b.Year
	}
	return a.Month < b.Month
}
