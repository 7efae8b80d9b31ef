package engine

import lru "github.com/hashicorp/golang-lru/v2"

// DefaultCacheSize bounds the decode cache: documents are immutable once
// written (§3 invariant 1), so a file position is a permanently valid
// cache key and needs no invalidation on update/destroy, which only ever
// rewrite the single status byte at the start of an older record.
const DefaultCacheSize = 4096

func newDecodeCache(size int) (*lru.Cache[int64, cachedDoc], error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return lru.New[int64, cachedDoc](size)
}
