// Package ordering computes sibling order keys.
//
// Keys are plain integers. Inserting between two neighbours takes the
// midpoint while a gap exists; once the gap is exhausted the key collides
// with (or overtakes) its successor and ties are resolved by title when the
// tree is built. Full renumbering after a move restores the gaps.
package ordering

import (
	"math"
	"sync/atomic"
	"time"
)

var lastFresh atomic.Int64

// Fresh returns the current time in unix milliseconds, bumped when needed so
// that successive calls in this process are strictly increasing.
func Fresh() int64 {
	now := time.Now().UnixMilli()
	for {
		last := lastFresh.Load()
		next := now
		if next <= last {
			next = last + 1
		}
		if lastFresh.CompareAndSwap(last, next) {
			return next
		}
	}
}

// Compute returns an order key that sorts between prev and next.
// Either bound may be nil.
func Compute(prev, next *int64) int64 {
	return ComputeAt(prev, next, Fresh)
}

// ComputeAt is Compute with an explicit source for the unbounded case.
// Keys saturate at the int64 limits instead of wrapping.
func ComputeAt(prev, next *int64, fresh func() int64) int64 {
	switch {
	case prev == nil && next == nil:
		return fresh()
	case prev == nil:
		if *next == math.MinInt64 {
			return *next
		}
		return *next - 1
	case next == nil:
		return after(*prev)
	}
	p, n := *prev, *next
	if p < n && after(p) < n {
		return midpoint(p, n)
	}
	return after(p)
}

func after(p int64) int64 {
	if p == math.MaxInt64 {
		return p
	}
	return p + 1
}

// midpoint is floor((p+n)/2) for any p and n without overflowing.
func midpoint(p, n int64) int64 {
	return p>>1 + n>>1 + p&n&1
}

// Renumber assigns each id its index in ids.
func Renumber(ids []string) map[string]int64 {
	out := make(map[string]int64, len(ids))
	for i, id := range ids {
		out[id] = int64(i)
	}
	return out
}
