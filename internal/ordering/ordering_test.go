package ordering

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func TestComputeBounds(t *testing.T) {
	fixed := func() int64 { return 1_700_000_000_000 }

	tests := []struct {
		name       string
		prev, next *int64
		want       int64
	}{
		{name: "empty group", want: 1_700_000_000_000},
		{name: "before first", next: ptr(10), want: 9},
		{name: "after last", prev: ptr(10), want: 11},
		{name: "midpoint", prev: ptr(10), next: ptr(20), want: 15},
		{name: "midpoint floors", prev: ptr(10), next: ptr(13), want: 11},
		{name: "negative midpoint floors", prev: ptr(-3), next: ptr(0), want: -2},
		{name: "adjacent collides", prev: ptr(10), next: ptr(11), want: 11},
		{name: "equal neighbours", prev: ptr(5), next: ptr(5), want: 6},
		{name: "inverted neighbours", prev: ptr(9), next: ptr(3), want: 10},
		{name: "full range midpoint", prev: ptr(math.MinInt64), next: ptr(math.MaxInt64), want: -1},
		{name: "wide negative midpoint", prev: ptr(math.MinInt64), next: ptr(0), want: math.MinInt64 / 2},
		{name: "wide positive midpoint", prev: ptr(0), next: ptr(math.MaxInt64), want: math.MaxInt64 / 2},
		{name: "after max saturates", prev: ptr(math.MaxInt64), want: math.MaxInt64},
		{name: "before min saturates", next: ptr(math.MinInt64), want: math.MinInt64},
		{name: "max neighbours saturate", prev: ptr(math.MaxInt64), next: ptr(math.MaxInt64), want: math.MaxInt64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeAt(tt.prev, tt.next, fixed))
		})
	}
}

func TestComputeStaysInsideGap(t *testing.T) {
	for p := int64(-50); p < 50; p++ {
		for n := p + 2; n < p+40; n++ {
			got := Compute(ptr(p), ptr(n))
			require.Greater(t, got, p)
			require.Less(t, got, n)
		}
	}
}

func TestComputeStaysInsideGapNearLimits(t *testing.T) {
	bounds := [][2]int64{
		{math.MinInt64, math.MaxInt64},
		{math.MinInt64, math.MinInt64 + 2},
		{math.MaxInt64 - 2, math.MaxInt64},
		{math.MinInt64 + 1, math.MaxInt64 - 1},
		{-1, math.MaxInt64},
		{math.MinInt64, 1},
	}
	for _, b := range bounds {
		got := Compute(ptr(b[0]), ptr(b[1]))
		require.Greater(t, got, b[0], "prev %d next %d", b[0], b[1])
		require.Less(t, got, b[1], "prev %d next %d", b[0], b[1])
	}
}

func TestFreshIsStrictlyIncreasing(t *testing.T) {
	prev := Fresh()
	for i := 0; i < 10_000; i++ {
		next := Fresh()
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestComputeBothNilUsesFresh(t *testing.T) {
	a := Compute(nil, nil)
	b := Compute(nil, nil)
	assert.Greater(t, b, a)
}

func TestRenumber(t *testing.T) {
	got := Renumber([]string{"p1", "p3", "p2"})
	assert.Equal(t, map[string]int64{"p1": 0, "p3": 1, "p2": 2}, got)
}
