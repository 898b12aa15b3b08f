package queue

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxHeapOrdering(t *testing.T) {
	h := NewMax(8)

	h.PushItem(Item{Key: 1, Distance: 3})
	h.PushItem(Item{Key: 2, Distance: 1})
	h.PushItem(Item{Key: 3, Distance: 2})

	top, ok := h.TopItem()
	require.True(t, ok)
	assert.Equal(t, uint64(1), top.Key)

	var got []float32
	for h.Len() > 0 {
		item, ok := h.PopItem()
		require.True(t, ok)
		got = append(got, item.Distance)
	}
	assert.Equal(t, []float32{3, 2, 1}, got)
}

func TestMaxHeapEmpty(t *testing.T) {
	h := NewMax(4)

	_, ok := h.TopItem()
	assert.False(t, ok)

	_, ok = h.PopItem()
	assert.False(t, ok)
	assert.Equal(t, 0, h.Len())
}

func TestMaxHeapReset(t *testing.T) {
	h := NewMax(4)
	h.PushItem(Item{Key: 1, Distance: 1})
	h.Reset()
	assert.Equal(t, 0, h.Len())
}

// TestMaxHeapTieBrokenBySlot verifies that equidistant items drain in
// reverse scan order, so the reversed result preserves scan order.
func TestMaxHeapTieBrokenBySlot(t *testing.T) {
	h := NewMax(4)
	h.PushItem(Item{Key: 1, Distance: 1, Slot: 0})
	h.PushItem(Item{Key: 2, Distance: 1, Slot: 1})
	h.PushItem(Item{Key: 3, Distance: 1, Slot: 2})

	var keys []uint64
	for h.Len() > 0 {
		item, _ := h.PopItem()
		keys = append(keys, item.Key)
	}
	assert.Equal(t, []uint64{3, 2, 1}, keys)
}

// TestMaxHeapTopN exercises the bounded top-N discipline the search loop
// uses: push while under capacity, otherwise replace the current worst.
func TestMaxHeapTopN(t *testing.T) {
	const n = 10
	rng := rand.New(rand.NewSource(7))

	dists := make([]float32, 200)
	h := NewMax(n)
	for i := range dists {
		dists[i] = rng.Float32()
		item := Item{Key: uint64(i), Distance: dists[i]}
		if h.Len() < n {
			h.PushItem(item)
		} else if top, _ := h.TopItem(); item.Distance < top.Distance {
			h.PopItem()
			h.PushItem(item)
		}
	}

	sort.Slice(dists, func(i, j int) bool { return dists[i] < dists[j] })

	got := make([]float32, 0, n)
	for h.Len() > 0 {
		item, _ := h.PopItem()
		got = append(got, item.Distance)
	}
	// Drained largest-first; reversed it is the N smallest ascending.
	for i, j := 0, len(got)-1; i < j; i, j = i+1, j-1 {
		got[i], got[j] = got[j], got[i]
	}

	assert.Equal(t, dists[:n], got)
}
