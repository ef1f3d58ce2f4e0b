package retrieval

import (
	"container/heap"
	"math"
	"sort"
)

// CosineDistance returns 1 - cos(a, b), clamped to [0, 2].
// Mismatched or zero-length vectors are maximally distant.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}
	var dot, aNormSq, bNormSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		aNormSq += float64(a[i]) * float64(a[i])
		bNormSq += float64(b[i]) * float64(b[i])
	}
	if aNormSq == 0 || bNormSq == 0 {
		return 1
	}
	d := 1 - dot/(math.Sqrt(aNormSq)*math.Sqrt(bNormSq))
	return math.Min(2, math.Max(0, d))
}

// TopK keeps the k nearest records seen so far.
type TopK struct {
	k int
	h scoredMaxHeap
}

// NewTopK returns a collector for the k nearest records.
func NewTopK(k int) *TopK {
	return &TopK{k: k}
}

// Offer considers one candidate.
func (t *TopK) Offer(rec ScoredRecord) {
	if t.k <= 0 {
		return
	}
	if t.h.Len() < t.k {
		heap.Push(&t.h, rec)
		return
	}
	if closer(rec, t.h[0]) {
		t.h[0] = rec
		heap.Fix(&t.h, 0)
	}
}

// Results returns the collected records by ascending distance, then ordinal.
func (t *TopK) Results() []ScoredRecord {
	out := make([]ScoredRecord, len(t.h))
	copy(out, t.h)
	sort.Slice(out, func(i, j int) bool { return closer(out[i], out[j]) })
	return out
}

func closer(a, b ScoredRecord) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.Ordinal < b.Ordinal
}

// scoredMaxHeap keeps the farthest candidate at the root.
type scoredMaxHeap []ScoredRecord

func (h scoredMaxHeap) Len() int            { return len(h) }
func (h scoredMaxHeap) Less(i, j int) bool  { return closer(h[j], h[i]) }
func (h scoredMaxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *scoredMaxHeap) Push(x interface{}) { *h = append(*h, x.(ScoredRecord)) }
func (h *scoredMaxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
