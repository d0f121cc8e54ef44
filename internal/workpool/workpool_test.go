package workpool

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForVisitsEveryIndexOnce(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 16} {
		hits := make([]int32, 100)
		For(len(hits), workers, func(i int) {
			atomic.AddInt32(&hits[i], 1)
		})
		for i, h := range hits {
			assert.Equal(t, int32(1), h, "workers=%d index %d", workers, i)
		}
	}
}

func TestForEmpty(t *testing.T) {
	called := false
	For(0, 4, func(int) { called = true })
	assert.False(t, called)
}

func TestChunksCoverRange(t *testing.T) {
	var total atomic.Int64
	seen := make([]int32, 10)
	Chunks(len(seen), 3, 4, func(lo, hi int) {
		assert.LessOrEqual(t, hi-lo, 3)
		for i := lo; i < hi; i++ {
			atomic.AddInt32(&seen[i], 1)
		}
		total.Add(int64(hi - lo))
	})
	assert.Equal(t, int64(10), total.Load())
	for i, s := range seen {
		assert.Equal(t, int32(1), s, "index %d", i)
	}
}

func TestWorkers(t *testing.T) {
	assert.Equal(t, 5, Workers(5))
	assert.Positive(t, Workers(0))
}
