package srcbatch

import (
	"testing"

	"github.com/bmizerany/assert"
)

func TestPartition_Scenario(t *testing.T) {
	ranges, err := Partition(1200, 500)
	assert.Equal(t, nil, err)
	assert.Equal(t, []IndexRange{{0, 500}, {500, 1000}, {1000, 1200}}, ranges)
}

func TestPartition_Empty(t *testing.T) {
	ranges, err := Partition(0, 500)
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, len(ranges))
}

func TestPartition_InvalidChunkSize(t *testing.T) {
	for _, n := range []int{0, 1, 1200} {
		for _, chunkSize := range []int{0, -1, -500} {
			ranges, err := Partition(n, chunkSize)
			assert.Equal(t, 0, len(ranges))
			assert.NotEqual(t, nil, err)
			assert.Equal(t, ErrCodeInvalidArgument, err.Code())
		}
	}
	_, err := Partition(-1, 10)
	assert.Equal(t, ErrCodeInvalidArgument, err.Code())
}

func TestPartition_CoversCatalog(t *testing.T) {
	for n := 0; n <= 60; n++ {
		for chunkSize := 1; chunkSize <= 13; chunkSize++ {
			ranges, err := Partition(n, chunkSize)
			assert.Equal(t, nil, err)
			assert.Equal(t, (n+chunkSize-1)/chunkSize, len(ranges))
			next := 0
			for _, r := range ranges {
				assert.Equal(t, next, r.Min)
				assert.T(t, r.Len() >= 1 && r.Len() <= chunkSize, r)
				next = r.Max
			}
			assert.Equal(t, n, next)
		}
	}
}

func TestIndexRange(t *testing.T) {
	r := IndexRange{Min: 500, Max: 500}
	assert.Equal(t, 0, r.Len())
	assert.T(t, !r.Contains(500))
	r = IndexRange{Min: 1000, Max: 1200}
	assert.Equal(t, 200, r.Len())
	assert.T(t, r.Contains(1000))
	assert.T(t, !r.Contains(1200))
	assert.Equal(t, "[1000,1200)", r.String())
}
