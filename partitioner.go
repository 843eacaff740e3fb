package srcbatch

import (
	"fmt"
)

// IndexRange half-open interval [Min, Max) of catalog indices
type IndexRange struct {
	Min int `json:"srcmin"`
	Max int `json:"srcmax"`
}

// Len number of indices in the range
func (r IndexRange) Len() int {
	if r.Max <= r.Min {
		return 0
	}
	return r.Max - r.Min
}

// Contains reports whether i lies inside the range
func (r IndexRange) Contains(i int) bool {
	return i >= r.Min && i < r.Max
}

func (r IndexRange) String() string {
	return fmt.Sprintf("[%d,%d)", r.Min, r.Max)
}

// Partition splits n ordered entities into ceil(n/chunkSize) contiguous ranges.
// Range i is [i*chunkSize, min((i+1)*chunkSize, n)); an empty catalog yields no ranges.
func Partition(n int, chunkSize int) ([]IndexRange, BatchError) {
	if chunkSize <= 0 {
		return nil, NewBatchError(ErrCodeInvalidArgument, "chunk size must be positive, chunkSize:%v", chunkSize)
	}
	if n < 0 {
		return nil, NewBatchError(ErrCodeInvalidArgument, "entity count must not be negative, n:%v", n)
	}
	ranges := make([]IndexRange, 0, (n+chunkSize-1)/chunkSize)
	for start, end := 0, chunkSize; start < n; start, end = end, end+chunkSize {
		if end > n {
			end = n
		}
		ranges = append(ranges, IndexRange{Min: start, Max: end})
	}
	return ranges, nil
}
