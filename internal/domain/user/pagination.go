package user

import "math"

// Pagination describes one page of a filtered, sorted result set.
// From and To are 1-based inclusive positions; From is 0 when Total is 0.
type Pagination struct {
	Total int64 // Number of records after filtering, before paging
	From  int64 // Position of the first record on the page
	To    int64 // Position of the last record on the page
	Start int64 // Slice start offset into the filtered records
	End   int64 // Slice end offset (exclusive), clamped to Total
}

// NewPagination computes the page window for page (1-based) of size perPage
// over total records. Both page and perPage must be >= 1.
func NewPagination(total, page, perPage int64) *Pagination {
	start := saturatingMul(page-1, perPage)
	end := start + perPage
	if end < start {
		end = math.MaxInt64
	}

	p := &Pagination{
		Total: total,
		To:    min(end, total),
		Start: min(start, total),
		End:   min(end, total),
	}
	if total > 0 {
		p.From = start + 1
	}
	return p
}

func saturatingMul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > (math.MaxInt64-1)/b {
		return math.MaxInt64 - 1
	}
	return a * b
}
