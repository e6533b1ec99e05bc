package engine

import (
	"cmp"
	"slices"
)

// SortByRank returns a copy of items ordered by ascending rank. Items with
// equal rank keep their input order.
func SortByRank[T any](items []T, rank func(T) int) []T {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b T) int {
		return cmp.Compare(rank(a), rank(b))
	})
	return out
}

// TopN is the first n items of SortByRank. n larger than the input returns
// everything; n <= 0 returns an empty slice.
func TopN[T any](items []T, rank func(T) int, n int) []T {
	if n <= 0 {
		return []T{}
	}
	sorted := SortByRank(items, rank)
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
