package baseline

import (
	"github.com/google/btree"
)

// BTreeIndex is the comparison baseline: the same lower-bound
// contract as the learned index, answered by a classic B-tree. Keys
// are bulk-loaded from the sorted array; duplicates keep the rank of
// their first occurrence.
type BTreeIndex struct {
	tree *btree.BTreeG[entry]
	n    int
}

type entry struct {
	Key  float64
	Rank int
}

func entryLess(a, b entry) bool {
	return a.Key < b.Key
}

// NewBTreeIndex bulk-loads an ascending key slice.
func NewBTreeIndex(sorted []float64, degree int) *BTreeIndex {
	if degree < 2 {
		degree = 64
	}
	bt := &BTreeIndex{
		tree: btree.NewG(degree, entryLess),
		n:    len(sorted),
	}
	for i, k := range sorted {
		if i > 0 && sorted[i-1] == k {
			continue
		}
		bt.tree.ReplaceOrInsert(entry{Key: k, Rank: i})
	}
	return bt
}

// LowerBound returns the rank of the first key >= key, or Len() if
// there is none.
func (bt *BTreeIndex) LowerBound(key float64) int {
	rank := bt.n
	bt.tree.AscendGreaterOrEqual(entry{Key: key}, func(e entry) bool {
		rank = e.Rank
		return false
	})
	return rank
}

func (bt *BTreeIndex) Len() int {
	return bt.n
}

// SizeBytes approximates the memory held by the tree entries.
func (bt *BTreeIndex) SizeBytes() int {
	return bt.tree.Len() * 16
}
