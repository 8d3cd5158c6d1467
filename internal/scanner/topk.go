package scanner

import (
	"cmp"
	"iter"

	"github.com/google/btree"
)

// Ranked is an item together with its ranking key
type Ranked[K cmp.Ordered, T any] struct {
	Key  K
	Item T
	seq  uint64
}

// TopK keeps the n items with the largest keys seen so far, in O(n) memory.
// Equal keys rank in encounter order, so the first one seen wins a tie.
type TopK[K cmp.Ordered, T any] struct {
	n    int
	seen uint64
	less btree.LessFunc[Ranked[K, T]]
	tree *btree.BTreeG[Ranked[K, T]]
}

// NewTopK returns an empty selection of at most n items
func NewTopK[K cmp.Ordered, T any](n int) *TopK[K, T] {
	less := func(a, b Ranked[K, T]) bool {
		if c := cmp.Compare(a.Key, b.Key); c != 0 {
			return c > 0
		}
		return a.seq < b.seq
	}
	return &TopK[K, T]{
		n:    n,
		less: less,
		tree: btree.NewG(32, less),
	}
}

// Offer considers item; it reports whether the item is currently retained
func (t *TopK[K, T]) Offer(key K, item T) bool {
	t.seen++
	if t.n <= 0 {
		return false
	}

	r := Ranked[K, T]{Key: key, Item: item, seq: t.seen}
	if t.tree.Len() < t.n {
		t.tree.ReplaceOrInsert(r)
		return true
	}

	worst, _ := t.tree.Max()
	if !t.less(r, worst) {
		return false
	}
	t.tree.ReplaceOrInsert(r)
	t.tree.DeleteMax()
	return true
}

// Len returns the number of retained items
func (t *TopK[K, T]) Len() int {
	return t.tree.Len()
}

// Seen returns how many items were offered
func (t *TopK[K, T]) Seen() uint64 {
	return t.seen
}

// Ranked returns the retained items, largest key first
func (t *TopK[K, T]) Ranked() []Ranked[K, T] {
	out := make([]Ranked[K, T], 0, t.tree.Len())
	t.tree.Ascend(func(r Ranked[K, T]) bool {
		out = append(out, r)
		return true
	})
	return out
}

// Items returns the retained items, largest key first
func (t *TopK[K, T]) Items() []T {
	out := make([]T, 0, t.tree.Len())
	t.tree.Ascend(func(r Ranked[K, T]) bool {
		out = append(out, r.Item)
		return true
	})
	return out
}

// Largest returns the n biggest files of seq, biggest first
func Largest(seq iter.Seq[FileEntry], n int) []FileEntry {
	top := NewTopK[uint64, FileEntry](n)
	for e := range seq {
		top.Offer(e.Size, e)
	}
	return top.Items()
}
