package skiplist

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func intCompare(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func newTestList(seed int64) *SkipList[int, string] {
	return New[int, string](intCompare, true, rand.New(rand.NewSource(seed)))
}

func TestInsertGetAndLen(t *testing.T) {
	s := newTestList(1)
	s.Insert(5, "five")
	s.Insert(1, "one")
	s.Insert(10, "ten")

	require.Equal(t, 3, s.Len())

	v, ok := s.Get(5)
	require.True(t, ok)
	require.Equal(t, "five", v)

	_, ok = s.Get(7)
	require.False(t, ok)
}

func TestInsertOverridesExistingValue(t *testing.T) {
	s := newTestList(1)
	s.Insert(1, "one")
	s.Insert(1, "uno")

	require.Equal(t, 1, s.Len())
	v, ok := s.Get(1)
	require.True(t, ok)
	require.Equal(t, "uno", v)
}

func TestGetAtOrdersByComparator(t *testing.T) {
	s := newTestList(42)
	values := []int{5, 3, 9, 1, 7, 2, 8, 4, 6, 0}
	for _, v := range values {
		s.Insert(v, "")
	}

	sorted := append([]int(nil), values...)
	sort.Ints(sorted)

	for i, want := range sorted {
		key, _, ok := s.GetAt(i)
		require.Truef(t, ok, "GetAt(%d) not ok", i)
		require.Equalf(t, want, key, "GetAt(%d)", i)
	}

	_, _, ok := s.GetAt(-1)
	require.False(t, ok)
	_, _, ok = s.GetAt(len(sorted))
	require.False(t, ok)
}

func TestDeleteRemovesEntryAndShrinksLen(t *testing.T) {
	s := newTestList(7)
	for i := 0; i < 20; i++ {
		s.Insert(i, "")
	}

	require.True(t, s.Delete(10))
	require.False(t, s.Delete(10))
	require.Equal(t, 19, s.Len())
	_, ok := s.Get(10)
	require.False(t, ok)

	for i := 0; i < 19; i++ {
		_, _, ok := s.GetAt(i)
		require.True(t, ok)
	}
}

func TestRangeYieldsAscendingOrder(t *testing.T) {
	s := newTestList(3)
	for _, v := range []int{4, 2, 8, 1, 9} {
		s.Insert(v, "")
	}

	var got []int
	s.Range(func(k int, _ string) bool {
		got = append(got, k)
		return true
	})

	require.Equal(t, []int{1, 2, 4, 8, 9}, got)
}

// TestSkipListInvariants asserts that the length and width invariants
// (SPEC_FULL.md §8 properties 5 and 7) and ascending order survive an
// interleaved sequence of random inserts and deletes.
func TestSkipListInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	s := newTestList(99)
	present := map[int]bool{}

	for i := 0; i < 2000; i++ {
		key := rng.Intn(300)
		if rng.Intn(3) == 0 && present[key] {
			s.Delete(key)
			delete(present, key)
		} else {
			s.Insert(key, "")
			present[key] = true
		}

		assertWidthInvariant(t, s)
	}

	require.Equal(t, len(present), s.Len())

	var got []int
	s.Range(func(k int, _ string) bool {
		got = append(got, k)
		return true
	})
	require.True(t, sort.IntsAreSorted(got))
	require.Equal(t, len(present), len(got))
}

// assertWidthInvariant walks the base level counting nodes and checks that
// the list's reported length matches, and that level-0 width is always 1 or
// 0 (0 only at a tail link whose forward pointer is nil).
func assertWidthInvariant(t *testing.T, s *SkipList[int, string]) {
	t.Helper()

	count := 0
	for x := s.head.forward[0]; x != nil; x = x.forward[0] {
		count++
		if x.forward[0] != nil && x.width[0] != 1 {
			t.Fatalf("level-0 width of a node with a successor must be 1, got %d", x.width[0])
		}
	}
	require.Equal(t, s.Len(), count)

	for level := 1; level < s.height; level++ {
		sumWidthsBelow(t, s, level)
	}
}

// sumWidthsBelow checks property 7: for every node's level-L forward link,
// its width equals the sum of the level-(L-1) widths of that node and of
// every level-(L-1) node strictly between it and its level-L successor.
func sumWidthsBelow(t *testing.T, s *SkipList[int, string], level int) {
	t.Helper()

	prev := s.head
	for x := prev.forward[level]; x != nil; x = x.forward[level] {
		sum := 0
		for n := prev; n != x; n = n.forward[level-1] {
			if n == nil {
				t.Fatalf("level-%d walk fell off the base before reaching the level-%d target", level-1, level)
			}
			sum += n.width[level-1]
		}
		if prev.width[level] != sum {
			t.Fatalf("level-%d width = %d, want %d", level, prev.width[level], sum)
		}
		prev = x
	}
}
