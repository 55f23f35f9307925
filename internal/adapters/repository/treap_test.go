package repository

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"testing"
)

func TestNormalizeRange(t *testing.T) {
	cases := []struct {
		start, stop, n int64
		wantStart      int64
		wantStop       int64
		ok             bool
	}{
		{0, -1, 5, 0, 4, true},
		{1, 3, 5, 1, 3, true},
		{-2, -1, 5, 3, 4, true},
		{-10, 2, 5, 0, 2, true},
		{3, 100, 5, 3, 4, true},
		{5, 10, 5, 0, 0, false},
		{3, 1, 5, 0, 0, false},
		{0, -1, 0, 0, 0, false},
		{0, -6, 5, 0, 0, false},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%d..%d of %d", c.start, c.stop, c.n), func(t *testing.T) {
			s, e, ok := normalizeRange(c.start, c.stop, c.n)
			if ok != c.ok {
				t.Fatalf("ok = %v, want %v", ok, c.ok)
			}
			if ok && (s != c.wantStart || e != c.wantStop) {
				t.Errorf("got [%d,%d], want [%d,%d]", s, e, c.wantStart, c.wantStop)
			}
		})
	}
}

func TestSortedSetMatchesReferenceOrder(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	set := newSortedSet()
	ref := make(map[string]float64)

	for range 2000 {
		id := fmt.Sprintf("m%d", rng.IntN(300))
		score := float64(rng.IntN(50))
		set.add(id, score)
		ref[id] = score
	}

	want := make([]Member, 0, len(ref))
	for id, score := range ref {
		want = append(want, Member{ID: id, Score: score})
	}
	sort.Slice(want, func(i, j int) bool {
		return less(want[i].Score, want[i].ID, want[j].Score, want[j].ID)
	})

	if set.card() != int64(len(want)) {
		t.Fatalf("card = %d, want %d", set.card(), len(want))
	}
	got := set.window(0, -1)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got %+v, want %+v", i, got[i], want[i])
		}
		r, ok := set.rank(want[i].ID)
		if !ok || r != int64(i) {
			t.Fatalf("rank(%s) = %d,%v, want %d", want[i].ID, r, ok, i)
		}
	}

	mid := set.window(10, 19)
	if len(mid) != 10 || mid[0] != want[10] || mid[9] != want[19] {
		t.Errorf("window(10,19) mismatch: %+v", mid)
	}
	if nsize(set.root) != set.card() {
		t.Errorf("root size %d, card %d", nsize(set.root), set.card())
	}
}

func TestSortedSetSameScoreIsNoop(t *testing.T) {
	set := newSortedSet()
	set.add("a", 1)
	root := set.root
	set.add("a", 1)
	if set.root != root || set.card() != 1 {
		t.Fatal("re-adding an identical score changed the set")
	}
	if _, ok := set.rank("b"); ok {
		t.Fatal("rank reported a missing member")
	}
}
