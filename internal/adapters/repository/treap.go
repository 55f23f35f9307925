package repository

import "math/rand/v2"

// Treap-backed ranked set.
//
// Ordering: score DESC, then member DESC, matching ZREVRANGE. "less" means
// ranks earlier, so in-order traversal yields the leaderboard from best to
// worst. Subtree sizes make rank lookups and rank windows O(log n).

type node struct {
	id    string
	score float64
	prio  uint64
	left  *node
	right *node
	size  int64
}

func nsize(n *node) int64 {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aID) ranks before (bScore, bID).
func less(aScore float64, aID string, bScore float64, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID > bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, score float64) *node {
	if n == nil {
		return &node{id: id, score: score, prio: rand.Uint64(), size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, score float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	case less(score, id, n.score, n.id):
		n.left = deleteNode(n.left, id, score)
	default:
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

// rankOf counts the members ranked before (score, id). The member must exist.
func rankOf(n *node, id string, score float64) int64 {
	var rank int64
	for n != nil {
		switch {
		case score == n.score && id == n.id:
			return rank + nsize(n.left)
		case less(score, id, n.score, n.id):
			n = n.left
		default:
			rank += nsize(n.left) + 1
			n = n.right
		}
	}
	return rank
}

// collectRange appends members with ranks in [start, stop]; offset is the
// rank of the leftmost member of n.
func collectRange(n *node, offset, start, stop int64, out *[]Member) {
	if n == nil || offset > stop {
		return
	}
	pos := offset + nsize(n.left)
	if start < pos {
		collectRange(n.left, offset, start, stop, out)
	}
	if pos >= start && pos <= stop {
		*out = append(*out, Member{ID: n.id, Score: n.score})
	}
	if stop > pos {
		collectRange(n.right, pos+1, start, stop, out)
	}
}

// sortedSet pairs the treap with a member index.
type sortedSet struct {
	root   *node
	scores map[string]float64
}

func newSortedSet() *sortedSet {
	return &sortedSet{scores: make(map[string]float64)}
}

func (s *sortedSet) add(id string, score float64) {
	if old, ok := s.scores[id]; ok {
		if old == score {
			return
		}
		s.root = deleteNode(s.root, id, old)
	}
	s.scores[id] = score
	s.root = insert(s.root, id, score)
}

func (s *sortedSet) card() int64 {
	return int64(len(s.scores))
}

func (s *sortedSet) rank(id string) (int64, bool) {
	score, ok := s.scores[id]
	if !ok {
		return 0, false
	}
	return rankOf(s.root, id, score), true
}

func (s *sortedSet) window(start, stop int64) []Member {
	start, stop, ok := normalizeRange(start, stop, s.card())
	if !ok {
		return []Member{}
	}
	out := make([]Member, 0, stop-start+1)
	collectRange(s.root, 0, start, stop, &out)
	return out
}
