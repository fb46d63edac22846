package memory

import (
	"math/rand/v2"
	"strings"

	"github.com/okian/scoreboard/internal/domain/model"
)

// Treap-ordered index of one game type's entries.
//
// Ordering: high score DESC, then player name ASC. "less" means ranks earlier,
// so an in-order traversal yields the board from best to worst.

type node struct {
	name  string
	score int64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
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

// less reports whether (aScore, aName) ranks before (bScore, bName).
func less(aScore int64, aName string, bScore int64, bName string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return strings.Compare(aName, bName) < 0
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, name string, score int64) *node {
	if n == nil {
		return &node{name: name, score: score, prio: rand.Uint64(), size: 1}
	}
	if less(score, name, n.score, n.name) {
		n.left = insert(n.left, name, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, name, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, name string, score int64) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && name == n.name:
		// Rotate the higher-priority child up until the target is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, name, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, name, score)
		}
	case less(score, name, n.score, n.name):
		n.left = deleteNode(n.left, name, score)
	default:
		n.right = deleteNode(n.right, name, score)
	}
	fix(n)
	return n
}

// collect appends the entries under n in rank order.
func collect(n *node, gameType string, entries map[model.Key]model.LeaderboardEntry, out *[]model.LeaderboardEntry) {
	if n == nil {
		return
	}
	collect(n.left, gameType, entries, out)
	if e, ok := entries[model.Key{PlayerName: n.name, GameType: gameType}]; ok {
		*out = append(*out, e)
	}
	collect(n.right, gameType, entries, out)
}

// board is the ranked index for one game type.
type board struct {
	root *node
}

// move re-positions name after its high score changed from old to score.
// found is false for a name not yet indexed.
func (b *board) move(name string, old int64, found bool, score int64) {
	if found {
		if old == score {
			return
		}
		b.root = deleteNode(b.root, name, old)
	}
	b.root = insert(b.root, name, score)
}

func (b *board) len() int {
	return nsize(b.root)
}
