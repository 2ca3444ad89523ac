// Package rideindex keeps active rides ordered by ride number in a
// red-black tree.
//
// Nodes live in a single arena slice and refer to each other by slot index.
// Slot 0 is the black sentinel that stands in for every nil child and for
// the root's parent, so rotations and fixups never branch on nil. Freed
// slots are recycled through a free list and Reset drops the whole arena at
// once.
//
// The tree is not safe for concurrent use; the registry serializes access.
package rideindex

import "github.com/example/gator-taxi/internal/models"

type color uint8

const (
	red color = iota
	black
)

// sentinel is the arena slot shared by all leaves.
const sentinel = 0

type node struct {
	ride   models.Ride
	color  color
	left   int
	right  int
	parent int
}

type Tree struct {
	nodes []node
	free  []int
	root  int
	size  int
}

// New returns an empty tree.
func New() *Tree {
	t := &Tree{}
	t.Reset()
	return t
}

// Reset discards every ride and releases the arena.
func (t *Tree) Reset() {
	t.nodes = make([]node, 1, 64)
	t.nodes[sentinel] = node{color: black}
	t.free = nil
	t.root = sentinel
	t.size = 0
}

func (t *Tree) Len() int { return t.size }

// Get returns the ride stored under rideNumber.
func (t *Tree) Get(rideNumber int) (models.Ride, bool) {
	n := t.search(rideNumber)
	if n == sentinel {
		return models.Ride{}, false
	}
	return t.nodes[n].ride, true
}

// Insert adds ride at the position given by its ride number. It reports
// false and leaves the tree untouched when the number is already present;
// callers are expected to check first.
func (t *Tree) Insert(ride models.Ride) bool {
	y := sentinel
	x := t.root
	for x != sentinel {
		y = x
		switch key := t.nodes[x].ride.RideNumber; {
		case ride.RideNumber < key:
			x = t.nodes[x].left
		case ride.RideNumber > key:
			x = t.nodes[x].right
		default:
			return false
		}
	}

	z := t.alloc(node{
		ride:   ride,
		color:  red,
		left:   sentinel,
		right:  sentinel,
		parent: y,
	})
	switch {
	case y == sentinel:
		t.root = z
	case ride.RideNumber < t.nodes[y].ride.RideNumber:
		t.nodes[y].left = z
	default:
		t.nodes[y].right = z
	}
	t.insertFixup(z)
	t.size++
	return true
}

// Replace overwrites the cost and duration of an existing ride in place.
func (t *Tree) Replace(ride models.Ride) bool {
	n := t.search(ride.RideNumber)
	if n == sentinel {
		return false
	}
	t.nodes[n].ride = ride
	return true
}

// Delete removes the ride stored under rideNumber and returns it.
//
// A node with two children keeps its slot: the in-order successor's ride is
// moved into it and the successor, which has at most one child, is the node
// physically spliced out.
func (t *Tree) Delete(rideNumber int) (models.Ride, bool) {
	z := t.search(rideNumber)
	if z == sentinel {
		return models.Ride{}, false
	}
	removed := t.nodes[z].ride

	y := z
	if t.nodes[z].left != sentinel && t.nodes[z].right != sentinel {
		y = t.minimum(t.nodes[z].right)
		t.nodes[z].ride = t.nodes[y].ride
	}

	x := t.nodes[y].left
	if x == sentinel {
		x = t.nodes[y].right
	}
	t.transplant(y, x)
	if t.nodes[y].color == black {
		t.deleteFixup(x)
	}
	t.nodes[sentinel].parent = sentinel
	t.release(y)
	t.size--
	return removed, true
}

// Range calls fn for every ride numbered in [lo, hi] in ascending order,
// skipping subtrees that lie wholly outside the interval. It stops early
// when fn returns false and reports whether any ride matched.
func (t *Tree) Range(lo, hi int, fn func(models.Ride) bool) bool {
	found := false
	stack := make([]int, 0, 32)
	cur := t.root
	for cur != sentinel || len(stack) > 0 {
		for cur != sentinel {
			n := &t.nodes[cur]
			if n.ride.RideNumber < lo {
				cur = n.right
				continue
			}
			stack = append(stack, cur)
			cur = n.left
		}
		if len(stack) == 0 {
			// every remaining node lies below lo
			return found
		}
		cur = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[cur]
		if n.ride.RideNumber > hi {
			return found
		}
		found = true
		if !fn(n.ride) {
			return found
		}
		cur = n.right
	}
	return found
}

// Ascend calls fn for every ride in ascending ride-number order until fn
// returns false.
func (t *Tree) Ascend(fn func(models.Ride) bool) {
	for n := t.minimum(t.root); n != sentinel; n = t.next(n) {
		if !fn(t.nodes[n].ride) {
			return
		}
	}
}

/******************** Internal helpers ********************/

func (t *Tree) alloc(n node) int {
	if k := len(t.free); k > 0 {
		i := t.free[k-1]
		t.free = t.free[:k-1]
		t.nodes[i] = n
		return i
	}
	t.nodes = append(t.nodes, n)
	return len(t.nodes) - 1
}

func (t *Tree) release(i int) {
	t.nodes[i] = node{}
	t.free = append(t.free, i)
}

func (t *Tree) search(rideNumber int) int {
	n := t.root
	for n != sentinel {
		switch key := t.nodes[n].ride.RideNumber; {
		case rideNumber < key:
			n = t.nodes[n].left
		case rideNumber > key:
			n = t.nodes[n].right
		default:
			return n
		}
	}
	return sentinel
}

func (t *Tree) minimum(n int) int {
	if n == sentinel {
		return sentinel
	}
	for t.nodes[n].left != sentinel {
		n = t.nodes[n].left
	}
	return n
}

func (t *Tree) next(n int) int {
	if r := t.nodes[n].right; r != sentinel {
		return t.minimum(r)
	}
	p := t.nodes[n].parent
	for p != sentinel && n == t.nodes[p].right {
		n = p
		p = t.nodes[p].parent
	}
	return p
}

func (t *Tree) leftRotate(x int) {
	y := t.nodes[x].right
	t.nodes[x].right = t.nodes[y].left
	if l := t.nodes[y].left; l != sentinel {
		t.nodes[l].parent = x
	}
	p := t.nodes[x].parent
	t.nodes[y].parent = p
	switch {
	case p == sentinel:
		t.root = y
	case x == t.nodes[p].left:
		t.nodes[p].left = y
	default:
		t.nodes[p].right = y
	}
	t.nodes[y].left = x
	t.nodes[x].parent = y
}

func (t *Tree) rightRotate(y int) {
	x := t.nodes[y].left
	t.nodes[y].left = t.nodes[x].right
	if r := t.nodes[x].right; r != sentinel {
		t.nodes[r].parent = y
	}
	p := t.nodes[y].parent
	t.nodes[x].parent = p
	switch {
	case p == sentinel:
		t.root = x
	case y == t.nodes[p].right:
		t.nodes[p].right = x
	default:
		t.nodes[p].left = x
	}
	t.nodes[x].right = y
	t.nodes[y].parent = x
}

func (t *Tree) insertFixup(z int) {
	for t.nodes[t.nodes[z].parent].color == red {
		p := t.nodes[z].parent
		g := t.nodes[p].parent
		if p == t.nodes[g].left {
			u := t.nodes[g].right
			if t.nodes[u].color == red {
				t.nodes[p].color = black
				t.nodes[u].color = black
				t.nodes[g].color = red
				z = g
				continue
			}
			if z == t.nodes[p].right {
				z = p
				t.leftRotate(z)
				p = t.nodes[z].parent
			}
			t.nodes[p].color = black
			t.nodes[g].color = red
			t.rightRotate(g)
		} else {
			u := t.nodes[g].left
			if t.nodes[u].color == red {
				t.nodes[p].color = black
				t.nodes[u].color = black
				t.nodes[g].color = red
				z = g
				continue
			}
			if z == t.nodes[p].left {
				z = p
				t.rightRotate(z)
				p = t.nodes[z].parent
			}
			t.nodes[p].color = black
			t.nodes[g].color = red
			t.leftRotate(g)
		}
	}
	t.nodes[t.root].color = black
}

// transplant hangs v where u used to be. v may be the sentinel, whose parent
// is then set so deleteFixup can climb from it.
func (t *Tree) transplant(u, v int) {
	p := t.nodes[u].parent
	switch {
	case p == sentinel:
		t.root = v
	case u == t.nodes[p].left:
		t.nodes[p].left = v
	default:
		t.nodes[p].right = v
	}
	t.nodes[v].parent = p
}

func (t *Tree) deleteFixup(x int) {
	for x != t.root && t.nodes[x].color == black {
		p := t.nodes[x].parent
		if x == t.nodes[p].left {
			w := t.nodes[p].right
			if t.nodes[w].color == red {
				t.nodes[w].color = black
				t.nodes[p].color = red
				t.leftRotate(p)
				w = t.nodes[p].right
			}
			if t.nodes[t.nodes[w].left].color == black && t.nodes[t.nodes[w].right].color == black {
				t.nodes[w].color = red
				x = p
				continue
			}
			if t.nodes[t.nodes[w].right].color == black {
				t.nodes[t.nodes[w].left].color = black
				t.nodes[w].color = red
				t.rightRotate(w)
				w = t.nodes[p].right
			}
			t.nodes[w].color = t.nodes[p].color
			t.nodes[p].color = black
			t.nodes[t.nodes[w].right].color = black
			t.leftRotate(p)
			x = t.root
		} else {
			w := t.nodes[p].left
			if t.nodes[w].color == red {
				t.nodes[w].color = black
				t.nodes[p].color = red
				t.rightRotate(p)
				w = t.nodes[p].left
			}
			if t.nodes[t.nodes[w].right].color == black && t.nodes[t.nodes[w].left].color == black {
				t.nodes[w].color = red
				x = p
				continue
			}
			if t.nodes[t.nodes[w].left].color == black {
				t.nodes[t.nodes[w].right].color = black
				t.nodes[w].color = red
				t.leftRotate(w)
				w = t.nodes[p].left
			}
			t.nodes[w].color = t.nodes[p].color
			t.nodes[p].color = black
			t.nodes[t.nodes[w].left].color = black
			t.rightRotate(p)
			x = t.root
		}
	}
	t.nodes[x].color = black
}
