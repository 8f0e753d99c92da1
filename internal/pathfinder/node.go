package pathfinder

import (
	"cmp"

	"github.com/emirpasic/gods/queues/priorityqueue"
	"github.com/joeycumines/go-goap/internal/goap"
)

// node is one search vertex. Each node exclusively owns its state snapshot.
type node struct {
	state  *goap.WorldState
	key    string
	parent *node
	action goap.Action
	g, f   float64
	// seq is the push order, used to break ties between equal f.
	seq uint64
}

// path walks parent links back to the root and returns the actions in
// execution order.
func (n *node) path() []goap.Action {
	var depth int
	for cur := n; cur.parent != nil; cur = cur.parent {
		depth++
	}
	out := make([]goap.Action, depth)
	for cur := n; cur.parent != nil; cur = cur.parent {
		depth--
		out[depth] = cur.action
	}
	return out
}

func compareNodes(a, b any) int {
	x, y := a.(*node), b.(*node)
	if c := cmp.Compare(x.f, y.f); c != 0 {
		return c
	}
	return cmp.Compare(x.seq, y.seq)
}

// openSet is a min-priority queue of nodes with lazy deletion.
//
// The queue may hold several entries for one canonical state; best records the
// lowest g pushed for each key, and pop discards any entry that no longer
// matches it.
type openSet struct {
	queue *priorityqueue.Queue
	best  map[string]float64
	seq   uint64
}

func newOpenSet() *openSet {
	return &openSet{
		queue: priorityqueue.NewWith(compareNodes),
		best:  make(map[string]float64),
	}
}

// offer records n if it improves on the best known g for its state. It
// reports whether n was pushed.
func (o *openSet) offer(n *node) bool {
	if g, ok := o.best[n.key]; ok && g <= n.g {
		return false
	}
	o.best[n.key] = n.g
	n.seq = o.seq
	o.seq++
	o.queue.Enqueue(n)
	return true
}

// pop returns the live node with the lowest f, skipping stale entries.
func (o *openSet) pop() (*node, bool) {
	for {
		v, ok := o.queue.Dequeue()
		if !ok {
			return nil, false
		}
		n := v.(*node)
		if n.g > o.best[n.key] {
			continue
		}
		return n, true
	}
}

// size is the number of queued entries, including stale ones.
func (o *openSet) size() int { return o.queue.Size() }
