package version

import (
	"errors"
	"sort"

	"github.com/google/uuid"
)

var (
	// ErrNodeNotInChain is returned when an id does not belong to the chain.
	ErrNodeNotInChain = errors.New("node does not belong to chain")
	// ErrNodeDeleted is returned when editing a soft-deleted node.
	ErrNodeDeleted = errors.New("node is deleted")
)

// Chain holds every node that shares one OriginalID.
type Chain[T Versioned] struct {
	nodes    map[uuid.UUID]T
	children map[uuid.UUID][]uuid.UUID
	rootID   uuid.UUID
	hasRoot  bool
}

// NewChain builds a chain from the given nodes. Nodes are assumed to share one
// OriginalID; use GroupByOriginal for mixed input.
func NewChain[T Versioned](nodes []T) *Chain[T] {
	c := &Chain[T]{nodes: make(map[uuid.UUID]T, len(nodes))}
	for _, n := range nodes {
		h := n.VersionNode()
		c.nodes[h.ID] = n
		if h.IsOriginal && !c.hasRoot {
			c.rootID = h.ID
			c.hasRoot = true
		}
	}
	return c
}

// GroupByOriginal splits a flat slice of nodes into chains keyed by OriginalID.
func GroupByOriginal[T Versioned](nodes []T) map[uuid.UUID]*Chain[T] {
	buckets := make(map[uuid.UUID][]T)
	for _, n := range nodes {
		oid := n.VersionNode().OriginalID
		buckets[oid] = append(buckets[oid], n)
	}
	chains := make(map[uuid.UUID]*Chain[T], len(buckets))
	for oid, ns := range buckets {
		chains[oid] = NewChain(ns)
	}
	return chains
}

// Len returns the number of nodes in the chain.
func (c *Chain[T]) Len() int { return len(c.nodes) }

// Get returns the node with the given id.
func (c *Chain[T]) Get(id uuid.UUID) (T, bool) {
	n, ok := c.nodes[id]
	return n, ok
}

// Root returns the original node of the chain.
func (c *Chain[T]) Root() (T, bool) {
	if !c.hasRoot {
		var zero T
		return zero, false
	}
	return c.Get(c.rootID)
}

// ResolveCurrent walks from the root to the live node.
func (c *Chain[T]) ResolveCurrent() (T, bool) {
	if !c.hasRoot {
		var zero T
		return zero, false
	}
	return c.ResolveFrom(c.rootID)
}

// ResolveFrom returns the node itself if it is live, otherwise the first live
// node found depth-first among its descendants. A chain is expected to hold at
// most one live node, so the first match is the answer.
func (c *Chain[T]) ResolveFrom(id uuid.UUID) (T, bool) {
	var zero T
	start, ok := c.nodes[id]
	if !ok {
		return zero, false
	}

	c.buildChildren()

	seen := make(map[uuid.UUID]struct{}, len(c.nodes))
	stack := []T{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		h := n.VersionNode()
		if _, dup := seen[h.ID]; dup {
			continue
		}
		seen[h.ID] = struct{}{}

		if h.Live() {
			return n, true
		}

		kids := c.children[h.ID]
		// Push in reverse so the lowest version is visited first.
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, c.nodes[kids[i]])
		}
	}
	return zero, false
}

// LatestByVersion returns the node with the highest version. A chain whose
// highest version is deleted has been retracted and yields nothing.
func (c *Chain[T]) LatestByVersion() (T, bool) {
	var (
		zero  T
		best  T
		found bool
		top   int
	)
	for _, n := range c.nodes {
		h := n.VersionNode()
		if !found || h.Version > top {
			best, top, found = n, h.Version, true
		}
	}
	if !found || best.VersionNode().IsDeleted {
		return zero, false
	}
	return best, true
}

// Consistent reports whether the graph walk and the max(version) lookup agree.
func (c *Chain[T]) Consistent() bool {
	a, okA := c.ResolveCurrent()
	b, okB := c.LatestByVersion()
	if okA != okB {
		return false
	}
	if !okA {
		return true
	}
	return a.VersionNode().ID == b.VersionNode().ID
}

// Original walks parent pointers from id until it reaches the original node.
func (c *Chain[T]) Original(id uuid.UUID) (T, bool) {
	var zero T
	seen := make(map[uuid.UUID]struct{})
	cur, ok := c.nodes[id]
	for ok {
		h := cur.VersionNode()
		if h.IsOriginal {
			return cur, true
		}
		if h.ParentID == nil {
			return zero, false
		}
		if _, dup := seen[h.ID]; dup {
			return zero, false
		}
		seen[h.ID] = struct{}{}
		cur, ok = c.nodes[*h.ParentID]
	}
	return zero, false
}

// Next returns the header of a node derived from parentID by an edit. The new
// node becomes current; callers must clear IsCurrent on the previous live node.
func (c *Chain[T]) Next(parentID uuid.UUID) (Node, error) {
	parent, ok := c.nodes[parentID]
	if !ok {
		return Node{}, ErrNodeNotInChain
	}
	ph := parent.VersionNode()
	if ph.IsDeleted {
		return Node{}, ErrNodeDeleted
	}

	top := 0
	for _, n := range c.nodes {
		if v := n.VersionNode().Version; v > top {
			top = v
		}
	}

	pid := ph.ID
	return Node{
		ID:         uuid.New(),
		OriginalID: ph.OriginalID,
		ParentID:   &pid,
		IsCurrent:  true,
		Version:    top + 1,
	}, nil
}

func (c *Chain[T]) buildChildren() {
	if c.children != nil {
		return
	}
	c.children = make(map[uuid.UUID][]uuid.UUID, len(c.nodes))
	for id, n := range c.nodes {
		if p := n.VersionNode().ParentID; p != nil {
			c.children[*p] = append(c.children[*p], id)
		}
	}
	for pid, kids := range c.children {
		sort.Slice(kids, func(i, j int) bool {
			return c.nodes[kids[i]].VersionNode().Version < c.nodes[kids[j]].VersionNode().Version
		})
		c.children[pid] = kids
	}
}
