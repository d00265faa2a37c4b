package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// GraphStorage is the in-memory graph store. All methods are safe for
// concurrent use; concurrent merges to the same node resolve last-write-wins
// per property.
type GraphStorage struct {
	nodes map[NodeRef]*Node
	edges map[string]*Edge

	// Indexes for fast lookups
	nodesByLabel  map[string][]string   // label -> node IDs in insertion order
	edgesByType   map[string][]string   // edge type -> edge IDs in insertion order
	outgoingEdges map[NodeRef][]string  // node -> outgoing edge IDs
	incomingEdges map[NodeRef][]string  // node -> incoming edge IDs

	mu sync.RWMutex

	stats            Statistics
	avgQueryTimeBits uint64
}

// NewGraphStorage creates an empty store.
func NewGraphStorage() *GraphStorage {
	return &GraphStorage{
		nodes:         make(map[NodeRef]*Node),
		edges:         make(map[string]*Edge),
		nodesByLabel:  make(map[string][]string),
		edgesByType:   make(map[string][]string),
		outgoingEdges: make(map[NodeRef][]string),
		incomingEdges: make(map[NodeRef][]string),
	}
}

// MergeOnID creates the node with onCreate when it does not exist, or merges
// onMatch over its properties when it does. It reports whether the node was
// created.
func (gs *GraphStorage) MergeOnID(ctx context.Context, label, id string, onCreate, onMatch map[string]Value) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, NewError("merge").Node(label, id).Cause(err).Err()
	}
	if label == "" || id == "" {
		return false, NewError("merge").Node(label, id).Cause(ErrInvalidID).Err()
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	ref := NodeRef{Label: label, ID: id}
	now := time.Now().UnixNano()

	if node, exists := gs.nodes[ref]; exists {
		for k, v := range onMatch {
			node.Properties[k] = v
		}
		node.UpdatedAt = now
		return false, nil
	}

	props := make(map[string]Value, len(onCreate)+1)
	for k, v := range onCreate {
		props[k] = v
	}
	props["id"] = StringValue(id)

	gs.nodes[ref] = &Node{
		Label:      label,
		ID:         id,
		Properties: props,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	gs.nodesByLabel[label] = append(gs.nodesByLabel[label], id)
	atomic.AddUint64(&gs.stats.NodeCount, 1)
	return true, nil
}

// RemoveFields deletes properties from a node. The id property cannot be
// removed.
func (gs *GraphStorage) RemoveFields(ctx context.Context, label, id string, keys []string) error {
	if err := ctx.Err(); err != nil {
		return NewError("removeFields").Node(label, id).Cause(err).Err()
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	node, exists := gs.nodes[NodeRef{Label: label, ID: id}]
	if !exists {
		return NodeNotFoundError("removeFields", label, id)
	}
	for _, k := range keys {
		if k == "id" {
			continue
		}
		delete(node.Properties, k)
	}
	node.UpdatedAt = time.Now().UnixNano()
	return nil
}

// GetNode retrieves a node by label and id.
func (gs *GraphStorage) GetNode(ctx context.Context, label, id string) (*Node, error) {
	defer gs.startQueryTiming()()
	if err := ctx.Err(); err != nil {
		return nil, NewError("get").Node(label, id).Cause(err).Err()
	}

	gs.mu.RLock()
	defer gs.mu.RUnlock()

	node, exists := gs.nodes[NodeRef{Label: label, ID: id}]
	if !exists {
		return nil, NodeNotFoundError("get", label, id)
	}
	return node.Clone(), nil
}

// MatchAll returns every node with the label in insertion order.
func (gs *GraphStorage) MatchAll(ctx context.Context, label string) ([]*Node, error) {
	defer gs.startQueryTiming()()
	if err := ctx.Err(); err != nil {
		return nil, NewError("matchAll").Context(label).Cause(err).Err()
	}

	gs.mu.RLock()
	defer gs.mu.RUnlock()

	ids := gs.nodesByLabel[label]
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		if node, ok := gs.nodes[NodeRef{Label: label, ID: id}]; ok {
			out = append(out, node.Clone())
		}
	}
	return out, nil
}

// DeleteNode detaches and deletes a node in one step.
func (gs *GraphStorage) DeleteNode(ctx context.Context, label, id string) error {
	if err := ctx.Err(); err != nil {
		return NewError("delete").Node(label, id).Cause(err).Err()
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	ref := NodeRef{Label: label, ID: id}
	if _, exists := gs.nodes[ref]; !exists {
		return NodeNotFoundError("delete", label, id)
	}

	// Copy: deleteEdgeLocked rewrites the adjacency slices.
	incident := append(append([]string(nil), gs.outgoingEdges[ref]...), gs.incomingEdges[ref]...)
	for _, edgeID := range incident {
		gs.deleteEdgeLocked(edgeID)
	}

	delete(gs.nodes, ref)
	delete(gs.outgoingEdges, ref)
	delete(gs.incomingEdges, ref)
	gs.nodesByLabel[label] = removeID(gs.nodesByLabel[label], id)
	if len(gs.nodesByLabel[label]) == 0 {
		delete(gs.nodesByLabel, label)
	}
	atomic.AddUint64(&gs.stats.NodeCount, ^uint64(0))
	return nil
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
