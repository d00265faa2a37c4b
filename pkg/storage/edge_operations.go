package storage

import (
	"context"
	"sync/atomic"
	"time"
)

// CreateEdge stores an edge. The caller assigns the id; both endpoints must
// exist.
func (gs *GraphStorage) CreateEdge(ctx context.Context, edge *Edge) (*Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewError("createEdge").Edge(edge.ID).Cause(err).Err()
	}
	if edge.ID == "" || edge.Type == "" {
		return nil, NewError("createEdge").Edge(edge.ID).Cause(ErrInvalidID).Err()
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	if _, exists := gs.edges[edge.ID]; exists {
		return nil, NewError("createEdge").Edge(edge.ID).Cause(ErrDuplicateEdge).Err()
	}
	if err := gs.verifyNodeExists(edge.From, "source"); err != nil {
		return nil, err
	}
	if err := gs.verifyNodeExists(edge.To, "target"); err != nil {
		return nil, err
	}

	stored := edge.Clone()
	if stored.CreatedAt == 0 {
		stored.CreatedAt = time.Now().UnixNano()
	}

	gs.edges[stored.ID] = stored
	gs.edgesByType[stored.Type] = append(gs.edgesByType[stored.Type], stored.ID)
	gs.outgoingEdges[stored.From] = append(gs.outgoingEdges[stored.From], stored.ID)
	gs.incomingEdges[stored.To] = append(gs.incomingEdges[stored.To], stored.ID)
	atomic.AddUint64(&gs.stats.EdgeCount, 1)

	return stored.Clone(), nil
}

// DeleteEdge deletes an edge by ID
func (gs *GraphStorage) DeleteEdge(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return NewError("deleteEdge").Edge(id).Cause(err).Err()
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()

	if !gs.deleteEdgeLocked(id) {
		return EdgeNotFoundError("deleteEdge", id)
	}
	return nil
}

// GetEdge retrieves an edge by ID
func (gs *GraphStorage) GetEdge(ctx context.Context, id string) (*Edge, error) {
	defer gs.startQueryTiming()()
	if err := ctx.Err(); err != nil {
		return nil, NewError("getEdge").Edge(id).Cause(err).Err()
	}

	gs.mu.RLock()
	defer gs.mu.RUnlock()

	edge, exists := gs.edges[id]
	if !exists {
		return nil, EdgeNotFoundError("getEdge", id)
	}
	return edge.Clone(), nil
}

// OutgoingEdges returns the edges leaving a node in creation order.
func (gs *GraphStorage) OutgoingEdges(ctx context.Context, ref NodeRef) ([]*Edge, error) {
	return gs.adjacent(ctx, "outgoingEdges", ref, gs.outgoingEdges)
}

// IncomingEdges returns the edges arriving at a node in creation order.
func (gs *GraphStorage) IncomingEdges(ctx context.Context, ref NodeRef) ([]*Edge, error) {
	return gs.adjacent(ctx, "incomingEdges", ref, gs.incomingEdges)
}

// EdgesByType returns every edge of a relationship type in creation order.
func (gs *GraphStorage) EdgesByType(ctx context.Context, edgeType string) ([]*Edge, error) {
	defer gs.startQueryTiming()()
	if err := ctx.Err(); err != nil {
		return nil, NewError("edgesByType").Context(edgeType).Cause(err).Err()
	}

	gs.mu.RLock()
	defer gs.mu.RUnlock()

	return gs.cloneEdges(gs.edgesByType[edgeType]), nil
}

func (gs *GraphStorage) adjacent(ctx context.Context, op string, ref NodeRef, index map[NodeRef][]string) ([]*Edge, error) {
	defer gs.startQueryTiming()()
	if err := ctx.Err(); err != nil {
		return nil, NewError(op).Node(ref.Label, ref.ID).Cause(err).Err()
	}

	gs.mu.RLock()
	defer gs.mu.RUnlock()

	if _, exists := gs.nodes[ref]; !exists {
		return nil, NodeNotFoundError(op, ref.Label, ref.ID)
	}
	return gs.cloneEdges(index[ref]), nil
}

func (gs *GraphStorage) cloneEdges(ids []string) []*Edge {
	out := make([]*Edge, 0, len(ids))
	for _, id := range ids {
		if e, ok := gs.edges[id]; ok {
			out = append(out, e.Clone())
		}
	}
	return out
}

func (gs *GraphStorage) verifyNodeExists(ref NodeRef, role string) error {
	if _, exists := gs.nodes[ref]; !exists {
		return NewError("createEdge").Node(ref.Label, ref.ID).Context(role).Cause(ErrNodeNotFound).Err()
	}
	return nil
}

// deleteEdgeLocked removes an edge and its index entries. Caller holds mu.
func (gs *GraphStorage) deleteEdgeLocked(id string) bool {
	edge, exists := gs.edges[id]
	if !exists {
		return false
	}
	delete(gs.edges, id)
	gs.edgesByType[edge.Type] = removeID(gs.edgesByType[edge.Type], id)
	if len(gs.edgesByType[edge.Type]) == 0 {
		delete(gs.edgesByType, edge.Type)
	}
	gs.outgoingEdges[edge.From] = removeID(gs.outgoingEdges[edge.From], id)
	gs.incomingEdges[edge.To] = removeID(gs.incomingEdges[edge.To], id)
	atomic.AddUint64(&gs.stats.EdgeCount, ^uint64(0))
	return true
}
