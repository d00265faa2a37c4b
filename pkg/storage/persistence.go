package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync/atomic"
	"time"

	"github.com/golang/snappy"
)

const snapshotFormat = 1

// snapshotFile is the serialized form of the store.
type snapshotFile struct {
	Format int     `json:"format"`
	Taken  int64   `json:"taken"`
	Nodes  []*Node `json:"nodes"`
	Edges  []*Edge `json:"edges"`
}

// Snapshot writes the whole graph to w as snappy-compressed JSON.
func (gs *GraphStorage) Snapshot(w io.Writer) error {
	gs.mu.RLock()

	snap := snapshotFile{
		Format: snapshotFormat,
		Taken:  time.Now().Unix(),
		Nodes:  make([]*Node, 0, len(gs.nodes)),
		Edges:  make([]*Edge, 0, len(gs.edges)),
	}

	labels := make([]string, 0, len(gs.nodesByLabel))
	for label := range gs.nodesByLabel {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		for _, id := range gs.nodesByLabel[label] {
			snap.Nodes = append(snap.Nodes, gs.nodes[NodeRef{Label: label, ID: id}])
		}
	}
	for _, e := range gs.edges {
		snap.Edges = append(snap.Edges, e)
	}

	data, err := json.Marshal(snap)
	gs.mu.RUnlock()
	if err != nil {
		return NewError("snapshot").Snapshot().Cause(fmt.Errorf("%w: %v", ErrMarshalFailed, err)).Err()
	}

	if _, err := w.Write(snappy.Encode(nil, data)); err != nil {
		return NewError("snapshot").Snapshot().Context("write").Cause(err).Err()
	}

	gs.mu.Lock()
	gs.stats.LastSnapshot = time.Now()
	gs.mu.Unlock()
	return nil
}

// Restore replaces the store's contents with a snapshot read from r.
func (gs *GraphStorage) Restore(r io.Reader) error {
	compressed, err := io.ReadAll(r)
	if err != nil {
		return NewError("restore").Snapshot().Context("read").Cause(err).Err()
	}
	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return NewError("restore").Snapshot().Context("decode").Cause(fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)).Err()
	}

	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return NewError("restore").Snapshot().Context("unmarshal").Cause(fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)).Err()
	}
	if snap.Format != snapshotFormat {
		return NewError("restore").Snapshot().Cause(fmt.Errorf("%w: format %d", ErrSnapshotCorrupt, snap.Format)).Err()
	}

	sort.SliceStable(snap.Edges, func(i, j int) bool {
		if snap.Edges[i].CreatedAt != snap.Edges[j].CreatedAt {
			return snap.Edges[i].CreatedAt < snap.Edges[j].CreatedAt
		}
		return snap.Edges[i].ID < snap.Edges[j].ID
	})

	fresh := NewGraphStorage()
	for _, n := range snap.Nodes {
		if n == nil || n.Label == "" || n.ID == "" {
			return NewError("restore").Snapshot().Cause(fmt.Errorf("%w: node without address", ErrSnapshotCorrupt)).Err()
		}
		if n.Properties == nil {
			n.Properties = make(map[string]Value)
		}
		ref := n.Ref()
		if _, dup := fresh.nodes[ref]; dup {
			return NewError("restore").Node(n.Label, n.ID).Cause(fmt.Errorf("%w: duplicate node", ErrSnapshotCorrupt)).Err()
		}
		fresh.nodes[ref] = n
		fresh.nodesByLabel[n.Label] = append(fresh.nodesByLabel[n.Label], n.ID)
	}
	for _, e := range snap.Edges {
		if _, ok := fresh.nodes[e.From]; !ok {
			return NewError("restore").Edge(e.ID).Context("source").Cause(fmt.Errorf("%w: dangling edge", ErrSnapshotCorrupt)).Err()
		}
		if _, ok := fresh.nodes[e.To]; !ok {
			return NewError("restore").Edge(e.ID).Context("target").Cause(fmt.Errorf("%w: dangling edge", ErrSnapshotCorrupt)).Err()
		}
		if e.Properties == nil {
			e.Properties = make(map[string]Value)
		}
		fresh.edges[e.ID] = e
		fresh.edgesByType[e.Type] = append(fresh.edgesByType[e.Type], e.ID)
		fresh.outgoingEdges[e.From] = append(fresh.outgoingEdges[e.From], e.ID)
		fresh.incomingEdges[e.To] = append(fresh.incomingEdges[e.To], e.ID)
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.nodes = fresh.nodes
	gs.edges = fresh.edges
	gs.nodesByLabel = fresh.nodesByLabel
	gs.edgesByType = fresh.edgesByType
	gs.outgoingEdges = fresh.outgoingEdges
	gs.incomingEdges = fresh.incomingEdges
	atomic.StoreUint64(&gs.stats.NodeCount, uint64(len(fresh.nodes)))
	atomic.StoreUint64(&gs.stats.EdgeCount, uint64(len(fresh.edges)))
	return nil
}
