package core

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"
)

// Vertex is one filesystem entry of the graph
type Vertex struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Parent       string  `json:"parent"` // empty only for the root
	Size         int64   `json:"size"`
	LastModified float64 `json:"last_modified"` // unix seconds
	LastAccessed float64 `json:"last_accessed"` // unix seconds
}

// IsRoot reports whether the vertex is the graph root
func (v Vertex) IsRoot() bool {
	return v.Parent == ""
}

// Edge links a child vertex to its parent directory. It encodes as the
// compact pair [child, parent].
type Edge struct {
	Child  int
	Parent int
}

// MarshalJSON implements json.Marshaler
func (e Edge) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 16)
	buf = append(buf, '[')
	buf = strconv.AppendInt(buf, int64(e.Child), 10)
	buf = append(buf, ',')
	buf = strconv.AppendInt(buf, int64(e.Parent), 10)
	return append(buf, ']'), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (e *Edge) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := sonic.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("failed to decode edge: %w", err)
	}
	e.Child, e.Parent = pair[0], pair[1]
	return nil
}

// Graph is a filesystem tree. Vertices[i].ID == i and vertex 0 is the root.
// Every non-root vertex has exactly one edge pointing at its parent.
type Graph struct {
	Vertices []Vertex
	Edges    []Edge
}

// NewGraph allocates a graph with room for n vertices
func NewGraph(n int) *Graph {
	edges := 0
	if n > 0 {
		edges = n - 1
	}
	return &Graph{
		Vertices: make([]Vertex, 0, n),
		Edges:    make([]Edge, 0, edges),
	}
}

// Len returns the number of vertices
func (g *Graph) Len() int {
	return len(g.Vertices)
}

// EdgeSet returns the edges, never nil, so an edgeless graph encodes as []
func (g *Graph) EdgeSet() []Edge {
	if g.Edges == nil {
		return []Edge{}
	}
	return g.Edges
}

// SelectByName returns the vertices whose name is exactly one of names, in
// vertex id order. It does no substring or pattern matching.
func (g *Graph) SelectByName(names ...string) []Vertex {
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}

	out := []Vertex{}
	for _, v := range g.Vertices {
		if _, ok := wanted[v.Name]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Validate checks every tree invariant and reports the first violation
func (g *Graph) Validate() error {
	n := len(g.Vertices)
	if n == 0 {
		return fmt.Errorf("%w: graph has no vertices", ErrInvariant)
	}
	if len(g.Edges) != n-1 {
		return fmt.Errorf("%w: %d edges for %d vertices", ErrInvariant, len(g.Edges), n)
	}

	names := make(map[string]int, n)
	for i, v := range g.Vertices {
		if v.ID != i {
			return fmt.Errorf("%w: vertex at index %d has id %d", ErrInvariant, i, v.ID)
		}
		if v.IsRoot() != (i == 0) {
			return fmt.Errorf("%w: vertex %d (%q) has parent %q", ErrInvariant, i, v.Name, v.Parent)
		}
		if prev, dup := names[v.Name]; dup {
			return fmt.Errorf("%w: name %q used by vertices %d and %d", ErrInvariant, v.Name, prev, i)
		}
		names[v.Name] = i
	}

	parentOf := make([]int, n)
	for i := range parentOf {
		parentOf[i] = -1
	}
	for _, e := range g.Edges {
		if e.Child <= 0 || e.Child >= n || e.Parent < 0 || e.Parent >= n {
			return fmt.Errorf("%w: edge (%d, %d) out of range", ErrInvariant, e.Child, e.Parent)
		}
		if parentOf[e.Child] != -1 {
			return fmt.Errorf("%w: vertex %d has more than one parent edge", ErrInvariant, e.Child)
		}
		child, parent := g.Vertices[e.Child], g.Vertices[e.Parent]
		if child.Parent != parent.Name {
			return fmt.Errorf("%w: edge (%d, %d) points at %q but vertex parent is %q",
				ErrInvariant, e.Child, e.Parent, parent.Name, child.Parent)
		}
		parentOf[e.Child] = e.Parent
	}

	// Every vertex must climb to the root without revisiting itself.
	const (
		unknown = iota
		visiting
		rooted
	)
	state := make([]int, n)
	state[0] = rooted
	for start := 1; start < n; start++ {
		var path []int
		v := start
		for state[v] == unknown {
			state[v] = visiting
			path = append(path, v)
			v = parentOf[v]
		}
		if state[v] == visiting {
			return fmt.Errorf("%w: cycle through vertex %d", ErrInvariant, v)
		}
		for _, p := range path {
			state[p] = rooted
		}
	}

	return nil
}

// GraphStore persists whole graph snapshots. Save always replaces any prior
// snapshot. Load returns ErrNoSnapshot when nothing is stored.
type GraphStore interface {
	Save(ctx context.Context, g *Graph) error
	Load(ctx context.Context) (*Graph, error)
	Exists(ctx context.Context) (bool, error)
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
}
