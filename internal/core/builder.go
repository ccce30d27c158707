package core

import "fmt"

// Build turns a walk snapshot into a graph. The root becomes vertex 0 and
// entry i becomes vertex i+1 with an edge to its parent. A parent that has
// not been created yet means the snapshot order is broken and the build fails
// with ErrParentNotFound.
func Build(snapshot *Snapshot) (*Graph, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrInvariant)
	}

	g := NewGraph(len(snapshot.Entries) + 1)
	index := make(map[string]int, len(snapshot.Entries)+1)

	root := snapshot.Root
	g.Vertices = append(g.Vertices, Vertex{
		ID:           0,
		Name:         root.Path,
		Parent:       "",
		Size:         root.Size,
		LastModified: root.LastModified,
		LastAccessed: root.LastAccessed,
	})
	index[root.Path] = 0

	for i, e := range snapshot.Entries {
		id := i + 1
		parentID, ok := index[e.Parent]
		if !ok {
			return nil, fmt.Errorf("%w: %q needs %q", ErrParentNotFound, e.Path, e.Parent)
		}
		if _, dup := index[e.Path]; dup {
			return nil, fmt.Errorf("%w: duplicate path %q", ErrInvariant, e.Path)
		}

		g.Vertices = append(g.Vertices, Vertex{
			ID:           id,
			Name:         e.Path,
			Parent:       e.Parent,
			Size:         e.Size,
			LastModified: e.LastModified,
			LastAccessed: e.LastAccessed,
		})
		g.Edges = append(g.Edges, Edge{Child: id, Parent: parentID})
		index[e.Path] = id
	}

	return g, nil
}
