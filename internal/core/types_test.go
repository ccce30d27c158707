package core

import (
	"testing"

	"github.com/bytedance/sonic"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleGraph is ".", "a", "a/b", "c" with edges to their parents
func sampleGraph() *Graph {
	return &Graph{
		Vertices: []Vertex{
			{ID: 0, Name: ".", Parent: "", Size: 4096},
			{ID: 1, Name: "a", Parent: ".", Size: 4096},
			{ID: 2, Name: "a/b", Parent: "a", Size: 12},
			{ID: 3, Name: "c", Parent: ".", Size: 7},
		},
		Edges: []Edge{{1, 0}, {2, 1}, {3, 0}},
	}
}

func TestValidate_WellFormed(t *testing.T) {
	require.NoError(t, sampleGraph().Validate())
}

func TestValidate_SingleRoot(t *testing.T) {
	g := &Graph{Vertices: []Vertex{{ID: 0, Name: "."}}}
	require.NoError(t, g.Validate())
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(g *Graph)
	}{
		{"empty", func(g *Graph) { *g = Graph{} }},
		{"missing edge", func(g *Graph) { g.Edges = g.Edges[:2] }},
		{"wrong id", func(g *Graph) { g.Vertices[2].ID = 7 }},
		{"second root", func(g *Graph) { g.Vertices[3].Parent = "" }},
		{"root with parent", func(g *Graph) { g.Vertices[0].Parent = "x" }},
		{"duplicate name", func(g *Graph) { g.Vertices[3].Name = "a"; g.Vertices[3].Parent = "." }},
		{"edge out of range", func(g *Graph) { g.Edges[2] = Edge{3, 9} }},
		{"edge from root", func(g *Graph) { g.Edges[0] = Edge{0, 1} }},
		{"path disagrees with edge", func(g *Graph) { g.Edges[1] = Edge{2, 3} }},
		{"two parents", func(g *Graph) { g.Edges[2] = Edge{2, 1} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := sampleGraph()
			tt.mutate(g)
			err := g.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvariant)
		})
	}
}

func TestValidate_Cycle(t *testing.T) {
	// Names agree with edges but 1 and 2 point at each other.
	g := &Graph{
		Vertices: []Vertex{
			{ID: 0, Name: "."},
			{ID: 1, Name: "x", Parent: "y"},
			{ID: 2, Name: "y", Parent: "x"},
		},
		Edges: []Edge{{1, 2}, {2, 1}},
	}
	err := g.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvariant)
	assert.Contains(t, err.Error(), "cycle")
}

func TestEdge_JSON(t *testing.T) {
	data, err := sonic.Marshal(sampleGraph().Edges)
	require.NoError(t, err)
	assert.Equal(t, `[[1,0],[2,1],[3,0]]`, string(data))

	var edges []Edge
	require.NoError(t, sonic.Unmarshal(data, &edges))
	assert.Equal(t, sampleGraph().Edges, edges)

	require.Error(t, sonic.Unmarshal([]byte(`[[1,"x"]]`), &edges))
}

func TestEdgeSet(t *testing.T) {
	assert.Equal(t, sampleGraph().Edges, sampleGraph().EdgeSet())

	edgeless := &Graph{Vertices: []Vertex{{Name: "."}}}
	assert.NotNil(t, edgeless.EdgeSet())
	assert.Empty(t, edgeless.EdgeSet())
}

func TestSelectByName_ExactOnly(t *testing.T) {
	g := sampleGraph()

	got := g.SelectByName("a/b", "c")
	require.Len(t, got, 2)
	assert.Equal(t, "a/b", got[0].Name)
	assert.Equal(t, "c", got[1].Name)

	assert.Empty(t, g.SelectByName("b"))
	assert.Empty(t, g.SelectByName())
}
