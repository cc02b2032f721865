// Package graph builds the file dependency graph and computes PageRank.
package graph

import (
	"errors"
	"math"
	"sort"
	"strings"

	dgraph "github.com/dominikbraun/graph"

	"github.com/phobologic/srcgraph/internal/model"
)

// NodeKind distinguishes analyzed files from external packages.
type NodeKind string

const (
	FileNode     NodeKind = "file"
	ExternalNode NodeKind = "external"
)

const externalPrefix = "ext:"

const kindAttr = "kind"

// Node is a vertex of the dependency graph. ID is the file path for file
// nodes and ExternalID(Name) for external nodes.
type Node struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Kind NodeKind `json:"kind"`
}

// DependencyGraph is a directed graph of files and external packages.
// Cycles are allowed.
type DependencyGraph struct {
	g dgraph.Graph[string, Node]
}

// ExternalID returns the vertex ID of an external package.
func ExternalID(name string) string {
	return externalPrefix + name
}

// Build creates one file node per path and one external node per distinct
// external identifier, then adds an edge for every dependency. Internal
// targets outside paths are ignored, so every internal edge ends at a file
// node.
func Build(paths []string, deps []model.FileDependencies) *DependencyGraph {
	g := dgraph.New(func(n Node) string { return n.ID }, dgraph.Directed())

	for _, p := range paths {
		_ = g.AddVertex(Node{ID: p, Name: p, Kind: FileNode},
			dgraph.VertexAttribute(kindAttr, string(FileNode)))
	}

	for _, d := range deps {
		if _, err := g.Vertex(d.Path); err != nil {
			continue
		}
		for _, target := range d.Internal {
			if _, err := g.Vertex(target); err != nil {
				continue
			}
			addEdge(g, d.Path, target, model.Internal)
		}
		for _, name := range d.External {
			id := ExternalID(name)
			err := g.AddVertex(Node{ID: id, Name: name, Kind: ExternalNode},
				dgraph.VertexAttribute(kindAttr, string(ExternalNode)))
			if err != nil && !errors.Is(err, dgraph.ErrVertexAlreadyExists) {
				continue
			}
			addEdge(g, d.Path, id, model.External)
		}
	}

	return &DependencyGraph{g: g}
}

// addEdge ignores duplicates: FileDependencies lists are already deduplicated
// per file.
func addEdge(g dgraph.Graph[string, Node], src, tgt string, kind model.EdgeKind) {
	_ = g.AddEdge(src, tgt, dgraph.EdgeAttribute(kindAttr, string(kind)))
}

// Nodes returns every vertex sorted by ID.
func (d *DependencyGraph) Nodes() []Node {
	adj, err := d.g.AdjacencyMap()
	if err != nil {
		return nil
	}
	nodes := make([]Node, 0, len(adj))
	for id := range adj {
		if n, err := d.g.Vertex(id); err == nil {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// Edges returns every edge sorted by source, then target. External targets
// are reported by package name.
func (d *DependencyGraph) Edges() []model.DependencyEdge {
	raw, err := d.g.Edges()
	if err != nil {
		return nil
	}

	edges := make([]model.DependencyEdge, 0, len(raw))
	for _, e := range raw {
		kind := model.EdgeKind(e.Properties.Attributes[kindAttr])
		target := e.Target
		if kind == model.External {
			target = strings.TrimPrefix(target, externalPrefix)
		}
		edges = append(edges, model.DependencyEdge{Source: e.Source, Target: target, Kind: kind})
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		if edges[i].Kind != edges[j].Kind {
			return edges[i].Kind == model.Internal
		}
		return edges[i].Target < edges[j].Target
	})
	return edges
}

// HasNode reports whether a vertex with id exists.
func (d *DependencyGraph) HasNode(id string) bool {
	_, err := d.g.Vertex(id)
	return err == nil
}

// Order returns the number of vertices.
func (d *DependencyGraph) Order() int {
	n, err := d.g.Order()
	if err != nil {
		return 0
	}
	return n
}

// Size returns the number of edges.
func (d *DependencyGraph) Size() int {
	n, err := d.g.Size()
	if err != nil {
		return 0
	}
	return n
}

// Cycles returns the import cycles between files: strongly connected
// components with more than one file, each sorted, ordered by first member.
func (d *DependencyGraph) Cycles() [][]string {
	sccs, err := dgraph.StronglyConnectedComponents(d.g)
	if err != nil {
		return nil
	}

	var cycles [][]string
	for _, scc := range sccs {
		if len(scc) < 2 {
			continue
		}
		sort.Strings(scc)
		cycles = append(cycles, scc)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

// Rank applies PageRank over file nodes and internal edges. Every file gets
// a rank; with no internal edges ranks are uniform.
func Rank(d *DependencyGraph) map[string]float64 {
	var nodes []string
	for _, n := range d.Nodes() {
		if n.Kind == FileNode {
			nodes = append(nodes, n.ID)
		}
	}
	if len(nodes) == 0 {
		return map[string]float64{}
	}

	outEdges := make(map[string][]string)
	outDegree := make(map[string]int)
	for _, e := range d.Edges() {
		if e.Kind != model.Internal {
			continue
		}
		outEdges[e.Source] = append(outEdges[e.Source], e.Target)
		outDegree[e.Source]++
	}

	if len(outEdges) == 0 {
		uniform := 1.0 / float64(len(nodes))
		ranks := make(map[string]float64, len(nodes))
		for _, n := range nodes {
			ranks[n] = uniform
		}
		return ranks
	}

	return pageRank(nodes, outEdges, outDegree, 0.85, 100, 1e-6)
}

// pageRank iterates in node order so results are bit-for-bit reproducible.
func pageRank(
	nodes []string,
	outEdges map[string][]string,
	outDegree map[string]int,
	alpha float64,
	maxIter int,
	tol float64,
) map[string]float64 {
	n := len(nodes)

	rank := make(map[string]float64, n)
	initial := 1.0 / float64(n)
	for _, node := range nodes {
		rank[node] = initial
	}

	teleport := (1.0 - alpha) / float64(n)

	for iter := 0; iter < maxIter; iter++ {
		newRank := make(map[string]float64, n)

		// Dangling node contribution (nodes with no outgoing edges)
		var danglingSum float64
		for _, node := range nodes {
			if outDegree[node] == 0 {
				danglingSum += rank[node]
			}
		}
		danglingContrib := alpha * danglingSum / float64(n)

		for _, node := range nodes {
			newRank[node] = teleport + danglingContrib
		}

		for _, src := range nodes {
			targets := outEdges[src]
			if len(targets) == 0 {
				continue
			}
			contrib := alpha * rank[src] / float64(outDegree[src])
			for _, tgt := range targets {
				newRank[tgt] += contrib
			}
		}

		var diff float64
		for _, node := range nodes {
			diff += math.Abs(newRank[node] - rank[node])
		}

		rank = newRank

		if diff < tol {
			break
		}
	}

	return rank
}
