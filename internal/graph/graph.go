// Package graph models intra-project import edges between files.
//
// A graph is assembled with a Builder and then frozen. Frozen graphs are read-only and safe
// for concurrent readers; further edges added to the Builder never reach a graph that was
// already frozen.
package graph

import (
	"sort"
)

type edge struct {
	from, to string
}

// Builder collects edges. The zero value is not usable, call NewBuilder.
type Builder struct {
	edges []edge
}

func NewBuilder() *Builder {
	return &Builder{}
}

// AddEdge records that from imports to. Repeated edges are kept.
func (b *Builder) AddEdge(from, to string) {
	b.edges = append(b.edges, edge{from: from, to: to})
}

// Freeze returns an immutable graph of the edges added so far.
func (b *Builder) Freeze() *Graph {
	g := &Graph{
		forward: make(map[string][]string),
		reverse: make(map[string][]string),
		edges:   len(b.edges),
	}
	for _, e := range b.edges {
		g.forward[e.from] = append(g.forward[e.from], e.to)
		g.reverse[e.to] = append(g.reverse[e.to], e.from)
	}
	return g
}

// Graph is a frozen directed multigraph over root-relative file paths.
type Graph struct {
	forward map[string][]string
	reverse map[string][]string
	edges   int
}

// ImportsOf returns the files path imports, in insertion order.
func (g *Graph) ImportsOf(path string) []string {
	return append([]string(nil), g.forward[path]...)
}

// ImportersOf returns the files importing path, in insertion order.
func (g *Graph) ImportersOf(path string) []string {
	return append([]string(nil), g.reverse[path]...)
}

// AreConnected reports whether b is reachable from a by following at most maxHops import
// edges. A file is always connected to itself.
func (g *Graph) AreConnected(a, b string, maxHops int) bool {
	if a == b {
		return true
	}

	visited := map[string]bool{a: true}
	frontier := []string{a}
	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		var next []string
		for _, node := range frontier {
			for _, to := range g.forward[node] {
				if to == b {
					return true
				}
				if visited[to] {
					continue
				}
				visited[to] = true
				next = append(next, to)
			}
		}
		frontier = next
	}
	return false
}

// EdgeCount returns the number of edges, counting repeats.
func (g *Graph) EdgeCount() int {
	return g.edges
}

// Nodes returns every file that appears in an edge, sorted.
func (g *Graph) Nodes() []string {
	seen := make(map[string]bool, len(g.forward)+len(g.reverse))
	for n := range g.forward {
		seen[n] = true
	}
	for n := range g.reverse {
		seen[n] = true
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
