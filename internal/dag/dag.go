// Package dag provides a column dependency graph built from lineage results.
// It supports upstream and downstream traversal across definitions and cycle
// detection.
package dag

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/leapstack-labs/sqllineage/pkg/lineage"
)

// Node represents a column in the graph.
type Node struct {
	// ID is the case-folded qualified name, prefixed with the definition
	// for local temporary tables
	ID string
	// Name is the qualified name as first seen
	Name string
	// Writers lists the definitions that write this column
	Writers []string
}

// Graph is a directed graph of columns. An edge runs from a source column to
// the target column whose value is derived from it.
type Graph struct {
	nodes   map[string]*Node
	edges   map[string][]string // source -> targets (dependents)
	parents map[string][]string // target -> sources (dependencies)
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// Build creates the graph of every edge in results whose target is a table
// column. Only source columns resolved to a base table become nodes.
//
// Local temporary tables (#t) and table variables (@t) live only as long as
// the definition that creates them, so their columns are named
// <definition>::#t.col and never join two definitions. Global temporary
// tables (##t) are shared under their own name.
func Build(results []*lineage.Result) *Graph {
	g := NewGraph()
	for _, res := range results {
		for _, e := range res.Edges {
			if e.TargetTable == "" || e.TargetColumn == "*" || e.IsDelete {
				continue
			}
			name, ok := columnName(res.Name, e.TargetSchema, e.TargetTable, e.Target())
			if !ok {
				continue
			}
			target := g.AddNode(name)
			g.addWriter(target, res.Name)

			for _, src := range e.SourceColumns {
				if !src.Resolved() || src.ResolvedKind != lineage.TablePlain {
					continue
				}
				name, ok := columnName(res.Name, src.ResolvedSchema, src.ResolvedTable, src.QualifiedName())
				if !ok {
					continue
				}
				source := g.AddNode(name)
				if source == target {
					continue
				}
				_ = g.AddEdge(source, target)
			}
		}
	}
	return g
}

// columnName is the node name of a column of table. Tables without a schema
// take part only when they are temporary tables or table variables; other
// schemaless targets are derived tables and CTEs.
func columnName(definition, schema, table, qualified string) (string, bool) {
	switch {
	case schema != "":
		return qualified, true
	case IsLocalTable(table):
		return definition + "::" + qualified, true
	case strings.HasPrefix(table, "##"):
		return qualified, true
	}
	return "", false
}

// IsLocalTable reports whether table is a local temporary table or a table
// variable.
func IsLocalTable(table string) bool {
	if strings.HasPrefix(table, "@") {
		return true
	}
	return strings.HasPrefix(table, "#") && !strings.HasPrefix(table, "##")
}

// Key returns the node ID for a qualified column name. Names are folded the
// same way the lineage package folds its keys.
func Key(name string) string {
	return cases.Fold().String(name)
}

// AddNode adds a column and returns its ID. Adding an existing column keeps
// the first spelling.
func (g *Graph) AddNode(name string) string {
	id := Key(name)
	if _, exists := g.nodes[id]; !exists {
		g.nodes[id] = &Node{ID: id, Name: name}
		g.edges[id] = []string{}
		g.parents[id] = []string{}
	}
	return id
}

func (g *Graph) addWriter(id, definition string) {
	node := g.nodes[id]
	if definition == "" || contains(node.Writers, definition) {
		return
	}
	node.Writers = append(node.Writers, definition)
}

// AddEdge adds a directed edge from source to target (target is derived from source).
func (g *Graph) AddEdge(sourceID, targetID string) error {
	if _, exists := g.nodes[sourceID]; !exists {
		return fmt.Errorf("source column %q does not exist", sourceID)
	}
	if _, exists := g.nodes[targetID]; !exists {
		return fmt.Errorf("target column %q does not exist", targetID)
	}
	if sourceID == targetID {
		return fmt.Errorf("self-loop detected: %s", sourceID)
	}

	if !contains(g.edges[sourceID], targetID) {
		g.edges[sourceID] = append(g.edges[sourceID], targetID)
	}
	if !contains(g.parents[targetID], sourceID) {
		g.parents[targetID] = append(g.parents[targetID], sourceID)
	}
	return nil
}

// GetNode returns a node by qualified name, ignoring case.
func (g *Graph) GetNode(name string) (*Node, bool) {
	node, exists := g.nodes[Key(name)]
	return node, exists
}

// GetParents returns the columns a column is directly derived from.
func (g *Graph) GetParents(id string) []string {
	return sorted(g.parents[id])
}

// GetChildren returns the columns directly derived from a column.
func (g *Graph) GetChildren(id string) []string {
	return sorted(g.edges[id])
}

// GetAllNodes returns all nodes sorted by ID.
func (g *Graph) GetAllNodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, node := range g.nodes {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].ID < nodes[j].ID
	})
	return nodes
}

// NodeCount returns the number of columns in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// HasCycle returns true if the graph contains a cycle, along with the cycle path.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string)

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		recStack[id] = true

		for _, childID := range g.GetChildren(id) {
			if !visited[childID] {
				path[childID] = id
				if dfs(childID) {
					return true
				}
			} else if recStack[childID] {
				cyclePath = []string{childID}
				for curr := id; curr != childID; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{childID}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	// Sorted so the reported cycle is stable
	for _, node := range g.GetAllNodes() {
		if !visited[node.ID] && dfs(node.ID) {
			return true, cyclePath
		}
	}
	return false, nil
}

// GetDownstreamNodes returns every column derived, directly or transitively,
// from the given columns. The given columns are not included.
func (g *Graph) GetDownstreamNodes(ids ...string) []string {
	return g.walk(ids, g.edges)
}

// GetUpstreamNodes returns every column the given columns are derived from,
// directly or transitively. The given columns are not included.
func (g *Graph) GetUpstreamNodes(ids ...string) []string {
	return g.walk(ids, g.parents)
}

func (g *Graph) walk(start []string, next map[string][]string) []string {
	seen := make(map[string]bool)
	for _, id := range start {
		seen[id] = true
	}

	found := make(map[string]bool)
	var mark func(id string)
	mark = func(id string) {
		for _, n := range next[id] {
			if found[n] {
				continue
			}
			found[n] = true
			mark(n)
		}
	}
	for _, id := range start {
		mark(id)
	}

	result := make([]string, 0, len(found))
	for id := range found {
		if !seen[id] {
			result = append(result, id)
		}
	}
	sort.Strings(result)
	return result
}

// GetRoots returns columns that are not derived from any other column.
func (g *Graph) GetRoots() []string {
	var roots []string
	for id := range g.nodes {
		if len(g.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)
	return roots
}

// GetLeaves returns columns no other column is derived from.
func (g *Graph) GetLeaves() []string {
	var leaves []string
	for id := range g.nodes {
		if len(g.edges[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	sort.Strings(leaves)
	return leaves
}

func sorted(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}
