// Package graph orders action nodes for execution. It is deliberately
// small: callers hand it node ids and directed edges, it hands back a
// stable topological order plus everything that kept nodes out of one.
package graph

import "sort"

// Edge is a directed dependency: From must run before To.
type Edge struct {
	From string
	To   string
}

// Result carries the ordering and the defects found while building it.
// BadEdges are excluded from the ordering, so one stray endpoint cannot
// mask an otherwise valid order. Cyclic is true when at least one kept
// node never reached in-degree zero.
type Result struct {
	Order        []string
	DuplicateIDs []string
	BadEdges     []Edge
	Cyclic       bool
}

// OK reports whether the graph ordered cleanly.
func (r Result) OK() bool {
	return len(r.DuplicateIDs) == 0 && len(r.BadEdges) == 0 && !r.Cyclic
}

// Order runs Kahn's algorithm over the unique node ids. Ties are broken
// by declaration order, so the result is deterministic for a given input.
func Order(nodeIDs []string, edges []Edge) Result {
	var res Result

	pos := make(map[string]int, len(nodeIDs))
	dup := make(map[string]struct{})
	var unique []string
	for _, id := range nodeIDs {
		if _, ok := pos[id]; ok {
			if _, reported := dup[id]; !reported {
				dup[id] = struct{}{}
				res.DuplicateIDs = append(res.DuplicateIDs, id)
			}
			continue
		}
		pos[id] = len(unique)
		unique = append(unique, id)
	}

	indegree := make(map[string]int, len(unique))
	adjacency := make(map[string][]string, len(unique))
	for _, e := range edges {
		_, fromOK := pos[e.From]
		_, toOK := pos[e.To]
		if !fromOK || !toOK {
			res.BadEdges = append(res.BadEdges, e)
			continue
		}
		indegree[e.To]++
		adjacency[e.From] = append(adjacency[e.From], e.To)
	}

	queue := make([]string, 0, len(unique))
	for _, id := range unique {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		res.Order = append(res.Order, id)
		for _, to := range adjacency[id] {
			indegree[to]--
			if indegree[to] == 0 {
				queue = append(queue, to)
			}
		}
		sort.SliceStable(queue, func(i, j int) bool { return pos[queue[i]] < pos[queue[j]] })
	}

	res.Cyclic = len(res.Order) != len(unique)
	return res
}
