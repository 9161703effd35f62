// Package chain reconstructs OB upgrade lineages from predecessor links.
//
// Every template names at most one predecessor, so the templates form a
// forest rooted at templates with no (or an unknown) predecessor, plus any
// number of predecessor loops. Trace walks the forest iteratively and reports
// each loop once as a *core.CyclicChainError.
package chain

import (
	"slices"

	"github.com/JonMunkholm/wite2/internal/core"
	"github.com/JonMunkholm/wite2/internal/graph"
)

// Chain is one upgrade lineage in pre-order: the root first, then each
// successor subtree in sequence order.
type Chain struct {
	Root  int   `json:"root" yaml:"root"`
	OBIDs []int `json:"ob_ids" yaml:"ob_ids"`
}

// Len returns the number of templates in the chain.
func (c Chain) Len() int { return len(c.OBIDs) }

// Options controls Trace.
type Options struct {
	// Nations keeps chains whose root belongs to one of the nations and
	// cycles with at least one member that does. Filtering happens after
	// the whole graph has been traced.
	Nations graph.Nations
}

// Result holds the traced chains in root id order and the cycles in order
// of their smallest member.
type Result struct {
	Chains []Chain
	Cycles []*core.CyclicChainError
}

// Roots returns the templates that start a lineage: no predecessor, or a
// predecessor that does not exist.
func Roots(g *graph.Graph) []int {
	var roots []int
	for _, id := range g.OBIDs() {
		pred := g.OBs[id].PredecessorID
		if _, ok := g.OBs[pred]; pred == 0 || !ok {
			roots = append(roots, id)
		}
	}
	return roots
}

// Trace builds every chain and finds every cycle of g.
func Trace(g *graph.Graph, opts Options) Result {
	var res Result
	visited := make(map[int]bool, len(g.OBs))

	for _, root := range Roots(g) {
		res.Chains = append(res.Chains, walk(g, root, visited))
	}
	res.Cycles = append(res.Cycles, findCycles(g, visited)...)
	slices.SortFunc(res.Cycles, func(a, b *core.CyclicChainError) int { return a.OBIDs[0] - b.OBIDs[0] })

	return filter(g, res, opts.Nations)
}

type frame struct {
	id   int
	next int
}

// walk traverses successors of root depth first without recursion. A
// template has one predecessor, so a walk from a root never meets a loop.
func walk(g *graph.Graph, root int, visited map[int]bool) Chain {
	c := Chain{Root: root}
	stack := []frame{{id: root}}
	visited[root] = true
	c.OBIDs = append(c.OBIDs, root)

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		succ := g.Successors(top.id)
		if top.next >= len(succ) {
			stack = stack[:len(stack)-1]
			continue
		}
		next := succ[top.next]
		top.next++

		if visited[next] {
			continue
		}
		visited[next] = true
		c.OBIDs = append(c.OBIDs, next)
		stack = append(stack, frame{id: next})
	}
	return c
}

// findCycles follows predecessor pointers from every template not reached
// from a root. Each pointer path ends in a loop; each loop is reported once.
func findCycles(g *graph.Graph, visited map[int]bool) []*core.CyclicChainError {
	var cycles []*core.CyclicChainError
	for _, start := range g.OBIDs() {
		if visited[start] {
			continue
		}
		pos := make(map[int]int)
		var path []int
		id := start
		for {
			o, ok := g.OBs[id]
			if !ok || visited[id] {
				break
			}
			if i, seen := pos[id]; seen {
				cycles = append(cycles, &core.CyclicChainError{OBIDs: rotateToMin(path[i:])})
				break
			}
			pos[id] = len(path)
			path = append(path, id)
			id = o.PredecessorID
		}
		for _, p := range path {
			visited[p] = true
		}
	}
	return cycles
}

// rotateToMin returns ids rotated so the smallest comes first.
func rotateToMin(ids []int) []int {
	lo := 0
	for i, id := range ids {
		if id < ids[lo] {
			lo = i
		}
	}
	out := make([]int, 0, len(ids))
	out = append(out, ids[lo:]...)
	return append(out, ids[:lo]...)
}

func filter(g *graph.Graph, res Result, nations graph.Nations) Result {
	if len(nations) == 0 {
		return res
	}
	var out Result
	for _, c := range res.Chains {
		if nations.Match(g.OBs[c.Root].Nation) {
			out.Chains = append(out.Chains, c)
		}
	}
	for _, cyc := range res.Cycles {
		for _, id := range cyc.OBIDs {
			if nations.Match(g.OBs[id].Nation) {
				out.Cycles = append(out.Cycles, cyc)
				break
			}
		}
	}
	return out
}
