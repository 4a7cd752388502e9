// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Strongly connected components of a graph whose nodes are the
// integers 0 ... count-1, using Kosaraju's algorithm.

package util

import (
	"slices"
)

// 'next' returns the nodes that a node has an edge to.  The result
// is in topological order: if there is an edge from a node in one
// component to a node in another, the first component comes first.
// Within a component the nodes are in increasing order.

func StronglyConnectedComponents(count int, next func(int) []int) [][]int {
	previous := make([][]int, count)
	for node := range count {
		for _, child := range next(node) {
			previous[child] = append(previous[child], node)
		}
	}
	seen := make([]bool, count)
	finished := make([]int, 0, count)
	for node := range count {
		postorder(node, next, seen, func(n int) { finished = append(finished, n) })
	}
	clear(seen)
	components := [][]int{}
	for i := count - 1; 0 <= i; i-- {
		component := []int{}
		postorder(finished[i], func(n int) []int { return previous[n] }, seen,
			func(n int) { component = append(component, n) })
		if 0 < len(component) {
			slices.Sort(component)
			components = append(components, component)
		}
	}
	return components
}

// Uses an explicit stack, as flow graphs can be long chains.

func postorder(root int, next func(int) []int, seen []bool, visit func(int)) {
	if seen[root] {
		return
	}
	type frameT struct {
		node     int
		children []int
	}
	stack := StackT[frameT]{}
	seen[root] = true
	stack.Push(frameT{root, next(root)})
	for !stack.Empty() {
		top := stack.Pop()
		if len(top.children) == 0 {
			visit(top.node)
			continue
		}
		child := top.children[0]
		stack.Push(frameT{top.node, top.children[1:]})
		if !seen[child] {
			seen[child] = true
			stack.Push(frameT{child, next(child)})
		}
	}
}
