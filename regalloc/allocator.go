// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Graph coloring by iterated register coalescing (George and Appel,
// "Iterated Register Coalescing", TOPLAS 1996).
//
// One pass colors one interference graph.  Every temporary that is
// not a machine register is in exactly one of the sets below at any
// time, and all changes of set go through transfer(), which checks
// that the node is where it is supposed to be.
//
//   simplify  low degree and not move related
//   freeze    low degree and move related
//   spill     high degree
//   stack     removed from the graph, waiting for a color
//   coalesced merged into another node (see alias)
//   colored   given a color
//   spilled   no color available; will be rewritten to use memory
//
// Moves are similarly in exactly one of: worklist (might be
// coalesced), active (not ready yet), coalesced, constrained (the
// two ends interfere), and frozen (given up on).

package regalloc

import (
	"fmt"

	"golang.org/x/tools/container/intsets"

	"github.com/s48/regalloc/liveness"
	"github.com/s48/regalloc/util"
)

type nodeSetT int

const (
	precoloredSet nodeSetT = iota
	simplifySet
	freezeSet
	spillSet
	stackSet
	coalescedSet
	coloredSet
	spilledSet
	nodeSetCount
)

var nodeSetNames = [nodeSetCount]string{
	"precolored", "simplify", "freeze", "spill", "stack", "coalesced", "colored", "spilled"}

func (set nodeSetT) String() string {
	return nodeSetNames[set]
}

type moveSetT int

const (
	worklistMoves moveSetT = iota
	activeMoves
	coalescedMoves
	constrainedMoves
	frozenMoves
	moveSetCount
)

var moveSetNames = [moveSetCount]string{
	"worklist", "active", "coalesced", "constrained", "frozen"}

func (set moveSetT) String() string {
	return moveSetNames[set]
}

type allocatorT struct {
	k     int
	graph *liveness.GraphT
	moves []liveness.MoveT

	// Chooses among the nodes in the spill set.
	spillPriority func(node int) int

	where  []nodeSetT
	nodes  [nodeSetCount]intsets.Sparse
	stack  util.StackT[int]
	degree []int
	alias  []int
	color  []int // -1 if none

	moveList  []intsets.Sparse // node -> moves it is in
	moveWhere []moveSetT
	moveSets  [moveSetCount]intsets.Sparse
}

// The graph is modified: coalescing adds edges.  Higher spill
// priorities are spilled first.

func newAllocator(live *liveness.ResultT, spillPriority func(node int) int) *allocatorT {
	graph := live.Graph
	count := graph.Len()
	alloc := &allocatorT{
		k:             graph.K(),
		graph:         graph,
		moves:         live.Moves,
		spillPriority: spillPriority,
		where:         make([]nodeSetT, count),
		degree:        make([]int, count),
		alias:         make([]int, count),
		color:         make([]int, count),
		moveList:      make([]intsets.Sparse, count),
		moveWhere:     make([]moveSetT, len(live.Moves)),
	}
	alloc.build()
	alloc.makeWorklist()
	return alloc
}

func (alloc *allocatorT) build() {
	for node := range alloc.graph.Len() {
		alloc.degree[node] = alloc.graph.Degree(node)
		alloc.alias[node] = node
		if alloc.graph.Precolored(node) {
			alloc.color[node] = node
			alloc.where[node] = precoloredSet
		} else {
			alloc.color[node] = -1
		}
	}
	for i, move := range alloc.moves {
		alloc.moveList[move.Src].Insert(i)
		alloc.moveList[move.Dst].Insert(i)
		alloc.moveWhere[i] = worklistMoves
		alloc.moveSets[worklistMoves].Insert(i)
	}
}

func (alloc *allocatorT) makeWorklist() {
	for node := alloc.k; node < alloc.graph.Len(); node++ {
		switch {
		case alloc.k <= alloc.degree[node]:
			alloc.place(node, spillSet)
		case alloc.moveRelated(node):
			alloc.place(node, freezeSet)
		default:
			alloc.place(node, simplifySet)
		}
	}
}

//----------------------------------------------------------------
// Set membership.

func (alloc *allocatorT) place(node int, to nodeSetT) {
	alloc.where[node] = to
	alloc.nodes[to].Insert(node)
}

// Moves 'node' to set 'to'; it has to be in one of the 'from' sets.

func (alloc *allocatorT) transfer(node int, to nodeSetT, from ...nodeSetT) {
	current := alloc.where[node]
	ok := false
	for _, set := range from {
		if current == set {
			ok = true
			break
		}
	}
	if !ok {
		util.Bug("node %d (%s) is in %s, expected %v, moving to %s",
			node, alloc.graph.Temps[node], current, from, to)
	}
	if current != precoloredSet && current != stackSet {
		alloc.nodes[current].Remove(node)
	}
	alloc.where[node] = to
	if to != stackSet {
		alloc.nodes[to].Insert(node)
	}
}

func (alloc *allocatorT) transferMove(move int, to moveSetT, from ...moveSetT) {
	current := alloc.moveWhere[move]
	ok := false
	for _, set := range from {
		if current == set {
			ok = true
			break
		}
	}
	if !ok {
		util.Bug("move %d is in %s, expected %v, moving to %s", move, current, from, to)
	}
	alloc.moveSets[current].Remove(move)
	alloc.moveWhere[move] = to
	alloc.moveSets[to].Insert(move)
}

func (alloc *allocatorT) precolored(node int) bool {
	return node < alloc.k
}

// Neighbors still in the graph.

func (alloc *allocatorT) adjacent(node int) []int {
	result := []int{}
	for _, other := range alloc.graph.Adjacent(node).AppendTo(nil) {
		if alloc.where[other] != stackSet && alloc.where[other] != coalescedSet {
			result = append(result, other)
		}
	}
	return result
}

// Moves that might still be coalesced.

func (alloc *allocatorT) nodeMoves(node int) []int {
	result := []int{}
	for _, move := range alloc.moveList[node].AppendTo(nil) {
		where := alloc.moveWhere[move]
		if where == worklistMoves || where == activeMoves {
			result = append(result, move)
		}
	}
	return result
}

func (alloc *allocatorT) moveRelated(node int) bool {
	return len(alloc.nodeMoves(node)) != 0
}

func (alloc *allocatorT) getAlias(node int) int {
	for alloc.where[node] == coalescedSet {
		node = alloc.alias[node]
	}
	return node
}

func (alloc *allocatorT) addEdge(x int, y int) {
	if x != y && !alloc.graph.Interferes(x, y) {
		alloc.graph.AddEdge(x, y)
		alloc.degree[x] += 1
		alloc.degree[y] += 1
	}
}

//----------------------------------------------------------------
// The main loop.

func (alloc *allocatorT) run() {
	for alloc.step() {
	}
	alloc.assignColors()
	alloc.checkColors()
}

// Does one thing, if there is anything left to do.

func (alloc *allocatorT) step() bool {
	switch {
	case !alloc.nodes[simplifySet].IsEmpty():
		alloc.simplify()
	case !alloc.moveSets[worklistMoves].IsEmpty():
		alloc.coalesce()
	case !alloc.nodes[freezeSet].IsEmpty():
		alloc.freeze()
	case !alloc.nodes[spillSet].IsEmpty():
		alloc.selectSpill()
	default:
		return false
	}
	return true
}

func (alloc *allocatorT) simplify() {
	node := alloc.nodes[simplifySet].Min()
	alloc.transfer(node, stackSet, simplifySet)
	alloc.stack.Push(node)
	for _, other := range alloc.adjacent(node) {
		alloc.decrementDegree(other)
	}
}

func (alloc *allocatorT) decrementDegree(node int) {
	degree := alloc.degree[node]
	alloc.degree[node] = degree - 1
	if degree != alloc.k {
		return
	}
	alloc.enableMoves(node)
	for _, other := range alloc.adjacent(node) {
		alloc.enableMoves(other)
	}
	switch alloc.where[node] {
	case precoloredSet:
	case spillSet:
		if alloc.moveRelated(node) {
			alloc.transfer(node, freezeSet, spillSet)
		} else {
			alloc.transfer(node, simplifySet, spillSet)
		}
	case simplifySet, freezeSet:
		// The degree went up to K when coalescing added an edge and
		// is now back where it was.
	default:
		util.Bug("decrementing degree of %s, which is in %s",
			alloc.graph.Temps[node], alloc.where[node])
	}
}

func (alloc *allocatorT) enableMoves(node int) {
	for _, move := range alloc.nodeMoves(node) {
		if alloc.moveWhere[move] == activeMoves {
			alloc.transferMove(move, worklistMoves, activeMoves)
		}
	}
}

func (alloc *allocatorT) coalesce() {
	move := alloc.moveSets[worklistMoves].Min()
	x := alloc.getAlias(alloc.moves[move].Dst)
	y := alloc.getAlias(alloc.moves[move].Src)
	u, v := x, y
	if alloc.precolored(y) {
		u, v = y, x
	}
	switch {
	case u == v:
		alloc.transferMove(move, coalescedMoves, worklistMoves)
		alloc.addWorklist(u)
	case alloc.precolored(v) || alloc.graph.Interferes(u, v):
		alloc.transferMove(move, constrainedMoves, worklistMoves)
		alloc.addWorklist(u)
		alloc.addWorklist(v)
	case alloc.canCombine(u, v):
		alloc.transferMove(move, coalescedMoves, worklistMoves)
		alloc.combine(u, v)
		alloc.addWorklist(u)
	default:
		alloc.transferMove(move, activeMoves, worklistMoves)
	}
}

// Low degree nodes that are no longer move related can be simplified.

func (alloc *allocatorT) addWorklist(node int) {
	if !alloc.precolored(node) && !alloc.moveRelated(node) && alloc.degree[node] < alloc.k {
		alloc.transfer(node, simplifySet, freezeSet)
	}
}

// George's test when 'u' is a register, Briggs's otherwise.

func (alloc *allocatorT) canCombine(u int, v int) bool {
	if alloc.precolored(u) {
		for _, t := range alloc.adjacent(v) {
			if !(alloc.degree[t] < alloc.k || alloc.precolored(t) || alloc.graph.Interferes(t, u)) {
				return false
			}
		}
		return true
	}
	var neighbors intsets.Sparse
	for _, t := range alloc.adjacent(u) {
		neighbors.Insert(t)
	}
	for _, t := range alloc.adjacent(v) {
		neighbors.Insert(t)
	}
	significant := 0
	for _, t := range neighbors.AppendTo(nil) {
		if alloc.k <= alloc.degree[t] || alloc.precolored(t) {
			significant += 1
		}
	}
	return significant < alloc.k
}

func (alloc *allocatorT) combine(u int, v int) {
	if alloc.graph.Interferes(u, v) {
		util.Bug("combining interfering nodes %s and %s",
			alloc.graph.Temps[u], alloc.graph.Temps[v])
	}
	alloc.transfer(v, coalescedSet, freezeSet, spillSet)
	alloc.alias[v] = u
	alloc.moveList[u].UnionWith(&alloc.moveList[v])
	alloc.enableMoves(v)
	for _, t := range alloc.adjacent(v) {
		alloc.addEdge(t, u)
		alloc.decrementDegree(t)
	}
	if alloc.k <= alloc.degree[u] && alloc.where[u] == freezeSet {
		alloc.transfer(u, spillSet, freezeSet)
	}
}

func (alloc *allocatorT) freeze() {
	node := alloc.nodes[freezeSet].Min()
	alloc.transfer(node, simplifySet, freezeSet)
	alloc.freezeMoves(node)
}

func (alloc *allocatorT) freezeMoves(u int) {
	for _, move := range alloc.nodeMoves(u) {
		x := alloc.moves[move].Dst
		y := alloc.moves[move].Src
		var v int
		if alloc.getAlias(y) == alloc.getAlias(u) {
			v = alloc.getAlias(x)
		} else {
			v = alloc.getAlias(y)
		}
		alloc.transferMove(move, frozenMoves, activeMoves, worklistMoves)
		if !alloc.precolored(v) && alloc.where[v] == freezeSet &&
			!alloc.moveRelated(v) && alloc.degree[v] < alloc.k {

			alloc.transfer(v, simplifySet, freezeSet)
		}
	}
}

// The highest priority node, and the one with the most neighbors
// among those.  Ties go to the lowest numbered node.  With a constant
// priority this is the plain maximum-degree rule; Allocate ranks
// temporaries created by spill code below all others.

func (alloc *allocatorT) selectSpill() {
	best := -1
	for _, node := range alloc.nodes[spillSet].AppendTo(nil) {
		if best == -1 || alloc.spillPriority(best) < alloc.spillPriority(node) ||
			(alloc.spillPriority(best) == alloc.spillPriority(node) &&
				alloc.degree[best] < alloc.degree[node]) {

			best = node
		}
	}
	alloc.transfer(best, simplifySet, spillSet)
	alloc.freezeMoves(best)
}

//----------------------------------------------------------------

func (alloc *allocatorT) assignColors() {
	for !alloc.stack.Empty() {
		node := alloc.stack.Pop()
		var used intsets.Sparse
		for _, other := range alloc.graph.Adjacent(node).AppendTo(nil) {
			other = alloc.getAlias(other)
			if alloc.where[other] == coloredSet || alloc.where[other] == precoloredSet {
				used.Insert(alloc.color[other])
			}
		}
		color := -1
		for i := range alloc.k {
			if !used.Has(i) {
				color = i
				break
			}
		}
		if color == -1 {
			alloc.transfer(node, spilledSet, stackSet)
		} else {
			alloc.transfer(node, coloredSet, stackSet)
			alloc.color[node] = color
		}
	}
	for _, node := range alloc.nodes[coalescedSet].AppendTo(nil) {
		alloc.color[node] = alloc.color[alloc.getAlias(node)]
	}
}

// Every node has been put somewhere final and no two neighbors have
// the same color.

func (alloc *allocatorT) checkColors() {
	for node := range alloc.graph.Len() {
		switch alloc.where[node] {
		case precoloredSet:
			if alloc.color[node] != node {
				util.Bug("register %s has color %d", alloc.graph.Temps[node], alloc.color[node])
			}
		case coloredSet, coalescedSet, spilledSet:
		default:
			util.Bug("%s left in %s", alloc.graph.Temps[node], alloc.where[node])
		}
		if alloc.color[node] == -1 {
			continue
		}
		for _, other := range alloc.graph.Adjacent(node).AppendTo(nil) {
			if alloc.color[other] == alloc.color[node] {
				util.Bug("%s and %s interfere and are both colored %d",
					alloc.graph.Temps[node], alloc.graph.Temps[other], alloc.color[node])
			}
		}
	}
}

func (alloc *allocatorT) spilled() []int {
	return alloc.nodes[spilledSet].AppendTo(nil)
}

func (alloc *allocatorT) String() string {
	return fmt.Sprintf("allocator(K=%d, %d nodes, %d moves)", alloc.k, alloc.graph.Len(), len(alloc.moves))
}
