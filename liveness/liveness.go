// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Liveness analysis and the interference graph.
//
// A temporary is live on entry to an instruction if the instruction
// uses it, or if it is live on exit and the instruction does not
// define it.  It is live on exit if it is live on entry to any
// successor.  The sets are recomputed until nothing changes.
//
// Two temporaries interfere if one is defined where the other is
// live on exit.  The exception is a move, where the destination
// does not interfere with the source, so that the two can share a
// register and the move can be deleted.
//
// Machine registers are always in the graph and all interfere with
// one another.  The stack pointer is not in the graph at all.

package liveness

import (
	"golang.org/x/tools/container/intsets"

	"github.com/s48/regalloc/asm"
	"github.com/s48/regalloc/flowgraph"
	"github.com/s48/regalloc/util"
)

// What the analysis needs to know about the target.
type MachineT interface {
	Registers() []*asm.TempT
	StackPointer() *asm.TempT
}

// A move instruction as a pair of graph nodes.
type MoveT struct {
	Src int
	Dst int
}

type ResultT struct {
	Graph *GraphT
	// Distinct moves, in the order they first appear.
	Moves []MoveT
	// Indexed by flow graph node; the members are interference
	// graph nodes.
	LiveIn  []intsets.Sparse
	LiveOut []intsets.Sparse
}

func Analyze(flow *flowgraph.GraphT, machine MachineT) *ResultT {
	sp := machine.StackPointer()
	graph := newGraph(flow, machine)
	count := flow.Len()

	uses := make([]intsets.Sparse, count)
	defs := make([]intsets.Sparse, count)
	for i, node := range flow.Nodes {
		for _, temp := range node.Instr.Use() {
			if temp != sp {
				uses[i].Insert(graph.Index(temp))
			}
		}
		for _, temp := range node.Instr.Def() {
			if temp != sp {
				defs[i].Insert(graph.Index(temp))
			}
		}
	}

	result := &ResultT{
		Graph:   graph,
		LiveIn:  make([]intsets.Sparse, count),
		LiveOut: make([]intsets.Sparse, count),
	}
	// Successors are finished before their predecessors by solving
	// the strongly connected components last to first.  Only the
	// instructions in a loop need to be revisited.
	components := util.StronglyConnectedComponents(count, func(i int) []int {
		return flow.Nodes[i].Next
	})
	for c := len(components) - 1; 0 <= c; c-- {
		component := components[c]
		for changed := true; changed; {
			changed = false
			for j := len(component) - 1; 0 <= j; j-- {
				if result.update(flow.Nodes[component[j]], &uses[component[j]], &defs[component[j]]) {
					changed = true
				}
			}
		}
	}

	seenMoves := map[MoveT]bool{}
	for i, node := range flow.Nodes {
		live := &result.LiveOut[i]
		if node.Instr.IsMove() {
			move := node.Instr.(*asm.MoveInstrT)
			var notUsed intsets.Sparse
			notUsed.Difference(live, &uses[i])
			live = &notUsed
			if move.Src != sp && move.Dst != sp {
				pair := MoveT{Src: graph.Index(move.Src), Dst: graph.Index(move.Dst)}
				if !seenMoves[pair] {
					seenMoves[pair] = true
					result.Moves = append(result.Moves, pair)
				}
			}
		}
		defined := defs[i].AppendTo(nil)
		for j, def := range defined {
			for _, other := range live.AppendTo(nil) {
				graph.AddEdge(def, other)
			}
			// Values written by the same instruction must all
			// survive it, even the ones never used later.
			for _, other := range defined[j+1:] {
				graph.AddEdge(def, other)
			}
		}
	}
	return result
}

// Recomputes the sets for one node, returning true if they changed.

func (result *ResultT) update(node *flowgraph.NodeT, uses, defs *intsets.Sparse) bool {
	var out intsets.Sparse
	for _, next := range node.Next {
		out.UnionWith(&result.LiveIn[next])
	}
	var in intsets.Sparse
	in.Difference(&out, defs)
	in.UnionWith(uses)
	i := node.Index
	if out.Equals(&result.LiveOut[i]) && in.Equals(&result.LiveIn[i]) {
		return false
	}
	result.LiveOut[i].Copy(&out)
	result.LiveIn[i].Copy(&in)
	return true
}

// The temporaries live on exit from flow graph node 'i'.

func (result *ResultT) LiveOutTemps(i int) []*asm.TempT {
	return result.Graph.temps(&result.LiveOut[i])
}

func (result *ResultT) LiveInTemps(i int) []*asm.TempT {
	return result.Graph.temps(&result.LiveIn[i])
}
