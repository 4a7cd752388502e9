// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Control flow between instructions.  There is one node per
// instruction, in instruction order, and nodes refer to each other
// by index.  An instruction's successors are the next instruction,
// if control falls through, and the targets of any jumps.

package flowgraph

import (
	"fmt"
	"strings"

	"github.com/s48/regalloc/asm"
	"github.com/s48/regalloc/util"
)

type NodeT struct {
	Index    int
	Instr    asm.InstrT
	Next     []int
	Previous []int
}

type GraphT struct {
	Nodes []*NodeT
}

func (graph *GraphT) Len() int {
	return len(graph.Nodes)
}

// The instructions are not modified.

func Build(instrs []asm.InstrT) *GraphT {
	graph := &GraphT{Nodes: make([]*NodeT, len(instrs))}
	labels := map[*asm.LabelT]int{}
	for i, instr := range instrs {
		graph.Nodes[i] = &NodeT{Index: i, Instr: instr}
		if label, ok := instr.(*asm.LabelInstrT); ok {
			labels[label.Label] = i
		}
	}
	for i, node := range graph.Nodes {
		if node.Instr.FallsThrough() && i+1 < len(instrs) {
			graph.addEdge(i, i+1)
		}
		for _, label := range node.Instr.Jumps() {
			target, found := labels[label]
			if !found {
				util.Bug("instruction %d '%s' jumps to undefined label %s", i, node.Instr, label)
			}
			graph.addEdge(i, target)
		}
	}
	return graph
}

// A conditional branch to the next instruction gives only one edge.

func (graph *GraphT) addEdge(from int, to int) {
	node := graph.Nodes[from]
	for _, next := range node.Next {
		if next == to {
			return
		}
	}
	node.Next = append(node.Next, to)
	graph.Nodes[to].Previous = append(graph.Nodes[to].Previous, from)
}

func (graph *GraphT) String() string {
	var builder strings.Builder
	for _, node := range graph.Nodes {
		fmt.Fprintf(&builder, "%3d %-24s -> %v\n", node.Index, node.Instr, node.Next)
	}
	return builder.String()
}
