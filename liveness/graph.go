// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package liveness

import (
	"fmt"
	"strings"

	"golang.org/x/tools/container/intsets"

	"github.com/s48/regalloc/asm"
	"github.com/s48/regalloc/flowgraph"
	"github.com/s48/regalloc/util"
)

// The interference graph.  Nodes 0 through K-1 are the machine
// registers, in target order, so a register's node is also its
// color.  The rest are temporaries in the order in which they
// first appear in the instructions.  Edges are symmetric.

type GraphT struct {
	Temps    []*asm.TempT
	k        int
	index    map[*asm.TempT]int
	adjacent []intsets.Sparse
}

func newGraph(flow *flowgraph.GraphT, machine MachineT) *GraphT {
	sp := machine.StackPointer()
	graph := &GraphT{index: map[*asm.TempT]int{}}
	add := func(temp *asm.TempT) {
		if temp == sp {
			return
		}
		if _, found := graph.index[temp]; !found {
			graph.index[temp] = len(graph.Temps)
			graph.Temps = append(graph.Temps, temp)
		}
	}
	for _, reg := range machine.Registers() {
		add(reg)
	}
	graph.k = len(graph.Temps)
	for _, node := range flow.Nodes {
		for _, temp := range node.Instr.Def() {
			add(temp)
		}
		for _, temp := range node.Instr.Use() {
			add(temp)
		}
	}
	graph.adjacent = make([]intsets.Sparse, len(graph.Temps))
	for i := range graph.k {
		for j := i + 1; j < graph.k; j++ {
			graph.AddEdge(i, j)
		}
	}
	return graph
}

func (graph *GraphT) Len() int {
	return len(graph.Temps)
}

// The number of machine registers.
func (graph *GraphT) K() int {
	return graph.k
}

func (graph *GraphT) Precolored(node int) bool {
	return node < graph.k
}

func (graph *GraphT) Index(temp *asm.TempT) int {
	node, found := graph.index[temp]
	if !found {
		util.Bug("temporary %s is not in the interference graph", temp)
	}
	return node
}

func (graph *GraphT) Lookup(temp *asm.TempT) (int, bool) {
	node, found := graph.index[temp]
	return node, found
}

func (graph *GraphT) AddEdge(x int, y int) {
	if x != y {
		graph.adjacent[x].Insert(y)
		graph.adjacent[y].Insert(x)
	}
}

func (graph *GraphT) Interferes(x int, y int) bool {
	return graph.adjacent[x].Has(y)
}

// Callers must not modify the result.
func (graph *GraphT) Adjacent(node int) *intsets.Sparse {
	return &graph.adjacent[node]
}

func (graph *GraphT) Degree(node int) int {
	return graph.adjacent[node].Len()
}

func (graph *GraphT) temps(nodes *intsets.Sparse) []*asm.TempT {
	result := []*asm.TempT{}
	for _, node := range nodes.AppendTo(nil) {
		result = append(result, graph.Temps[node])
	}
	return result
}

func (graph *GraphT) String() string {
	var builder strings.Builder
	for node, temp := range graph.Temps {
		names := []string{}
		for _, other := range graph.temps(&graph.adjacent[node]) {
			names = append(names, other.String())
		}
		fmt.Fprintf(&builder, "%3d %s: %s\n", node, temp, strings.Join(names, " "))
	}
	return builder.String()
}
