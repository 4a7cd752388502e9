// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package flowgraph

import (
	"slices"
	"testing"

	"github.com/s48/regalloc/asm"
	"github.com/s48/regalloc/util"
)

type noRegistersT struct{}

func (noRegistersT) Register(name string) *asm.TempT { return nil }

func readInstrs(t *testing.T, source string) []asm.InstrT {
	t.Helper()
	proc, err := asm.ReadProc(source, noRegistersT{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return proc.Instrs
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		next     [][]int
		previous [][]int
	}{
		{
			name:     "empty",
			source:   "(proc p)",
			next:     [][]int{},
			previous: [][]int{},
		},
		{
			name:     "straight line",
			source:   "(proc p (li a 1) (li b 2) (add c a b) (ret c))",
			next:     [][]int{{1}, {2}, {3}, nil},
			previous: [][]int{nil, {0}, {1}, {2}},
		},
		{
			name: "loop",
			source: `(proc p
			           (li i 0)
			           (li n 10)
			           (label top)
			           (addi i i 1)
			           (blt i n top)
			           (ret i))`,
			next:     [][]int{{1}, {2}, {3}, {4}, {5, 2}, nil},
			previous: [][]int{nil, {0}, {1, 4}, {2}, {3}, {4}},
		},
		{
			name: "jump skips code",
			source: `(proc p
			           (li a 0)
			           (jmp done)
			           (li a 1)
			           (label done)
			           (ret a))`,
			next:     [][]int{{1}, {3}, {3}, {4}, nil},
			previous: [][]int{nil, {0}, nil, {1, 2}, {3}},
		},
		{
			name: "branch to next",
			source: `(proc p
			           (li a 0)
			           (beq a a next)
			           (label next)
			           (ret a))`,
			next:     [][]int{{1}, {2}, {3}, nil},
			previous: [][]int{nil, {0}, {1}, {2}},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			instrs := readInstrs(t, test.source)
			graph := Build(instrs)
			if graph.Len() != len(instrs) {
				t.Fatalf("got %d nodes, want %d", graph.Len(), len(instrs))
			}
			for i, node := range graph.Nodes {
				if node.Index != i || node.Instr != instrs[i] {
					t.Errorf("node %d is out of order", i)
				}
				if !slices.Equal(node.Next, test.next[i]) {
					t.Errorf("node %d: got next %v, want %v", i, node.Next, test.next[i])
				}
				if !slices.Equal(node.Previous, test.previous[i]) {
					t.Errorf("node %d: got previous %v, want %v", i, node.Previous, test.previous[i])
				}
			}
		})
	}
}

func TestUndefinedLabel(t *testing.T) {
	label := asm.NewLabel("nowhere")
	instrs := []asm.InstrT{asm.MakeOper("jmp", nil, nil, 0, label)}
	defer func() {
		if util.AsBug(recover()) == nil {
			t.Errorf("jump to an undefined label was not reported")
		}
	}()
	Build(instrs)
}
