// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Register allocation for one procedure.  Each pass builds the flow
// graph, finds the interference graph, and colors it.  If some
// temporaries could not be colored they are moved to the stack and
// the whole thing is done again on the rewritten instructions.

package regalloc

import (
	"context"
	"slices"
	"strings"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"

	"github.com/s48/regalloc/asm"
	"github.com/s48/regalloc/flowgraph"
	"github.com/s48/regalloc/frame"
	"github.com/s48/regalloc/liveness"
	"github.com/s48/regalloc/util"
)

type OptionsT struct {
	// Give up after this many passes.  Zero means keep going.
	MaxPasses int
}

type ResultT struct {
	Proc   string
	Instrs []asm.InstrT
	// Every temporary in Instrs, every register, and the stack
	// pointer, mapped to the register it ended up in.
	Coloring map[*asm.TempT]*asm.TempT
	Passes   int
	// In the order they were spilled.
	Spilled []*asm.TempT
	Frame   *frame.FrameT
}

// The procedure's instructions are not modified.  Inconsistencies
// found in the allocator's own data structures are returned as
// errors, as is running out of passes.

func Allocate(ctx context.Context,
	proc *asm.ProcT,
	stackFrame *frame.FrameT,
	options OptionsT) (result *ResultT, err error) {

	tr := tlog.SpawnFromContext(ctx, "regalloc", "proc", proc.Name, "k", stackFrame.K())
	defer tr.Finish("err", &err)
	ctx = tlog.ContextWithSpan(ctx, tr)

	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		bug := util.AsBug(recovered)
		if bug == nil {
			panic(recovered)
		}
		result = nil
		err = errors.Wrap(bug, "proc %s", proc.Name)
	}()

	instrs := asm.CopyInstrs(proc.Instrs)
	spillTemps := util.NewSet[*asm.TempT]()
	result = &ResultT{Proc: proc.Name, Frame: stackFrame}
	for {
		if options.MaxPasses != 0 && options.MaxPasses <= result.Passes {
			return nil, errors.New("proc %s: still spilling after %d passes", proc.Name, result.Passes)
		}
		result.Passes += 1
		graph, alloc := runPass(ctx, instrs, stackFrame, spillTemps, result.Passes)
		spilled := []*asm.TempT{}
		for _, node := range alloc.spilled() {
			spilled = append(spilled, graph.Temps[node])
		}
		if len(spilled) == 0 {
			result.Instrs = instrs
			result.Coloring = makeColoring(graph, alloc, stackFrame)
			if tr.If("regalloc_dump") {
				tr.Printw("allocated", "listing", result.Format())
			}
			return result, nil
		}
		names := make([]string, len(spilled))
		for i, temp := range spilled {
			names[i] = temp.String()
		}
		tr.Printw("spilling", "pass", result.Passes, "temps", names)
		result.Spilled = append(result.Spilled, spilled...)
		instrs = rewriteProgram(instrs, spilled, stackFrame, spillTemps)
	}
}

// Temporaries created to hold spilled values are only spilled again
// if there is nothing else to spill.

func runPass(ctx context.Context,
	instrs []asm.InstrT,
	stackFrame *frame.FrameT,
	spillTemps util.SetT[*asm.TempT],
	pass int) (*liveness.GraphT, *allocatorT) {

	tr := tlog.SpanFromContext(ctx)

	live := liveness.Analyze(flowgraph.Build(instrs), stackFrame)
	graph := live.Graph
	if tr.If("regalloc_dump") {
		tr.Printw("interference graph", "pass", pass, "graph", graph.String())
	}
	// Not the plain maximum-degree rule: temporaries from earlier spill
	// code lose to everything else, and degree only breaks ties within
	// each group.
	alloc := newAllocator(live, func(node int) int {
		if spillTemps.Contains(graph.Temps[node]) {
			return 0
		}
		return 1
	})
	alloc.run()
	tr.Printw("pass",
		"pass", pass,
		"instrs", len(instrs),
		"nodes", graph.Len(),
		"moves", len(live.Moves),
		"spilled", len(alloc.spilled()))
	return graph, alloc
}

func makeColoring(graph *liveness.GraphT, alloc *allocatorT, stackFrame *frame.FrameT) map[*asm.TempT]*asm.TempT {
	registers := stackFrame.Registers()
	coloring := map[*asm.TempT]*asm.TempT{}
	for node, temp := range graph.Temps {
		color := alloc.color[node]
		if color < 0 || len(registers) <= color {
			util.Bug("%s has no color", temp)
		}
		coloring[temp] = registers[color]
	}
	sp := stackFrame.StackPointer()
	coloring[sp] = sp
	return coloring
}

// The instructions without the moves whose source and destination
// got the same register.

func (result *ResultT) RemoveRedundantMoves() []asm.InstrT {
	return slices.DeleteFunc(slices.Clone(result.Instrs), func(instr asm.InstrT) bool {
		move, ok := instr.(*asm.MoveInstrT)
		return ok && result.Coloring[move.Dst] == result.Coloring[move.Src]
	})
}

// The listing with registers in place of temporaries.

func (result *ResultT) Format() string {
	var builder strings.Builder
	proc := &asm.ProcT{Name: result.Proc, Instrs: result.Instrs}
	asm.PrintProc(&builder, proc, asm.RegisterNames(result.Coloring))
	return builder.String()
}

// Runs the allocated instructions using registers instead of
// temporaries.

func (result *ResultT) Evaluate(args []int) ([]int, error) {
	return asm.RegEvaluate(result.Instrs, result.Coloring, result.Frame.StackPointer(), args)
}
