// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package regalloc

import (
	"github.com/nikandfor/errors"

	"github.com/s48/regalloc/asm"
	"github.com/s48/regalloc/flowgraph"
	"github.com/s48/regalloc/liveness"
)

// Checks an allocation from scratch: registers are assigned to
// themselves, every temporary has a register, and nothing an
// instruction defines is put in a register holding some other value
// that is still needed.

func Verify(instrs []asm.InstrT, coloring map[*asm.TempT]*asm.TempT, machine liveness.MachineT) error {
	for _, reg := range machine.Registers() {
		if coloring[reg] != reg {
			return errors.New("register %s assigned to %v", reg, coloring[reg])
		}
	}
	flow := flowgraph.Build(instrs)
	live := liveness.Analyze(flow, machine)
	for _, temp := range live.Graph.Temps {
		if coloring[temp] == nil {
			return errors.New("%s has no register", temp)
		}
	}
	for i, node := range flow.Nodes {
		instr := node.Instr
		liveOut := live.LiveOutTemps(i)
		defs := instr.Def()
		for j, def := range defs {
			if def == machine.StackPointer() {
				continue
			}
			for _, other := range liveOut {
				if other == def || (instr.IsMove() && other == instr.Use()[0]) {
					continue
				}
				if coloring[other] == coloring[def] {
					return errors.New("instruction %d '%s': %s and live %s are both in %s",
						i, instr, def, other, coloring[def])
				}
			}
			for _, other := range defs[j+1:] {
				if coloring[other] == coloring[def] {
					return errors.New("instruction %d '%s': %s and %s are both in %s",
						i, instr, def, other, coloring[def])
				}
			}
		}
	}
	return nil
}
