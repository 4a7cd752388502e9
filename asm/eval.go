// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Run instruction listings as programs for testing.  The opcodes in
// opcode.go all have evaluation functions that get used here.
//
// Values can either be associated with temporaries or with
// registers, after register assignment.  Running a procedure both
// ways and comparing the results checks that allocation, including
// any spill code, did not change what it computes.

package asm

import (
	"github.com/nikandfor/errors"

	"github.com/s48/regalloc/util"
)

// Where the stack pointer starts.  Spill slots are at negative
// offsets from it.
const StackBase = 1 << 20

// Runaway loops are reported rather than run forever.
const MaxSteps = 1_000_000

func Evaluate(instrs []InstrT, sp *TempT, args []int) ([]int, error) {
	return evaluate(instrs, sp, args, &TempEnvT{values: map[*TempT]int{}})
}

// 'coloring' maps every temporary to the register it was assigned.

func RegEvaluate(instrs []InstrT, coloring map[*TempT]*TempT, sp *TempT, args []int) ([]int, error) {
	return evaluate(instrs, sp, args, &RegEnvT{coloring: coloring, values: map[*TempT]int{}})
}

func evaluate(instrs []InstrT, sp *TempT, args []int, env EnvT) ([]int, error) {
	labels := map[*LabelT]int{}
	for i, instr := range instrs {
		if label, ok := instr.(*LabelInstrT); ok {
			labels[label.Label] = i
		}
	}
	machine := &machineT{env: env, memory: map[int]int{}, args: args}
	env.Set(sp, StackBase)
	pc := 0
	for steps := 0; ; steps++ {
		if MaxSteps <= steps {
			return nil, errors.New("no return after %d steps", steps)
		}
		if len(instrs) <= pc {
			return nil, errors.New("ran off the end of the program")
		}
		switch instr := instrs[pc].(type) {
		case *LabelInstrT:
			pc += 1
		case *MoveInstrT:
			env.Set(instr.Dst, env.Get(instr.Src))
			pc += 1
		case *OperInstrT:
			target := instr.Opcode.evaluate(instr, machine)
			if machine.done {
				return machine.results, nil
			}
			if target != nil {
				next, found := labels[target]
				if !found {
					return nil, errors.New("jump to unknown label %s", target)
				}
				pc = next
			} else if instr.FallsThrough() {
				pc += 1
			} else {
				return nil, errors.New("%s neither jumped nor fell through", instr)
			}
		}
	}
}

type machineT struct {
	env     EnvT
	memory  map[int]int
	args    []int
	results []int
	done    bool
}

// Missing arguments are zero.
func (machine *machineT) arg(i int) int {
	if i < len(machine.args) {
		return machine.args[i]
	}
	return 0
}

//----------------------------------------------------------------
// Values for temporaries.

type EnvT interface {
	Get(*TempT) int
	Set(*TempT, int)
}

type TempEnvT struct {
	values map[*TempT]int
}

func (env *TempEnvT) Get(temp *TempT) int {
	return env.values[temp]
}

func (env *TempEnvT) Set(temp *TempT, value int) {
	env.values[temp] = value
}

type RegEnvT struct {
	coloring map[*TempT]*TempT
	values   map[*TempT]int
}

func (env *RegEnvT) register(temp *TempT) *TempT {
	reg := env.coloring[temp]
	if reg == nil {
		util.Bug("%s has no register", temp)
	}
	return reg
}

func (env *RegEnvT) Get(temp *TempT) int {
	return env.values[env.register(temp)]
}

func (env *RegEnvT) Set(temp *TempT, value int) {
	env.values[env.register(temp)] = value
}
