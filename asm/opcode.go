// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Operations for test programs.  The register allocator only looks
// at the defs, uses and jumps of an instruction; the rest of this is
// here so that listings can be read, printed and run.

package asm

import (
	"fmt"

	"github.com/nikandfor/errors"
)

const anyCount = -1

type OpcodeT struct {
	Name         string
	DstCount     int // or anyCount
	SrcCount     int // ditto
	HasImm       bool
	TargetCount  int
	FallsThrough bool
	// Returns the label to jump to, or nil to go on to the next
	// instruction.
	evaluate func(instr *OperInstrT, machine *machineT) *LabelT
}

func (opcode *OpcodeT) String() string {
	return opcode.Name
}

func (opcode *OpcodeT) checkShape(dsts int, srcs int, targets int) error {
	if opcode.DstCount != anyCount && dsts != opcode.DstCount {
		return errors.New("%s has %d destinations, expected %d", opcode.Name, dsts, opcode.DstCount)
	}
	if opcode.SrcCount != anyCount && srcs != opcode.SrcCount {
		return errors.New("%s has %d sources, expected %d", opcode.Name, srcs, opcode.SrcCount)
	}
	if targets != opcode.TargetCount {
		return errors.New("%s has %d jump targets, expected %d", opcode.Name, targets, opcode.TargetCount)
	}
	return nil
}

var OpcodeTable = map[string]*OpcodeT{}

func LookupOpcode(name string) *OpcodeT {
	opcode := OpcodeTable[name]
	if opcode == nil {
		panic(fmt.Sprintf("no opcode named '%s'", name))
	}
	return opcode
}

func addOpcode(opcode *OpcodeT) {
	OpcodeTable[opcode.Name] = opcode
}

func init() {
	// Defines its destinations from the procedure's arguments.
	addOpcode(&OpcodeT{Name: "entry", DstCount: anyCount, FallsThrough: true,
		evaluate: func(instr *OperInstrT, machine *machineT) *LabelT {
			for i, dst := range instr.Dst {
				machine.env.Set(dst, machine.arg(i))
			}
			return nil
		}})
	addOpcode(&OpcodeT{Name: "li", DstCount: 1, HasImm: true, FallsThrough: true,
		evaluate: func(instr *OperInstrT, machine *machineT) *LabelT {
			machine.env.Set(instr.Dst[0], instr.Imm)
			return nil
		}})
	addOpcode(&OpcodeT{Name: "addi", DstCount: 1, SrcCount: 1, HasImm: true, FallsThrough: true,
		evaluate: func(instr *OperInstrT, machine *machineT) *LabelT {
			machine.env.Set(instr.Dst[0], machine.env.Get(instr.Src[0])+instr.Imm)
			return nil
		}})
	addBinop("add", func(x int, y int) int { return x + y })
	addBinop("sub", func(x int, y int) int { return x - y })
	addBinop("mul", func(x int, y int) int { return x * y })
	addOpcode(&OpcodeT{Name: "load", DstCount: 1, SrcCount: 1, HasImm: true, FallsThrough: true,
		evaluate: func(instr *OperInstrT, machine *machineT) *LabelT {
			address := machine.env.Get(instr.Src[0]) + instr.Imm
			machine.env.Set(instr.Dst[0], machine.memory[address])
			return nil
		}})
	addOpcode(&OpcodeT{Name: "store", SrcCount: 2, HasImm: true, FallsThrough: true,
		evaluate: func(instr *OperInstrT, machine *machineT) *LabelT {
			address := machine.env.Get(instr.Src[1]) + instr.Imm
			machine.memory[address] = machine.env.Get(instr.Src[0])
			return nil
		}})
	addOpcode(&OpcodeT{Name: "jmp", TargetCount: 1, FallsThrough: false,
		evaluate: func(instr *OperInstrT, machine *machineT) *LabelT {
			return instr.Targets[0]
		}})
	addBranch("blt", func(x int, y int) bool { return x < y })
	addBranch("beq", func(x int, y int) bool { return x == y })
	addBranch("bne", func(x int, y int) bool { return x != y })
	addOpcode(&OpcodeT{Name: "ret", SrcCount: anyCount, FallsThrough: false,
		evaluate: func(instr *OperInstrT, machine *machineT) *LabelT {
			machine.results = make([]int, len(instr.Src))
			for i, src := range instr.Src {
				machine.results[i] = machine.env.Get(src)
			}
			machine.done = true
			return nil
		}})
}

func addBinop(name string, op func(int, int) int) {
	addOpcode(&OpcodeT{Name: name, DstCount: 1, SrcCount: 2, FallsThrough: true,
		evaluate: func(instr *OperInstrT, machine *machineT) *LabelT {
			x := machine.env.Get(instr.Src[0])
			y := machine.env.Get(instr.Src[1])
			machine.env.Set(instr.Dst[0], op(x, y))
			return nil
		}})
}

// Conditional branches fall through when the test fails.

func addBranch(name string, test func(int, int) bool) {
	addOpcode(&OpcodeT{Name: name, SrcCount: 2, TargetCount: 1, FallsThrough: true,
		evaluate: func(instr *OperInstrT, machine *machineT) *LabelT {
			if test(machine.env.Get(instr.Src[0]), machine.env.Get(instr.Src[1])) {
				return instr.Targets[0]
			}
			return nil
		}})
}
