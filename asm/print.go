// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Printing listings, either with temporaries or, after allocation,
// with the registers they were assigned.

package asm

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

func FormatInstr(rawInstr InstrT, name func(*TempT) string) string {
	switch instr := rawInstr.(type) {
	case *LabelInstrT:
		return instr.Label.Name + ":"
	case *MoveInstrT:
		return fmt.Sprintf("    move %s, %s", name(instr.Dst), name(instr.Src))
	case *OperInstrT:
		operands := []string{}
		for _, dst := range instr.Dst {
			operands = append(operands, name(dst))
		}
		for _, src := range instr.Src {
			operands = append(operands, name(src))
		}
		if instr.Opcode.HasImm {
			operands = append(operands, strconv.Itoa(instr.Imm))
		}
		for _, target := range instr.Targets {
			operands = append(operands, target.Name)
		}
		if len(operands) == 0 {
			return "    " + instr.Opcode.Name
		}
		return "    " + instr.Opcode.Name + " " + strings.Join(operands, ", ")
	}
	panic("unknown instruction kind")
}

func PrintProc(writer io.Writer, proc *ProcT, name func(*TempT) string) {
	fmt.Fprintf(writer, "proc %s\n", proc.Name)
	for _, instr := range proc.Instrs {
		fmt.Fprintf(writer, "%s\n", FormatInstr(instr, name))
	}
}

// Names temporaries by their assigned registers.  Anything without
// a register keeps its own name.

func RegisterNames(coloring map[*TempT]*TempT) func(*TempT) string {
	return func(temp *TempT) string {
		reg := coloring[temp]
		if reg == nil {
			return temp.String()
		}
		return reg.Name
	}
}
