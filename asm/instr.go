// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Abstract assembly instructions.  There are exactly three kinds:
// labels, moves, and operations.  Each reports the temporaries it
// defines and uses.  Moves are special because the source can be
// copied into the destination for free, which is what allows the
// register allocator to coalesce them.
//
// Instructions are immutable except that the spiller replaces
// temporaries in them.

package asm

import (
	"fmt"
	"slices"
	"strings"

	"github.com/s48/regalloc/util"
)

type InstrKindT int

const (
	LabelInstr InstrKindT = iota
	MoveInstr
	OperInstr
)

type InstrT interface {
	Kind() InstrKindT
	Def() []*TempT // no duplicates
	Use() []*TempT // no duplicates
	IsMove() bool
	Jumps() []*LabelT
	// False for unconditional jumps and returns.
	FallsThrough() bool

	// Used by the spiller.  It is an error if 'old' is not present.
	ReplaceUse(old *TempT, new *TempT)
	ReplaceDef(old *TempT, new *TempT)

	String() string

	isInstr()
}

//----------------------------------------------------------------

type LabelInstrT struct {
	Label *LabelT
}

func MakeLabel(label *LabelT) *LabelInstrT {
	return &LabelInstrT{Label: label}
}

func (instr *LabelInstrT) Kind() InstrKindT   { return LabelInstr }
func (instr *LabelInstrT) Def() []*TempT      { return nil }
func (instr *LabelInstrT) Use() []*TempT      { return nil }
func (instr *LabelInstrT) IsMove() bool       { return false }
func (instr *LabelInstrT) Jumps() []*LabelT   { return nil }
func (instr *LabelInstrT) FallsThrough() bool { return true }
func (instr *LabelInstrT) String() string     { return instr.Label.Name + ":" }
func (instr *LabelInstrT) isInstr()           {}

func (instr *LabelInstrT) ReplaceUse(old *TempT, new *TempT) {
	util.Bug("replacing %s in label %s", old, instr.Label)
}

func (instr *LabelInstrT) ReplaceDef(old *TempT, new *TempT) {
	util.Bug("replacing %s in label %s", old, instr.Label)
}

//----------------------------------------------------------------

type MoveInstrT struct {
	Dst *TempT
	Src *TempT
}

func MakeMove(dst *TempT, src *TempT) *MoveInstrT {
	return &MoveInstrT{Dst: dst, Src: src}
}

func (instr *MoveInstrT) Kind() InstrKindT   { return MoveInstr }
func (instr *MoveInstrT) Def() []*TempT      { return []*TempT{instr.Dst} }
func (instr *MoveInstrT) Use() []*TempT      { return []*TempT{instr.Src} }
func (instr *MoveInstrT) IsMove() bool       { return true }
func (instr *MoveInstrT) Jumps() []*LabelT   { return nil }
func (instr *MoveInstrT) FallsThrough() bool { return true }
func (instr *MoveInstrT) isInstr()           {}

func (instr *MoveInstrT) String() string {
	return fmt.Sprintf("move %s, %s", instr.Dst, instr.Src)
}

func (instr *MoveInstrT) ReplaceUse(old *TempT, new *TempT) {
	if instr.Src != old {
		util.Bug("%s is not used by %s", old, instr)
	}
	instr.Src = new
}

func (instr *MoveInstrT) ReplaceDef(old *TempT, new *TempT) {
	if instr.Dst != old {
		util.Bug("%s is not defined by %s", old, instr)
	}
	instr.Dst = new
}

//----------------------------------------------------------------
// Operations keep their operands in order, because evaluation and
// printing need them that way.  The same temporary may appear more
// than once as a source ('add x, y, y'); Use() removes the duplicates.

type OperInstrT struct {
	Opcode  *OpcodeT
	Dst     []*TempT
	Src     []*TempT
	Imm     int
	Targets []*LabelT
}

// Panics if the operands don't fit the opcode.

func MakeOper(name string, dst []*TempT, src []*TempT, imm int, targets ...*LabelT) *OperInstrT {
	opcode := LookupOpcode(name)
	if err := opcode.checkShape(len(dst), len(src), len(targets)); err != nil {
		util.Bug("%s", err)
	}
	return &OperInstrT{Opcode: opcode, Dst: dst, Src: src, Imm: imm, Targets: targets}
}

// Spill code.  'base' is the stack pointer.

func Load(dst *TempT, base *TempT, offset int) *OperInstrT {
	return MakeOper("load", []*TempT{dst}, []*TempT{base}, offset)
}

func Store(src *TempT, base *TempT, offset int) *OperInstrT {
	return MakeOper("store", nil, []*TempT{src, base}, offset)
}

func (instr *OperInstrT) Kind() InstrKindT   { return OperInstr }
func (instr *OperInstrT) Def() []*TempT      { return distinct(instr.Dst) }
func (instr *OperInstrT) Use() []*TempT      { return distinct(instr.Src) }
func (instr *OperInstrT) IsMove() bool       { return false }
func (instr *OperInstrT) Jumps() []*LabelT   { return instr.Targets }
func (instr *OperInstrT) FallsThrough() bool { return instr.Opcode.FallsThrough }
func (instr *OperInstrT) isInstr()           {}

func (instr *OperInstrT) String() string {
	return strings.TrimSpace(FormatInstr(instr, (*TempT).String))
}

func (instr *OperInstrT) ReplaceUse(old *TempT, new *TempT) {
	if !replaceTemp(instr.Src, old, new) {
		util.Bug("%s is not used by %s", old, instr)
	}
}

func (instr *OperInstrT) ReplaceDef(old *TempT, new *TempT) {
	if !replaceTemp(instr.Dst, old, new) {
		util.Bug("%s is not defined by %s", old, instr)
	}
}

func replaceTemp(temps []*TempT, old *TempT, new *TempT) bool {
	replaced := false
	for i, temp := range temps {
		if temp == old {
			temps[i] = new
			replaced = true
		}
	}
	return replaced
}

func distinct(temps []*TempT) []*TempT {
	if len(temps) < 2 {
		return slices.Clip(temps)
	}
	result := make([]*TempT, 0, len(temps))
	for _, temp := range temps {
		if !slices.Contains(result, temp) {
			result = append(result, temp)
		}
	}
	return result
}

// Copies that can have their temporaries replaced without changing
// the originals.  Labels are never modified and are shared.

func CopyInstrs(instrs []InstrT) []InstrT {
	result := make([]InstrT, len(instrs))
	for i, rawInstr := range instrs {
		switch instr := rawInstr.(type) {
		case *MoveInstrT:
			result[i] = MakeMove(instr.Dst, instr.Src)
		case *OperInstrT:
			result[i] = &OperInstrT{
				Opcode:  instr.Opcode,
				Dst:     slices.Clone(instr.Dst),
				Src:     slices.Clone(instr.Src),
				Imm:     instr.Imm,
				Targets: instr.Targets,
			}
		default:
			result[i] = rawInstr
		}
	}
	return result
}
