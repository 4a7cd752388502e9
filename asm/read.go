// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Reading listings written as S-expressions:
//
//   (proc fact
//     (entry r0)
//     (move n r0)
//     (li acc 1)
//     (label loop)
//     ...
//     (ret r0))
//
// Operands are destinations, then sources, then the immediate value
// (if the opcode has one), then jump targets.  Names that the
// register set recognizes are machine registers; any other name is
// a temporary, the same one for every use of the name within a proc.

package asm

import (
	"slices"

	"github.com/nikandfor/errors"

	"github.com/s48/regalloc/util"
)

// Supplied by the target.  Returns nil for names that are not
// registers.
type RegisterSetT interface {
	Register(name string) *TempT
}

func ReadProcs(data string, registers RegisterSetT) ([]*ProcT, error) {
	sexps, err := util.ParseSExps(data)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}
	procs := make([]*ProcT, 0, len(sexps))
	for _, sexp := range sexps {
		proc, err := readProc(sexp, registers)
		if err != nil {
			return nil, err
		}
		procs = append(procs, proc)
	}
	return procs, nil
}

// Reads a listing that contains exactly one proc.

func ReadProc(data string, registers RegisterSetT) (*ProcT, error) {
	procs, err := ReadProcs(data, registers)
	if err != nil {
		return nil, err
	}
	if len(procs) != 1 {
		return nil, errors.New("expected one proc, found %d", len(procs))
	}
	return procs[0], nil
}

type procReaderT struct {
	registers RegisterSetT
	temps     map[string]*TempT
	labels    map[string]*LabelT
	defined   util.SetT[*LabelT]
}

func readProc(sexp *util.SExpT, registers RegisterSetT) (*ProcT, error) {
	if sexp.Kind != util.SExpList || len(sexp.List) < 2 ||
		!sexp.List[0].IsSymbol("proc") || sexp.List[1].Kind != util.SExpSymbol {

		return nil, errors.New("line %d: expected (proc <name> ...)", sexp.Line)
	}
	reader := &procReaderT{
		registers: registers,
		temps:     map[string]*TempT{},
		labels:    map[string]*LabelT{},
		defined:   util.NewSet[*LabelT](),
	}
	proc := &ProcT{Name: sexp.List[1].Symbol}
	for _, form := range sexp.List[2:] {
		instr, err := reader.readInstr(form)
		if err != nil {
			return nil, errors.Wrap(err, "proc %s", proc.Name)
		}
		proc.Instrs = append(proc.Instrs, instr)
	}
	for name, label := range reader.labels {
		if !reader.defined.Contains(label) {
			return nil, errors.New("proc %s: label %s is never defined", proc.Name, name)
		}
	}
	return proc, nil
}

func (reader *procReaderT) readInstr(form *util.SExpT) (InstrT, error) {
	if form.Kind != util.SExpList || len(form.List) == 0 || form.List[0].Kind != util.SExpSymbol {
		return nil, errors.New("line %d: bad instruction %s", form.Line, form)
	}
	args := form.List[1:]
	switch form.List[0].Symbol {
	case "label":
		if len(args) != 1 || args[0].Kind != util.SExpSymbol {
			return nil, errors.New("line %d: expected (label <name>)", form.Line)
		}
		label := reader.label(args[0].Symbol)
		if !reader.defined.Insert(label) {
			return nil, errors.New("line %d: label %s defined twice", form.Line, label)
		}
		return MakeLabel(label), nil
	case "move":
		if len(args) != 2 {
			return nil, errors.New("line %d: expected (move <dst> <src>)", form.Line)
		}
		dst, err := reader.temp(args[0])
		if err != nil {
			return nil, err
		}
		src, err := reader.temp(args[1])
		if err != nil {
			return nil, err
		}
		return MakeMove(dst, src), nil
	}
	opcode := OpcodeTable[form.List[0].Symbol]
	if opcode == nil {
		return nil, errors.New("line %d: unknown opcode %s", form.Line, form.List[0].Symbol)
	}
	return reader.readOper(opcode, form)
}

// Variable counts are only allowed at the end of the operand list
// (entry's destinations, ret's sources), so everything else can be
// read positionally.

func (reader *procReaderT) readOper(opcode *OpcodeT, form *util.SExpT) (InstrT, error) {
	args := form.List[1:]
	temps := []*TempT{}
	i := 0
	for ; i < len(args) && args[i].Kind == util.SExpSymbol; i++ {
		if opcode.TargetCount != 0 && len(args)-i <= opcode.TargetCount {
			break
		}
		temp, err := reader.temp(args[i])
		if err != nil {
			return nil, err
		}
		temps = append(temps, temp)
	}
	instr := &OperInstrT{Opcode: opcode}
	switch {
	case opcode.DstCount == anyCount:
		instr.Dst = temps
	case opcode.SrcCount == anyCount:
		instr.Src = temps
	default:
		if len(temps) != opcode.DstCount+opcode.SrcCount {
			return nil, errors.New("line %d: %s takes %d registers, found %d",
				form.Line, opcode.Name, opcode.DstCount+opcode.SrcCount, len(temps))
		}
		instr.Dst = slices.Clip(temps[:opcode.DstCount])
		instr.Src = temps[opcode.DstCount:]
	}
	if opcode.HasImm {
		if len(args) <= i || args[i].Kind != util.SExpInt {
			return nil, errors.New("line %d: %s needs an integer operand", form.Line, opcode.Name)
		}
		instr.Imm = args[i].Integer
		i += 1
	}
	for ; i < len(args); i++ {
		if args[i].Kind != util.SExpSymbol {
			return nil, errors.New("line %d: bad jump target %s", form.Line, args[i])
		}
		instr.Targets = append(instr.Targets, reader.label(args[i].Symbol))
	}
	if err := opcode.checkShape(len(instr.Dst), len(instr.Src), len(instr.Targets)); err != nil {
		return nil, errors.Wrap(err, "line %d", form.Line)
	}
	return instr, nil
}

func (reader *procReaderT) temp(sexp *util.SExpT) (*TempT, error) {
	if sexp.Kind != util.SExpSymbol {
		return nil, errors.New("line %d: expected a register or temporary, found %s", sexp.Line, sexp)
	}
	if reg := reader.registers.Register(sexp.Symbol); reg != nil {
		return reg, nil
	}
	temp := reader.temps[sexp.Symbol]
	if temp == nil {
		temp = NewTemp(sexp.Symbol)
		reader.temps[sexp.Symbol] = temp
	}
	return temp, nil
}

func (reader *procReaderT) label(name string) *LabelT {
	label := reader.labels[name]
	if label == nil {
		label = NewLabel(name)
		reader.labels[name] = label
	}
	return label
}
