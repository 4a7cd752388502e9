// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package asm

import (
	"slices"
	"strings"
	"testing"

	"github.com/s48/regalloc/util"
)

// Registers r0 through r3, plus sp.
type registersT map[string]*TempT

func makeRegisters() registersT {
	registers := registersT{}
	for _, name := range []string{"r0", "r1", "r2", "r3", "sp"} {
		registers[name] = NewRegisterTemp(name)
	}
	return registers
}

func (registers registersT) Register(name string) *TempT {
	return registers[name]
}

func names(temps []*TempT) []string {
	result := []string{}
	for _, temp := range temps {
		result = append(result, temp.Name)
	}
	return result
}

func TestReadProc(t *testing.T) {
	registers := makeRegisters()
	proc, err := ReadProc(`
	  (proc test
	    (entry r0 r1)       ; two arguments
	    (move x r0)
	    (add y x x)
	    (store y sp -8)
	    (label top)
	    (blt x r1 top)
	    (ret y r1))`, registers)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if proc.Name != "test" || len(proc.Instrs) != 7 {
		t.Fatalf("got proc %s with %d instructions", proc.Name, len(proc.Instrs))
	}
	tests := []struct {
		def   []string
		use   []string
		kind  InstrKindT
		jumps int
		falls bool
	}{
		{[]string{"r0", "r1"}, []string{}, OperInstr, 0, true},
		{[]string{"x"}, []string{"r0"}, MoveInstr, 0, true},
		{[]string{"y"}, []string{"x"}, OperInstr, 0, true},
		{[]string{}, []string{"y", "sp"}, OperInstr, 0, true},
		{[]string{}, []string{}, LabelInstr, 0, true},
		{[]string{}, []string{"x", "r1"}, OperInstr, 1, true},
		{[]string{}, []string{"y", "r1"}, OperInstr, 0, false},
	}
	for i, test := range tests {
		instr := proc.Instrs[i]
		if got := names(instr.Def()); !slices.Equal(got, test.def) {
			t.Errorf("%d '%s': got defs %v, want %v", i, instr, got, test.def)
		}
		if got := names(instr.Use()); !slices.Equal(got, test.use) {
			t.Errorf("%d '%s': got uses %v, want %v", i, instr, got, test.use)
		}
		if instr.Kind() != test.kind || instr.IsMove() != (test.kind == MoveInstr) {
			t.Errorf("%d '%s': wrong kind", i, instr)
		}
		if len(instr.Jumps()) != test.jumps || instr.FallsThrough() != test.falls {
			t.Errorf("%d '%s': wrong control flow", i, instr)
		}
	}
	if proc.Instrs[0].Def()[0] != registers["r0"] {
		t.Errorf("r0 was not read as a register")
	}
	if proc.Instrs[1].Def()[0] != proc.Instrs[2].Use()[0] {
		t.Errorf("two uses of x are different temporaries")
	}
	jump := proc.Instrs[5].(*OperInstrT).Targets[0]
	if jump != proc.Instrs[4].(*LabelInstrT).Label {
		t.Errorf("jump target is not the label")
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		errMsg string
	}{
		{"not a proc", "(foo bar)", "expected (proc"},
		{"unknown opcode", "(proc p (frob x))", "unknown opcode frob"},
		{"arity", "(proc p (add x y))", "add takes 3 registers"},
		{"missing immediate", "(proc p (li x))", "li needs an integer"},
		{"duplicate label", "(proc p (label a) (label a))", "label a defined twice"},
		{"undefined label", "(proc p (jmp nowhere))", "label nowhere is never defined"},
		{"bad move", "(proc p (move x))", "expected (move"},
		{"parse", "(proc p", "end of input"},
		{"two procs", "(proc p) (proc q)", "expected one proc"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ReadProc(test.source, makeRegisters())
			if err == nil || !strings.Contains(err.Error(), test.errMsg) {
				t.Errorf("got error %v, want one containing %q", err, test.errMsg)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	registers := makeRegisters()
	proc, err := ReadProc(`
	  (proc f
	    (li a 5)
	    (label l)
	    (addi b a -1)
	    (load c sp -16)
	    (bne b c l)
	    (ret))`, registers)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	a := proc.Instrs[0].Def()[0]
	b := proc.Instrs[2].Def()[0]
	c := proc.Instrs[3].Def()[0]
	coloring := map[*TempT]*TempT{a: registers["r0"], b: registers["r1"]}
	var builder strings.Builder
	PrintProc(&builder, proc, RegisterNames(coloring))
	want := strings.Join([]string{
		"proc f",
		"    li r0, 5",
		"l:",
		"    addi r1, r0, -1",
		"    load " + c.String() + ", sp, -16",
		"    bne r1, " + c.String() + ", l",
		"    ret",
		"",
	}, "\n")
	if builder.String() != want {
		t.Errorf("got\n%s\nwant\n%s", builder.String(), want)
	}
	if got := proc.Instrs[2].String(); got != "addi "+b.String()+", "+a.String()+", -1" {
		t.Errorf("got %q", got)
	}
}

func TestEvaluate(t *testing.T) {
	registers := makeRegisters()
	proc, err := ReadProc(`
	  (proc fact
	    (entry r0)
	    (move n r0)
	    (li acc 1)
	    (li zero 0)
	    (label loop)
	    (beq n zero done)
	    (store n sp -8)
	    (mul acc acc n)
	    (load n sp -8)
	    (addi n n -1)
	    (jmp loop)
	    (label done)
	    (ret acc))`, registers)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	tests := []struct {
		args []int
		want []int
	}{
		{[]int{0}, []int{1}},
		{[]int{1}, []int{1}},
		{[]int{5}, []int{120}},
		{nil, []int{1}},
	}
	for _, test := range tests {
		got, err := Evaluate(proc.Instrs, registers["sp"], test.args)
		if err != nil {
			t.Errorf("fact(%v): %v", test.args, err)
		} else if !slices.Equal(got, test.want) {
			t.Errorf("fact(%v) = %v, want %v", test.args, got, test.want)
		}
	}

	coloring := map[*TempT]*TempT{registers["sp"]: registers["sp"], registers["r0"]: registers["r0"]}
	// n, acc and zero are defined by instructions 1 through 3.
	for i, reg := range []string{"r1", "r2", "r3"} {
		coloring[proc.Instrs[i+1].Def()[0]] = registers[reg]
	}
	got, err := RegEvaluate(proc.Instrs, coloring, registers["sp"], []int{5})
	if err != nil || !slices.Equal(got, []int{120}) {
		t.Errorf("got %v %v, want [120]", got, err)
	}
}

func TestEvaluateErrors(t *testing.T) {
	registers := makeRegisters()
	tests := []struct {
		name   string
		source string
		errMsg string
	}{
		{"runaway", "(proc p (label l) (jmp l))", "no return"},
		{"off the end", "(proc p (li a 1))", "ran off the end"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			proc, err := ReadProc(test.source, registers)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			_, err = Evaluate(proc.Instrs, registers["sp"], nil)
			if err == nil || !strings.Contains(err.Error(), test.errMsg) {
				t.Errorf("got error %v, want one containing %q", err, test.errMsg)
			}
		})
	}
}

func TestReplace(t *testing.T) {
	x := NewTemp("x")
	y := NewTemp("y")
	z := NewTemp("z")
	add := MakeOper("add", []*TempT{x}, []*TempT{y, y}, 0)
	copied := CopyInstrs([]InstrT{add})[0]
	add.ReplaceUse(y, z)
	if !slices.Equal(add.Src, []*TempT{z, z}) {
		t.Errorf("got %v", add)
	}
	if !slices.Equal(copied.Use(), []*TempT{y}) {
		t.Errorf("the copy changed: %v", copied)
	}
	add.ReplaceDef(x, y)
	if add.Dst[0] != y {
		t.Errorf("got %v", add)
	}
	defer func() {
		if util.AsBug(recover()) == nil {
			t.Errorf("replacing a missing temporary did not panic")
		}
	}()
	add.ReplaceUse(x, z)
}

func TestMakeOperShape(t *testing.T) {
	defer func() {
		if util.AsBug(recover()) == nil {
			t.Errorf("bad operands did not panic")
		}
	}()
	MakeOper("add", nil, []*TempT{NewTemp("")}, 0)
}
