// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Targets and stack frames, as far as the register allocator needs
// them: the machine registers, the stack pointer, and memory slots
// for temporaries that do not get a register.

package frame

import (
	"fmt"
	"strconv"

	"github.com/mmcloughlin/avo/reg"

	"github.com/s48/regalloc/asm"
	"github.com/s48/regalloc/util"
)

const WordSize = 8

// A target's registers are the precolored temporaries.  A register's
// color is its index in Registers.  The stack pointer is not in
// Registers; it is never allocated and never interferes with anything.

type TargetT struct {
	Name      string
	Registers []*asm.TempT
	SP        *asm.TempT
	byName    map[string]*asm.TempT
	physical  map[*asm.TempT]reg.Physical // only for targets built from avo
}

func (target *TargetT) K() int {
	return len(target.Registers)
}

// Returns nil if 'name' is not one of the target's registers or the
// stack pointer.
func (target *TargetT) Register(name string) *asm.TempT {
	return target.byName[name]
}

// The avo register for 'temp', or nil.
func (target *TargetT) Physical(temp *asm.TempT) reg.Physical {
	return target.physical[temp]
}

func (target *TargetT) String() string {
	return fmt.Sprintf("%s(K=%d)", target.Name, target.K())
}

func makeTarget(name string, registerNames []string, spName string) *TargetT {
	target := &TargetT{Name: name, byName: map[string]*asm.TempT{}}
	for _, regName := range registerNames {
		temp := asm.NewRegisterTemp(regName)
		target.Registers = append(target.Registers, temp)
		target.byName[regName] = temp
	}
	target.SP = asm.NewRegisterTemp(spName)
	target.byName[spName] = target.SP
	return target
}

// A made-up machine with registers r0 ... r<k-1> and sp.

func NewTarget(name string, k int) *TargetT {
	if k < 1 {
		util.Bug("target %s needs at least one register, got %d", name, k)
	}
	names := make([]string, k)
	for i := range k {
		names[i] = "r" + strconv.Itoa(i)
	}
	return makeTarget(name, names, "sp")
}

// The amd64 general purpose registers, named as in Go assembly.  The
// restricted register (SP) is the stack pointer, which leaves 15.

func Amd64() *TargetT {
	gp := []reg.Physical{
		reg.RAX, reg.RBX, reg.RCX, reg.RDX, reg.RSI, reg.RDI, reg.RBP, reg.RSP,
		reg.R8, reg.R9, reg.R10, reg.R11, reg.R12, reg.R13, reg.R14, reg.R15,
	}
	names := []string{}
	allocatable := []reg.Physical{}
	var sp reg.Physical
	for _, r := range gp {
		if r.Info()&reg.Restricted != 0 {
			sp = r
		} else {
			names = append(names, r.Asm())
			allocatable = append(allocatable, r)
		}
	}
	target := makeTarget("amd64", names, sp.Asm())
	target.physical = map[*asm.TempT]reg.Physical{target.SP: sp}
	for i, r := range allocatable {
		target.physical[target.Registers[i]] = r
	}
	return target
}

//----------------------------------------------------------------
// One frame per procedure.  Spill slots are handed out downwards
// from the stack pointer, one word each, and never reused.

type SlotT struct {
	Offset int
}

func (slot SlotT) String() string {
	return fmt.Sprintf("%d(sp)", slot.Offset)
}

type FrameT struct {
	Name   string
	target *TargetT
	slots  []SlotT
}

func (target *TargetT) NewFrame(name string) *FrameT {
	return &FrameT{Name: name, target: target}
}

func (frame *FrameT) Target() *TargetT         { return frame.target }
func (frame *FrameT) Registers() []*asm.TempT  { return frame.target.Registers }
func (frame *FrameT) StackPointer() *asm.TempT { return frame.target.SP }
func (frame *FrameT) K() int                   { return frame.target.K() }

func (frame *FrameT) Register(name string) *asm.TempT {
	return frame.target.Register(name)
}

func (frame *FrameT) AllocSpillSlot() SlotT {
	slot := SlotT{Offset: -(len(frame.slots) + 1) * WordSize}
	frame.slots = append(frame.slots, slot)
	return slot
}

func (frame *FrameT) Slots() []SlotT {
	return frame.slots
}

// Bytes of spill space.
func (frame *FrameT) Size() int {
	return len(frame.slots) * WordSize
}
