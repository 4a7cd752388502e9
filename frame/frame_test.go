// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package frame

import (
	"testing"

	"github.com/s48/regalloc/util"
)

func TestNewTarget(t *testing.T) {
	target := NewTarget("test", 3)
	if target.K() != 3 {
		t.Fatalf("got K=%d, want 3", target.K())
	}
	for i, want := range []string{"r0", "r1", "r2"} {
		reg := target.Registers[i]
		if reg.Name != want || !reg.Precolored {
			t.Errorf("register %d: got %s (precolored %v), want precolored %s", i, reg, reg.Precolored, want)
		}
		if target.Register(want) != reg {
			t.Errorf("Register(%s) did not find %s", want, reg)
		}
	}
	if target.Register("sp") != target.SP || !target.SP.Precolored {
		t.Errorf("stack pointer not found by name")
	}
	if target.Register("r3") != nil || target.Register("x") != nil {
		t.Errorf("found registers that don't exist")
	}
}

func TestNewTargetRejectsZero(t *testing.T) {
	defer func() {
		if util.AsBug(recover()) == nil {
			t.Errorf("NewTarget with no registers did not report a bug")
		}
	}()
	NewTarget("empty", 0)
}

func TestAmd64(t *testing.T) {
	target := Amd64()
	if target.K() != 15 {
		t.Fatalf("got K=%d, want 15", target.K())
	}
	if target.SP.Name != "SP" {
		t.Errorf("got stack pointer %s, want SP", target.SP)
	}
	if target.Register("AX") != target.Registers[0] {
		t.Errorf("AX is not the first register")
	}
	for _, reg := range target.Registers {
		if reg.Name == "SP" {
			t.Errorf("SP is allocatable")
		}
		physical := target.Physical(reg)
		if physical == nil || physical.Asm() != reg.Name {
			t.Errorf("%s: wrong physical register %v", reg, physical)
		}
	}
	if target.Physical(target.SP).Asm() != "SP" {
		t.Errorf("stack pointer has the wrong physical register")
	}
}

func TestSpillSlots(t *testing.T) {
	frame := NewTarget("test", 2).NewFrame("f")
	if frame.Size() != 0 || len(frame.Slots()) != 0 {
		t.Fatalf("new frame is not empty")
	}
	tests := []struct {
		want int
	}{
		{-8},
		{-16},
		{-24},
	}
	for _, test := range tests {
		slot := frame.AllocSpillSlot()
		if slot.Offset != test.want {
			t.Errorf("got offset %d, want %d", slot.Offset, test.want)
		}
	}
	if frame.Size() != 3*WordSize {
		t.Errorf("got size %d, want %d", frame.Size(), 3*WordSize)
	}
	if frame.Slots()[1].String() != "-16(sp)" {
		t.Errorf("got %s, want -16(sp)", frame.Slots()[1])
	}
}
