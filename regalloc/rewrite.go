// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package regalloc

import (
	"github.com/s48/regalloc/asm"
	"github.com/s48/regalloc/frame"
	"github.com/s48/regalloc/util"
)

// Moves the spilled temporaries to the stack.  Each one gets its own
// slot.  An instruction that uses one is preceded by a load into a
// new temporary and one that defines one is followed by a store from
// a new temporary; an instruction that does both uses the same new
// temporary for both.  The new temporaries are added to 'spillTemps'.

func rewriteProgram(instrs []asm.InstrT,
	spilled []*asm.TempT,
	stackFrame *frame.FrameT,
	spillTemps util.SetT[*asm.TempT]) []asm.InstrT {

	slots := map[*asm.TempT]frame.SlotT{}
	for _, temp := range spilled {
		if temp.Precolored {
			util.Bug("spilling register %s", temp)
		}
		slots[temp] = stackFrame.AllocSpillSlot()
	}
	sp := stackFrame.StackPointer()
	result := make([]asm.InstrT, 0, len(instrs))
	for _, instr := range instrs {
		fresh := map[*asm.TempT]*asm.TempT{}
		replacement := func(temp *asm.TempT) *asm.TempT {
			newTemp := fresh[temp]
			if newTemp == nil {
				newTemp = asm.NewTemp(temp.Name)
				fresh[temp] = newTemp
				spillTemps.Add(newTemp)
			}
			return newTemp
		}
		for _, temp := range instr.Use() {
			if slot, found := slots[temp]; found {
				newTemp := replacement(temp)
				result = append(result, asm.Load(newTemp, sp, slot.Offset))
				instr.ReplaceUse(temp, newTemp)
			}
		}
		result = append(result, instr)
		for _, temp := range instr.Def() {
			if slot, found := slots[temp]; found {
				newTemp := replacement(temp)
				instr.ReplaceDef(temp, newTemp)
				result = append(result, asm.Store(newTemp, sp, slot.Offset))
			}
		}
	}
	return result
}
