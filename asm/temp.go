// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Temporaries and labels.  Both are compared by identity, never by
// name; two temporaries with the same name are different temporaries.

package asm

import (
	"fmt"
	"sync/atomic"
)

type TempT struct {
	Name       string
	Id         int
	Precolored bool // a machine register
}

func (temp *TempT) String() string {
	if temp.Precolored {
		return temp.Name
	}
	return fmt.Sprintf("%s_%d", temp.Name, temp.Id)
}

// Ids are unique across the process so that temporaries from
// different procedures can be numbered independently and in parallel.
var nextTempId atomic.Int64

func NewTemp(name string) *TempT {
	if name == "" {
		name = "t"
	}
	return &TempT{Name: name, Id: int(nextTempId.Add(1))}
}

// Machine registers are temporaries that are already assigned.

func NewRegisterTemp(name string) *TempT {
	temp := NewTemp(name)
	temp.Precolored = true
	return temp
}

// Compares by Id, for sorting.
func CompareTemps(x *TempT, y *TempT) int {
	return x.Id - y.Id
}

type LabelT struct {
	Name string
}

func (label *LabelT) String() string {
	return label.Name
}

func NewLabel(name string) *LabelT {
	return &LabelT{Name: name}
}

// A procedure's body, as delivered by instruction selection.
type ProcT struct {
	Name   string
	Instrs []InstrT
}
