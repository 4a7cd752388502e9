// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package util

import (
	"maps"
	"slices"
)

// A set is a map from objects to the empty struct.  Used where the
// members are pointers (temporaries, labels); sets of small integers
// use intsets.Sparse instead.

type SetT[E comparable] map[E]struct{}

// s := NewSet[*asm.TempT]()
//   or
// s := NewSet(temp)

func NewSet[E comparable](members ...E) SetT[E] {
	set := SetT[E]{}
	for _, member := range members {
		set[member] = struct{}{}
	}
	return set
}

func (set SetT[E]) Add(members ...E) {
	for _, member := range members {
		set[member] = struct{}{}
	}
}

func (set SetT[E]) Remove(member E) {
	delete(set, member)
}

func (set SetT[E]) Contains(member E) bool {
	_, found := set[member]
	return found
}

// Adds 'member' and reports whether it was new.
func (set SetT[E]) Insert(member E) bool {
	if set.Contains(member) {
		return false
	}
	set[member] = struct{}{}
	return true
}

// Map iteration order is random, so anything that has to be
// reproducible should use SortedMembers.

func (set SetT[E]) Members() []E {
	result := make([]E, 0, len(set))
	for member := range set {
		result = append(result, member)
	}
	return result
}

func (set SetT[E]) SortedMembers(cmp func(x E, y E) int) []E {
	result := set.Members()
	slices.SortFunc(result, cmp)
	return result
}

func (set SetT[E]) Union(other SetT[E]) SetT[E] {
	result := maps.Clone(set)
	if result == nil {
		result = SetT[E]{}
	}
	maps.Copy(result, other)
	return result
}

func (set SetT[E]) Difference(other SetT[E]) SetT[E] {
	result := NewSet[E]()
	for member := range set {
		if !other.Contains(member) {
			result.Add(member)
		}
	}
	return result
}
