// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package util

import (
	"slices"
)

// A last-in first-out stack.  Popping or looking at the top of an
// empty stack is an internal error.

type StackT[T any] struct {
	elts []T
}

func (stack *StackT[T]) Len() int    { return len(stack.elts) }
func (stack *StackT[T]) Empty() bool { return len(stack.elts) == 0 }

// Index 0 is the bottom of the stack.
func (stack *StackT[T]) Ref(i int) T {
	if len(stack.elts) <= i {
		Bug("stack index %d with only %d elements", i, len(stack.elts))
	}
	return stack.elts[i]
}

func (stack *StackT[T]) Push(elt T) {
	stack.elts = append(stack.elts, elt)
}

func (stack *StackT[T]) Pop() T {
	elt := stack.Top()
	var zero T
	stack.elts[len(stack.elts)-1] = zero
	stack.elts = stack.elts[:len(stack.elts)-1]
	return elt
}

func (stack *StackT[T]) Top() T {
	if len(stack.elts) == 0 {
		Bug("empty stack")
	}
	return stack.elts[len(stack.elts)-1]
}

// The elements from bottom to top.
func (stack *StackT[T]) Elements() []T {
	return slices.Clone(stack.elts)
}
