// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package util

import (
	"cmp"
	"slices"
	"strings"
	"testing"
)

func TestParseSExps(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   []string
		errMsg string
	}{
		{"empty", "", []string{}, ""},
		{"atoms", "a 12 -8 x.y", []string{"a", "12", "-8", "x.y"}, ""},
		{"nested", "(proc f (li a 1) ())", []string{"(proc f (li a 1) ())"}, ""},
		{"comments", "(a ; (b\n c) ; done\n", []string{"(a c)"}, ""},
		{"unclosed", "(a (b)", nil, "unexpected end of input"},
		{"extra close", "(a))", nil, "unexpected ')'"},
		{"bad character", "(a #b)", nil, "unrecognized"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sexps, err := ParseSExps(test.input)
			if test.errMsg != "" {
				if err == nil || !strings.Contains(err.Error(), test.errMsg) {
					t.Fatalf("got error %v, want one containing %q", err, test.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := []string{}
			for _, sexp := range sexps {
				got = append(got, sexp.String())
			}
			if !slices.Equal(got, test.want) {
				t.Errorf("got %v, want %v", got, test.want)
			}
		})
	}
}

func TestSExpDetails(t *testing.T) {
	sexp, err := ParseSExp("\n(load x sp -8)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sexp.Kind != SExpList || sexp.Line != 2 || len(sexp.List) != 4 {
		t.Fatalf("got %s on line %d", sexp, sexp.Line)
	}
	if !sexp.List[0].IsSymbol("load") || sexp.List[0].IsSymbol("store") {
		t.Errorf("IsSymbol is wrong for %s", sexp.List[0])
	}
	if sexp.List[3].Kind != SExpInt || sexp.List[3].Integer != -8 {
		t.Errorf("got %s, want the integer -8", sexp.List[3])
	}
	if _, err := ParseSExp("a b"); err == nil {
		t.Errorf("no error for two expressions")
	}
}

func TestSet(t *testing.T) {
	set := NewSet(3, 1)
	if !set.Insert(2) || set.Insert(2) {
		t.Errorf("Insert did not report new members correctly")
	}
	set.Remove(3)
	if set.Contains(3) || !set.Contains(1) {
		t.Errorf("got %v", set)
	}
	union := set.Union(NewSet(5))
	if got := union.SortedMembers(cmp.Compare[int]); !slices.Equal(got, []int{1, 2, 5}) {
		t.Errorf("union: got %v, want [1 2 5]", got)
	}
	difference := union.Difference(NewSet(2))
	if got := difference.SortedMembers(cmp.Compare[int]); !slices.Equal(got, []int{1, 5}) {
		t.Errorf("difference: got %v, want [1 5]", got)
	}
	if len(set.Members()) != 2 {
		t.Errorf("union modified its receiver: %v", set)
	}
}

func TestStack(t *testing.T) {
	stack := StackT[string]{}
	if !stack.Empty() {
		t.Fatalf("new stack is not empty")
	}
	stack.Push("a")
	stack.Push("b")
	if stack.Pop() != "b" {
		t.Errorf("wrong top")
	}
	stack.Push("c")
	if stack.Len() != 2 || stack.Ref(0) != "a" || stack.Top() != "c" {
		t.Errorf("got length %d, bottom %s, top %s", stack.Len(), stack.Ref(0), stack.Top())
	}
	if got := stack.Elements(); !slices.Equal(got, []string{"a", "c"}) {
		t.Errorf("got elements %v", got)
	}
	stack.Pop()
	stack.Pop()
	defer func() {
		if AsBug(recover()) == nil {
			t.Errorf("popping an empty stack did not panic")
		}
	}()
	stack.Pop()
}

func TestStronglyConnectedComponents(t *testing.T) {
	chain := map[int][]int{}
	for i := range 9999 {
		chain[i] = []int{i + 1}
	}
	chainWant := [][]int{}
	for i := range 10000 {
		chainWant = append(chainWant, []int{i})
	}
	tests := []struct {
		name  string
		count int
		edges map[int][]int
		want  [][]int
	}{
		{"empty", 0, nil, [][]int{}},
		{"self loop", 1, map[int][]int{0: {0}}, [][]int{{0}}},
		{"loop in the middle", 6,
			map[int][]int{0: {1}, 1: {2, 4}, 2: {3, 4}, 3: {1, 2}, 4: {5}},
			[][]int{{0}, {1, 2, 3}, {4}, {5}}},
		{"backwards", 3, map[int][]int{2: {1}, 1: {0}}, [][]int{{2}, {1}, {0}}},
		{"long chain", 10000, chain, chainWant},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := StronglyConnectedComponents(test.count, func(i int) []int { return test.edges[i] })
			if !slices.EqualFunc(got, test.want, func(x, y []int) bool { return slices.Equal(x, y) }) {
				t.Errorf("got %v, want %v", got, test.want)
			}
		})
	}
}

func TestBug(t *testing.T) {
	defer func() {
		recovered := recover()
		bug := AsBug(recovered)
		if bug == nil {
			t.Fatalf("got %v, want a bug", recovered)
		}
		if bug.Error() != "internal error: node 7 is lost" {
			t.Errorf("got message %q", bug.Error())
		}
	}()
	if AsBug("something else") != nil {
		t.Errorf("AsBug accepted a string")
	}
	Bug("node %d is lost", 7)
}
