// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Allocate registers for test programs and check that they still
// compute the right answers.
//  --program <name>   Uses 'test/programs/<name>.s'.
//  --all              Uses every program in allTests.
//  --target <target>  'rN' for registers r0 ... r<N-1>, or 'amd64'.
//  --max-passes <n>   Gives up after n passes; 0 means no limit.
//  --print            Prints the allocated listings.
//  --trace            Logs each allocation pass.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/nikandfor/errors"
	"github.com/nikandfor/tlog"
	"github.com/spf13/cobra"

	"github.com/s48/regalloc/asm"
	"github.com/s48/regalloc/frame"
	"github.com/s48/regalloc/regalloc"
)

var (
	programDir  string
	programName string
	allPrograms bool
	targetName  string
	maxPasses   int
	printResult bool
	trace       bool
)

var rootCmd = &cobra.Command{
	Use:   "test",
	Short: "Allocate registers for test programs and run them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !allPrograms && programName == "" {
			return errors.New("need --program or --all")
		}
		return run(cmd.Context())
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&programDir, "dir", "test/programs", "directory containing the programs")
	flags.StringVar(&programName, "program", "", "program to allocate")
	flags.BoolVar(&allPrograms, "all", false, "allocate every program")
	flags.StringVar(&targetName, "target", "r4", "target machine: rN or amd64")
	flags.IntVar(&maxPasses, "max-passes", 0, "maximum number of allocation passes (0 for no limit)")
	flags.BoolVar(&printResult, "print", false, "print the allocated listings")
	flags.BoolVar(&trace, "trace", false, "log allocation passes")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func makeTarget(name string) (*frame.TargetT, error) {
	if name == "amd64" {
		return frame.Amd64(), nil
	}
	if k, err := strconv.Atoi(strings.TrimPrefix(name, "r")); err == nil && strings.HasPrefix(name, "r") && 0 < k {
		return frame.NewTarget(name, k), nil
	}
	return nil, errors.New("unknown target '%s'", name)
}

func run(ctx context.Context) error {
	target, err := makeTarget(targetName)
	if err != nil {
		return err
	}
	if trace {
		tlog.DefaultLogger = tlog.New(tlog.NewConsoleWriter(os.Stderr, tlog.LstdFlags))
		tr := tlog.Start("test", "target", target.String())
		defer tr.Finish()
		ctx = tlog.ContextWithSpan(ctx, tr)
	}

	names := []string{programName}
	if allPrograms {
		names = []string{}
		for name := range allTests {
			names = append(names, name)
		}
		slices.Sort(names)
	}

	failed := []string{}
	for _, name := range names {
		if err := runProgram(ctx, name, target); err != nil {
			fmt.Printf("%s: %v\n", name, err)
			failed = append(failed, name)
		}
	}
	if len(failed) != 0 {
		return errors.New("failed: %s", strings.Join(failed, " "))
	}
	return nil
}

func runProgram(ctx context.Context, name string, target *frame.TargetT) error {
	test := allTests[name]
	if test == nil {
		return errors.New("no test cases")
	}
	source := filepath.Join(programDir, name+".s")
	data, err := os.ReadFile(source)
	if err != nil {
		return errors.Wrap(err, "read")
	}
	proc, err := asm.ReadProc(string(data), target)
	if err != nil {
		return errors.Wrap(err, "%s", source)
	}
	stackFrame := target.NewFrame(proc.Name)
	result, err := regalloc.Allocate(ctx, proc, stackFrame, regalloc.OptionsT{MaxPasses: maxPasses})
	if err != nil {
		return err
	}
	if err := regalloc.Verify(result.Instrs, result.Coloring, stackFrame); err != nil {
		return errors.Wrap(err, "bad allocation")
	}
	if printResult {
		removed := len(result.Instrs) - len(result.RemoveRedundantMoves())
		fmt.Print(result.Format())
		fmt.Printf("  %d passes, %d spilled, %d bytes of stack, %d moves removed\n",
			result.Passes, len(result.Spilled), stackFrame.Size(), removed)
	}
	fmt.Printf("running '%s' tests\n", name)
	return runTests(test, proc, result, target)
}

//----------------------------------------------------------------

type testT struct {
	cases []testCaseT
}

type testCaseT struct {
	inputs  []int
	outputs []int
}

var allTests = map[string]*testT{
	"fact": &testT{cases: []testCaseT{
		testCaseT{[]int{1}, []int{1}},
		testCaseT{[]int{5}, []int{120}},
	}},
	"sum": &testT{cases: []testCaseT{
		testCaseT{[]int{0}, []int{0}},
		testCaseT{[]int{10}, []int{55}},
	}},
	"add": &testT{cases: []testCaseT{
		testCaseT{[]int{4, 4}, []int{24}},
		testCaseT{[]int{4, 5}, []int{26}},
		testCaseT{[]int{5, 4}, []int{33}},
	}},
	"swap": &testT{cases: []testCaseT{
		testCaseT{[]int{1, 2}, []int{2, 1}},
	}},
	"many": &testT{cases: []testCaseT{
		testCaseT{[]int{3, 2}, []int{51}},
		testCaseT{[]int{10, 4}, []int{162}},
	}},
	"nested": &testT{cases: []testCaseT{
		testCaseT{[]int{3, 4}, []int{18}},
		testCaseT{[]int{4, 5}, []int{60}},
	}},
}

// Each case is run on the original program and on the allocated one.

func runTests(test *testT, proc *asm.ProcT, result *regalloc.ResultT, target *frame.TargetT) error {
	okay := true
	for i, testCase := range test.cases {
		before, err := asm.Evaluate(proc.Instrs, target.SP, testCase.inputs)
		if err != nil {
			return errors.Wrap(err, "test %d before allocation", i)
		}
		after, err := result.Evaluate(testCase.inputs)
		if err != nil {
			return errors.Wrap(err, "test %d after allocation", i)
		}
		for _, got := range [][]int{before, after} {
			if !slices.Equal(got, testCase.outputs) {
				fmt.Printf("  test %d returned %v but expected %v\n", i, got, testCase.outputs)
				okay = false
			}
		}
	}
	if !okay {
		return errors.New("wrong results")
	}
	return nil
}
