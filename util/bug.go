// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Internal consistency failures.  These are compiler bugs, not
// errors in the program being compiled, so they panic.  The panic
// value has its own type so that the top of a compilation can
// tell a detected inconsistency from any other crash.

package util

import (
	"fmt"
)

type BugT struct {
	Message string
}

func (bug *BugT) Error() string {
	return "internal error: " + bug.Message
}

func Bug(format string, args ...any) {
	panic(&BugT{Message: fmt.Sprintf(format, args...)})
}

// Returns the panic value as a *BugT, or nil if it is something else.
func AsBug(recovered any) *BugT {
	bug, ok := recovered.(*BugT)
	if !ok {
		return nil
	}
	return bug
}
