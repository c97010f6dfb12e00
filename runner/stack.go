package runner

import (
	"fmt"
	"runtime"
	"strings"
)

// StackBoundary is the synthetic line appended to every captured stack.
// Frames below it belong to the dispatch machinery, not to handler code,
// so consumers rendering a trace cut just before this line.
const StackBoundary = "at [invocation boundary] (github.com/aura-studio/offline/runner)"

const maxStackFrames = 64

// stackDepth counts the frames from its caller down to the goroutine root.
func stackDepth() int {
	pcs := make([]uintptr, maxStackFrames)
	return runtime.Callers(2, pcs)
}

// captureStack formats the frames of the panicking goroutine above the
// recorded base depth. Runtime frames are dropped, handler frames kept,
// and StackBoundary terminates the result.
func captureStack(base int) []string {
	pcs := make([]uintptr, maxStackFrames)
	n := runtime.Callers(3, pcs)

	keep := n - base
	if keep <= 0 || keep > n {
		keep = n
	}

	frames := runtime.CallersFrames(pcs[:keep])
	lines := make([]string, 0, keep+1)
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !strings.HasPrefix(frame.Function, "runtime.") {
			lines = append(lines, fmt.Sprintf("at %s (%s:%d)", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}

	return append(lines, StackBoundary)
}
