package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// StackFrame is one frame of a captured stack.
type StackFrame struct {
	Function string
	File     string
	Line     int
}

func (f StackFrame) String() string {
	return fmt.Sprintf("%s\n\t%s:%d", f.Function, f.File, f.Line)
}

// captureStack records the caller's stack, skipping skip frames above
// captureStack itself. Runtime and testing frames are dropped.
func captureStack(skip int) []StackFrame {
	const maxDepth = 32
	var pcs [maxDepth]uintptr
	n := runtime.Callers(skip+1, pcs[:])

	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]StackFrame, 0, n)
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") &&
			!strings.HasPrefix(frame.Function, "testing.") {
			stack = append(stack, StackFrame{
				Function: frame.Function,
				File:     frame.File,
				Line:     frame.Line,
			})
		}
		if !more {
			break
		}
	}
	return stack
}

// GetStack returns the stack captured by the first error in the chain
// that has one.
func GetStack(err error) []StackFrame {
	var st interface{ Stack() []StackFrame }
	if errors.As(err, &st) {
		return st.Stack()
	}
	return nil
}

// Chain returns the message of every error in the wrap chain.
func Chain(err error) []string {
	var chain []string
	for ; err != nil; err = errors.Unwrap(err) {
		chain = append(chain, err.Error())
	}
	return chain
}

// RootCause returns the innermost wrapped error.
func RootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// FormatStackTrace renders frames as a numbered list.
func FormatStackTrace(frames []StackFrame) string {
	if len(frames) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Stack trace:\n")
	for i, f := range frames {
		fmt.Fprintf(&sb, "  %d. %s\n       at %s:%d\n", i+1, f.Function, f.File, f.Line)
	}
	return sb.String()
}

// FormatDebugError renders err for --debug: the message, the wrap chain,
// category, suggestion, captured stack and root cause.
func FormatDebugError(err error) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", err)

	if chain := Chain(err); len(chain) > 1 {
		sb.WriteString("\nError chain:\n")
		for i, msg := range chain {
			fmt.Fprintf(&sb, "  %d. %s\n", i+1, msg)
		}
	}

	fmt.Fprintf(&sb, "\nCategory: %s\n", Classify(err))
	if s := GetSuggestion(err); s != "" {
		fmt.Fprintf(&sb, "\nSuggestion: %s\n", s)
	}
	if stack := GetStack(err); len(stack) > 0 {
		sb.WriteString("\n" + FormatStackTrace(stack))
	}
	if root := RootCause(err); root != err {
		fmt.Fprintf(&sb, "\nRoot cause: %v\n", root)
	}
	return sb.String()
}

// FormatUserError renders err for the terminal: the message, then the
// suggestion, then usage examples for errors the user can fix.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(err.Error())
	if s := GetSuggestion(err); s != "" {
		sb.WriteString("\n\n" + s)
	}
	if !IsUserError(err) {
		return sb.String()
	}
	if examples := GetExamples(err); len(examples) > 0 {
		sb.WriteString("\n\nExamples:\n")
		for _, ex := range examples {
			sb.WriteString("  " + ex + "\n")
		}
	}
	return sb.String()
}
