package sandbox

import (
	"errors"
	"strings"

	"github.com/dop251/goja"

	"github.com/kirollos2001/Data-mind/dataset"
)

// NoCodeError is the distinguished error text returned when there is nothing
// to execute. Callers pattern-match it to show a different user-facing message
// than a runtime failure, so the wording must stay stable.
const NoCodeError = "No code to execute."

// Result carries the artifacts of one code execution. A Result is constructed
// fresh per Execute call and never mutated after return. On failure the chart
// and table lists are empty, but Stdout keeps whatever the code printed before
// it failed.
type Result struct {
	Charts []*Chart
	Tables []*dataset.Dataset
	Stdout string
	Error  string
}

// Success reports whether execution completed without an error report.
func (r *Result) Success() bool { return r.Error == "" }

// IsEmptyCode reports whether the result is the distinguished empty-input error.
func (r *Result) IsEmptyCode() bool { return r.Error == NoCodeError }

// formatTrace renders an execution error with at most limit stack frames.
// goja exceptions carry the full script stack; a handful of frames is enough
// for the model (or the user) to locate the failure.
func formatTrace(err error, limit int) string {
	var exc *goja.Exception
	msg := err.Error()
	if errors.As(err, &exc) {
		msg = exc.String()
	}
	lines := strings.Split(strings.TrimRight(msg, "\n"), "\n")
	if limit > 0 && len(lines) > limit+1 {
		lines = append(lines[:limit+1], "\t... trace truncated")
	}
	return strings.Join(lines, "\n")
}
