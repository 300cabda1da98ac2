package sandbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
	"go.uber.org/zap"

	"github.com/kirollos2001/Data-mind/dataset"
)

// DefaultMaxTraceFrames is how many stack frames an error report keeps when
// the configuration does not say otherwise.
const DefaultMaxTraceFrames = 4

// Config holds the execution limits for a sandbox executor.
type Config struct {
	// TimeoutSec is the wall-clock limit per execution. Zero disables the
	// timeout and a runaway script blocks its caller.
	TimeoutSec int
	// MaxTraceFrames bounds the stack trace in error reports.
	MaxTraceFrames int
	// MaxCollectDepth bounds the artifact collector's recursion.
	MaxCollectDepth int
}

// CodeExecutor executes model-generated analysis code against a dataset.
// Implementations must recover every execution failure into the returned
// Result; nothing escapes Execute as a panic or error.
type CodeExecutor interface {
	Execute(ctx context.Context, code string, ds *dataset.Dataset) Result
}

// JSExecutor runs analysis code on an embedded ECMAScript interpreter with a
// capability-restricted global environment. Every call builds a fresh VM and
// binds a private copy of the dataset, so concurrent and sequential calls
// share no state.
type JSExecutor struct {
	logger *zap.Logger
	config *Config
}

// NewJSExecutor creates a JSExecutor.
func NewJSExecutor(logger *zap.Logger, config *Config) *JSExecutor {
	cfg := *config
	if cfg.MaxTraceFrames <= 0 {
		cfg.MaxTraceFrames = DefaultMaxTraceFrames
	}
	if cfg.MaxCollectDepth <= 0 {
		cfg.MaxCollectDepth = DefaultMaxCollectDepth
	}
	return &JSExecutor{logger: logger, config: &cfg}
}

// Execute runs code against ds and returns the collected artifacts. The
// caller's dataset is cloned before binding, so sandboxed code can never
// mutate it. All failures (syntax errors, runtime exceptions, interrupts,
// even panics out of capability bindings) come back as Result.Error.
func (e *JSExecutor) Execute(ctx context.Context, code string, ds *dataset.Dataset) (res Result) {
	if strings.TrimSpace(code) == "" {
		return Result{Error: NoCodeError}
	}

	var console strings.Builder
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("sandbox execution panicked", zap.Any("panic", r))
			res = Result{
				Stdout: strings.TrimSpace(console.String()),
				Error:  fmt.Sprintf("internal execution failure: %v", r),
			}
		}
	}()

	env, err := newEnvironment(&console, ds.Clone())
	if err != nil {
		return Result{Error: fmt.Sprintf("failed to build execution environment: %v", err)}
	}

	// Interrupt the VM on timeout or caller cancellation. The watcher exits
	// when Execute returns, so a finished run is never interrupted late.
	runCtx := ctx
	if e.config.TimeoutSec > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.config.Timeout())
		defer cancel()
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-runCtx.Done():
			env.vm.Interrupt("execution timed out")
		case <-done:
		}
	}()

	stmts, lastExpr, echo := splitFinalExpression(code)
	if echo {
		// The model often ends generated code with a bare expression meaning
		// "show me this". Expression results are not bound to a name, so the
		// collector would never see them; echo the value into the console
		// instead.
		if _, err := env.vm.RunString(stmts); err != nil {
			return e.failure(&console, err)
		}
		val, err := env.vm.RunString(lastExpr)
		if err != nil {
			return e.failure(&console, err)
		}
		// Expressions that produce nothing (a trailing print call, a void
		// method) are not echoed.
		if val != nil && !goja.IsUndefined(val) {
			console.WriteString(env.format(val))
			console.WriteByte('\n')
		}
	} else {
		if _, err := env.vm.RunString(code); err != nil {
			return e.failure(&console, err)
		}
	}

	charts, tables := Collect(env.bindings(declaredNames(code)), ds, e.config.MaxCollectDepth)
	e.logger.Debug("analysis code executed",
		zap.Int("charts", len(charts)),
		zap.Int("tables", len(tables)),
		zap.Int("stdout_len", console.Len()))

	return Result{
		Charts: charts,
		Tables: tables,
		Stdout: strings.TrimSpace(console.String()),
	}
}

// failure converts an execution error into an error Result, keeping whatever
// console output the code produced before it failed.
func (e *JSExecutor) failure(console *strings.Builder, err error) Result {
	report := formatTrace(err, e.config.MaxTraceFrames)
	e.logger.Debug("analysis code failed", zap.String("error", report))
	return Result{
		Stdout: strings.TrimSpace(console.String()),
		Error:  report,
	}
}

// splitFinalExpression decides whether the final line of code is a bare
// expression worth echoing. The final line is classified by actually parsing
// it: a single expression statement that is not an assignment qualifies.
// Control flow, declarations, assignments, and anything that fails to parse
// on its own (such as the tail of a multi-line expression) do not.
func splitFinalExpression(code string) (stmts, lastExpr string, ok bool) {
	trimmed := strings.TrimSpace(code)
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return code, "", false
	}
	last := strings.TrimSpace(lines[len(lines)-1])
	if !isBareExpression(last) {
		return code, "", false
	}
	return strings.Join(lines[:len(lines)-1], "\n"), last, true
}

// declaredNames lists the identifiers the program declares at the top level.
// var and function declarations also surface as global-object properties, but
// let and const bindings do not, so the artifact scan needs the names to
// resolve them after execution. Destructuring targets are skipped.
func declaredNames(code string) []string {
	prog, err := parser.ParseFile(nil, "", code, 0)
	if err != nil {
		return nil
	}
	var names []string
	for _, stmt := range prog.Body {
		switch s := stmt.(type) {
		case *ast.VariableStatement:
			names = appendBindingNames(names, s.List)
		case *ast.LexicalDeclaration:
			names = appendBindingNames(names, s.List)
		case *ast.FunctionDeclaration:
			if s.Function.Name != nil {
				names = append(names, s.Function.Name.Name.String())
			}
		}
	}
	return names
}

func appendBindingNames(names []string, list []*ast.Binding) []string {
	for _, b := range list {
		if id, ok := b.Target.(*ast.Identifier); ok {
			names = append(names, id.Name.String())
		}
	}
	return names
}

func isBareExpression(line string) bool {
	if line == "" {
		return false
	}
	prog, err := parser.ParseFile(nil, "", line, 0)
	if err != nil || len(prog.Body) != 1 {
		return false
	}
	stmt, ok := prog.Body[0].(*ast.ExpressionStatement)
	if !ok {
		return false
	}
	if _, isAssign := stmt.Expression.(*ast.AssignExpression); isAssign {
		return false
	}
	return true
}
