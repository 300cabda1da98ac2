package sandbox

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/dop251/goja"

	"github.com/kirollos2001/Data-mind/dataset"
)

// maxCallStackSize bounds script recursion depth so a runaway script raises a
// catchable stack overflow instead of exhausting the host stack.
const maxCallStackSize = 500

// randSeed makes Math.random deterministic. Executions of identical code
// against identical data must produce identical results.
const randSeed = 12345

// allowedGlobals is the capability allow-list: every global name reachable
// from sandboxed code. Anything else is deleted from the global object before
// user code runs, so an out-of-list reference fails with a ReferenceError.
// None of the retained names can reach the host file system, network, process
// environment, or module loading.
var allowedGlobals = map[string]bool{
	// Immutable bindings of the global object itself.
	"undefined": true, "NaN": true, "Infinity": true, "globalThis": true,

	// Safe ECMAScript intrinsics. Date is removed for determinism; eval,
	// Function, Promise, Proxy and Reflect are removed as escape hatches.
	"Object": true, "Array": true, "String": true, "Number": true,
	"Boolean": true, "Math": true, "JSON": true, "RegExp": true,
	"Map": true, "Set": true, "Symbol": true,
	"parseInt": true, "parseFloat": true, "isNaN": true, "isFinite": true,

	// Exception types analysis code may throw or catch.
	"Error": true, "TypeError": true, "RangeError": true,
	"ReferenceError": true, "SyntaxError": true, "EvalError": true,
	"URIError": true,

	// Host capabilities bound by newEnvironment.
	"df": true, "plot": true, "print": true, "console": true,
	"len": true, "sum": true, "range": true,
}

// environment is the per-execution capability environment: a fresh goja VM
// with the allow-list applied and console output redirected into a buffer.
// Environments are never shared or reused across calls.
type environment struct {
	vm      *goja.Runtime
	console *strings.Builder
}

// newEnvironment builds a restricted VM with the given dataset copy bound as
// "df". The caller owns df; pass a private clone, never the original.
func newEnvironment(console *strings.Builder, df *dataset.Dataset) (*environment, error) {
	vm := goja.New()
	vm.SetMaxCallStackSize(maxCallStackSize)

	seeded := rand.New(rand.NewSource(randSeed))
	vm.SetRandSource(func() float64 { return seeded.Float64() })

	// Go methods and fields surface with a lowercased first letter, so
	// scripts see df.head(), df.describe(), plot.bar() and so on.
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())

	env := &environment{vm: vm, console: console}
	if err := env.bindCapabilities(df); err != nil {
		return nil, err
	}
	if err := env.restrictGlobals(); err != nil {
		return nil, err
	}
	return env, nil
}

func (env *environment) bindCapabilities(df *dataset.Dataset) error {
	vm := env.vm

	if err := vm.Set("df", df); err != nil {
		return fmt.Errorf("bind df: %w", err)
	}
	if err := vm.Set("plot", plotAPI{}); err != nil {
		return fmt.Errorf("bind plot: %w", err)
	}

	printFn := func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = env.format(arg)
		}
		env.console.WriteString(strings.Join(parts, " "))
		env.console.WriteByte('\n')
		return goja.Undefined()
	}
	if err := vm.Set("print", printFn); err != nil {
		return fmt.Errorf("bind print: %w", err)
	}

	consoleObj := vm.NewObject()
	for _, name := range []string{"log", "info", "warn", "error"} {
		if err := consoleObj.Set(name, printFn); err != nil {
			return fmt.Errorf("bind console.%s: %w", name, err)
		}
	}
	if err := vm.Set("console", consoleObj); err != nil {
		return fmt.Errorf("bind console: %w", err)
	}

	if err := vm.Set("len", capLen); err != nil {
		return fmt.Errorf("bind len: %w", err)
	}
	if err := vm.Set("sum", capSum); err != nil {
		return fmt.Errorf("bind sum: %w", err)
	}
	if err := vm.Set("range", capRange); err != nil {
		return fmt.Errorf("bind range: %w", err)
	}
	return nil
}

// restrictGlobals removes every global binding outside the allow-list and
// disables the Function constructor, which is equivalent to eval.
func (env *environment) restrictGlobals() error {
	namesVal, err := env.vm.RunString(`Object.getOwnPropertyNames(this)`)
	if err != nil {
		return fmt.Errorf("enumerate globals: %w", err)
	}
	names, _ := namesVal.Export().([]any)
	glob := env.vm.GlobalObject()
	for _, n := range names {
		name, ok := n.(string)
		if !ok || allowedGlobals[name] {
			continue
		}
		// Non-configurable globals cannot be deleted; none of them are
		// capabilities, so a failed delete is harmless.
		_ = glob.Delete(name)
	}

	_, err = env.vm.RunString(`(function() {
	try {
		Object.defineProperty(Function.prototype, 'constructor', {
			value: function() { throw new TypeError('Function constructor is disabled'); },
			writable: false,
			configurable: false
		});
	} catch (e) {}
})();`)
	if err != nil {
		return fmt.Errorf("disable Function constructor: %w", err)
	}
	return nil
}

// bindings returns the values observable in the execution namespace after the
// run: every enumerable global-object property (var declarations, implicit
// globals, the capability bindings and df) plus the values of the given
// declared names. Top-level let and const live in the global lexical
// environment, never as object properties, so they have to be resolved by
// name. The dataset copy is filtered out downstream by the collector's
// structural check.
func (env *environment) bindings(declared []string) []any {
	glob := env.vm.GlobalObject()
	keys := glob.Keys()
	seen := make(map[string]bool, len(keys))
	values := make([]any, 0, len(keys)+len(declared))
	for _, k := range keys {
		seen[k] = true
		v := glob.Get(k)
		if v == nil {
			continue
		}
		values = append(values, v.Export())
	}
	for _, name := range declared {
		if seen[name] {
			continue
		}
		seen[name] = true
		v, err := env.vm.RunString(name)
		if err != nil || v == nil {
			continue
		}
		values = append(values, v.Export())
	}
	return values
}

// format renders a value for console output.
func (env *environment) format(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	switch x := v.Export().(type) {
	case *dataset.Dataset:
		return x.String()
	case *Chart:
		return x.String()
	case string:
		return x
	case float64:
		return formatNumber(x)
	case int64:
		return fmt.Sprintf("%d", x)
	case bool:
		return fmt.Sprintf("%t", x)
	case nil:
		return "null"
	default:
		if b, err := json.Marshal(x); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", x)
	}
}

func formatNumber(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// capLen is the len capability: element count for strings, sequences,
// mappings, and datasets.
func capLen(v any) (int, error) {
	switch x := v.(type) {
	case string:
		return len(x), nil
	case []any:
		return len(x), nil
	case map[string]any:
		return len(x), nil
	case *dataset.Dataset:
		return x.NumRows(), nil
	default:
		return 0, fmt.Errorf("len: unsupported type %T", v)
	}
}

// capSum is the sum capability: adds the numeric elements of a sequence.
func capSum(v any) (float64, error) {
	seq, ok := v.([]any)
	if !ok {
		return 0, fmt.Errorf("sum: expected a sequence, got %T", v)
	}
	total := 0.0
	for i, e := range seq {
		switch n := e.(type) {
		case float64:
			total += n
		case int64:
			total += float64(n)
		default:
			return 0, fmt.Errorf("sum: element %d is not a number", i)
		}
	}
	return total, nil
}

// capRange is the range capability: range(stop), range(start, stop) or
// range(start, stop, step).
func capRange(args ...int64) ([]int64, error) {
	var start, stop, step int64
	switch len(args) {
	case 1:
		start, stop, step = 0, args[0], 1
	case 2:
		start, stop, step = args[0], args[1], 1
	case 3:
		start, stop, step = args[0], args[1], args[2]
	default:
		return nil, fmt.Errorf("range: expected 1 to 3 arguments, got %d", len(args))
	}
	if step == 0 {
		return nil, fmt.Errorf("range: step must not be zero")
	}
	out := make([]int64, 0)
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, i)
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, i)
		}
	}
	return out, nil
}
