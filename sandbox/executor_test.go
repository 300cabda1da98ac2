package sandbox

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kirollos2001/Data-mind/dataset"
)

func salesDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(
		[]string{"region", "sales"},
		[][]any{
			{"north", float64(10)},
			{"south", float64(20)},
			{"north", float64(30)},
		},
	)
	require.NoError(t, err)
	return ds
}

func newTestExecutor(t *testing.T) *JSExecutor {
	t.Helper()
	return NewJSExecutor(zaptest.NewLogger(t), &Config{TimeoutSec: 10})
}

func TestExecuteEmptyCode(t *testing.T) {
	exec := newTestExecutor(t)
	ds := salesDataset(t)

	for _, code := range []string{"", "   ", "\n\t\n"} {
		result := exec.Execute(context.Background(), code, ds)
		assert.Equal(t, NoCodeError, result.Error)
		assert.True(t, result.IsEmptyCode())
		assert.Empty(t, result.Charts)
		assert.Empty(t, result.Tables)
	}
}

func TestExecutePrintAndConsole(t *testing.T) {
	exec := newTestExecutor(t)
	ds := salesDataset(t)

	result := exec.Execute(context.Background(), `
print("hello", 42);
console.log("rows:", df.numRows());
console.warn("careful");
`, ds)

	require.True(t, result.Success(), "unexpected error: %s", result.Error)
	assert.Equal(t, "hello 42\nrows: 3\ncareful", result.Stdout)
}

func TestExecuteFinalExpressionEcho(t *testing.T) {
	exec := newTestExecutor(t)
	ds := salesDataset(t)

	t.Run("BareExpressionIsEchoed", func(t *testing.T) {
		result := exec.Execute(context.Background(), "let total = df.sum(\"sales\");\ntotal", ds)
		require.True(t, result.Success(), "unexpected error: %s", result.Error)
		assert.Equal(t, "60", result.Stdout)
	})

	t.Run("SingleLineIsNotEchoed", func(t *testing.T) {
		result := exec.Execute(context.Background(), `df.sum("sales")`, ds)
		require.True(t, result.Success(), "unexpected error: %s", result.Error)
		assert.Empty(t, result.Stdout)
	})

	t.Run("AssignmentIsNotEchoed", func(t *testing.T) {
		result := exec.Execute(context.Background(), "let a = 1;\nb = a + 1", ds)
		require.True(t, result.Success(), "unexpected error: %s", result.Error)
		assert.Empty(t, result.Stdout)
	})

	t.Run("ClosingBraceIsNotEchoed", func(t *testing.T) {
		result := exec.Execute(context.Background(), "let x = 0;\nfor (let i = 0; i < 3; i++) {\n  x += i;\n}", ds)
		require.True(t, result.Success(), "unexpected error: %s", result.Error)
		assert.Empty(t, result.Stdout)
	})

	t.Run("TrailingPrintIsNotEchoedAsUndefined", func(t *testing.T) {
		result := exec.Execute(context.Background(), "let a = 1;\nprint(a);", ds)
		require.True(t, result.Success(), "unexpected error: %s", result.Error)
		assert.Equal(t, "1", result.Stdout)
	})

	t.Run("DatasetEchoRendersTable", func(t *testing.T) {
		result := exec.Execute(context.Background(), "let top = df.head(1);\ntop", ds)
		require.True(t, result.Success(), "unexpected error: %s", result.Error)
		assert.Contains(t, result.Stdout, "region")
		assert.Contains(t, result.Stdout, "north")
	})
}

func TestExecuteErrorKeepsPartialOutput(t *testing.T) {
	exec := newTestExecutor(t)
	ds := salesDataset(t)

	result := exec.Execute(context.Background(), "print(\"before\");\nnoSuchFunction();", ds)

	require.False(t, result.Success())
	assert.Equal(t, "before", result.Stdout)
	assert.Contains(t, result.Error, "noSuchFunction")
	assert.Empty(t, result.Charts)
	assert.Empty(t, result.Tables)
}

func TestExecuteSyntaxError(t *testing.T) {
	exec := newTestExecutor(t)
	ds := salesDataset(t)

	result := exec.Execute(context.Background(), "let x = ;;;(", ds)

	require.False(t, result.Success())
	assert.NotEmpty(t, result.Error)
	assert.Empty(t, result.Stdout)
}

func TestExecuteDoesNotMutateDataset(t *testing.T) {
	exec := newTestExecutor(t)
	ds := salesDataset(t)
	snapshot := ds.Clone()

	result := exec.Execute(context.Background(), `
df = df.head(1);
let filtered = df.where("region", "==", "north");
`, ds)

	require.True(t, result.Success(), "unexpected error: %s", result.Error)
	assert.True(t, ds.Equal(snapshot), "caller's dataset was mutated")
}

func TestExecuteRestrictedGlobals(t *testing.T) {
	exec := newTestExecutor(t)
	ds := salesDataset(t)

	blocked := []string{
		`require("fs")`,
		`eval("1 + 1")`,
		`new Function("return 1")()`,
		`new Date()`,
		`setTimeout(function() {}, 0)`,
		`process.exit(0)`,
	}
	for _, code := range blocked {
		t.Run(code, func(t *testing.T) {
			// Two lines so the failure happens in the statement phase.
			result := exec.Execute(context.Background(), "let x = 1;\n"+code+";", ds)
			require.False(t, result.Success(), "expected %q to be blocked", code)
		})
	}

	t.Run("AllowedIntrinsicsStillWork", func(t *testing.T) {
		result := exec.Execute(context.Background(), `
print(Math.max(1, 2));
print(JSON.stringify({a: 1}));
print(parseInt("7"));
`, ds)
		require.True(t, result.Success(), "unexpected error: %s", result.Error)
		assert.Equal(t, "2\n{\"a\":1}\n7", result.Stdout)
	})
}

func TestExecuteDeterministic(t *testing.T) {
	exec := newTestExecutor(t)
	ds := salesDataset(t)

	code := `
let xs = [];
for (let i = 0; i < 5; i++) {
  xs.push(Math.round(Math.random() * 1000));
}
print(xs.join(","));
`
	first := exec.Execute(context.Background(), code, ds)
	second := exec.Execute(context.Background(), code, ds.Clone())

	require.True(t, first.Success(), "unexpected error: %s", first.Error)
	require.True(t, second.Success(), "unexpected error: %s", second.Error)
	assert.Equal(t, first.Stdout, second.Stdout)
}

func TestExecuteCollectsArtifacts(t *testing.T) {
	exec := newTestExecutor(t)
	ds := salesDataset(t)

	result := exec.Execute(context.Background(), `
let byRegion = df.groupBy("region", "sum", "sales");
let chart = plot.bar(byRegion, {x: "region", y: "sales_sum", title: "Sales by region"});
`, ds)

	require.True(t, result.Success(), "unexpected error: %s", result.Error)
	require.Len(t, result.Charts, 1)
	assert.Equal(t, ChartBar, result.Charts[0].Kind)
	assert.Equal(t, "Sales by region", result.Charts[0].Title)
	require.Len(t, result.Tables, 1)
	assert.Equal(t, []string{"region", "sales_sum"}, result.Tables[0].Columns())
	assert.Equal(t, 2, result.Tables[0].NumRows())
}

func TestExecuteCollectsAllDeclarationForms(t *testing.T) {
	// var declarations land on the global object, while let and const live in
	// the lexical environment. All three must feed the artifact scan.
	exec := newTestExecutor(t)

	for _, decl := range []string{"var", "let", "const"} {
		t.Run(decl, func(t *testing.T) {
			ds := salesDataset(t)
			code := decl + " chart = plot.bar(df, {x: \"region\", y: \"sales\"});\nprint(\"done\");"

			result := exec.Execute(context.Background(), code, ds)

			require.True(t, result.Success(), "unexpected error: %s", result.Error)
			require.Len(t, result.Charts, 1)
			assert.Equal(t, ChartBar, result.Charts[0].Kind)
		})
	}
}

func TestExecuteExcludesUnmodifiedDataset(t *testing.T) {
	exec := newTestExecutor(t)
	ds := salesDataset(t)

	// df itself and any same-shaped copy must not come back as a table.
	result := exec.Execute(context.Background(), "let copy = df.head(3);\nprint(\"done\");", ds)

	require.True(t, result.Success(), "unexpected error: %s", result.Error)
	assert.Empty(t, result.Tables)
}

func TestExecuteTimeout(t *testing.T) {
	exec := NewJSExecutor(zaptest.NewLogger(t), &Config{TimeoutSec: 1})
	ds := salesDataset(t)

	result := exec.Execute(context.Background(), "let i = 0;\nwhile (true) { i++; }", ds)

	require.False(t, result.Success())
	assert.Contains(t, result.Error, "timed out")
}

func TestExecuteCancellation(t *testing.T) {
	exec := NewJSExecutor(zaptest.NewLogger(t), &Config{TimeoutSec: 0})
	ds := salesDataset(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := exec.Execute(ctx, "let i = 0;\nwhile (true) { i++; }", ds)
	require.False(t, result.Success())
}

func TestExecuteStackOverflowIsContained(t *testing.T) {
	exec := newTestExecutor(t)
	ds := salesDataset(t)

	result := exec.Execute(context.Background(), "function f() { return f(); }\nf();", ds)

	require.False(t, result.Success())
	assert.NotEmpty(t, result.Error)
}

func TestExecuteTraceTruncation(t *testing.T) {
	exec := NewJSExecutor(zaptest.NewLogger(t), &Config{TimeoutSec: 10, MaxTraceFrames: 2})
	ds := salesDataset(t)

	result := exec.Execute(context.Background(), `
function a() { throw new Error("boom"); }
function b() { a(); }
function c() { b(); }
function d() { c(); }
d();
`, ds)

	require.False(t, result.Success())
	assert.Contains(t, result.Error, "boom")
	assert.Contains(t, result.Error, "... trace truncated")
	// Message line, two frames, truncation marker.
	assert.LessOrEqual(t, len(strings.Split(result.Error, "\n")), 4)
}

func TestSplitFinalExpression(t *testing.T) {
	tests := []struct {
		name string
		code string
		want bool
		last string
	}{
		{"BareIdentifier", "let a = 1;\na", true, "a"},
		{"MethodCall", "let t = df.head(2);\nt.numRows()", true, "t.numRows()"},
		{"Assignment", "let a = 1;\na = 2", false, ""},
		{"Declaration", "let a = 1;\nlet b = 2;", false, ""},
		{"SingleLine", "df.numRows()", false, ""},
		{"ClosingBrace", "if (true) {\n  print(1);\n}", false, ""},
		{"TrailingBlank", "let a = 1;\na\n", true, "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, last, ok := splitFinalExpression(tt.code)
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, tt.last, last)
			}
		})
	}
}
