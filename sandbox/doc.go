// Package sandbox executes model-generated analysis code against an in-memory
// dataset under a restricted capability set.
//
// The sandbox embeds an ECMAScript interpreter and exposes only a fixed
// allow-list of globals to the untrusted code: the dataset (bound as "df"),
// a plotting namespace, console-style printing, and a handful of safe helper
// functions and intrinsics. There is no reachable file system, network,
// process, or module access. After execution, the artifact collector walks
// the resulting variable bindings and extracts chart specifications and
// derived tables, filtering out the unmodified input dataset.
//
// Usage:
//
//	executor, err := sandbox.NewExecutor(logger, cfg, sandbox.EngineJS)
//	result := executor.Execute(ctx, `print(df.describe())`, ds)
//	if !result.Success() {
//	    // result.Error carries a bounded stack trace
//	}
package sandbox
