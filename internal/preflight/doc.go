// Package preflight provides readiness checks for the engine binaries and
// filesystem paths that ffcuesplitter depends on.
//
// These checks run in two contexts:
//   - The split command calls RunAll and CheckSystemDeps before the first
//     job so a missing binary or read-only destination fails fast.
//   - The status command prints every result as a status line.
package preflight
