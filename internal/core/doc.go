// Package core runs the tabular operations behind both the web server and
// the command line tool.
//
// It is transport independent: callers hand a [Service] raw file bytes in
// request structs and get back a [Result] listing the generated files.
//
// # Operations
//
//   - [Service.Split] cuts one file into N contiguous parts.
//   - [Service.Diff] reconciles two files by a join column and writes the
//     left-only, overlapping and right-only rows to one file.
//   - [Service.Filter] writes the rows matching a predicate expression and
//     the rest to two files.
//   - [Service.Merge] enriches every row of the first file with its match
//     in the second.
//   - [Service.Inspect] reports a file's columns and suggests a join column.
//
// Every operation holds a slot of the [OperationLimiter] while it decodes
// its inputs, runs the engine and encodes its outputs. A decode failure or
// an incomplete configuration aborts the operation before anything is
// stored. Outputs are kept in the [ArtifactStore] for download and each run
// is written to the [HistoryStore].
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each category has a code for support reference:
//
//   - CFG001: incomplete configuration
//   - FILE001-FILE005: file errors (size, format, encoding, missing, empty)
//   - OP001-OP003: operation errors (busy, artifact expired, storage full)
//   - UPL004-UPL005: request cancelled or timed out
//   - RATE001: rate limited
package core
