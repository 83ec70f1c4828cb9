// Package pkg provides the core functionality of dissecting log lines into typed fields.
// This package (and subpackages) is a dependency of anything in the plugin package.
//   - The dissect package contains the dissection engine: field paths, the dissector catalog, the Parser that compiles requested fields into a Plan, and the per-line Parsable evaluator.
//   - The reader package turns an iterator.Iterator of raw lines into dissected records, counting good and bad lines.
//   - The iterator package contains functions for creating and altering the behavior of an iterator.Iterator.
//   - The entries package contains the entries.LogEntry record, which receives dissected values.
package pkg
