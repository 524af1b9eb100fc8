// Package internal contains the core implementation packages for semtex.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - scanner: Source loading, the macro scanner and the replacement log
//   - macros: Built-in macro replacers (\summ, \summation)
//   - queue: The gated FIFO of discovered include files
//   - build: Pipeline orchestration, worker pool, output writing and metrics
//   - typeset: Invocation of the external LaTeX engine
//   - errors: Structured diagnostics, collection and printing
//   - config: Configuration loading and validation
//   - validation: Allowlists for typesetter commands and output paths
//   - watcher: File system monitoring with debouncing
//   - logging, version: Structured logging and build information
//
// # Inter-Package Communication
//
//   - The build pipeline owns a SharedContext that workers read and write
//   - The scanner reports includes through the IncludeResolver interface,
//     which the build package implements on top of the queue
//   - Replacers reach the scanner only through the Parser cursor API
//   - The watcher hands debounced change batches to the command layer
//
// # Concurrency
//
// The root file is processed on the calling goroutine. Workers exist only
// once a second file is discovered, and a sticky error flag stops new files
// from being started after the first failure.
package internal
