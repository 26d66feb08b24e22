// Package profile provides optional runtime profiling for the strata
// application.
//
// This package integrates [github.com/pkg/profile] behind the "pprof" build
// tag. When built without the tag (default), all operations are no-ops with
// zero runtime overhead, and the CLI hides the profiling flags.
//
// The following profiling modes are supported when built with the pprof tag:
//
//   - allocs:    Memory allocation profiling (all allocations)
//   - block:     Block (synchronization) profiling
//   - clock:     Wall-clock profiling
//   - cpu:       CPU profiling
//   - goroutine: Goroutine profiling
//   - heap:      Heap memory profiling (live allocations)
//   - mem:       General memory profiling
//   - mutex:     Mutex contention profiling
//   - thread:    Thread creation profiling
//   - trace:     Execution trace profiling
//
// Use [Modes] to retrieve the list of supported modes programmatically.
//
// Profiling output is written to a directory selected by the CLI
// (--pprof-dir), one profile per run:
//
//	strata --pprof-mode=cpu resolve recipe.yaml
//	go tool pprof cpu.pprof
package profile

// Tag is the build tag that enables profiling support.
const Tag = `pprof`
